package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greensretreat/ggr-bookings/internal/domain"
)

type ReservationsRepo interface {
	Create(ctx context.Context, r *domain.Reservation) error
	Update(ctx context.Context, r *domain.Reservation) (bool, error)
	UpdateStatus(ctx context.Context, id string, status domain.ReservationStatus) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)
	GetByIDWithToken(ctx context.Context, id, token string) (*domain.Reservation, error)
	List(ctx context.Context, limit, offset int) ([]domain.Reservation, error)
	ListByStatus(ctx context.Context, status domain.ReservationStatus, limit, offset int) ([]domain.Reservation, error)
	ListBlocking(ctx context.Context, cottageID string) ([]domain.BlockedStay, error)
	ListOverlapCandidates(ctx context.Context, cottageID string, before time.Time, excludeID string) ([]domain.Reservation, error)
}

type ReservationsRepoImpl struct{ pool *pgxpool.Pool }

func NewReservationsRepo(pool *pgxpool.Pool) *ReservationsRepoImpl {
	return &ReservationsRepoImpl{pool: pool}
}

const reservationCols = `id, cottage_id, manage_token, status,
guest_name, guest_email, guest_phone,
check_in, check_out, price, notes,
created_at, updated_at`

func scanReservation(row pgx.Row, r *domain.Reservation) error {
	return row.Scan(
		&r.ID, &r.CottageID, &r.ManageToken, &r.Status,
		&r.GuestName, &r.GuestEmail, &r.GuestPhone,
		&r.CheckIn, &r.CheckOut, &r.Price, &r.Notes,
		&r.CreatedAt, &r.UpdatedAt,
	)
}

func (repo *ReservationsRepoImpl) Create(ctx context.Context, r *domain.Reservation) error {
	const q = `INSERT INTO reservations (
    id, cottage_id, manage_token, status,
    guest_name, guest_email, guest_phone,
    check_in, check_out, price, notes
  ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
  RETURNING created_at, updated_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := repo.pool.QueryRow(ctx, q,
		r.ID, r.CottageID, r.ManageToken, r.Status,
		r.GuestName, r.GuestEmail, r.GuestPhone,
		r.CheckIn, r.CheckOut, r.Price, r.Notes,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return &domain.StoreError{Op: "insert reservation", Err: err}
	}
	return nil
}

// Update rewrites the editable fields in place. created_at is never touched.
func (repo *ReservationsRepoImpl) Update(ctx context.Context, r *domain.Reservation) (bool, error) {
	const q = `UPDATE reservations SET
    guest_name=$2, guest_email=$3, guest_phone=$4,
    check_in=$5, check_out=$6, price=$7, notes=$8,
    updated_at=now()
  WHERE id=$1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := repo.pool.Exec(ctx, q,
		r.ID,
		r.GuestName, r.GuestEmail, r.GuestPhone,
		r.CheckIn, r.CheckOut, r.Price, r.Notes,
	)
	if err != nil {
		return false, &domain.StoreError{Op: "update reservation", Err: err}
	}
	return ct.RowsAffected() > 0, nil
}

func (repo *ReservationsRepoImpl) UpdateStatus(ctx context.Context, id string, status domain.ReservationStatus) (bool, error) {
	const q = `UPDATE reservations SET status=$2, updated_at=now() WHERE id=$1 AND status <> $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := repo.pool.Exec(ctx, q, id, status)
	if err != nil {
		return false, &domain.StoreError{Op: "update reservation status", Err: err}
	}
	return ct.RowsAffected() > 0, nil
}

func (repo *ReservationsRepoImpl) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE id=$1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var r domain.Reservation
	err := scanReservation(repo.pool.QueryRow(ctx, q, id), &r)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StoreError{Op: "get reservation", Err: err}
	}
	return &r, nil
}

func (repo *ReservationsRepoImpl) GetByIDWithToken(ctx context.Context, id, token string) (*domain.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE id=$1 AND manage_token=$2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var r domain.Reservation
	err := scanReservation(repo.pool.QueryRow(ctx, q, id, token), &r)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StoreError{Op: "get reservation", Err: err}
	}
	return &r, nil
}

func (repo *ReservationsRepoImpl) List(ctx context.Context, limit, offset int) ([]domain.Reservation, error) {
	limit, offset = clampPage(limit, offset)

	const q = `SELECT ` + reservationCols + ` FROM reservations ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := repo.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, &domain.StoreError{Op: "list reservations", Err: err}
	}
	defer rows.Close()

	return collectReservations(rows, limit)
}

func (repo *ReservationsRepoImpl) ListByStatus(ctx context.Context, status domain.ReservationStatus, limit, offset int) ([]domain.Reservation, error) {
	limit, offset = clampPage(limit, offset)

	const q = `SELECT ` + reservationCols + ` FROM reservations
  WHERE status = $1
  ORDER BY created_at DESC
  LIMIT $2 OFFSET $3`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := repo.pool.Query(ctx, q, status, limit, offset)
	if err != nil {
		return nil, &domain.StoreError{Op: "list reservations", Err: err}
	}
	defer rows.Close()

	return collectReservations(rows, limit)
}

// ListBlocking returns the date ranges of every non-cancelled reservation on
// the cottage, for the disabled-date calendar. An unknown cottage yields an
// empty slice, not an error.
func (repo *ReservationsRepoImpl) ListBlocking(ctx context.Context, cottageID string) ([]domain.BlockedStay, error) {
	const q = `SELECT check_in, check_out, status FROM reservations
  WHERE cottage_id = $1 AND status <> 'cancelled'`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := repo.pool.Query(ctx, q, cottageID)
	if err != nil {
		return nil, &domain.StoreError{Op: "list blocking stays", Err: err}
	}
	defer rows.Close()

	stays := []domain.BlockedStay{}
	for rows.Next() {
		var s domain.BlockedStay
		if err := rows.Scan(&s.CheckIn, &s.CheckOut, &s.Status); err != nil {
			return nil, &domain.StoreError{Op: "scan blocking stay", Err: err}
		}
		stays = append(stays, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: "list blocking stays", Err: err}
	}
	return stays, nil
}

// ListOverlapCandidates narrows the conflict-check set with the single
// inequality the query layer supports (check_in < proposed check-out); the
// other half of the overlap predicate is evaluated in memory by the caller.
func (repo *ReservationsRepoImpl) ListOverlapCandidates(ctx context.Context, cottageID string, before time.Time, excludeID string) ([]domain.Reservation, error) {
	q := `SELECT ` + reservationCols + ` FROM reservations
  WHERE cottage_id = $1 AND status <> 'cancelled' AND check_in < $2`
	args := []any{cottageID, before}
	if excludeID != "" {
		q += ` AND id <> $3`
		args = append(args, excludeID)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := repo.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, &domain.StoreError{Op: "list overlap candidates", Err: err}
	}
	defer rows.Close()

	return collectReservations(rows, 8)
}

func collectReservations(rows pgx.Rows, capacity int) ([]domain.Reservation, error) {
	rs := make([]domain.Reservation, 0, capacity)
	for rows.Next() {
		var r domain.Reservation
		if err := scanReservation(rows, &r); err != nil {
			return nil, &domain.StoreError{Op: "scan reservation", Err: err}
		}
		rs = append(rs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: "iterate reservations", Err: err}
	}
	return rs, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

var _ ReservationsRepo = (*ReservationsRepoImpl)(nil)
