package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greensretreat/ggr-bookings/internal/domain"
)

// CottagesRepo reads CMS-owned accommodation data. The booking core never
// writes cottages.
type CottagesRepo interface {
	List(ctx context.Context) ([]domain.Cottage, error)
	GetByID(ctx context.Context, id string) (*domain.Cottage, error)
}

type CottagesRepoImpl struct{ pool *pgxpool.Pool }

func NewCottagesRepo(pool *pgxpool.Pool) *CottagesRepoImpl {
	return &CottagesRepoImpl{pool: pool}
}

const cottageCols = `id, name, slug, excerpt, nightly_rate, created_at`

func (repo *CottagesRepoImpl) List(ctx context.Context) ([]domain.Cottage, error) {
	const q = `SELECT ` + cottageCols + ` FROM cottages ORDER BY name`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := repo.pool.Query(ctx, q)
	if err != nil {
		return nil, &domain.StoreError{Op: "list cottages", Err: err}
	}
	defer rows.Close()

	cs := []domain.Cottage{}
	for rows.Next() {
		var c domain.Cottage
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Excerpt, &c.NightlyRate, &c.CreatedAt); err != nil {
			return nil, &domain.StoreError{Op: "scan cottage", Err: err}
		}
		cs = append(cs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: "list cottages", Err: err}
	}
	return cs, nil
}

func (repo *CottagesRepoImpl) GetByID(ctx context.Context, id string) (*domain.Cottage, error) {
	const q = `SELECT ` + cottageCols + ` FROM cottages WHERE id=$1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var c domain.Cottage
	err := repo.pool.QueryRow(ctx, q, id).Scan(&c.ID, &c.Name, &c.Slug, &c.Excerpt, &c.NightlyRate, &c.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StoreError{Op: "get cottage", Err: err}
	}
	return &c, nil
}

var _ CottagesRepo = (*CottagesRepoImpl)(nil)
