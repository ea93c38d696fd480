package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greensretreat/ggr-bookings/internal/domain"
)

type AdminsRepo interface {
	FindByEmail(ctx context.Context, email string) (*domain.AdminUser, error)
	Create(ctx context.Context, u *domain.AdminUser) error
}

type AdminsRepoImpl struct{ pool *pgxpool.Pool }

func NewAdminsRepo(pool *pgxpool.Pool) *AdminsRepoImpl {
	return &AdminsRepoImpl{pool: pool}
}

const adminCols = `id, email, password_hash, name, role, created_at`

func (repo *AdminsRepoImpl) FindByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	const q = `SELECT ` + adminCols + ` FROM admin_users WHERE email=$1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var u domain.AdminUser
	err := repo.pool.QueryRow(ctx, q, strings.ToLower(email)).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StoreError{Op: "find admin user", Err: err}
	}
	return &u, nil
}

func (repo *AdminsRepoImpl) Create(ctx context.Context, u *domain.AdminUser) error {
	const q = `INSERT INTO admin_users (id, email, password_hash, name, role)
  VALUES ($1,$2,$3,$4,$5) RETURNING created_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := repo.pool.QueryRow(ctx, q, u.ID, strings.ToLower(u.Email), u.PasswordHash, u.Name, u.Role).Scan(&u.CreatedAt)
	if err != nil {
		return &domain.StoreError{Op: "create admin user", Err: err}
	}
	return nil
}

var _ AdminsRepo = (*AdminsRepoImpl)(nil)
