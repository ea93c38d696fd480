package service

import (
	"context"
	"errors"
	"strings"

	"github.com/alexedwards/argon2id"

	"github.com/greensretreat/ggr-bookings/internal/repo/postgres"
	"github.com/greensretreat/ggr-bookings/pkg/auth"
	"github.com/greensretreat/ggr-bookings/pkg/config"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type AuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
}

type authService struct {
	admins postgres.AdminsRepo
	cfg    *config.Config
}

func NewAuthService(admins postgres.AdminsRepo, cfg *config.Config) AuthService {
	return &authService{admins: admins, cfg: cfg}
}

// Login verifies an admin's password and issues a short-lived session token.
// A missing user and a wrong password are indistinguishable to the caller.
func (s *authService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.admins.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrInvalidCredentials
	}

	match, err := argon2id.ComparePasswordAndHash(password, user.PasswordHash)
	if err != nil || !match {
		return "", ErrInvalidCredentials
	}

	return auth.NewAccessToken(user.ID, user.Email, user.Role, s.cfg.Auth.JWTSecret, s.cfg.Auth.AccessTokenTTL)
}
