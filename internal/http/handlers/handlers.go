package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/greensretreat/ggr-bookings/internal/http/response"
	"github.com/greensretreat/ggr-bookings/internal/service"
	"github.com/greensretreat/ggr-bookings/pkg/auth"
	"github.com/greensretreat/ggr-bookings/pkg/config"
	"github.com/greensretreat/ggr-bookings/pkg/logger"
)

type claimsKey struct{}

type Handlers struct {
	booking service.BookingService
	auth    service.AuthService
	cfg     *config.Config
}

func New(booking service.BookingService, authSvc service.AuthService, cfg *config.Config) *Handlers {
	return &Handlers{
		booking: booking,
		auth:    authSvc,
		cfg:     cfg,
	}
}

// RequireJWT guards admin routes.
func (h *Handlers) RequireJWT(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				response.Unauthorized(w, "Missing or invalid authorization header")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := auth.Parse(token, h.cfg.Auth.JWTSecret)
			if err != nil {
				response.Unauthorized(w, "Invalid token")
				return
			}

			if requiredRole != "" && claims.Role != requiredRole {
				response.Forbidden(w, "Insufficient permissions")
				return
			}

			ctx := context.WithValue(r.Context(), logger.AdminIDKey, claims.Sub)
			ctx = context.WithValue(ctx, claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func getClaims(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(claimsKey{}).(*auth.Claims); ok {
		return claims
	}
	return nil
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
