package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/greensretreat/ggr-bookings/internal/domain"
	"github.com/greensretreat/ggr-bookings/internal/http/response"
	"github.com/greensretreat/ggr-bookings/internal/service"
	"github.com/greensretreat/ggr-bookings/pkg/logger"
)

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login issues an admin session token.
// POST /v1/admin/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if in.Email == "" || in.Password == "" {
		response.BadRequest(w, "Email and password are required")
		return
	}

	token, err := h.auth.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(w, "Invalid email or password")
			return
		}
		response.FromError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

// ListBookings lists reservations newest first, optionally filtered by status.
// GET /v1/admin/bookings?status=&limit=&offset=
func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	var status *domain.ReservationStatus
	if v := r.URL.Query().Get("status"); v != "" {
		parsed, ok := domain.ParseReservationStatus(v)
		if !ok {
			response.BadRequest(w, "Unknown status filter")
			return
		}
		status = &parsed
	}

	reservations, err := h.booking.ListReservations(r.Context(), limit, offset, status)
	if err != nil {
		response.FromError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservations)
}

// CreateAdminBooking creates a confirmed reservation from the back office,
// with an optional price override and internal notes.
// POST /v1/admin/bookings
func (h *Handlers) CreateAdminBooking(w http.ResponseWriter, r *http.Request) {
	var req domain.ReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	created, err := h.booking.CreateAdminReservation(r.Context(), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	if claims := getClaims(r); claims != nil {
		logger.InfoContext(r.Context(), "Admin created reservation",
			"reservation_id", created.ID, "admin", claims.Email)
	}

	writeJSON(w, http.StatusCreated, created)
}

// GetBooking returns one reservation.
// GET /v1/admin/bookings/{id}
func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	reservation, err := h.booking.GetReservation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}

// UpdateBooking edits a reservation's guest details, dates, price, and notes.
// The conflict check excludes the reservation itself.
// PUT /v1/admin/bookings/{id}
func (h *Handlers) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	var req domain.ReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	updated, err := h.booking.UpdateReservation(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type statusReq struct {
	Status string `json:"status"`
}

// UpdateBookingStatus moves a reservation between pending, confirmed, and
// cancelled.
// PATCH /v1/admin/bookings/{id}/status
func (h *Handlers) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	var in statusReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	status, ok := domain.ParseReservationStatus(in.Status)
	if !ok {
		response.BadRequest(w, "Status must be pending, confirmed, or cancelled")
		return
	}

	updated, err := h.booking.UpdateStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		response.FromError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
