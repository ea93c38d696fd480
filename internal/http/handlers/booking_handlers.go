package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/greensretreat/ggr-bookings/internal/domain"
	"github.com/greensretreat/ggr-bookings/internal/http/response"
)

// guestBookingReq mirrors the public booking form. No price override here:
// only the back office may set one.
type guestBookingReq struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CottageID string    `json:"cottage_id"`
	CheckIn   time.Time `json:"check_in"`
	CheckOut  time.Time `json:"check_out"`
	Message   string    `json:"message"`
}

// ListCottages serves the booking form's cottage picker.
// GET /v1/cottages
func (h *Handlers) ListCottages(w http.ResponseWriter, r *http.Request) {
	cottages, err := h.booking.ListCottages(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cottages)
}

// GetAvailability feeds the disabled-date calendar: every stay that blocks
// the cottage. The server re-checks conflicts on submission regardless.
// GET /v1/cottages/{id}/availability
func (h *Handlers) GetAvailability(w http.ResponseWriter, r *http.Request) {
	cottageID := chi.URLParam(r, "id")

	stays, err := h.booking.ListBlockedStays(r.Context(), cottageID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stays)
}

// CreateBooking handles the public booking form submission.
// POST /v1/bookings
func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var in guestBookingReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	req := &domain.ReservationRequest{
		GuestName:  in.Name,
		GuestEmail: in.Email,
		GuestPhone: in.Phone,
		CottageID:  in.CottageID,
		CheckIn:    in.CheckIn,
		CheckOut:   in.CheckOut,
		Notes:      in.Message,
	}

	created, err := h.booking.CreateGuestReservation(r.Context(), req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, domain.ReservationRes{
		ID:          created.ID,
		ManageToken: created.ManageToken,
		Status:      string(created.Status),
		CheckIn:     created.CheckIn,
		CheckOut:    created.CheckOut,
		Price:       created.Price,
	})
}

// GetBookingDetails serves the thank-you page, gated by the manage token
// returned at submission.
// GET /v1/bookings/{id}?manage_token=...
func (h *Handlers) GetBookingDetails(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	token := r.URL.Query().Get("manage_token")
	if token == "" {
		response.Unauthorized(w, "A manage token is required")
		return
	}

	details, err := h.booking.GetBookingDetails(r.Context(), id, token)
	if err != nil {
		response.FromError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}
