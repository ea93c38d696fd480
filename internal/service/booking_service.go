package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/greensretreat/ggr-bookings/internal/domain"
	"github.com/greensretreat/ggr-bookings/internal/repo/postgres"
	"github.com/greensretreat/ggr-bookings/pkg/events"
	"github.com/greensretreat/ggr-bookings/pkg/logger"
)

type BookingService interface {
	ListCottages(ctx context.Context) ([]domain.Cottage, error)
	ListBlockedStays(ctx context.Context, cottageID string) ([]domain.BlockedStay, error)
	CreateGuestReservation(ctx context.Context, req *domain.ReservationRequest) (*domain.Reservation, error)
	CreateAdminReservation(ctx context.Context, req *domain.ReservationRequest) (*domain.Reservation, error)
	UpdateReservation(ctx context.Context, id string, req *domain.ReservationRequest) (*domain.Reservation, error)
	UpdateStatus(ctx context.Context, id string, status domain.ReservationStatus) (*domain.Reservation, error)
	GetReservation(ctx context.Context, id string) (*domain.Reservation, error)
	GetBookingDetails(ctx context.Context, id, manageToken string) (*domain.BookingDetails, error)
	ListReservations(ctx context.Context, limit, offset int, status *domain.ReservationStatus) ([]domain.Reservation, error)
}

type bookingService struct {
	reservations postgres.ReservationsRepo
	cottages     postgres.CottagesRepo
	checker      *ConflictChecker
	locks        *cottageLocks
	eventBus     events.Publisher
}

func NewBookingService(
	reservations postgres.ReservationsRepo,
	cottages postgres.CottagesRepo,
	eventBus events.Publisher,
) BookingService {
	return &bookingService{
		reservations: reservations,
		cottages:     cottages,
		checker:      NewConflictChecker(reservations),
		locks:        newCottageLocks(),
		eventBus:     eventBus,
	}
}

func (s *bookingService) ListCottages(ctx context.Context) ([]domain.Cottage, error) {
	return s.cottages.List(ctx)
}

func (s *bookingService) ListBlockedStays(ctx context.Context, cottageID string) ([]domain.BlockedStay, error) {
	if cottageID == "" {
		return []domain.BlockedStay{}, nil
	}
	return s.reservations.ListBlocking(ctx, cottageID)
}

// CreateGuestReservation handles the public booking form. Guest submissions
// land as pending and never carry a price override.
func (s *bookingService) CreateGuestReservation(ctx context.Context, req *domain.ReservationRequest) (*domain.Reservation, error) {
	req.PriceOverride = 0
	return s.create(ctx, req, domain.ReservationPending)
}

// CreateAdminReservation handles the back-office form. Admin entries default
// to confirmed and may override the computed price.
func (s *bookingService) CreateAdminReservation(ctx context.Context, req *domain.ReservationRequest) (*domain.Reservation, error) {
	return s.create(ctx, req, domain.ReservationConfirmed)
}

func (s *bookingService) create(ctx context.Context, req *domain.ReservationRequest, status domain.ReservationStatus) (*domain.Reservation, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	cottage, err := s.cottages.GetByID(ctx, req.CottageID)
	if err != nil {
		return nil, err
	}
	if cottage == nil {
		return nil, fmt.Errorf("cottage %q: %w", req.CottageID, domain.ErrNotFound)
	}

	r := &domain.Reservation{
		ID:          uuid.NewString(),
		CottageID:   req.CottageID,
		ManageToken: uuid.NewString(),
		Status:      status,
		GuestName:   req.GuestName,
		GuestEmail:  req.GuestEmail,
		GuestPhone:  req.GuestPhone,
		CheckIn:     req.CheckIn,
		CheckOut:    req.CheckOut,
		Price:       computePrice(req, cottage),
		Notes:       req.Notes,
	}

	// The lock covers only the check and the insert. Event publishing runs
	// after release so a slow bus never serializes bookings on the cottage.
	unlock := s.locks.Lock(req.CottageID)

	conflict, err := s.checker.Check(ctx, req.CottageID, req.Stay(), "")
	if err != nil {
		unlock()
		return nil, err
	}
	if conflict {
		unlock()
		return nil, domain.ErrConflict
	}

	if err := s.reservations.Create(ctx, r); err != nil {
		unlock()
		return nil, err
	}
	unlock()

	s.publishCreated(ctx, r)

	return r, nil
}

// UpdateReservation edits an existing reservation in place. The conflict
// check excludes the reservation itself, so saving unchanged dates succeeds.
// The cottage is never reassigned.
func (s *bookingService) UpdateReservation(ctx context.Context, id string, req *domain.ReservationRequest) (*domain.Reservation, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	existing, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("reservation %q: %w", id, domain.ErrNotFound)
	}
	if req.CottageID != existing.CottageID {
		return nil, domain.Invalidf("a reservation cannot move to another cottage")
	}

	cottage, err := s.cottages.GetByID(ctx, existing.CottageID)
	if err != nil {
		return nil, err
	}
	if cottage == nil {
		return nil, fmt.Errorf("cottage %q: %w", existing.CottageID, domain.ErrNotFound)
	}

	changes := detectChanges(existing, req)

	existing.GuestName = req.GuestName
	existing.GuestEmail = req.GuestEmail
	existing.GuestPhone = req.GuestPhone
	existing.CheckIn = req.CheckIn
	existing.CheckOut = req.CheckOut
	existing.Price = computePrice(req, cottage)
	existing.Notes = req.Notes

	unlock := s.locks.Lock(existing.CottageID)

	conflict, err := s.checker.Check(ctx, existing.CottageID, req.Stay(), id)
	if err != nil {
		unlock()
		return nil, err
	}
	if conflict {
		unlock()
		return nil, domain.ErrConflict
	}

	ok, err := s.reservations.Update(ctx, existing)
	if err != nil {
		unlock()
		return nil, err
	}
	unlock()
	if !ok {
		return nil, fmt.Errorf("reservation %q: %w", id, domain.ErrNotFound)
	}

	if len(changes) > 0 {
		event := events.ReservationUpdatedEvent{
			ReservationID: existing.ID,
			GuestEmail:    existing.GuestEmail,
			Changes:       changes,
			UpdatedAt:     time.Now(),
		}
		if err := s.eventBus.Publish(ctx, events.ReservationUpdated, event); err != nil {
			logger.ErrorContext(ctx, "Failed to publish reservation updated event", "error", err, "reservation_id", existing.ID)
		}
	}

	return existing, nil
}

func (s *bookingService) UpdateStatus(ctx context.Context, id string, status domain.ReservationStatus) (*domain.Reservation, error) {
	existing, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("reservation %q: %w", id, domain.ErrNotFound)
	}

	// Setting the current status again is a no-op: nothing is written and
	// no event goes out.
	if existing.Status == status {
		return existing, nil
	}

	// Reviving a cancelled reservation must re-pass the conflict check:
	// other bookings may have taken the dates in the meantime.
	if !existing.Status.Blocks() && status.Blocks() {
		unlock := s.locks.Lock(existing.CottageID)

		conflict, err := s.checker.Check(ctx, existing.CottageID, existing.Stay(), id)
		if err != nil {
			unlock()
			return nil, err
		}
		if conflict {
			unlock()
			return nil, domain.ErrConflict
		}

		if _, err := s.reservations.UpdateStatus(ctx, id, status); err != nil {
			unlock()
			return nil, err
		}
		unlock()
	} else {
		if _, err := s.reservations.UpdateStatus(ctx, id, status); err != nil {
			return nil, err
		}
	}

	oldStatus := existing.Status
	existing.Status = status

	event := events.ReservationStatusChangedEvent{
		ReservationID: existing.ID,
		GuestEmail:    existing.GuestEmail,
		OldStatus:     string(oldStatus),
		NewStatus:     string(status),
		ChangedAt:     time.Now(),
	}
	if err := s.eventBus.Publish(ctx, events.ReservationStatusChanged, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish status changed event", "error", err, "reservation_id", existing.ID)
	}

	return existing, nil
}

func (s *bookingService) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("reservation %q: %w", id, domain.ErrNotFound)
	}
	return r, nil
}

// GetBookingDetails backs the guest thank-you page. Access requires the
// manage token handed out at submission time.
func (s *bookingService) GetBookingDetails(ctx context.Context, id, manageToken string) (*domain.BookingDetails, error) {
	r, err := s.reservations.GetByIDWithToken(ctx, id, manageToken)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("reservation %q: %w", id, domain.ErrNotFound)
	}

	cottageName := "Unknown Cottage"
	if cottage, err := s.cottages.GetByID(ctx, r.CottageID); err == nil && cottage != nil {
		cottageName = cottage.Name
	}

	stay := r.Stay()
	return &domain.BookingDetails{
		ID:          r.ID,
		GuestName:   r.GuestName,
		GuestEmail:  r.GuestEmail,
		CottageName: cottageName,
		CheckIn:     r.CheckIn,
		CheckOut:    r.CheckOut,
		Nights:      stay.Nights(),
		TotalPrice:  r.Price,
		Status:      string(r.Status),
	}, nil
}

func (s *bookingService) ListReservations(ctx context.Context, limit, offset int, status *domain.ReservationStatus) ([]domain.Reservation, error) {
	if status != nil {
		return s.reservations.ListByStatus(ctx, *status, limit, offset)
	}
	return s.reservations.List(ctx, limit, offset)
}

// validateRequest re-validates defensively even though handlers validate at
// the boundary.
func (s *bookingService) validateRequest(req *domain.ReservationRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if !req.CheckOut.After(req.CheckIn) {
		return domain.Invalidf("check_out must be after check_in")
	}
	return nil
}

func computePrice(req *domain.ReservationRequest, cottage *domain.Cottage) float64 {
	if req.PriceOverride > 0 {
		return req.PriceOverride
	}
	return float64(req.Stay().Nights()) * cottage.NightlyRate
}

func (s *bookingService) publishCreated(ctx context.Context, r *domain.Reservation) {
	event := events.ReservationCreatedEvent{
		ReservationID: r.ID,
		CottageID:     r.CottageID,
		ManageToken:   r.ManageToken,
		GuestName:     r.GuestName,
		GuestEmail:    r.GuestEmail,
		CheckIn:       r.CheckIn,
		CheckOut:      r.CheckOut,
		Status:        string(r.Status),
		Price:         r.Price,
		CreatedAt:     r.CreatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.ReservationCreated, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish reservation created event", "error", err, "reservation_id", r.ID)
	}
}

func detectChanges(old *domain.Reservation, req *domain.ReservationRequest) []string {
	var changes []string

	if old.GuestName != req.GuestName {
		changes = append(changes, "guest_name")
	}
	if old.GuestEmail != req.GuestEmail {
		changes = append(changes, "guest_email")
	}
	if old.GuestPhone != req.GuestPhone {
		changes = append(changes, "guest_phone")
	}
	if !old.CheckIn.Equal(req.CheckIn) {
		changes = append(changes, "check_in")
	}
	if !old.CheckOut.Equal(req.CheckOut) {
		changes = append(changes, "check_out")
	}
	if old.Notes != req.Notes {
		changes = append(changes, "notes")
	}

	return changes
}
