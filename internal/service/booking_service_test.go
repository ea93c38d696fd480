package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/greensretreat/ggr-bookings/internal/domain"
	"github.com/greensretreat/ggr-bookings/internal/service"
)

// ---------- Mocks ----------

type mockReservationsRepo struct {
	reservations map[string]*domain.Reservation
	order        []string
	failWith     error // forced error on every query when set
}

func newMockReservationsRepo() *mockReservationsRepo {
	return &mockReservationsRepo{reservations: make(map[string]*domain.Reservation)}
}

func (m *mockReservationsRepo) Create(_ context.Context, r *domain.Reservation) error {
	if m.failWith != nil {
		return m.failWith
	}
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	cp := *r
	m.reservations[r.ID] = &cp
	m.order = append(m.order, r.ID)
	return nil
}

func (m *mockReservationsRepo) Update(_ context.Context, r *domain.Reservation) (bool, error) {
	if m.failWith != nil {
		return false, m.failWith
	}
	stored, ok := m.reservations[r.ID]
	if !ok {
		return false, nil
	}
	stored.GuestName = r.GuestName
	stored.GuestEmail = r.GuestEmail
	stored.GuestPhone = r.GuestPhone
	stored.CheckIn = r.CheckIn
	stored.CheckOut = r.CheckOut
	stored.Price = r.Price
	stored.Notes = r.Notes
	stored.UpdatedAt = time.Now()
	return true, nil
}

func (m *mockReservationsRepo) UpdateStatus(_ context.Context, id string, status domain.ReservationStatus) (bool, error) {
	if m.failWith != nil {
		return false, m.failWith
	}
	stored, ok := m.reservations[id]
	if !ok || stored.Status == status {
		return false, nil
	}
	stored.Status = status
	stored.UpdatedAt = time.Now()
	return true, nil
}

func (m *mockReservationsRepo) GetByID(_ context.Context, id string) (*domain.Reservation, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	stored, ok := m.reservations[id]
	if !ok {
		return nil, nil
	}
	cp := *stored
	return &cp, nil
}

func (m *mockReservationsRepo) GetByIDWithToken(_ context.Context, id, token string) (*domain.Reservation, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	stored, ok := m.reservations[id]
	if !ok || stored.ManageToken != token {
		return nil, nil
	}
	cp := *stored
	return &cp, nil
}

func (m *mockReservationsRepo) List(_ context.Context, limit, offset int) ([]domain.Reservation, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := []domain.Reservation{}
	for i := len(m.order) - 1; i >= 0; i-- {
		out = append(out, *m.reservations[m.order[i]])
	}
	return page(out, limit, offset), nil
}

func (m *mockReservationsRepo) ListByStatus(_ context.Context, status domain.ReservationStatus, limit, offset int) ([]domain.Reservation, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := []domain.Reservation{}
	for i := len(m.order) - 1; i >= 0; i-- {
		if r := m.reservations[m.order[i]]; r.Status == status {
			out = append(out, *r)
		}
	}
	return page(out, limit, offset), nil
}

func (m *mockReservationsRepo) ListBlocking(_ context.Context, cottageID string) ([]domain.BlockedStay, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	stays := []domain.BlockedStay{}
	for _, id := range m.order {
		r := m.reservations[id]
		if r.CottageID == cottageID && r.Status.Blocks() {
			stays = append(stays, domain.BlockedStay{Stay: r.Stay(), Status: r.Status})
		}
	}
	return stays, nil
}

func (m *mockReservationsRepo) ListOverlapCandidates(_ context.Context, cottageID string, before time.Time, excludeID string) ([]domain.Reservation, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := []domain.Reservation{}
	for _, id := range m.order {
		r := m.reservations[id]
		if r.CottageID != cottageID || !r.Status.Blocks() || r.ID == excludeID {
			continue
		}
		if r.CheckIn.Before(before) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func page(rs []domain.Reservation, limit, offset int) []domain.Reservation {
	if offset >= len(rs) {
		return []domain.Reservation{}
	}
	end := offset + limit
	if limit <= 0 || end > len(rs) {
		end = len(rs)
	}
	return rs[offset:end]
}

type mockCottagesRepo struct {
	cottages map[string]*domain.Cottage
}

func newMockCottagesRepo() *mockCottagesRepo {
	return &mockCottagesRepo{cottages: map[string]*domain.Cottage{
		"garden-cottage": {ID: "garden-cottage", Name: "The Garden Cottage", Slug: "garden-cottage", NightlyRate: 100},
		"meadow-cabin":   {ID: "meadow-cabin", Name: "The Meadow Cabin", Slug: "meadow-cabin", NightlyRate: 120},
	}}
}

func (m *mockCottagesRepo) List(_ context.Context) ([]domain.Cottage, error) {
	out := []domain.Cottage{}
	for _, c := range m.cottages {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockCottagesRepo) GetByID(_ context.Context, id string) (*domain.Cottage, error) {
	c, ok := m.cottages[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

type mockPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (m *mockPublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = append(m.subjects, subject)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func (m *mockPublisher) published() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.subjects...)
}

// ---------- Setup ----------

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func setup() (service.BookingService, *mockReservationsRepo, *mockPublisher) {
	reservations := newMockReservationsRepo()
	cottages := newMockCottagesRepo()
	publisher := &mockPublisher{}
	svc := service.NewBookingService(reservations, cottages, publisher)
	return svc, reservations, publisher
}

func validRequest(cottageID string, checkIn, checkOut time.Time) *domain.ReservationRequest {
	return &domain.ReservationRequest{
		GuestName:  "Ada Green",
		GuestEmail: "ada@example.com",
		GuestPhone: "+15550001111",
		CottageID:  cottageID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
	}
}

func mustCreate(t *testing.T, svc service.BookingService, req *domain.ReservationRequest, admin bool) *domain.Reservation {
	t.Helper()
	var (
		r   *domain.Reservation
		err error
	)
	if admin {
		r, err = svc.CreateAdminReservation(context.Background(), req)
	} else {
		r, err = svc.CreateGuestReservation(context.Background(), req)
	}
	if err != nil {
		t.Fatalf("create reservation: %v", err)
	}
	return r
}

// ---------- Tests ----------

func TestCreateGuestReservation_PendingWithComputedPrice(t *testing.T) {
	svc, _, publisher := setup()

	r := mustCreate(t, svc, validRequest("garden-cottage", day(2024, 1, 1), day(2024, 1, 4)), false)

	if r.ID == "" || r.ManageToken == "" {
		t.Fatal("expected id and manage token to be assigned")
	}
	if r.Status != domain.ReservationPending {
		t.Fatalf("guest reservation status = %s, want pending", r.Status)
	}
	// 3 nights at 100/night
	if r.Price != 300 {
		t.Fatalf("price = %v, want 300", r.Price)
	}
	if got := publisher.published(); len(got) != 1 || got[0] != "reservation.created" {
		t.Fatalf("published subjects = %v", got)
	}
}

func TestCreateGuestReservation_IgnoresPriceOverride(t *testing.T) {
	svc, _, _ := setup()

	req := validRequest("garden-cottage", day(2024, 1, 1), day(2024, 1, 4))
	req.PriceOverride = 1

	r := mustCreate(t, svc, req, false)
	if r.Price != 300 {
		t.Fatalf("price = %v, want computed 300 (guest override must be ignored)", r.Price)
	}
}

func TestCreateAdminReservation_ConfirmedWithOverride(t *testing.T) {
	svc, _, _ := setup()

	req := validRequest("garden-cottage", day(2024, 1, 1), day(2024, 1, 4))
	req.PriceOverride = 250

	r := mustCreate(t, svc, req, true)
	if r.Status != domain.ReservationConfirmed {
		t.Fatalf("admin reservation status = %s, want confirmed", r.Status)
	}
	if r.Price != 250 {
		t.Fatalf("price = %v, want override 250", r.Price)
	}
}

func TestCreate_BackToBackSucceeds(t *testing.T) {
	svc, _, _ := setup()

	mustCreate(t, svc, validRequest("garden-cottage", day(2024, 3, 10), day(2024, 3, 15)), true)

	// New stay starting the day the old one ends is legal.
	r := mustCreate(t, svc, validRequest("garden-cottage", day(2024, 3, 15), day(2024, 3, 18)), false)
	if r.ID == "" {
		t.Fatal("expected back-to-back reservation to be created")
	}
}

func TestCreate_OverlapFailsWithConflict(t *testing.T) {
	svc, reservations, _ := setup()

	mustCreate(t, svc, validRequest("garden-cottage", day(2024, 3, 10), day(2024, 3, 15)), true)

	_, err := svc.CreateGuestReservation(context.Background(),
		validRequest("garden-cottage", day(2024, 3, 12), day(2024, 3, 20)))
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if len(reservations.order) != 1 {
		t.Fatalf("stored reservations = %d, want 1 (no write on conflict)", len(reservations.order))
	}
}

func TestCreate_OtherCottageDoesNotConflict(t *testing.T) {
	svc, _, _ := setup()

	mustCreate(t, svc, validRequest("garden-cottage", day(2024, 3, 10), day(2024, 3, 15)), true)
	mustCreate(t, svc, validRequest("meadow-cabin", day(2024, 3, 10), day(2024, 3, 15)), false)
}

func TestCreate_PendingBlocksToo(t *testing.T) {
	svc, _, _ := setup()

	mustCreate(t, svc, validRequest("garden-cottage", day(2024, 5, 1), day(2024, 5, 5)), false)

	_, err := svc.CreateGuestReservation(context.Background(),
		validRequest("garden-cottage", day(2024, 5, 3), day(2024, 5, 7)))
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict (pending reservations block)", err)
	}
}

func TestCreate_CancelledDoesNotBlock(t *testing.T) {
	svc, _, _ := setup()

	r := mustCreate(t, svc, validRequest("garden-cottage", day(2024, 5, 1), day(2024, 5, 5)), true)
	if _, err := svc.UpdateStatus(context.Background(), r.ID, domain.ReservationCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// Same dates must now be free.
	mustCreate(t, svc, validRequest("garden-cottage", day(2024, 5, 1), day(2024, 5, 5)), false)
}

func TestCreate_UnknownCottageNotFound(t *testing.T) {
	svc, _, _ := setup()

	_, err := svc.CreateGuestReservation(context.Background(),
		validRequest("no-such-cottage", day(2024, 1, 1), day(2024, 1, 4)))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreate_InvalidInputRejected(t *testing.T) {
	svc, _, _ := setup()

	tests := []struct {
		name   string
		mutate func(*domain.ReservationRequest)
	}{
		{"missing email", func(r *domain.ReservationRequest) { r.GuestEmail = "" }},
		{"bad email", func(r *domain.ReservationRequest) { r.GuestEmail = "not-an-email" }},
		{"short name", func(r *domain.ReservationRequest) { r.GuestName = "A" }},
		{"short phone", func(r *domain.ReservationRequest) { r.GuestPhone = "123" }},
		{"inverted dates", func(r *domain.ReservationRequest) {
			r.CheckIn, r.CheckOut = r.CheckOut, r.CheckIn
		}},
		{"equal dates", func(r *domain.ReservationRequest) { r.CheckOut = r.CheckIn }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest("garden-cottage", day(2024, 1, 1), day(2024, 1, 4))
			tt.mutate(req)
			_, err := svc.CreateGuestReservation(context.Background(), req)
			if err == nil || !domain.IsValidation(err) {
				t.Fatalf("err = %v, want validation error", err)
			}
		})
	}
}

func TestCreate_StoreFailureIsNotAvailability(t *testing.T) {
	svc, reservations, _ := setup()

	reservations.failWith = &domain.StoreError{Op: "list overlap candidates", Err: errors.New("connection refused")}

	_, err := svc.CreateGuestReservation(context.Background(),
		validRequest("garden-cottage", day(2024, 1, 1), day(2024, 1, 4)))
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable (a failed fetch must not read as 'available')", err)
	}
	if errors.Is(err, domain.ErrConflict) {
		t.Fatal("store failure must not surface as a conflict")
	}
}

func TestUpdate_SameDatesSucceedsBySelfExclusion(t *testing.T) {
	svc, reservations, _ := setup()

	r := mustCreate(t, svc, validRequest("garden-cottage", day(2024, 4, 1), day(2024, 4, 5)), true)
	createdAt := reservations.reservations[r.ID].CreatedAt

	req := validRequest("garden-cottage", day(2024, 4, 1), day(2024, 4, 5))
	req.GuestName = "Ada Greenfield"

	updated, err := svc.UpdateReservation(context.Background(), r.ID, req)
	if err != nil {
		t.Fatalf("edit with unchanged dates must succeed: %v", err)
	}
	if updated.GuestName != "Ada Greenfield" {
		t.Fatalf("guest name = %s, want Ada Greenfield", updated.GuestName)
	}
	if !reservations.reservations[r.ID].CreatedAt.Equal(createdAt) {
		t.Fatal("createdAt must be preserved across edits")
	}
}

func TestUpdate_ConflictAgainstOtherReservation(t *testing.T) {
	svc, _, _ := setup()

	mustCreate(t, svc, validRequest("garden-cottage", day(2024, 6, 1), day(2024, 6, 5)), true)
	r := mustCreate(t, svc, validRequest("garden-cottage", day(2024, 6, 10), day(2024, 6, 15)), true)

	_, err := svc.UpdateReservation(context.Background(), r.ID,
		validRequest("garden-cottage", day(2024, 6, 3), day(2024, 6, 8)))
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestUpdate_CottageIsImmutable(t *testing.T) {
	svc, _, _ := setup()

	r := mustCreate(t, svc, validRequest("garden-cottage", day(2024, 6, 1), day(2024, 6, 5)), true)

	_, err := svc.UpdateReservation(context.Background(), r.ID,
		validRequest("meadow-cabin", day(2024, 6, 1), day(2024, 6, 5)))
	if err == nil || !domain.IsValidation(err) {
		t.Fatalf("err = %v, want validation error (cottage cannot change)", err)
	}
}

func TestUpdate_MissingReservationNotFound(t *testing.T) {
	svc, _, _ := setup()

	_, err := svc.UpdateReservation(context.Background(), "missing",
		validRequest("garden-cottage", day(2024, 6, 1), day(2024, 6, 5)))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateStatus_RevivingChecksConflicts(t *testing.T) {
	svc, _, _ := setup()

	r := mustCreate(t, svc, validRequest("garden-cottage", day(2024, 7, 1), day(2024, 7, 5)), true)
	if _, err := svc.UpdateStatus(context.Background(), r.ID, domain.ReservationCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// Another guest takes the freed dates.
	mustCreate(t, svc, validRequest("garden-cottage", day(2024, 7, 2), day(2024, 7, 6)), false)

	_, err := svc.UpdateStatus(context.Background(), r.ID, domain.ReservationConfirmed)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict when reviving over taken dates", err)
	}
}

func TestUpdateStatus_ConfirmPublishesEvent(t *testing.T) {
	svc, _, publisher := setup()

	r := mustCreate(t, svc, validRequest("garden-cottage", day(2024, 7, 1), day(2024, 7, 5)), false)

	updated, err := svc.UpdateStatus(context.Background(), r.ID, domain.ReservationConfirmed)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if updated.Status != domain.ReservationConfirmed {
		t.Fatalf("status = %s, want confirmed", updated.Status)
	}

	found := false
	for _, s := range publisher.published() {
		if s == "reservation.status_changed" {
			found = true
		}
	}
	if !found {
		t.Fatalf("published subjects = %v, want reservation.status_changed", publisher.published())
	}
}

func TestUpdateStatus_SameStatusIsNoOp(t *testing.T) {
	svc, _, publisher := setup()

	r := mustCreate(t, svc, validRequest("garden-cottage", day(2024, 7, 1), day(2024, 7, 5)), false)
	before := len(publisher.published())

	updated, err := svc.UpdateStatus(context.Background(), r.ID, domain.ReservationPending)
	if err != nil {
		t.Fatalf("no-op status update: %v", err)
	}
	if updated.Status != domain.ReservationPending {
		t.Fatalf("status = %s, want pending", updated.Status)
	}
	if got := publisher.published(); len(got) != before {
		t.Fatalf("published subjects = %v, want no status event for an unchanged status", got)
	}
}

// A stalled event bus must not serialize bookings: the cottage lock is
// released before the publish runs.
func TestCreate_SlowPublishDoesNotBlockOtherBookings(t *testing.T) {
	reservations := newMockReservationsRepo()
	cottages := newMockCottagesRepo()
	publisher := &stallingPublisher{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := service.NewBookingService(reservations, cottages, publisher)

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.CreateGuestReservation(context.Background(),
			validRequest("garden-cottage", day(2024, 9, 1), day(2024, 9, 5)))
		firstDone <- err
	}()

	// Wait until the first booking is inside Publish, holding no lock.
	<-publisher.started

	secondDone := make(chan error, 1)
	go func() {
		_, err := svc.CreateGuestReservation(context.Background(),
			validRequest("garden-cottage", day(2024, 9, 10), day(2024, 9, 12)))
		secondDone <- err
	}()

	select {
	case err := <-secondDone:
		if err != nil {
			t.Fatalf("second booking: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second booking blocked behind an in-flight publish")
	}

	close(publisher.release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first booking: %v", err)
	}
}

// stallingPublisher blocks its first Publish until released.
type stallingPublisher struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (p *stallingPublisher) Publish(_ context.Context, _ string, _ interface{}) error {
	stall := false
	p.once.Do(func() { stall = true })
	if stall {
		close(p.started)
		<-p.release
	}
	return nil
}

func (p *stallingPublisher) Close() error { return nil }

func TestListBlockedStays(t *testing.T) {
	svc, _, _ := setup()

	confirmed := mustCreate(t, svc, validRequest("garden-cottage", day(2024, 8, 1), day(2024, 8, 5)), true)
	mustCreate(t, svc, validRequest("garden-cottage", day(2024, 8, 10), day(2024, 8, 12)), false)
	cancelled := mustCreate(t, svc, validRequest("garden-cottage", day(2024, 8, 20), day(2024, 8, 25)), true)
	if _, err := svc.UpdateStatus(context.Background(), cancelled.ID, domain.ReservationCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	stays, err := svc.ListBlockedStays(context.Background(), "garden-cottage")
	if err != nil {
		t.Fatalf("list blocked stays: %v", err)
	}
	// Confirmed and pending block; cancelled does not.
	if len(stays) != 2 {
		t.Fatalf("blocked stays = %d, want 2", len(stays))
	}
	if !stays[0].CheckIn.Equal(confirmed.CheckIn) {
		t.Fatalf("first blocked stay starts %v, want %v", stays[0].CheckIn, confirmed.CheckIn)
	}

	// Idempotent with no intervening writes.
	again, err := svc.ListBlockedStays(context.Background(), "garden-cottage")
	if err != nil {
		t.Fatalf("second list: %v", err)
	}
	if len(again) != len(stays) {
		t.Fatalf("second list = %d stays, want %d", len(again), len(stays))
	}

	// Unknown cottage: empty, not an error.
	empty, err := svc.ListBlockedStays(context.Background(), "no-such-cottage")
	if err != nil || len(empty) != 0 {
		t.Fatalf("unknown cottage: stays=%v err=%v, want empty and nil", empty, err)
	}
}

func TestGetBookingDetails(t *testing.T) {
	svc, _, _ := setup()

	r := mustCreate(t, svc, validRequest("garden-cottage", day(2024, 1, 1), day(2024, 1, 4)), false)

	details, err := svc.GetBookingDetails(context.Background(), r.ID, r.ManageToken)
	if err != nil {
		t.Fatalf("get details: %v", err)
	}
	if details.Nights != 3 {
		t.Fatalf("nights = %d, want 3", details.Nights)
	}
	if details.TotalPrice != 300 {
		t.Fatalf("total = %v, want 300", details.TotalPrice)
	}
	if details.CottageName != "The Garden Cottage" {
		t.Fatalf("cottage name = %q", details.CottageName)
	}

	if _, err := svc.GetBookingDetails(context.Background(), r.ID, "wrong-token"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("wrong token err = %v, want ErrNotFound", err)
	}
}
