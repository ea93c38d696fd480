package domain

import "time"

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
)

func ParseReservationStatus(s string) (ReservationStatus, bool) {
	switch ReservationStatus(s) {
	case ReservationPending, ReservationConfirmed, ReservationCancelled:
		return ReservationStatus(s), true
	default:
		return "", false
	}
}

// Blocks reports whether a reservation in this status occupies its dates.
// Cancelled reservations never block availability or conflict checks.
func (s ReservationStatus) Blocks() bool {
	return s != ReservationCancelled
}

type Reservation struct {
	ID          string            `json:"id"`
	CottageID   string            `json:"cottage_id"`
	ManageToken string            `json:"manage_token"`
	Status      ReservationStatus `json:"status"`

	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
	GuestPhone string `json:"guest_phone"`

	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
	Price    float64   `json:"price"`
	Notes    string    `json:"notes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Reservation) Stay() Stay {
	return Stay{CheckIn: r.CheckIn, CheckOut: r.CheckOut}
}

// ReservationRequest is the validated input for creating or editing a
// reservation. PriceOverride is honored only on admin paths; zero means
// "compute from the cottage nightly rate".
type ReservationRequest struct {
	GuestName     string    `json:"guest_name" validate:"required,min=2"`
	GuestEmail    string    `json:"guest_email" validate:"required,email"`
	GuestPhone    string    `json:"guest_phone" validate:"required,min=10"`
	CottageID     string    `json:"cottage_id" validate:"required"`
	CheckIn       time.Time `json:"check_in" validate:"required"`
	CheckOut      time.Time `json:"check_out" validate:"required,gtfield=CheckIn"`
	Notes         string    `json:"notes"`
	PriceOverride float64   `json:"price_override" validate:"omitempty,gt=0"`
}

func (r *ReservationRequest) Stay() Stay {
	return Stay{CheckIn: r.CheckIn, CheckOut: r.CheckOut}
}

type ReservationRes struct {
	ID          string    `json:"id"`
	ManageToken string    `json:"manage_token"`
	Status      string    `json:"status"`
	CheckIn     time.Time `json:"check_in"`
	CheckOut    time.Time `json:"check_out"`
	Price       float64   `json:"price"`
}

// BookingDetails backs the guest thank-you page: the reservation joined with
// its cottage name and the price breakdown.
type BookingDetails struct {
	ID          string    `json:"id"`
	GuestName   string    `json:"guest_name"`
	GuestEmail  string    `json:"guest_email"`
	CottageName string    `json:"cottage_name"`
	CheckIn     time.Time `json:"check_in"`
	CheckOut    time.Time `json:"check_out"`
	Nights      int       `json:"nights"`
	TotalPrice  float64   `json:"total_price"`
	Status      string    `json:"status"`
}

// BlockedStay is one calendar entry on the availability feed. Pending and
// confirmed stays both appear: a pending request soft-blocks the calendar so
// two guests are not led into submitting the same dates.
type BlockedStay struct {
	Stay
	Status ReservationStatus `json:"status"`
}
