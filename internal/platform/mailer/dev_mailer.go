package mailer

import (
	"github.com/greensretreat/ggr-bookings/internal/domain"
	"github.com/greensretreat/ggr-bookings/pkg/logger"
)

// DevMailer logs emails instead of sending them.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	logger.Info("📧 [DEV MAIL]",
		"to", toEmail,
		"name", toName,
		"subject", subject,
		"text", text,
	)
	return "dev", nil
}

func (d *DevMailer) SendBookingReceived(r *domain.Reservation, cottageName string) error {
	logger.Info("📧 [DEV MAIL] Booking Received",
		"to", r.GuestEmail,
		"guest", r.GuestName,
		"cottage", cottageName,
		"check_in", r.CheckIn,
		"check_out", r.CheckOut,
	)
	return nil
}

func (d *DevMailer) SendBookingConfirmed(r *domain.Reservation, cottageName string) error {
	logger.Info("📧 [DEV MAIL] Booking Confirmed",
		"to", r.GuestEmail,
		"guest", r.GuestName,
		"cottage", cottageName,
		"check_in", r.CheckIn,
		"check_out", r.CheckOut,
		"price", r.Price,
	)
	return nil
}

var _ Service = (*DevMailer)(nil)
