package mailer

import "github.com/greensretreat/ggr-bookings/internal/domain"

type Service interface {
	Send(toEmail, toName, subject, text, html string) (string, error)
	SendBookingReceived(r *domain.Reservation, cottageName string) error
	SendBookingConfirmed(r *domain.Reservation, cottageName string) error
}
