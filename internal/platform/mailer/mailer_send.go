package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"

	"github.com/greensretreat/ggr-bookings/internal/domain"
)

type Mailer struct {
	client    *mailersend.Mailersend
	from      mailersend.From
	publicURL string
	Enabled   bool
}

func NewMailer(apiKey, fromName, fromEmail, publicURL string) *Mailer {
	m := &Mailer{
		Enabled:   apiKey != "" && fromEmail != "",
		publicURL: publicURL,
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}
	if m.Enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}
	return m
}

func (m *Mailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	if !m.Enabled {
		return "", errors.New("mailer disabled (missing MAILERSEND_API_KEY or MAIL_FROM_EMAIL)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)
	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	res, err := m.client.Email.Send(ctx, msg)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("mailersend error: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	// MailerSend uses X-Message-Id
	return res.Header.Get("X-Message-Id"), nil
}

func (m *Mailer) SendBookingReceived(r *domain.Reservation, cottageName string) error {
	subject := "We received your booking request"
	text := fmt.Sprintf(
		"Hi %s,\n\nThanks for your request to stay at %s from %s to %s. We'll be in touch shortly to confirm your dates.",
		r.GuestName, cottageName, r.CheckIn.Format("2 Jan 2006"), r.CheckOut.Format("2 Jan 2006"),
	)
	html := fmt.Sprintf(
		`<p>Hi %s,</p><p>Thanks for your request to stay at <b>%s</b> from %s to %s. We'll be in touch shortly to confirm your dates.</p>`,
		r.GuestName, cottageName, r.CheckIn.Format("2 Jan 2006"), r.CheckOut.Format("2 Jan 2006"),
	)
	if link := ManageLink(m.publicURL, r); link != "" {
		text += fmt.Sprintf("\n\nTrack your request: %s", link)
		html += fmt.Sprintf(`<p><a href="%s">Track your request</a></p>`, link)
	}
	text += "\n\nGreen's Green Retreat"
	html += `<p>Green's Green Retreat</p>`
	_, err := m.Send(r.GuestEmail, r.GuestName, subject, text, html)
	return err
}

// ManageLink builds the guest's booking page URL from the site's public
// base URL. Empty when no base URL is configured or the reservation has no
// manage token.
func ManageLink(publicURL string, r *domain.Reservation) string {
	if publicURL == "" || r.ManageToken == "" {
		return ""
	}
	return fmt.Sprintf("%s/bookings/%s?manage_token=%s", strings.TrimRight(publicURL, "/"), r.ID, r.ManageToken)
}

func (m *Mailer) SendBookingConfirmed(r *domain.Reservation, cottageName string) error {
	subject := "Your stay is confirmed"
	text := fmt.Sprintf(
		"Hi %s,\n\nYour stay at %s from %s to %s is confirmed. Total: %.2f.\n\nSee you soon!\nGreen's Green Retreat",
		r.GuestName, cottageName, r.CheckIn.Format("2 Jan 2006"), r.CheckOut.Format("2 Jan 2006"), r.Price,
	)
	html := fmt.Sprintf(
		`<p>Hi %s,</p><p>Your stay at <b>%s</b> from %s to %s is confirmed. Total: %.2f.</p><p>See you soon!<br>Green's Green Retreat</p>`,
		r.GuestName, cottageName, r.CheckIn.Format("2 Jan 2006"), r.CheckOut.Format("2 Jan 2006"), r.Price,
	)
	_, err := m.Send(r.GuestEmail, r.GuestName, subject, text, html)
	return err
}

var _ Service = (*Mailer)(nil)
