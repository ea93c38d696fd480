package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/greensretreat/ggr-bookings/internal/domain"
	"github.com/greensretreat/ggr-bookings/internal/platform/mailer"
	"github.com/greensretreat/ggr-bookings/pkg/events"
	"github.com/greensretreat/ggr-bookings/pkg/logger"
)

const queueGroup = "notify"

type reservationSource interface {
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)
}

type cottageSource interface {
	GetByID(ctx context.Context, id string) (*domain.Cottage, error)
}

// Consumer delivers guest emails in response to reservation events, off the
// request path. Booking requests never wait on the mail provider: the
// service publishes to the bus and the consumer does the sending.
type Consumer struct {
	bus          events.Subscriber
	mail         mailer.Service
	reservations reservationSource
	cottages     cottageSource
}

func NewConsumer(bus events.Subscriber, mail mailer.Service, reservations reservationSource, cottages cottageSource) *Consumer {
	return &Consumer{
		bus:          bus,
		mail:         mail,
		reservations: reservations,
		cottages:     cottages,
	}
}

// Start registers the queue subscriptions. The queue group keeps delivery
// single-shot if more than one instance is ever run.
func (c *Consumer) Start() error {
	if err := c.bus.QueueSubscribe(events.ReservationCreated, queueGroup, c.onReservationCreated); err != nil {
		return err
	}
	if err := c.bus.QueueSubscribe(events.ReservationStatusChanged, queueGroup, c.onStatusChanged); err != nil {
		return err
	}
	return c.bus.QueueSubscribe(events.NotifySend, queueGroup, c.onNotifySend)
}

func (c *Consumer) onReservationCreated(msg *events.Message) {
	var ev events.ReservationCreatedEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logger.Error("Failed to decode reservation created event", "error", err, "subject", msg.Subject)
		return
	}

	r := &domain.Reservation{
		ID:          ev.ReservationID,
		CottageID:   ev.CottageID,
		ManageToken: ev.ManageToken,
		Status:      domain.ReservationStatus(ev.Status),
		GuestName:   ev.GuestName,
		GuestEmail:  ev.GuestEmail,
		CheckIn:     ev.CheckIn,
		CheckOut:    ev.CheckOut,
		Price:       ev.Price,
	}

	c.sendBookingMail(r)
}

// onStatusChanged emails the guest when their request is confirmed. The
// event carries ids only, so the reservation is re-read for the details.
func (c *Consumer) onStatusChanged(msg *events.Message) {
	var ev events.ReservationStatusChangedEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logger.Error("Failed to decode status changed event", "error", err, "subject", msg.Subject)
		return
	}
	if ev.NewStatus != string(domain.ReservationConfirmed) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, err := c.reservations.GetByID(ctx, ev.ReservationID)
	if err != nil || r == nil {
		logger.Error("Failed to load reservation for confirmation email", "error", err, "reservation_id", ev.ReservationID)
		return
	}

	c.sendBookingMail(r)
}

func (c *Consumer) onNotifySend(msg *events.Message) {
	var ev events.NotificationEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logger.Error("Failed to decode notification event", "error", err, "subject", msg.Subject)
		return
	}

	text, _ := ev.Data["text"].(string)
	html, _ := ev.Data["html"].(string)
	if _, err := c.mail.Send(ev.Recipient, "", ev.Subject, text, html); err != nil {
		logger.Error("Failed to send notification", "error", err, "recipient", ev.Recipient, "type", ev.Type)
	}
}

func (c *Consumer) sendBookingMail(r *domain.Reservation) {
	name := c.cottageName(r.CottageID)

	var err error
	if r.Status == domain.ReservationConfirmed {
		err = c.mail.SendBookingConfirmed(r, name)
	} else {
		err = c.mail.SendBookingReceived(r, name)
	}
	if err != nil {
		logger.Error("Failed to send booking email", "error", err, "reservation_id", r.ID)
	}
}

func (c *Consumer) cottageName(cottageID string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if cottage, err := c.cottages.GetByID(ctx, cottageID); err == nil && cottage != nil {
		return cottage.Name
	}
	return cottageID
}
