// Package events publishes booking and payment lifecycle events.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	BookingCreated       = "booking.created"
	BookingUpdated       = "booking.updated"
	BookingCancelled     = "booking.cancelled"
	PaymentInitiated     = "payment.initiated"
	PaymentStatusChanged = "payment.status_changed"
)

type Event struct {
	ID            uuid.UUID  `json:"id"`
	Type          string     `json:"type"`
	BookingID     uuid.UUID  `json:"booking_id"`
	RoomID        uuid.UUID  `json:"room_id,omitempty"`
	PaymentID     *uuid.UUID `json:"payment_id,omitempty"`
	Status        string     `json:"status,omitempty"`
	PaymentStatus string     `json:"payment_status,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

func New(typ string, bookingID uuid.UUID) Event {
	return Event{ID: uuid.New(), Type: typ, BookingID: bookingID, OccurredAt: time.Now().UTC()}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
