package domain

import (
	"time"

	"github.com/google/uuid"
)

type Room struct {
	ID            uuid.UUID  `json:"id"`
	Number        string     `json:"number"`
	Type          string     `json:"type"`
	Price         int64      `json:"price"`
	PriceUSD      int64      `json:"price_usd"`
	Status        RoomStatus `json:"status"`
	NextAvailable *time.Time `json:"next_available,omitempty"`
	Amenities     []string   `json:"amenities"`
	Description   string     `json:"description"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// User is a guest identity resolved from phone or email when a booking is made.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type Booking struct {
	ID            uuid.UUID            `json:"id"`
	RoomID        uuid.UUID            `json:"room_id"`
	UserID        uuid.UUID            `json:"user_id"`
	GuestName     string               `json:"guest_name"`
	GuestPhone    string               `json:"guest_phone,omitempty"`
	GuestEmail    string               `json:"guest_email,omitempty"`
	CheckIn       time.Time            `json:"check_in"`
	CheckOut      time.Time            `json:"check_out"`
	Guests        int                  `json:"guests"`
	TotalPrice    int64                `json:"total_price"`
	Currency      string               `json:"currency"`
	Status        BookingStatus        `json:"status"`
	PaymentStatus BookingPaymentStatus `json:"payment_status"`
	PaymentMethod PaymentMethod        `json:"payment_method"`
	CreatedBy     string               `json:"created_by"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// Active reports whether the booking holds its room.
func (b Booking) Active() bool {
	return b.Status.Active()
}

type Payment struct {
	ID          uuid.UUID     `json:"id"`
	BookingID   uuid.UUID     `json:"booking_id"`
	Attempt     int           `json:"attempt"`
	Amount      int64         `json:"amount"`
	Currency    string        `json:"currency"`
	Method      PaymentMethod `json:"method"`
	Provider    string        `json:"provider,omitempty"`
	Phone       string        `json:"phone,omitempty"`
	Status      PaymentStatus `json:"status"`
	ExternalRef string        `json:"external_ref,omitempty"`
	CustomerRef string        `json:"customer_reference"`
	Message     string        `json:"message,omitempty"`
	InitiatedAt *time.Time    `json:"initiated_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type BookingFilter struct {
	RoomID    *uuid.UUID
	Status    BookingStatus
	CreatedBy string
	Limit     int
	Offset    int
}

type PaymentFilter struct {
	BookingID *uuid.UUID
	Status    PaymentStatus
	// CreatedBy matches the creator of the payment's booking.
	CreatedBy string
	Limit     int
	Offset    int
}

type DashboardStats struct {
	RoomsByStatus    map[RoomStatus]int64    `json:"rooms_by_status"`
	BookingsByStatus map[BookingStatus]int64 `json:"bookings_by_status"`
	PaidRevenue      int64                   `json:"paid_revenue"`
	Currency         string                  `json:"currency"`
	GeneratedAt      time.Time               `json:"generated_at"`
}
