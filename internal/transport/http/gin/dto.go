package httpgin

import (
	"time"

	"github.com/kirinyoku/staydesk/internal/domain"
)

type ErrorResponse struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

type CreateRoomRequest struct {
	Number      string            `json:"number" binding:"required,max=16"`
	Type        string            `json:"type" binding:"required"`
	Price       int64             `json:"price" binding:"gte=0"`
	PriceUSD    int64             `json:"price_usd" binding:"gte=0"`
	Status      domain.RoomStatus `json:"status" binding:"omitempty,oneof=Available Occupied Booked Maintenance"`
	Amenities   []string          `json:"amenities" binding:"omitempty,dive,max=64"`
	Description string            `json:"description"`
}

type UpdateRoomRequest struct {
	Number      *string            `json:"number" binding:"omitempty,min=1,max=16"`
	Type        *string            `json:"type" binding:"omitempty,min=1"`
	Price       *int64             `json:"price" binding:"omitempty,gte=0"`
	PriceUSD    *int64             `json:"price_usd" binding:"omitempty,gte=0"`
	Status      *domain.RoomStatus `json:"status" binding:"omitempty,oneof=Available Occupied Booked Maintenance"`
	Amenities   []string           `json:"amenities" binding:"omitempty,dive,max=64"`
	Description *string            `json:"description"`
}

type CreateBookingRequest struct {
	RoomID        string               `json:"room_id" binding:"required,uuid"`
	GuestName     string               `json:"guest_name" binding:"required"`
	GuestPhone    string               `json:"guest_phone" binding:"omitempty,phone"`
	GuestEmail    string               `json:"guest_email" binding:"omitempty,email"`
	CheckIn       time.Time            `json:"check_in" binding:"required"`
	CheckOut      time.Time            `json:"check_out" binding:"required,gtfield=CheckIn"`
	Guests        int                  `json:"guests" binding:"omitempty,gte=1,lte=20"`
	PaymentMethod domain.PaymentMethod `json:"payment_method" binding:"required,oneof=cash merchant mobile_money card"`
}

type UpdateBookingRequest struct {
	RoomID     *string               `json:"room_id" binding:"omitempty,uuid"`
	CheckIn    *time.Time            `json:"check_in"`
	CheckOut   *time.Time            `json:"check_out"`
	GuestName  *string               `json:"guest_name" binding:"omitempty,min=1"`
	GuestPhone *string               `json:"guest_phone" binding:"omitempty,phone"`
	GuestEmail *string               `json:"guest_email" binding:"omitempty,email"`
	Guests     *int                  `json:"guests" binding:"omitempty,gte=1,lte=20"`
	Status     *domain.BookingStatus `json:"status" binding:"omitempty,oneof=pending confirmed checked-in cancelled"`
}

type InitiatePaymentRequest struct {
	BookingID string `json:"booking_id" binding:"required,uuid"`
	Phone     string `json:"phone" binding:"omitempty,phone"`
}

type UpdatePaymentRequest struct {
	Status      string `json:"status" binding:"required"`
	ExternalRef string `json:"external_ref"`
	Message     string `json:"message"`
}

type WebhookRequest struct {
	Status                string `json:"status" binding:"required"`
	CustomerReference     string `json:"customer_reference" binding:"required"`
	ProviderTransactionID string `json:"provider_transaction_id"`
	Message               string `json:"message"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
	Matched  bool `json:"matched"`
}

type CreateBookingResponse struct {
	Booking domain.Booking `json:"booking"`
	Payment domain.Payment `json:"payment"`
}
