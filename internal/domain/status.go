package domain

import "strings"

type RoomStatus string

const (
	RoomAvailable   RoomStatus = "Available"
	RoomOccupied    RoomStatus = "Occupied"
	RoomBooked      RoomStatus = "Booked"
	RoomMaintenance RoomStatus = "Maintenance"
)

func (s RoomStatus) IsValid() bool {
	switch s {
	case RoomAvailable, RoomOccupied, RoomBooked, RoomMaintenance:
		return true
	}
	return false
}

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCheckedIn BookingStatus = "checked-in"
	BookingCancelled BookingStatus = "cancelled"
)

// bookingTransitions lists the statuses a booking may move to.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCheckedIn, BookingCancelled},
	BookingConfirmed: {BookingCheckedIn, BookingCancelled},
	BookingCheckedIn: {BookingCancelled},
	BookingCancelled: {},
}

// ActiveBookingStatuses are the statuses that hold a room.
var ActiveBookingStatuses = []BookingStatus{BookingPending, BookingConfirmed, BookingCheckedIn}

func (s BookingStatus) IsValid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

func (s BookingStatus) Active() bool {
	return s == BookingPending || s == BookingConfirmed || s == BookingCheckedIn
}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingCancelled
}

func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	if s == target {
		return true
	}
	for _, t := range bookingTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

type BookingPaymentStatus string

const (
	BookingUnpaid BookingPaymentStatus = "unpaid"
	BookingPaid   BookingPaymentStatus = "paid"
	BookingFailed BookingPaymentStatus = "failed"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPending, PaymentSuccess, PaymentPaid, PaymentFailed:
		return true
	}
	return false
}

// Succeeded reports the successful terminal states. They are sticky.
func (s PaymentStatus) Succeeded() bool {
	return s == PaymentSuccess || s == PaymentPaid
}

// ParsePaymentStatus maps provider and staff vocabulary onto PaymentStatus.
func ParsePaymentStatus(raw string) (PaymentStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "success", "successful", "completed", "settled":
		return PaymentSuccess, true
	case "paid":
		return PaymentPaid, true
	case "failed", "failure", "rejected", "cancelled", "canceled", "expired":
		return PaymentFailed, true
	case "pending", "processing", "initiated":
		return PaymentPending, true
	}
	return "", false
}

type PaymentMethod string

const (
	MethodCash        PaymentMethod = "cash"
	MethodMerchant    PaymentMethod = "merchant"
	MethodMobileMoney PaymentMethod = "mobile_money"
	MethodCard        PaymentMethod = "card"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case MethodCash, MethodMerchant, MethodMobileMoney, MethodCard:
		return true
	}
	return false
}
