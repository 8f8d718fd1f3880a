package payment

import "errors"

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrBookingNotFound = errors.New("booking not found")
	// ErrUpstreamGateway is returned when the provider call failed. The attempt
	// is already marked failed and the caller may retry.
	ErrUpstreamGateway = errors.New("payment gateway failure")
	ErrAlreadyPaid     = errors.New("booking is already paid")
	ErrInProgress      = errors.New("a payment for this booking is already being initiated")
	ErrForbidden       = errors.New("payment belongs to another guest")
)
