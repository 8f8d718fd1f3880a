package booking

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrRoomUnavailable = errors.New("room is unavailable for the requested stay")
	// ErrConcurrencyConflict marks a write that lost a race with a concurrent
	// booking. Create and Update retry once and then report it together with
	// ErrRoomUnavailable.
	ErrConcurrencyConflict = errors.New("concurrent booking conflict")
	ErrRoomNotFound        = errors.New("room not found")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrForbidden           = errors.New("booking belongs to another guest")
)

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}
