package domain

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// NewCustomerRef returns a payment correlation reference: the creation time in
// milliseconds followed by six random digits.
func NewCustomerRef(now time.Time) string {
	return fmt.Sprintf("%d%06d", now.UnixMilli(), rand.IntN(1_000_000))
}
