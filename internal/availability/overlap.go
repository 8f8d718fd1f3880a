// Package availability holds the pure occupancy rules: interval conflicts,
// the room status resolver and room ordering. Nothing here performs I/O or
// reads the clock.
package availability

import (
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/staydesk/internal/domain"
)

// DefaultOccupancyBuffer is how early before check-in a room reports Occupied.
const DefaultOccupancyBuffer = time.Hour

// Interval is a half-open stay [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Valid() bool {
	return !i.Start.IsZero() && !i.End.IsZero() && i.Start.Before(i.End)
}

// Overlaps reports whether a and b share any instant. Touching endpoints do not.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// ActiveAt reports whether now falls in [Start-buffer, End).
func ActiveAt(iv Interval, now time.Time, buffer time.Duration) bool {
	return !now.Before(iv.Start.Add(-buffer)) && now.Before(iv.End)
}

func StayOf(b domain.Booking) Interval {
	return Interval{Start: b.CheckIn, End: b.CheckOut}
}

// FindConflict returns the first active booking (other than exclude) whose stay overlaps candidate.
func FindConflict(candidate Interval, bookings []domain.Booking, exclude uuid.UUID) (domain.Booking, bool) {
	for _, b := range bookings {
		if !b.Active() || (exclude != uuid.Nil && b.ID == exclude) {
			continue
		}
		if Overlaps(candidate, StayOf(b)) {
			return b, true
		}
	}
	return domain.Booking{}, false
}
