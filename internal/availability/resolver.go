package availability

import (
	"time"

	"github.com/kirinyoku/staydesk/internal/domain"
)

type Resolution struct {
	Status        domain.RoomStatus
	NextAvailable *time.Time
}

type Resolver struct {
	Buffer time.Duration
}

func NewResolver(buffer time.Duration) Resolver {
	if buffer < 0 {
		buffer = 0
	}
	return Resolver{Buffer: buffer}
}

// Resolve derives the effective status of room at now.
//
// Maintenance wins unconditionally. Otherwise the active booking covering now
// (with the early-occupancy buffer) makes the room Occupied until its checkout;
// when several match the soonest checkout is reported. A stored Occupied or
// Booked flag only survives when no active booking of this room is given;
// cancelled stays and other rooms' bookings do not count.
func (r Resolver) Resolve(room domain.Room, bookings []domain.Booking, now time.Time) Resolution {
	if room.Status == domain.RoomMaintenance {
		return Resolution{Status: domain.RoomMaintenance}
	}

	var (
		next     *time.Time
		relevant int
	)
	for _, b := range bookings {
		if !b.Active() || b.RoomID != room.ID {
			continue
		}
		relevant++
		if !ActiveAt(StayOf(b), now, r.Buffer) {
			continue
		}
		if next == nil || b.CheckOut.Before(*next) {
			out := b.CheckOut
			next = &out
		}
	}

	if next != nil {
		return Resolution{Status: domain.RoomOccupied, NextAvailable: next}
	}

	if relevant == 0 && (room.Status == domain.RoomOccupied || room.Status == domain.RoomBooked) {
		return Resolution{Status: room.Status, NextAvailable: room.NextAvailable}
	}

	return Resolution{Status: domain.RoomAvailable}
}

// Apply returns room with the resolved status and next availability filled in.
func (r Resolver) Apply(room domain.Room, bookings []domain.Booking, now time.Time) domain.Room {
	res := r.Resolve(room, bookings, now)
	room.Status = res.Status
	room.NextAvailable = res.NextAvailable
	return room
}
