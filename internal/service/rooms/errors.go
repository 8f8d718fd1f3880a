package rooms

import "errors"

var (
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomInUse is returned when deleting a room that still has active
	// bookings which have not ended.
	ErrRoomInUse = errors.New("room has active bookings")
)
