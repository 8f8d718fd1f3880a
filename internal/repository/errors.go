package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	// ErrOverlap is returned when a write would give a room two active bookings
	// with overlapping stays.
	ErrOverlap = errors.New("overlapping active booking")
	// ErrSerialization is returned when a transaction lost a race and may be retried.
	ErrSerialization = errors.New("serialization failure")
)
