// Package memory is an in-process implementation of the repository ports.
// It enforces the same uniqueness and no-overlap constraints as the Postgres
// schema and serializes Atomic calls behind one mutex.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/kirinyoku/staydesk/internal/domain"
	"github.com/kirinyoku/staydesk/internal/repository"
)

type state struct {
	rooms    map[uuid.UUID]domain.Room
	bookings map[uuid.UUID]domain.Booking
	payments map[uuid.UUID]domain.Payment
	users    map[uuid.UUID]domain.User
}

func newState() *state {
	return &state{
		rooms:    make(map[uuid.UUID]domain.Room),
		bookings: make(map[uuid.UUID]domain.Booking),
		payments: make(map[uuid.UUID]domain.Payment),
		users:    make(map[uuid.UUID]domain.User),
	}
}

func (s *state) clone() *state {
	cp := newState()
	for k, v := range s.rooms {
		v.Amenities = append([]string(nil), v.Amenities...)
		cp.rooms[k] = v
	}
	for k, v := range s.bookings {
		cp.bookings[k] = v
	}
	for k, v := range s.payments {
		cp.payments[k] = v
	}
	for k, v := range s.users {
		cp.users[k] = v
	}
	return cp
}

type Store struct {
	mu   sync.Mutex
	data *state
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{data: newState()}
}

// Atomic runs fn against a private copy of the data and publishes it only
// when fn succeeds.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	cp := s.data.clone()
	if err := fn(ctx, view{s: s, st: cp}); err != nil {
		return err
	}

	s.data = cp
	return nil
}

func (s *Store) Rooms() repository.Rooms       { return view{s: s}.Rooms() }
func (s *Store) Bookings() repository.Bookings { return view{s: s}.Bookings() }
func (s *Store) Payments() repository.Payments { return view{s: s}.Payments() }
func (s *Store) Users() repository.Users       { return view{s: s}.Users() }

// view binds repositories to a transaction snapshot (st != nil) or to the
// live data under the store mutex.
type view struct {
	s  *Store
	st *state
}

func (v view) Rooms() repository.Rooms       { return roomRepo{v} }
func (v view) Bookings() repository.Bookings { return bookingRepo{v} }
func (v view) Payments() repository.Payments { return paymentRepo{v} }
func (v view) Users() repository.Users       { return userRepo{v} }

func (v view) do(fn func(st *state) error) error {
	if v.st != nil {
		return fn(v.st)
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return fn(v.s.data)
}

func normEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
