package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/staydesk/internal/domain"
)

type Rooms interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Room, error)
	// GetForUpdate reads the room and, inside a transaction, holds it until commit.
	// Booking writes take this lock to serialize per room.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Room, error)
	List(ctx context.Context) ([]domain.Room, error)
	Create(ctx context.Context, room *domain.Room) error
	Update(ctx context.Context, room *domain.Room) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type Bookings interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	// ListActiveByRoom returns active bookings of the room that end after since.
	// A zero since returns all of them.
	ListActiveByRoom(ctx context.Context, roomID uuid.UUID, since time.Time) ([]domain.Booking, error)
	// ListActiveEndingAfter returns active bookings of all rooms that end after since.
	ListActiveEndingAfter(ctx context.Context, since time.Time) ([]domain.Booking, error)
	List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error)
	CountByStatus(ctx context.Context) (map[domain.BookingStatus]int64, error)
	Create(ctx context.Context, b *domain.Booking) error
	Update(ctx context.Context, b *domain.Booking) error
}

type Payments interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	GetByCustomerRef(ctx context.Context, ref string) (*domain.Payment, error)
	// LatestForBooking returns the attempt with the highest number.
	LatestForBooking(ctx context.Context, bookingID uuid.UUID) (*domain.Payment, error)
	List(ctx context.Context, f domain.PaymentFilter) ([]domain.Payment, error)
	SumSucceeded(ctx context.Context) (int64, error)
	Create(ctx context.Context, p *domain.Payment) error
	Update(ctx context.Context, p *domain.Payment) error
}

type Users interface {
	FindByPhone(ctx context.Context, phone string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
}

// Tx is the set of repositories bound to one transaction (or to none).
type Tx interface {
	Rooms() Rooms
	Bookings() Bookings
	Payments() Payments
	Users() Users
}

// Store gives non-transactional access through its Tx methods and runs
// fn atomically in Atomic. Repositories obtained outside fn must not be used inside it.
type Store interface {
	Tx
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
