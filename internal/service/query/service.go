// Package query serves read-side projections for the dashboard.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/kirinyoku/staydesk/internal/domain"
	"github.com/kirinyoku/staydesk/internal/repository"
	"github.com/kirinyoku/staydesk/internal/service/rooms"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	Currency string
}

type Service struct {
	store repository.Store
	rooms *rooms.Service
	cfg   Config
	now   func() time.Time
}

func New(store repository.Store, roomsSvc *rooms.Service, cfg Config) *Service {
	return &Service{
		store: store,
		rooms: roomsSvc,
		cfg:   cfg,
		now:   time.Now,
	}
}

// Stats counts rooms by resolved status and bookings by status, and sums
// revenue from successful payment attempts. The three reads run concurrently.
func (s *Service) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	const op = "service.query.Stats"

	var (
		roomList []domain.Room
		bookings map[domain.BookingStatus]int64
		revenue  int64
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		roomList, err = s.rooms.List(gctx)
		return err
	})

	g.Go(func() error {
		var err error
		bookings, err = s.store.Bookings().CountByStatus(gctx)
		return err
	})

	g.Go(func() error {
		var err error
		revenue, err = s.store.Payments().SumSucceeded(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	byStatus := map[domain.RoomStatus]int64{
		domain.RoomAvailable:   0,
		domain.RoomOccupied:    0,
		domain.RoomBooked:      0,
		domain.RoomMaintenance: 0,
	}
	for _, rm := range roomList {
		byStatus[rm.Status]++
	}

	for _, st := range []domain.BookingStatus{
		domain.BookingPending, domain.BookingConfirmed, domain.BookingCheckedIn, domain.BookingCancelled,
	} {
		if _, ok := bookings[st]; !ok {
			bookings[st] = 0
		}
	}

	return &domain.DashboardStats{
		RoomsByStatus:    byStatus,
		BookingsByStatus: bookings,
		PaidRevenue:      revenue,
		Currency:         s.cfg.Currency,
		GeneratedAt:      s.now().UTC(),
	}, nil
}
