package query

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/staydesk/internal/domain"
	"github.com/kirinyoku/staydesk/internal/repository/memory"
	"github.com/kirinyoku/staydesk/internal/service/rooms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Now().UTC()

	occupied := domain.Room{ID: uuid.New(), Number: "1", Type: "single", Status: domain.RoomAvailable}
	idle := domain.Room{ID: uuid.New(), Number: "2", Type: "single", Status: domain.RoomAvailable}
	broken := domain.Room{ID: uuid.New(), Number: "3", Type: "single", Status: domain.RoomMaintenance}
	for _, rm := range []*domain.Room{&occupied, &idle, &broken} {
		require.NoError(t, store.Rooms().Create(ctx, rm))
	}

	live := domain.Booking{ID: uuid.New(), RoomID: occupied.ID, CheckIn: now.Add(-time.Hour), CheckOut: now.Add(24 * time.Hour), Status: domain.BookingCheckedIn}
	gone := domain.Booking{ID: uuid.New(), RoomID: idle.ID, CheckIn: now.Add(-time.Hour), CheckOut: now.Add(24 * time.Hour), Status: domain.BookingCancelled}
	require.NoError(t, store.Bookings().Create(ctx, &live))
	require.NoError(t, store.Bookings().Create(ctx, &gone))

	for i, st := range []domain.PaymentStatus{domain.PaymentSuccess, domain.PaymentFailed} {
		p := domain.Payment{ID: uuid.New(), BookingID: live.ID, Attempt: i + 1, Amount: 150, Status: st, CustomerRef: uuid.NewString()}
		require.NoError(t, store.Payments().Create(ctx, &p))
	}

	svc := New(store, rooms.New(store, nil, nil, nil, rooms.Config{}), Config{Currency: "TZS"})

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.RoomsByStatus[domain.RoomOccupied])
	assert.Equal(t, int64(1), stats.RoomsByStatus[domain.RoomAvailable])
	assert.Equal(t, int64(1), stats.RoomsByStatus[domain.RoomMaintenance])
	assert.Equal(t, int64(0), stats.RoomsByStatus[domain.RoomBooked])
	assert.Equal(t, int64(1), stats.BookingsByStatus[domain.BookingCheckedIn])
	assert.Equal(t, int64(1), stats.BookingsByStatus[domain.BookingCancelled])
	assert.Equal(t, int64(0), stats.BookingsByStatus[domain.BookingPending])
	assert.Equal(t, int64(150), stats.PaidRevenue)
	assert.Equal(t, "TZS", stats.Currency)
}
