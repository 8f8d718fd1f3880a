package rooms

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/staydesk/internal/domain"
	"github.com/kirinyoku/staydesk/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Service, *memory.Store) {
	t.Helper()

	store := memory.NewStore()
	svc := New(store, nil, nil, nil, Config{OccupancyBuffer: time.Hour})
	svc.now = func() time.Time { return now }

	return svc, store
}

func addBooking(t *testing.T, store *memory.Store, roomID uuid.UUID, in, out time.Time, st domain.BookingStatus) domain.Booking {
	t.Helper()

	b := domain.Booking{ID: uuid.New(), RoomID: roomID, CheckIn: in, CheckOut: out, Status: st, GuestName: "g"}
	require.NoError(t, store.Bookings().Create(context.Background(), &b))
	return b
}

func TestCreateValidatesAndDefaults(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	rm, err := svc.Create(ctx, CreateInput{Number: " 101 ", Type: "double", Price: 100, Amenities: []string{"wifi", "wifi", " "}})
	require.NoError(t, err)
	assert.Equal(t, "101", rm.Number)
	assert.Equal(t, domain.RoomAvailable, rm.Status)
	assert.Equal(t, []string{"wifi"}, rm.Amenities)

	var verr *domain.ValidationError

	_, err = svc.Create(ctx, CreateInput{Number: "101", Type: "single"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "number", verr.Field)

	_, err = svc.Create(ctx, CreateInput{Number: "102", Type: "single", Price: -1})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "price", verr.Field)

	_, err = svc.Create(ctx, CreateInput{Number: "103", Type: "single", Status: "Haunted"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr.Field)
}

func TestListResolvesOccupancyAndOrdersNumbers(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()

	r10, err := svc.Create(ctx, CreateInput{Number: "10", Type: "double"})
	require.NoError(t, err)
	r2, err := svc.Create(ctx, CreateInput{Number: "2", Type: "double"})
	require.NoError(t, err)
	r10a, err := svc.Create(ctx, CreateInput{Number: "10A", Type: "suite", Status: domain.RoomMaintenance})
	require.NoError(t, err)

	// Starts within the hour: already occupied.
	stay := addBooking(t, store, r10.ID, now.Add(30*time.Minute), now.Add(24*time.Hour), domain.BookingConfirmed)
	addBooking(t, store, r10a.ID, now.Add(-time.Hour), now.Add(time.Hour), domain.BookingCheckedIn)
	addBooking(t, store, r2.ID, now.Add(2*time.Hour), now.Add(24*time.Hour), domain.BookingPending)

	rooms, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 3)

	assert.Equal(t, []string{"2", "10", "10A"}, []string{rooms[0].Number, rooms[1].Number, rooms[2].Number})

	assert.Equal(t, domain.RoomAvailable, rooms[0].Status)
	assert.Equal(t, domain.RoomOccupied, rooms[1].Status)
	require.NotNil(t, rooms[1].NextAvailable)
	assert.True(t, rooms[1].NextAvailable.Equal(stay.CheckOut))
	assert.Equal(t, domain.RoomMaintenance, rooms[2].Status)
	assert.Nil(t, rooms[2].NextAvailable)

	got, err := svc.Get(ctx, r10.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoomOccupied, got.Status)

	_, err = svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestAvailableSkipsMaintenanceAndOverlaps(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()

	free, err := svc.Create(ctx, CreateInput{Number: "1", Type: "single"})
	require.NoError(t, err)
	taken, err := svc.Create(ctx, CreateInput{Number: "2", Type: "single"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Number: "3", Type: "single", Status: domain.RoomMaintenance})
	require.NoError(t, err)
	turnover, err := svc.Create(ctx, CreateInput{Number: "4", Type: "single"})
	require.NoError(t, err)

	in := now.Add(48 * time.Hour)
	out := now.Add(72 * time.Hour)

	addBooking(t, store, taken.ID, in.Add(-24*time.Hour), in.Add(time.Hour), domain.BookingConfirmed)
	addBooking(t, store, turnover.ID, in.Add(-24*time.Hour), in, domain.BookingConfirmed)
	addBooking(t, store, free.ID, in, out, domain.BookingCancelled)

	rooms, err := svc.Available(ctx, in, out)
	require.NoError(t, err)

	var ids []uuid.UUID
	for _, rm := range rooms {
		ids = append(ids, rm.ID)
	}
	assert.Equal(t, []uuid.UUID{free.ID, turnover.ID}, ids)

	_, err = svc.Available(ctx, out, in)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDeleteRefusedWhileBookingsAreActive(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()

	rm, err := svc.Create(ctx, CreateInput{Number: "7", Type: "single"})
	require.NoError(t, err)

	b := addBooking(t, store, rm.ID, now.Add(24*time.Hour), now.Add(48*time.Hour), domain.BookingPending)

	err = svc.Delete(ctx, rm.ID)
	assert.ErrorIs(t, err, ErrRoomInUse)

	b.Status = domain.BookingCancelled
	require.NoError(t, store.Bookings().Update(ctx, &b))

	require.NoError(t, svc.Delete(ctx, rm.ID))

	_, err = svc.Get(ctx, rm.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, rm.ID), ErrRoomNotFound)
}

func TestUpdateWritesManualStatusThrough(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	rm, err := svc.Create(ctx, CreateInput{Number: "8", Type: "single", Price: 10})
	require.NoError(t, err)

	maint := domain.RoomMaintenance
	price := int64(25)
	updated, err := svc.Update(ctx, rm.ID, UpdateInput{Status: &maint, Price: &price})
	require.NoError(t, err)
	assert.Equal(t, domain.RoomMaintenance, updated.Status)
	assert.Equal(t, int64(25), updated.Price)

	got, err := svc.Get(ctx, rm.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoomMaintenance, got.Status)

	_, err = svc.Update(ctx, uuid.New(), UpdateInput{Price: &price})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}
