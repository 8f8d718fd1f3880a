//go:build integration

package postgresrepo_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/staydesk/internal/domain"
	"github.com/kirinyoku/staydesk/internal/postgres"
	"github.com/kirinyoku/staydesk/internal/repository"
	postgresrepo "github.com/kirinyoku/staydesk/internal/repository/postgres"
	"github.com/kirinyoku/staydesk/internal/service/booking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres runs a throwaway PostgreSQL container and returns a migrated pool.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "staydesk_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/staydesk_test?sslmode=disable", host, port.Port())

	var pool *pgxpool.Pool
	require.Eventually(t, func() bool {
		pool, err = postgres.New(ctx, postgres.Config{DSN: dsn, MaxConns: 20})
		return err == nil
	}, 30*time.Second, time.Second, "PostgreSQL not ready for connections")
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool))
	// Running it twice must be harmless.
	require.NoError(t, postgres.Migrate(ctx, pool))

	return pool
}

func seed(t *testing.T, store repository.Store) (domain.Room, domain.User) {
	t.Helper()
	ctx := context.Background()

	room := domain.Room{ID: uuid.New(), Number: "101", Type: "double", Price: 100, Status: domain.RoomAvailable}
	require.NoError(t, store.Rooms().Create(ctx, &room))

	user := domain.User{ID: uuid.New(), Name: "Asha", Phone: "+255712345678", Role: domain.RoleCustomer}
	require.NoError(t, store.Users().Create(ctx, &user))

	return room, user
}

func newBooking(room domain.Room, user domain.User, in, out time.Time, st domain.BookingStatus) *domain.Booking {
	return &domain.Booking{
		ID:            uuid.New(),
		RoomID:        room.ID,
		UserID:        user.ID,
		GuestName:     user.Name,
		GuestPhone:    user.Phone,
		CheckIn:       in,
		CheckOut:      out,
		Guests:        1,
		TotalPrice:    room.Price,
		Currency:      "TZS",
		Status:        st,
		PaymentStatus: domain.BookingUnpaid,
		PaymentMethod: domain.MethodCash,
	}
}

func TestPostgresStore(t *testing.T) {
	pool := startPostgres(t)
	store := postgresrepo.NewStore(pool)
	ctx := context.Background()

	in := time.Date(2030, 1, 1, 14, 0, 0, 0, time.UTC)

	t.Run("exclusion constraint rejects overlap and allows adjacency", func(t *testing.T) {
		room, user := seed(t, store)

		require.NoError(t, store.Bookings().Create(ctx, newBooking(room, user, in, in.Add(24*time.Hour), domain.BookingConfirmed)))

		err := store.Bookings().Create(ctx, newBooking(room, user, in.Add(12*time.Hour), in.Add(36*time.Hour), domain.BookingPending))
		assert.ErrorIs(t, err, repository.ErrOverlap)

		require.NoError(t, store.Bookings().Create(ctx, newBooking(room, user, in.Add(24*time.Hour), in.Add(48*time.Hour), domain.BookingPending)))

		// Cancelled stays do not hold the room.
		require.NoError(t, store.Bookings().Create(ctx, newBooking(room, user, in, in.Add(24*time.Hour), domain.BookingCancelled)))

		active, err := store.Bookings().ListActiveByRoom(ctx, room.ID, time.Time{})
		require.NoError(t, err)
		assert.Len(t, active, 2)
	})

	t.Run("atomic rolls back", func(t *testing.T) {
		room := domain.Room{ID: uuid.New(), Number: "rollback", Type: "single", Price: 50, Status: domain.RoomAvailable}

		err := store.Atomic(ctx, func(ctx context.Context, tx repository.Tx) error {
			if err := tx.Rooms().Create(ctx, &room); err != nil {
				return err
			}
			return repository.ErrConflict
		})
		require.ErrorIs(t, err, repository.ErrConflict)

		_, err = store.Rooms().Get(ctx, room.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("payment references are unique", func(t *testing.T) {
		room := domain.Room{ID: uuid.New(), Number: "201", Type: "single", Price: 80, Status: domain.RoomAvailable}
		require.NoError(t, store.Rooms().Create(ctx, &room))
		user := domain.User{ID: uuid.New(), Name: "Juma", Email: "juma@example.com", Role: domain.RoleCustomer}
		require.NoError(t, store.Users().Create(ctx, &user))

		b := newBooking(room, user, in.Add(240*time.Hour), in.Add(264*time.Hour), domain.BookingPending)
		require.NoError(t, store.Bookings().Create(ctx, b))

		p := &domain.Payment{
			ID: uuid.New(), BookingID: b.ID, Attempt: 1, Amount: 80, Currency: "TZS",
			Method: domain.MethodMobileMoney, Status: domain.PaymentPending, CustomerRef: "ref-" + b.ID.String(),
		}
		require.NoError(t, store.Payments().Create(ctx, p))

		dup := *p
		dup.ID = uuid.New()
		dup.Attempt = 2
		assert.ErrorIs(t, store.Payments().Create(ctx, &dup), repository.ErrConflict)

		got, err := store.Payments().GetByCustomerRef(ctx, p.CustomerRef)
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)

		_, err = store.Users().FindByEmail(ctx, "JUMA@example.com")
		assert.NoError(t, err)
	})
}

func TestConcurrentBookingsOneWinner(t *testing.T) {
	pool := startPostgres(t)
	store := postgresrepo.NewStore(pool)
	ctx := context.Background()

	room := domain.Room{ID: uuid.New(), Number: "301", Type: "suite", Price: 300, Status: domain.RoomAvailable}
	require.NoError(t, store.Rooms().Create(ctx, &room))

	svc := booking.New(store, nil, nil, nil, nil, booking.Config{Currency: "TZS", CountryCode: "255"})

	in := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)
	const n = 12

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
	)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			actor := domain.Actor{Subject: fmt.Sprintf("guest-%d", i), Role: domain.RoleCustomer}
			_, err := svc.Create(ctx, actor, booking.CreateInput{
				RoomID:        room.ID,
				GuestName:     "Guest",
				GuestPhone:    fmt.Sprintf("+2557123450%02d", i),
				CheckIn:       in,
				CheckOut:      in.Add(24 * time.Hour),
				PaymentMethod: domain.MethodCash,
			}, "")

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, booking.ErrRoomUnavailable):
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, rejected)

	active, err := store.Bookings().ListActiveByRoom(ctx, room.ID, time.Time{})
	require.NoError(t, err)
	assert.Len(t, active, 1)
}
