//go:build integration

package redisrepo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start Redis container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())

	return rdb
}

func TestRedisAdapters(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()

	t.Run("limiter rejects past the budget", func(t *testing.T) {
		l := NewSlidingWindowLimiter(rdb, "bookings", 2, time.Minute)

		for i := 1; i <= 2; i++ {
			ok, n, _, err := l.Allow(ctx, "ip:10.0.0.1")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, int64(i), n)
		}

		ok, _, retry, err := l.Allow(ctx, "ip:10.0.0.1")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Greater(t, retry, time.Duration(0))

		ok, _, _, err = l.Allow(ctx, "ip:10.0.0.2")
		require.NoError(t, err)
		assert.True(t, ok, "budgets are per key")
	})

	t.Run("locker grants one holder", func(t *testing.T) {
		lk := NewLocker(rdb)
		key := KeyPaymentLock(uuid.New())

		release, ok, err := lk.Acquire(ctx, key, 10*time.Second)
		require.NoError(t, err)
		require.True(t, ok)

		_, ok, err = lk.Acquire(ctx, key, 10*time.Second)
		require.NoError(t, err)
		assert.False(t, ok)

		release()

		again, ok, err := lk.Acquire(ctx, key, 10*time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
		again()
	})

	t.Run("idempotency replays the stored result", func(t *testing.T) {
		idem := NewIdempotencyStore(rdb, time.Minute)
		key := KeyIdemBooking("guest-1", uuid.NewString())

		locked, err := idem.AcquireLock(ctx, key, time.Minute)
		require.NoError(t, err)
		require.True(t, locked)

		_, ok, err := idem.GetResult(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, "a held lock is not a result")

		require.NoError(t, idem.SaveResult(ctx, key, StoredResult{Fingerprint: "abc123", Payload: `{"id":"b-1"}`}))
		got, ok, err := idem.GetResult(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.JSONEq(t, `{"id":"b-1"}`, got.Payload)
		assert.True(t, got.Matches("abc123"))
		assert.False(t, got.Matches("def456"), "another request body must not replay this result")
	})

	t.Run("cache loads once until invalidated", func(t *testing.T) {
		c := New(rdb)
		roomID := uuid.New()
		loads := 0
		load := func(context.Context) (string, error) {
			loads++
			return "room", nil
		}

		for range 3 {
			v, err := GetOrSetJSON(ctx, c, KeyRoom(roomID), time.Minute, load)
			require.NoError(t, err)
			assert.Equal(t, "room", v)
		}
		assert.Equal(t, 1, loads)

		require.NoError(t, c.InvalidateRoom(ctx, roomID))
		_, err := GetOrSetJSON(ctx, c, KeyRoom(roomID), time.Minute, load)
		require.NoError(t, err)
		assert.Equal(t, 2, loads)
	})

	t.Run("room changes reach subscribers", func(t *testing.T) {
		ps := NewRoomsPubSub(rdb)
		roomID := uuid.New()

		subCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		got := make(chan uuid.UUID, 1)
		go func() {
			_ = ps.Subscribe(subCtx, func(_ context.Context, id uuid.UUID, _ string) {
				select {
				case got <- id:
				default:
				}
			})
		}()

		require.Eventually(t, func() bool {
			n, err := rdb.PubSubNumSub(ctx, ChannelRoomsChanged()).Result()
			return err == nil && n[ChannelRoomsChanged()] > 0
		}, 5*time.Second, 50*time.Millisecond)

		require.NoError(t, ps.PublishRoomChanged(ctx, roomID, "booking.created"))

		select {
		case id := <-got:
			assert.Equal(t, roomID, id)
		case <-time.After(5 * time.Second):
			t.Fatal("no room change received")
		}
	})
}
