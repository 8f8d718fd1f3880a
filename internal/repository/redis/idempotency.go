package redisrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idemNS     = ns + ":idem"
	idemLock   = "LOCK"
	idemResult = "RES:"
)

// KeyIdemBooking scopes a client's Idempotency-Key to the caller so two
// subjects cannot replay each other's responses.
func KeyIdemBooking(subject, idemKey string) string {
	return fmt.Sprintf("%s:bookings:%s:%s", idemNS, subject, idemKey)
}

// StoredResult is a completed response kept under an Idempotency-Key together
// with the fingerprint of the request that produced it.
type StoredResult struct {
	Fingerprint string
	Payload     string
}

// Matches reports whether fingerprint identifies the request that was stored.
func (r StoredResult) Matches(fingerprint string) bool {
	return r.Fingerprint == fingerprint
}

type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

// AcquireLock claims key for one in-flight request.
func (s *IdempotencyStore) AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, idemLock, lockTTL).Result()
}

func (s *IdempotencyStore) SaveResult(ctx context.Context, key string, res StoredResult) error {
	return s.rdb.Set(ctx, key, encodeResult(res), s.ttl).Err()
}

// GetResult returns the stored response, or ok=false while the key is unused
// or still locked.
func (s *IdempotencyStore) GetResult(ctx context.Context, key string) (res StoredResult, ok bool, err error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return StoredResult{}, false, nil
	}
	if err != nil {
		return StoredResult{}, false, err
	}

	res, ok = decodeResult(v)
	return res, ok, nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// encodeResult lays a result out as "RES:<fingerprint>:<payload>".
func encodeResult(res StoredResult) string {
	return idemResult + res.Fingerprint + ":" + res.Payload
}

func decodeResult(v string) (StoredResult, bool) {
	rest, ok := strings.CutPrefix(v, idemResult)
	if !ok {
		return StoredResult{}, false
	}
	fp, payload, ok := strings.Cut(rest, ":")
	if !ok {
		return StoredResult{}, false
	}
	return StoredResult{Fingerprint: fp, Payload: payload}, true
}
