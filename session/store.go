package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable wraps every Redis failure, timeouts included. It is
// never used for a plain miss.
var ErrStoreUnavailable = errors.New("refresh store unavailable")

// ErrSessionNotFound is returned by Get when no entry exists for the identifier.
var ErrSessionNotFound = errors.New("refresh session not found")

// ErrEntryCorrupt is returned by Get when the stored value cannot be decoded.
var ErrEntryCorrupt = errors.New("refresh session corrupt")

// DefaultPrefix is the key namespace for refresh entries.
const DefaultPrefix = "RT:"

// DefaultOpTimeout bounds each store round trip when no timeout is configured.
const DefaultOpTimeout = 2 * time.Second

// Store persists one refresh [Entry] per principal identifier in Redis.
// Expiry is delegated to Redis key TTLs.
type Store struct {
	redis     redis.UniversalClient
	prefix    string
	opTimeout time.Duration
}

// NewStore creates a refresh [Store]. prefix is prepended verbatim to the
// identifier to form the key; opTimeout bounds each call.
func NewStore(redis redis.UniversalClient, prefix string, opTimeout time.Duration) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if opTimeout <= 0 {
		opTimeout = DefaultOpTimeout
	}
	return &Store{
		redis:     redis,
		prefix:    prefix,
		opTimeout: opTimeout,
	}
}

// Key returns the Redis key holding identifier's entry.
func (s *Store) Key(identifier string) string {
	return s.prefix + identifier
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// Put stores token as identifier's refresh session, replacing any previous
// one, with a TTL of ttl.
//
//	Performance: 1 Redis SET.
func (s *Store) Put(ctx context.Context, identifier, token string, issuedAt time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("refresh ttl must be > 0")
	}

	data, err := Encode(&Entry{
		Identifier: identifier,
		Token:      token,
		IssuedAt:   issuedAt.Unix(),
		ExpiresAt:  issuedAt.Add(ttl).Unix(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.redis.Set(ctx, s.Key(identifier), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Get returns identifier's refresh session.
//
//	Performance: 1 Redis GET.
func (s *Store) Get(ctx context.Context, identifier string) (*Entry, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	data, err := s.redis.Get(ctx, s.Key(identifier)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	entry, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEntryCorrupt, err)
	}
	if entry.Identifier != identifier {
		return nil, fmt.Errorf("%w: identifier mismatch", ErrEntryCorrupt)
	}

	return entry, nil
}

// Delete removes identifier's refresh session. Deleting a missing entry is
// not an error; the boolean reports whether one existed.
//
//	Performance: 1 Redis DEL.
func (s *Store) Delete(ctx context.Context, identifier string) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	n, err := s.redis.Del(ctx, s.Key(identifier)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n > 0, nil
}

// TTL returns the remaining lifetime of identifier's entry, or
// [ErrSessionNotFound].
func (s *Store) TTL(ctx context.Context, identifier string) (time.Duration, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	ttl, err := s.redis.PTTL(ctx, s.Key(identifier)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if ttl < 0 {
		return 0, ErrSessionNotFound
	}
	return ttl, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}
