package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	MaxLoginAttempts int
	LoginWindow      time.Duration
	EnableIPThrottle bool

	EnableRenewThrottle bool
	MaxRenewAttempts    int
	RenewWindow         time.Duration

	// OpTimeout bounds each Redis round trip. Zero means no extra bound.
	OpTimeout time.Duration
}

// Limiter enforces per-identifier and per-IP login budgets and a
// per-identifier renewal budget using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

func (l *Limiter) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.config.OpTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.config.OpTimeout)
}

// CheckLogin reports ErrRateLimited when the identifier (or, with IP
// throttling, the client IP) has used up its failed-attempt budget.
// It does not count the attempt.
func (l *Limiter) CheckLogin(ctx context.Context, identifier, ip string) error {
	ctx, cancel := l.bound(ctx)
	defer cancel()

	if err := l.checkCounter(ctx, loginUserKey(identifier), l.config.MaxLoginAttempts); err != nil {
		return err
	}

	if l.config.EnableIPThrottle && ip != "" {
		if err := l.checkCounter(ctx, loginIPKey(ip), l.config.MaxLoginAttempts); err != nil {
			return err
		}
	}

	return nil
}

// IncrementLogin records a failed login attempt.
func (l *Limiter) IncrementLogin(ctx context.Context, identifier, ip string) error {
	ctx, cancel := l.bound(ctx)
	defer cancel()

	if _, err := l.incrementWithTTL(ctx, loginUserKey(identifier), l.config.LoginWindow); err != nil {
		return err
	}

	if l.config.EnableIPThrottle && ip != "" {
		if _, err := l.incrementWithTTL(ctx, loginIPKey(ip), l.config.LoginWindow); err != nil {
			return err
		}
	}

	return nil
}

// ResetLogin clears the identifier's failed-login counter after a success.
// The IP counter is left alone so one good account cannot launder a
// spraying client.
func (l *Limiter) ResetLogin(ctx context.Context, identifier string) error {
	ctx, cancel := l.bound(ctx)
	defer cancel()

	if err := l.redis.Del(ctx, loginUserKey(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// CheckRenew counts a renewal attempt and reports ErrRateLimited once the
// window budget is exceeded. A no-op when renew throttling is off.
func (l *Limiter) CheckRenew(ctx context.Context, identifier string) error {
	if !l.config.EnableRenewThrottle {
		return nil
	}

	ctx, cancel := l.bound(ctx)
	defer cancel()

	count, err := l.incrementWithTTL(ctx, renewKey(identifier), l.config.RenewWindow)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxRenewAttempts) {
		return ErrRateLimited
	}

	return nil
}

// LoginAttempts returns the current failed-attempt counter for an identifier.
// Missing keys return zero and do not reveal account existence.
func (l *Limiter) LoginAttempts(ctx context.Context, identifier string) (int, error) {
	ctx, cancel := l.bound(ctx)
	defer cancel()

	count, err := l.redis.Get(ctx, loginUserKey(identifier)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string, maxAttempts int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count >= int64(maxAttempts) {
		return ErrRateLimited
	}

	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: the TTL is set on the first hit only.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
