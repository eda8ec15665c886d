package tokenguard

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/tokenguard/session"
)

// SessionInfo is the safe introspection view of a refresh entry. It never
// carries token material.
type SessionInfo struct {
	Identifier string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	TTL        time.Duration
}

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	RedisAvailable bool
	RedisLatency   time.Duration
}

// SessionInfo reports identifier's refresh entry. A missing entry yields
// ErrNoActiveSession; store faults yield KindStoreUnavailable.
func (e *Engine) SessionInfo(ctx context.Context, identifier string) (*SessionInfo, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	entry, err := e.store.Get(ctx, identifier)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionNotFound):
			return nil, ErrNoActiveSession
		case errors.Is(err, session.ErrEntryCorrupt):
			return nil, newError(KindSessionInvalid, err)
		}
		return nil, e.storeError(err)
	}

	ttl, err := e.store.TTL(ctx, identifier)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, ErrNoActiveSession
		}
		return nil, e.storeError(err)
	}

	return &SessionInfo{
		Identifier: entry.Identifier,
		IssuedAt:   time.Unix(entry.IssuedAt, 0).UTC(),
		ExpiresAt:  time.Unix(entry.ExpiresAt, 0).UTC(),
		TTL:        ttl,
	}, nil
}

// Health pings Redis.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.store == nil {
		return HealthStatus{}
	}

	latency, err := e.store.Ping(ctx)
	return HealthStatus{
		RedisAvailable: err == nil,
		RedisLatency:   latency,
	}
}

// LoginAttempts returns the failed-login count in the current window, or 0
// when the login throttle is off.
func (e *Engine) LoginAttempts(ctx context.Context, identifier string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	if !e.loginThrottled() || identifier == "" {
		return 0, nil
	}

	n, err := e.limiter.LoginAttempts(ctx, e.canonicalIdentifier(identifier))
	if err != nil {
		return 0, newError(KindStoreUnavailable, err)
	}
	return n, nil
}
