package rate

import "errors"

var (
	// ErrRateLimited means the caller has exhausted the current window.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps every counter backend failure.
	ErrRedisUnavailable = errors.New("rate limiter backend unavailable")
)
