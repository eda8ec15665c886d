package session

import "time"

// Entry is the refresh session kept for one principal. At most one entry
// exists per identifier; writing a new one replaces the previous session.
type Entry struct {
	Identifier string
	Token      string
	IssuedAt   int64
	ExpiresAt  int64
}

// Expired reports whether the entry's recorded expiry has passed at now.
// Renew rejects such entries even when Redis has not evicted them yet.
func (e *Entry) Expired(now time.Time) bool {
	return e == nil || now.Unix() >= e.ExpiresAt
}
