// Package session provides the Redis-backed refresh-session store.
//
// # Model
//
// One [Entry] per principal identifier, stored under prefix+identifier
// ("RT:a@b.com" by default) with a Redis TTL equal to the refresh-token
// lifetime. Writes replace the previous entry, so a new login silently
// supersedes the last session.
//
// # Binary encoding
//
// Entries are stored in a small versioned binary format (see [Encode]).
// Values that do not decode surface as [ErrEntryCorrupt].
//
// # Failure modes
//
// A miss is [ErrSessionNotFound]. Every Redis failure, including a per-call
// timeout, is wrapped as [ErrStoreUnavailable]. Callers must not treat the
// latter as an invalid session.
//
// # What this package must NOT do
//
//   - Import tokenguard or jwt (no upward imports).
//   - Verify token signatures or decide authentication outcomes.
package session
