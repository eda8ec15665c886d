// Package middleware adapts a tokenguard.Engine to net/http.
//
// # Guard
//
// [Guard] reads the access cookie, calls Engine.Authenticate and attaches
// the resolved principal to the request context. Paths matched by a
// [BypassPolicy] and requests that already carry a principal pass through
// untouched. The guard never renews: an expired token yields 401
// EXPIRED_TOKEN and the client calls the refresh endpoint.
//
// # Plumbing
//
// [Chain] composes middleware with the first argument outermost.
// [RequestID], [AccessLog], [Recover], [CORS], [BodyLimit] and [ClientIP]
// are the global layers the server binary installs ahead of the guard.
//
// # What this package must NOT do
//
//   - Parse or mint tokens directly (delegates to Engine).
//   - Access Redis.
//   - Renew access tokens.
package middleware
