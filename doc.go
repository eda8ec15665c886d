// Package tokenguard authenticates HTTP requests with a short-lived access
// token carried in an HttpOnly cookie and renews it from a server-side
// refresh entry kept in Redis.
//
// # Flow
//
//   - [Engine.Login] verifies credentials once, mints an access and a refresh
//     token, and stores the refresh token under the principal's identifier.
//     Only the access token reaches the client.
//   - [Engine.Authenticate] checks the access token's signature and expiry
//     without touching Redis and resolves the principal. It never renews.
//   - [Engine.Renew] is the explicit renewal path: for a correctly signed but
//     expired access token it consults the refresh entry and mints a new
//     access token with the principal's current role.
//   - [Engine.Logout] deletes the refresh entry, so the next renewal fails
//     with KindNoActiveSession.
//
// # Errors
//
// Every failure is an [*Error] tagged with a [Kind]. Kinds map to an HTTP
// status, an envelope code and a cookie policy, so transports branch on
// [KindOf] and never on message text. KindStoreUnavailable is transient
// and never means the session is invalid.
//
// # What this package must NOT do
//
//   - Expose Redis clients or the refresh-entry encoding in its API.
//   - Renew inside Authenticate.
//   - Import middleware, handler or any package that imports tokenguard.
package tokenguard
