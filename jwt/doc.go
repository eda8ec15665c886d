// Package jwt mints and verifies the signed access and refresh tokens used by
// tokenguard.
//
// # Verification versus expiry
//
// Signature verification and the expiry decision are separate steps.
// [Codec.Verify] never fails because a token is old; callers that need a
// usable token follow it with [Codec.IsExpired] or use [Codec.Check]. This is
// what lets the renewal path recover the subject of an expired access token.
//
// # Keys
//
// Access and refresh tokens are signed with different keys. [NewCodec]
// refuses a configuration in which both kinds share key material.
//
// # What this package must NOT do
//
//   - Perform I/O or touch the refresh store.
//   - Decide HTTP status codes or cookie behavior.
package jwt
