// Package handler exposes the authentication endpoints over net/http:
// login, refresh, logout, signup, the sample /api/me route and a health
// probe. Handlers decode and validate JSON bodies, delegate every decision
// to tokenguard.Engine and translate results into cookies and the JSON
// error envelope.
package handler
