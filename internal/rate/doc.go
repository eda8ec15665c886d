// Package rate provides Redis-backed fixed-window throttles for login and
// token renewal.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - tg:rl:login:    failed logins per identifier
//   - tg:rl:login-ip: failed logins per client IP
//   - tg:rl:renew:    renewal attempts per identifier
//
// Login counts failures only; a success resets the identifier counter.
// Renewal counts every attempt.
//
// # What this package must NOT do
//
//   - Decide authentication outcomes.
//   - Be imported outside the tokenguard module.
package rate
