package tokenguard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/tokenguard/internal/audit"
	internalmetrics "github.com/MrEthical07/tokenguard/internal/metrics"
)

// Role is the principal's authorization role, embedded in tokens as "auth".
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Principal is the authenticated subject attached to a request. The core
// never mutates it.
type Principal struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Role       Role   `json:"role"`
}

// UserRecord is what a [UserLookup] returns: the principal plus its stored
// password hash.
type UserRecord struct {
	Principal
	PasswordHash string
}

var (
	// ErrUserNotFound is returned by UserLookup implementations for unknown identifiers.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned by UserRegistrar implementations for duplicate identifiers.
	ErrUserExists = errors.New("user already exists")
)

// UserLookup resolves principals by identifier. Implementations must return
// an error wrapping [ErrUserNotFound] when the identifier is unknown; any
// other error is treated as a backend fault.
type UserLookup interface {
	LookupByIdentifier(ctx context.Context, identifier string) (UserRecord, error)
}

// IdentifierCanonicalizer is an optional extension of UserLookup. Login
// keys its throttle counters on the canonical form, so spelling variants
// of one account share a single failure budget. Lookups without it are
// keyed on the identifier exactly as submitted.
type IdentifierCanonicalizer interface {
	CanonicalIdentifier(identifier string) string
}

// UserRegistrar is an optional extension of UserLookup that enables Signup.
type UserRegistrar interface {
	CreateUser(ctx context.Context, input CreateUserInput) (Principal, error)
}

// CreateUserInput carries an already-hashed secret.
type CreateUserInput struct {
	Identifier   string
	Name         string
	PasswordHash string
	Role         Role
}

// PasswordVerifier checks a plaintext secret against a stored hash.
type PasswordVerifier interface {
	Verify(secret, encodedHash string) (bool, error)
}

// PasswordHasher produces stored hashes for Signup.
type PasswordHasher interface {
	Hash(secret string) (string, error)
}

// dummyVerifier is implemented by verifiers that can equalize the cost of
// the unknown-identifier path.
type dummyVerifier interface {
	VerifyDummy(secret string)
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
	Principal       Principal
}

// AuthResult is returned by a successful Authenticate.
type AuthResult struct {
	Principal Principal
	ExpiresAt time.Time
}

// RenewOutcome distinguishes the two successful renewal results.
type RenewOutcome uint8

const (
	// RenewStillValid means the presented access token is still usable; nothing was minted.
	RenewStillValid RenewOutcome = iota + 1
	// RenewRenewed means a fresh access token was minted from the refresh entry.
	RenewRenewed
)

// Message is the response text for the outcome.
func (o RenewOutcome) Message() string {
	switch o {
	case RenewStillValid:
		return "access token still valid"
	case RenewRenewed:
		return "access token renewed"
	default:
		return ""
	}
}

// RenewResult is returned by a successful Renew. AccessToken and Principal
// are set only when Outcome is RenewRenewed.
type RenewResult struct {
	Outcome         RenewOutcome
	AccessToken     string
	AccessExpiresAt time.Time
	Principal       *Principal
}

// SignupRequest is the input to Signup. The secret is hashed before it
// reaches the registrar.
type SignupRequest struct {
	Identifier string
	Secret     string
	Name       string
}

/*
====================================
AUDIT
====================================
*/

type AuditEvent = internalaudit.Event

type AuditSink = internalaudit.Sink

type NoOpSink = internalaudit.NoOpSink

type ChannelSink = internalaudit.ChannelSink

type JSONWriterSink = internalaudit.JSONWriterSink

type SlogSink = internalaudit.SlogSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}

/*
====================================
METRICS
====================================
*/

type MetricID = internalmetrics.MetricID

const (
	MetricLoginSuccess          = internalmetrics.MetricLoginSuccess
	MetricLoginFailure          = internalmetrics.MetricLoginFailure
	MetricLoginRateLimited      = internalmetrics.MetricLoginRateLimited
	MetricAuthenticateSuccess   = internalmetrics.MetricAuthenticateSuccess
	MetricAuthenticateMissing   = internalmetrics.MetricAuthenticateMissing
	MetricAuthenticateMalformed = internalmetrics.MetricAuthenticateMalformed
	MetricAuthenticateExpired   = internalmetrics.MetricAuthenticateExpired
	MetricRenewSuccess          = internalmetrics.MetricRenewSuccess
	MetricRenewStillValid       = internalmetrics.MetricRenewStillValid
	MetricRenewNoSession        = internalmetrics.MetricRenewNoSession
	MetricRenewSessionInvalid   = internalmetrics.MetricRenewSessionInvalid
	MetricRenewRateLimited      = internalmetrics.MetricRenewRateLimited
	MetricPrincipalNotFound     = internalmetrics.MetricPrincipalNotFound
	MetricStoreUnavailable      = internalmetrics.MetricStoreUnavailable
	MetricSessionCreated        = internalmetrics.MetricSessionCreated
	MetricSessionInvalidated    = internalmetrics.MetricSessionInvalidated
	MetricLogout                = internalmetrics.MetricLogout
	MetricSignupSuccess         = internalmetrics.MetricSignupSuccess
	MetricSignupDuplicate       = internalmetrics.MetricSignupDuplicate
	MetricAuthenticateLatency   = internalmetrics.MetricAuthenticateLatency
	MetricRenewLatency          = internalmetrics.MetricRenewLatency
)

type MetricsSnapshot = internalmetrics.Snapshot

type Metrics = internalmetrics.Metrics

// NewMetrics creates a metrics set from the engine's MetricsConfig.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:                 cfg.Enabled,
		EnableLatencyHistograms: cfg.EnableLatencyHistograms,
	})
}
