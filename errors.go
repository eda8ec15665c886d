package tokenguard

import (
	"errors"
	"net/http"
)

// Kind classifies every failure the engine reports. Callers branch on the
// kind, never on message text.
type Kind uint8

const (
	// KindInternal is an unexpected failure with no more specific kind.
	KindInternal Kind = iota
	// KindInvalidCredentials covers both unknown identifiers and wrong secrets.
	KindInvalidCredentials
	// KindMissingToken means no access token was presented.
	KindMissingToken
	// KindMalformedToken means the token failed to parse or verify.
	KindMalformedToken
	// KindExpiredToken means a correctly signed token is past its window.
	KindExpiredToken
	// KindNoActiveSession means there is no refresh entry for the principal.
	KindNoActiveSession
	// KindSessionInvalid means the refresh entry exists but cannot be used.
	KindSessionInvalid
	// KindStoreUnavailable is a transient refresh-store fault. Safe to retry.
	KindStoreUnavailable
	// KindPrincipalNotFound means the token subject no longer resolves.
	KindPrincipalNotFound
	// KindRateLimited means a login or renewal throttle window is exhausted.
	KindRateLimited
	// KindBadRequest means the request body or input failed validation.
	KindBadRequest
	// KindAccountExists means signup hit an identifier that is already taken.
	KindAccountExists
	// KindSignupDisabled means signup is off or the directory cannot register users.
	KindSignupDisabled
)

type kindInfo struct {
	code         string
	status       int
	message      string
	clearsCookie bool
}

var kinds = [...]kindInfo{
	KindInternal:           {"INTERNAL", http.StatusInternalServerError, "internal error", false},
	KindInvalidCredentials: {"INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid credentials", false},
	KindMissingToken:       {"MISSING_TOKEN", http.StatusUnauthorized, "no access token", true},
	KindMalformedToken:     {"MALFORMED_TOKEN", http.StatusUnauthorized, "invalid token", true},
	KindExpiredToken:       {"EXPIRED_TOKEN", http.StatusUnauthorized, "expired token", false},
	KindNoActiveSession:    {"NO_ACTIVE_SESSION", http.StatusUnauthorized, "no active session", true},
	KindSessionInvalid:     {"SESSION_INVALID", http.StatusUnauthorized, "session invalid", true},
	KindStoreUnavailable:   {"STORE_UNAVAILABLE", http.StatusInternalServerError, "token store unavailable", false},
	KindPrincipalNotFound:  {"PRINCIPAL_NOT_FOUND", http.StatusUnauthorized, "principal not found", true},
	KindRateLimited:        {"RATE_LIMITED", http.StatusTooManyRequests, "too many attempts", false},
	KindBadRequest:         {"BAD_REQUEST", http.StatusBadRequest, "bad request", false},
	KindAccountExists:      {"ACCOUNT_EXISTS", http.StatusConflict, "account already exists", false},
	KindSignupDisabled:     {"SIGNUP_DISABLED", http.StatusNotFound, "signup disabled", false},
}

func (k Kind) info() kindInfo {
	if int(k) >= len(kinds) {
		return kinds[KindInternal]
	}
	return kinds[k]
}

// Code is the envelope code, e.g. "EXPIRED_TOKEN".
func (k Kind) Code() string { return k.info().code }

// Status is the HTTP status the kind maps to.
func (k Kind) Status() int { return k.info().status }

// ClearsCookie reports whether a response carrying this kind should clear the
// access cookie. Store faults leave it untouched since the token was never
// disproven; expired tokens keep it so renewal can still read the subject.
func (k Kind) ClearsCookie() bool { return k.info().clearsCookie }

func (k Kind) String() string { return k.info().code }

// Error is the tagged failure returned by every [Engine] operation.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.info().message
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrExpiredToken)
// holds for wrapped causes too.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// PublicMessage is the text placed in the response envelope. Causes are
// never included.
func (e *Error) PublicMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.info().message
}

var (
	ErrInvalidCredentials = newError(KindInvalidCredentials, nil)
	ErrMissingToken       = newError(KindMissingToken, nil)
	ErrMalformedToken     = newError(KindMalformedToken, nil)
	ErrExpiredToken       = newError(KindExpiredToken, nil)
	ErrNoActiveSession    = newError(KindNoActiveSession, nil)
	ErrSessionInvalid     = newError(KindSessionInvalid, nil)
	ErrStoreUnavailable   = newError(KindStoreUnavailable, nil)
	ErrPrincipalNotFound  = newError(KindPrincipalNotFound, nil)
	ErrRateLimited        = newError(KindRateLimited, nil)
	ErrBadRequest         = newError(KindBadRequest, nil)
	ErrAccountExists      = newError(KindAccountExists, nil)
	ErrSignupDisabled     = newError(KindSignupDisabled, nil)
	ErrInternal           = newError(KindInternal, nil)

	// ErrEngineNotReady is returned by operations on a nil or unbuilt Engine.
	ErrEngineNotReady = &Error{Kind: KindInternal, Message: "engine not initialized"}
)

func newError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Message: kind.info().message, Err: cause}
}

// KindOf returns the kind of err, or KindInternal when err is not an *Error.
// A nil error has no kind; callers should check for nil first.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// AsError converts any error into an *Error, tagging unknown errors as
// KindInternal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return newError(KindInternal, err)
}
