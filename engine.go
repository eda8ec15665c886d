package tokenguard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/tokenguard/internal/audit"
	"github.com/MrEthical07/tokenguard/internal/rate"
	"github.com/MrEthical07/tokenguard/jwt"
	"github.com/MrEthical07/tokenguard/session"
)

// Engine runs login, request authentication, renewal, logout and signup.
// It is immutable after [Builder.Build] and safe for concurrent use.
type Engine struct {
	config    Config
	codec     *jwt.Codec
	store     *session.Store
	limiter   *rate.Limiter
	users     UserLookup
	registrar UserRegistrar
	verifier  PasswordVerifier
	hasher    PasswordHasher
	audit     *internalaudit.Dispatcher
	metrics   *Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// Close stops the audit dispatcher after flushing buffered events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Store exposes the refresh store, for health checks and tooling.
func (e *Engine) Store() *session.Store {
	return e.store
}

/*
====================================
LOGIN
====================================
*/

// Login authenticates identifier/secret, mints both tokens and records the
// refresh token as the principal's only session. Unknown identifiers and
// wrong secrets fail identically with KindInvalidCredentials. On any
// failure the refresh store is untouched.
func (e *Engine) Login(ctx context.Context, identifier, secret string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	identifier = e.canonicalIdentifier(identifier)
	ip := ClientIPFromContext(ctx)

	if e.loginThrottled() {
		if err := e.limiter.CheckLogin(ctx, identifier, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricLoginRateLimited)
				e.emitAudit(ctx, auditEventLoginRateLimited, false, identifier, ErrRateLimited, nil)
				return nil, ErrRateLimited
			}
			e.metricInc(MetricStoreUnavailable)
			return nil, newError(KindStoreUnavailable, err)
		}
	}

	user, err := e.users.LookupByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			if d, ok := e.verifier.(dummyVerifier); ok {
				d.VerifyDummy(secret)
			}
			return nil, e.loginFailed(ctx, identifier, ip, ErrInvalidCredentials)
		}
		e.logger.ErrorContext(ctx, "tokenguard: user lookup failed", "error", err)
		return nil, newError(KindInternal, err)
	}

	ok, err := e.verifier.Verify(secret, user.PasswordHash)
	if err != nil {
		e.logger.WarnContext(ctx, "tokenguard: password verification error", "identifier", identifier, "error", err)
		return nil, e.loginFailed(ctx, identifier, ip, ErrInvalidCredentials)
	}
	if !ok {
		return nil, e.loginFailed(ctx, identifier, ip, ErrInvalidCredentials)
	}

	subject := user.Identifier
	role := string(user.Role)

	access, accessClaims, err := e.codec.AccessManager().Create(subject, role)
	if err != nil {
		return nil, newError(KindInternal, err)
	}
	refresh, refreshClaims, err := e.codec.RefreshManager().Create(subject, role)
	if err != nil {
		return nil, newError(KindInternal, err)
	}

	if err := e.store.Put(ctx, subject, refresh, refreshClaims.IssuedAt.Time, e.config.JWT.RefreshTTL); err != nil {
		e.metricInc(MetricStoreUnavailable)
		e.emitAudit(ctx, auditEventLoginFailure, false, subject, ErrStoreUnavailable, nil)
		return nil, e.storeError(err)
	}

	if e.loginThrottled() {
		if err := e.limiter.ResetLogin(ctx, identifier); err != nil {
			e.logger.WarnContext(ctx, "tokenguard: failed to reset login throttle", "identifier", identifier, "error", err)
		}
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, true, subject, nil, func() map[string]string {
		return map[string]string{"role": role}
	})

	return &LoginResult{
		AccessToken:     access,
		RefreshToken:    refresh,
		AccessExpiresAt: accessClaims.ExpiresAt.Time,
		Principal:       user.Principal,
	}, nil
}

// canonicalIdentifier is the key Login throttles and looks up under.
func (e *Engine) canonicalIdentifier(identifier string) string {
	if c, ok := e.users.(IdentifierCanonicalizer); ok {
		return c.CanonicalIdentifier(identifier)
	}
	return identifier
}

func (e *Engine) loginThrottled() bool {
	return e.limiter != nil && e.config.Security.EnableLoginThrottle
}

func (e *Engine) loginFailed(ctx context.Context, identifier, ip string, cause *Error) error {
	if e.loginThrottled() {
		if err := e.limiter.IncrementLogin(ctx, identifier, ip); err != nil {
			e.logger.WarnContext(ctx, "tokenguard: failed to record login failure", "error", err)
		}
	}
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, identifier, cause, nil)
	return cause
}

/*
====================================
AUTHENTICATE
====================================
*/

// Authenticate validates an access token and resolves its principal. It
// never renews and never touches the refresh store.
func (e *Engine) Authenticate(ctx context.Context, token string) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer e.observe(MetricAuthenticateLatency, start)

	if token == "" {
		e.metricInc(MetricAuthenticateMissing)
		return nil, ErrMissingToken
	}

	claims, err := e.codec.Check(token, jwt.Access)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			e.metricInc(MetricAuthenticateExpired)
			return nil, ErrExpiredToken
		}
		e.metricInc(MetricAuthenticateMalformed)
		return nil, newError(KindMalformedToken, err)
	}

	user, err := e.users.LookupByIdentifier(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricPrincipalNotFound)
			return nil, ErrPrincipalNotFound
		}
		e.logger.ErrorContext(ctx, "tokenguard: user lookup failed", "error", err)
		return nil, newError(KindInternal, err)
	}

	e.metricInc(MetricAuthenticateSuccess)
	return &AuthResult{
		Principal: user.Principal,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

/*
====================================
RENEW
====================================
*/

// Renew issues a fresh access token from the principal's refresh entry when
// the presented access token is correctly signed but expired. A still-valid
// token yields RenewStillValid and nothing is minted. Store faults surface
// as KindStoreUnavailable and never delete the entry.
func (e *Engine) Renew(ctx context.Context, token string) (*RenewResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer e.observe(MetricRenewLatency, start)

	if token == "" {
		return nil, ErrMissingToken
	}

	claims, err := e.codec.Verify(token, jwt.Access)
	if err != nil {
		return nil, newError(KindMalformedToken, err)
	}
	if !e.codec.IsExpired(claims) {
		e.metricInc(MetricRenewStillValid)
		return &RenewResult{Outcome: RenewStillValid}, nil
	}

	subject := claims.Subject

	if e.limiter != nil && e.config.Security.EnableRenewThrottle {
		if err := e.limiter.CheckRenew(ctx, subject); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricRenewRateLimited)
				e.emitAudit(ctx, auditEventRenewRateLimited, false, subject, ErrRateLimited, nil)
				return nil, ErrRateLimited
			}
			e.metricInc(MetricStoreUnavailable)
			return nil, newError(KindStoreUnavailable, err)
		}
	}

	entry, err := e.store.Get(ctx, subject)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrSessionNotFound):
		e.metricInc(MetricRenewNoSession)
		e.emitAudit(ctx, auditEventRenewFailure, false, subject, ErrNoActiveSession, nil)
		return nil, ErrNoActiveSession
	case errors.Is(err, session.ErrEntryCorrupt):
		return nil, e.renewInvalid(ctx, subject, "entry_corrupt")
	default:
		e.metricInc(MetricStoreUnavailable)
		return nil, e.storeError(err)
	}

	if entry.Expired(e.now()) {
		return nil, e.renewInvalid(ctx, subject, "entry_expired")
	}

	refreshClaims, err := e.codec.Check(entry.Token, jwt.Refresh)
	if err != nil {
		reason := "refresh_invalid"
		if errors.Is(err, jwt.ErrExpired) {
			reason = "refresh_expired"
		}
		return nil, e.renewInvalid(ctx, subject, reason)
	}
	if refreshClaims.Subject != subject {
		return nil, e.renewInvalid(ctx, subject, "subject_mismatch")
	}

	user, err := e.users.LookupByIdentifier(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.invalidate(ctx, subject)
			e.metricInc(MetricPrincipalNotFound)
			e.emitAudit(ctx, auditEventRenewFailure, false, subject, ErrPrincipalNotFound, nil)
			return nil, ErrPrincipalNotFound
		}
		e.logger.ErrorContext(ctx, "tokenguard: user lookup failed", "error", err)
		return nil, newError(KindInternal, err)
	}

	// The role comes from the directory, not the expired token, so role
	// changes apply at the next renewal.
	access, accessClaims, err := e.codec.AccessManager().Create(subject, string(user.Role))
	if err != nil {
		return nil, newError(KindInternal, err)
	}

	e.metricInc(MetricRenewSuccess)
	e.emitAudit(ctx, auditEventRenewSuccess, true, subject, nil, nil)

	p := user.Principal
	return &RenewResult{
		Outcome:         RenewRenewed,
		AccessToken:     access,
		AccessExpiresAt: accessClaims.ExpiresAt.Time,
		Principal:       &p,
	}, nil
}

func (e *Engine) renewInvalid(ctx context.Context, subject, reason string) error {
	e.invalidate(ctx, subject)
	e.metricInc(MetricRenewSessionInvalid)
	e.emitAudit(ctx, auditEventRenewFailure, false, subject, ErrSessionInvalid, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return ErrSessionInvalid
}

// invalidate deletes subject's refresh entry. Failures are logged; the
// caller's outcome does not change.
func (e *Engine) invalidate(ctx context.Context, subject string) {
	if _, err := e.store.Delete(ctx, subject); err != nil {
		e.logger.WarnContext(ctx, "tokenguard: failed to delete refresh entry", "identifier", subject, "error", err)
		return
	}
	e.metricInc(MetricSessionInvalidated)
}

/*
====================================
LOGOUT
====================================
*/

// Logout deletes the refresh entry of the token's subject. Expired access
// tokens are accepted; only the signature must hold. Logging out twice is
// not an error.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if token == "" {
		return ErrMissingToken
	}

	subject, err := e.codec.ExtractSubject(token)
	if err != nil {
		return newError(KindMalformedToken, err)
	}

	existed, err := e.store.Delete(ctx, subject)
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return e.storeError(err)
	}

	e.metricInc(MetricLogout)
	if existed {
		e.metricInc(MetricSessionInvalidated)
	}
	e.emitAudit(ctx, auditEventLogout, true, subject, nil, nil)
	return nil
}

/*
====================================
SIGNUP
====================================
*/

// SignupEnabled reports whether Signup can succeed.
func (e *Engine) SignupEnabled() bool {
	return e != nil && e.registrar != nil
}

// Signup hashes the secret and creates a principal with the default role.
// It mints no tokens.
func (e *Engine) Signup(ctx context.Context, req SignupRequest) (*Principal, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.registrar == nil {
		return nil, ErrSignupDisabled
	}

	hash, err := e.hasher.Hash(req.Secret)
	if err != nil {
		return nil, &Error{Kind: KindBadRequest, Message: err.Error(), Err: err}
	}

	p, err := e.registrar.CreateUser(ctx, CreateUserInput{
		Identifier:   req.Identifier,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         e.config.Signup.DefaultRole,
	})
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			e.metricInc(MetricSignupDuplicate)
			e.emitAudit(ctx, auditEventSignupFailure, false, req.Identifier, ErrAccountExists, nil)
			return nil, ErrAccountExists
		}
		e.logger.ErrorContext(ctx, "tokenguard: create user failed", "error", err)
		return nil, newError(KindInternal, err)
	}

	e.metricInc(MetricSignupSuccess)
	e.emitAudit(ctx, auditEventSignupSuccess, true, p.Identifier, nil, nil)
	return &p, nil
}

func (e *Engine) storeError(err error) error {
	if errors.Is(err, session.ErrStoreUnavailable) {
		return newError(KindStoreUnavailable, err)
	}
	return newError(KindInternal, err)
}
