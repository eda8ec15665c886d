package tokenguard

import (
	"net/http"
	"time"
)

// SecurityReport summarizes the effective security posture of an engine,
// for startup logs and admin endpoints. It contains no key material.
type SecurityReport struct {
	SigningAlgorithm     string
	Issuer               string
	AccessTTL            time.Duration
	RefreshTTL           time.Duration
	Leeway               time.Duration
	CookieSecure         bool
	CookieSameSite       string
	BearerFallback       bool
	Argon2               PasswordConfigReport
	LoginThrottleActive  bool
	IPThrottleActive     bool
	RenewThrottleActive  bool
	SignupActive         bool
	AuditActive          bool
	MetricsActive        bool
	BypassPrefixes       []string
	BypassExactPaths     []string
	BypassSuffixPatterns []string
}

type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	cfg := e.config
	return SecurityReport{
		SigningAlgorithm: cfg.JWT.SigningMethod,
		Issuer:           cfg.JWT.Issuer,
		AccessTTL:        cfg.JWT.AccessTTL,
		RefreshTTL:       cfg.JWT.RefreshTTL,
		Leeway:           cfg.JWT.Leeway,
		CookieSecure:     cfg.Cookie.Secure,
		CookieSameSite:   sameSiteName(cfg.Cookie),
		BearerFallback:   cfg.Cookie.AllowBearer,
		Argon2: PasswordConfigReport{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		},
		LoginThrottleActive:  e.loginThrottled(),
		IPThrottleActive:     e.loginThrottled() && cfg.Security.EnableIPThrottle,
		RenewThrottleActive:  e.limiter != nil && cfg.Security.EnableRenewThrottle,
		SignupActive:         e.SignupEnabled(),
		AuditActive:          e.audit != nil,
		MetricsActive:        e.metrics.Enabled(),
		BypassPrefixes:       cloneStrings(cfg.Bypass.Prefixes),
		BypassExactPaths:     cloneStrings(cfg.Bypass.Exact),
		BypassSuffixPatterns: cloneStrings(cfg.Bypass.Suffixes),
	}
}

func sameSiteName(c CookieConfig) string {
	switch c.SameSite {
	case http.SameSiteLaxMode:
		return "Lax"
	case http.SameSiteStrictMode:
		return "Strict"
	case http.SameSiteNoneMode:
		return "None"
	default:
		return "Default"
	}
}
