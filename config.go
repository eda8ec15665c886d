package tokenguard

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Config is the full engine configuration. Build it from [DefaultConfig]
// and override what you need; [Builder.Build] validates it.
type Config struct {
	JWT      JWTConfig
	Cookie   CookieConfig
	Store    StoreConfig
	Bypass   BypassConfig
	Security SecurityConfig
	Password PasswordConfig
	Signup   SignupConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds both signing keys and both token windows. For hs256 the
// keys are shared secrets; for ed25519 they are private keys (raw or PEM)
// with matching public keys.
type JWTConfig struct {
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	SigningMethod    string // "hs256" (default) or "ed25519"
	AccessKey        []byte
	RefreshKey       []byte
	AccessPublicKey  []byte
	RefreshPublicKey []byte
	Issuer           string
	Leeway           time.Duration
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig shapes the access-token cookie. HttpOnly is always set.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	// AllowBearer also accepts "Authorization: Bearer <token>" when no
	// cookie is present.
	AllowBearer bool
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig configures the Redis refresh store.
type StoreConfig struct {
	KeyPrefix string
	OpTimeout time.Duration
}

/*
====================================
BYPASS CONFIG
====================================
*/

// BypassConfig lists request paths the guard lets through without a token.
type BypassConfig struct {
	Prefixes []string
	Exact    []string
	Suffixes []string
}

/*
====================================
SECURITY CONFIG
====================================
*/

type SecurityConfig struct {
	EnableLoginThrottle   bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	EnableIPThrottle      bool

	EnableRenewThrottle   bool
	MaxRenewAttempts      int
	RenewCooldownDuration time.Duration
}

type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MaxSecretBytes int
}

// SignupConfig gates self-registration. Signup also needs a UserLookup that
// implements UserRegistrar.
type SignupConfig struct {
	Enabled     bool
	DefaultRole Role
}

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultCookieName is the access-token cookie name.
const DefaultCookieName = "accessToken"

// DefaultConfig returns the engine defaults. Signing keys are left empty
// and must be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     5 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "hs256",
			Issuer:        "tokenguard",
		},
		Cookie: CookieConfig{
			Name:     DefaultCookieName,
			Path:     "/",
			SameSite: http.SameSiteStrictMode,
		},
		Store: StoreConfig{
			KeyPrefix: "RT:",
			OpTimeout: 2 * time.Second,
		},
		Bypass: BypassConfig{
			Prefixes: []string{"/api/auth/", "/static/"},
			Exact:    []string{"/", "/main", "/login", "/healthz"},
			Suffixes: []string{".html", ".css", ".js", ".ico"},
		},
		Security: SecurityConfig{
			EnableLoginThrottle:   true,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
			EnableIPThrottle:      false,
			EnableRenewThrottle:   false,
			MaxRenewAttempts:      30,
			RenewCooldownDuration: time.Minute,
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			MaxSecretBytes: 1024,
		},
		Signup: SignupConfig{
			Enabled:     true,
			DefaultRole: RoleUser,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessKey = cloneBytes(cfg.JWT.AccessKey)
	out.JWT.RefreshKey = cloneBytes(cfg.JWT.RefreshKey)
	out.JWT.AccessPublicKey = cloneBytes(cfg.JWT.AccessPublicKey)
	out.JWT.RefreshPublicKey = cloneBytes(cfg.JWT.RefreshPublicKey)
	out.Bypass.Prefixes = cloneStrings(cfg.Bypass.Prefixes)
	out.Bypass.Exact = cloneStrings(cfg.Bypass.Exact)
	out.Bypass.Suffixes = cloneStrings(cfg.Bypass.Suffixes)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

/*
====================================
VALIDATION
====================================
*/

func (c *Config) Validate() error {
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be longer than AccessTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.AccessKey) < 32 || len(c.JWT.RefreshKey) < 32 {
			return errors.New("hs256 requires AccessKey and RefreshKey of at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.AccessKey) == 0 || len(c.JWT.RefreshKey) == 0 {
			return errors.New("ed25519 requires AccessKey and RefreshKey")
		}
		if len(c.JWT.AccessPublicKey) == 0 || len(c.JWT.RefreshPublicKey) == 0 {
			return errors.New("ed25519 requires AccessPublicKey and RefreshPublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}

	if c.Cookie.Name == "" {
		return errors.New("Cookie Name is required")
	}
	if strings.ContainsAny(c.Cookie.Name, " ;=,\t\r\n") {
		return errors.New("Cookie Name contains invalid characters")
	}
	if !strings.HasPrefix(c.Cookie.Path, "/") {
		return errors.New("Cookie Path must start with /")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return errors.New("Cookie SameSite=None requires Secure")
	}

	if c.Store.KeyPrefix == "" {
		return errors.New("Store KeyPrefix is required")
	}
	if c.Store.OpTimeout <= 0 {
		return errors.New("Store OpTimeout must be > 0")
	}

	for _, p := range c.Bypass.Prefixes {
		if !strings.HasPrefix(p, "/") {
			return errors.New("Bypass prefixes must start with /")
		}
	}

	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("MaxLoginAttempts must be > 0")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("LoginCooldownDuration must be > 0")
		}
	}
	if c.Security.EnableRenewThrottle {
		if c.Security.MaxRenewAttempts <= 0 {
			return errors.New("MaxRenewAttempts must be > 0 when renew throttle is enabled")
		}
		if c.Security.RenewCooldownDuration <= 0 {
			return errors.New("RenewCooldownDuration must be > 0 when renew throttle is enabled")
		}
	}

	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MaxSecretBytes < 10 {
		return errors.New("Password MaxSecretBytes must be >= 10")
	}

	if c.Signup.Enabled && !c.Signup.DefaultRole.Valid() {
		return errors.New("Signup DefaultRole must be USER or ADMIN")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
