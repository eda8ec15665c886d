package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/internal/logging"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TOKENGUARD_"

// Config is the server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  logging.Config `yaml:"logging"`
	JWT      JWTConfig      `yaml:"jwt"`
	Cookie   CookieConfig   `yaml:"cookie"`
	Bypass   BypassConfig   `yaml:"bypass"`
	Security SecurityConfig `yaml:"security"`
	Password PasswordConfig `yaml:"password"`
	Signup   SignupConfig   `yaml:"signup"`
	Audit    AuditConfig    `yaml:"audit"`
	Users    UsersConfig    `yaml:"users"`
}

type ServerConfig struct {
	Listen          string        `yaml:"listen"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	BodyLimit       int64         `yaml:"body_limit"`
	TrustProxy      bool          `yaml:"trust_proxy"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// MetricsConfig controls the separate Prometheus listener. An empty Listen
// keeps metrics in-process only.
type MetricsConfig struct {
	Enabled           bool   `yaml:"enabled"`
	LatencyHistograms bool   `yaml:"latency_histograms"`
	Listen            string `yaml:"listen"`
}

type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"-"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	OpTimeout time.Duration `yaml:"op_timeout"`
}

// JWTConfig mirrors tokenguard.JWTConfig. Secrets only come from the
// environment.
type JWTConfig struct {
	SigningMethod string        `yaml:"signing_method"`
	AccessTTL     time.Duration `yaml:"access_ttl"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl"`
	Issuer        string        `yaml:"issuer"`
	Leeway        time.Duration `yaml:"leeway"`
	AccessSecret  string        `yaml:"-"`
	RefreshSecret string        `yaml:"-"`
}

type CookieConfig struct {
	Name        string `yaml:"name"`
	Path        string `yaml:"path"`
	Domain      string `yaml:"domain"`
	Secure      bool   `yaml:"secure"`
	SameSite    string `yaml:"same_site"`
	AllowBearer bool   `yaml:"allow_bearer"`
}

type BypassConfig struct {
	Prefixes []string `yaml:"prefixes"`
	Exact    []string `yaml:"exact"`
	Suffixes []string `yaml:"suffixes"`
}

type SecurityConfig struct {
	LoginThrottle    bool          `yaml:"login_throttle"`
	MaxLoginAttempts int           `yaml:"max_login_attempts"`
	LoginCooldown    time.Duration `yaml:"login_cooldown"`
	IPThrottle       bool          `yaml:"ip_throttle"`
	RenewThrottle    bool          `yaml:"renew_throttle"`
	MaxRenewAttempts int           `yaml:"max_renew_attempts"`
	RenewCooldown    time.Duration `yaml:"renew_cooldown"`
}

type PasswordConfig struct {
	Memory      uint32 `yaml:"memory_kb"`
	Time        uint32 `yaml:"time"`
	Parallelism uint8  `yaml:"parallelism"`
}

type SignupConfig struct {
	Enabled     bool   `yaml:"enabled"`
	DefaultRole string `yaml:"default_role"`
}

type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// UsersConfig points at the YAML seed file for the in-memory directory.
type UsersConfig struct {
	SeedFile string `yaml:"seed_file"`
}

// Load reads path (skipped when empty), applies environment overrides from
// the process and from .env in the working directory, and validates.
func Load(path string) (*Config, error) {
	return load(path, ".env")
}

func load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	dotenv, err := readDotenv(envFile)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := applyEnvOverrides(cfg, lookup); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func readDotenv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return godotenv.Read(path)
}

// Default returns the server defaults, built on tokenguard.DefaultConfig.
func Default() *Config {
	lib := tokenguard.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Listen:          ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			BodyLimit:       1 << 20,
			CORSOrigins:     []string{"http://localhost:3000"},
		},
		Metrics: MetricsConfig{
			Enabled:           true,
			LatencyHistograms: true,
			Listen:            ":9090",
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: lib.Store.KeyPrefix,
			OpTimeout: lib.Store.OpTimeout,
		},
		Logging: logging.Config{Level: "info", Format: "json", Output: "stdout"},
		JWT: JWTConfig{
			SigningMethod: lib.JWT.SigningMethod,
			AccessTTL:     lib.JWT.AccessTTL,
			RefreshTTL:    lib.JWT.RefreshTTL,
			Issuer:        lib.JWT.Issuer,
		},
		Cookie: CookieConfig{
			Name:     lib.Cookie.Name,
			Path:     lib.Cookie.Path,
			SameSite: "strict",
		},
		Bypass: BypassConfig{
			Prefixes: lib.Bypass.Prefixes,
			Exact:    lib.Bypass.Exact,
			Suffixes: lib.Bypass.Suffixes,
		},
		Security: SecurityConfig{
			LoginThrottle:    lib.Security.EnableLoginThrottle,
			MaxLoginAttempts: lib.Security.MaxLoginAttempts,
			LoginCooldown:    lib.Security.LoginCooldownDuration,
			IPThrottle:       lib.Security.EnableIPThrottle,
			RenewThrottle:    lib.Security.EnableRenewThrottle,
			MaxRenewAttempts: lib.Security.MaxRenewAttempts,
			RenewCooldown:    lib.Security.RenewCooldownDuration,
		},
		Password: PasswordConfig{
			Memory:      lib.Password.Memory,
			Time:        lib.Password.Time,
			Parallelism: lib.Password.Parallelism,
		},
		Signup: SignupConfig{
			Enabled:     lib.Signup.Enabled,
			DefaultRole: string(lib.Signup.DefaultRole),
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: lib.Audit.BufferSize,
			DropIfFull: lib.Audit.DropIfFull,
		},
	}
}

func applyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	var errs []string
	boolean := func(name string, dst *bool) {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, EnvPrefix+name+" must be a boolean")
			return
		}
		*dst = b
	}

	str("LISTEN", &cfg.Server.Listen)
	str("METRICS_LISTEN", &cfg.Metrics.Listen)
	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	str("JWT_ACCESS_SECRET", &cfg.JWT.AccessSecret)
	str("JWT_REFRESH_SECRET", &cfg.JWT.RefreshSecret)
	str("JWT_ISSUER", &cfg.JWT.Issuer)
	str("COOKIE_DOMAIN", &cfg.Cookie.Domain)
	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)
	str("USERS_FILE", &cfg.Users.SeedFile)
	boolean("COOKIE_SECURE", &cfg.Cookie.Secure)
	boolean("TRUST_PROXY", &cfg.Server.TrustProxy)
	boolean("SIGNUP_ENABLED", &cfg.Signup.Enabled)
	boolean("AUDIT_ENABLED", &cfg.Audit.Enabled)

	if v, ok := lookup(EnvPrefix + "CORS_ORIGINS"); ok && v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	if v, ok := lookup(EnvPrefix + "REDIS_DB"); ok && v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, EnvPrefix+"REDIS_DB must be an integer")
		} else {
			cfg.Redis.DB = db
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks server settings and the derived engine configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Listen == "" {
		errs = append(errs, "server.listen is required")
	}
	if c.Server.BodyLimit <= 0 {
		errs = append(errs, "server.body_limit must be > 0")
	}
	if c.Redis.Addr == "" {
		errs = append(errs, "redis.addr is required")
	}
	for _, o := range c.Server.CORSOrigins {
		if o == "*" {
			errs = append(errs, "server.cors_origins cannot contain * when cookies are used")
		}
	}
	if _, err := parseSameSite(c.Cookie.SameSite); err != nil {
		errs = append(errs, err.Error())
	}
	if c.JWT.AccessSecret == "" {
		errs = append(errs, "jwt access secret is required (set "+EnvPrefix+"JWT_ACCESS_SECRET)")
	}
	if c.JWT.RefreshSecret == "" {
		errs = append(errs, "jwt refresh secret is required (set "+EnvPrefix+"JWT_REFRESH_SECRET)")
	}

	if len(errs) == 0 {
		lib, err := c.EngineConfig()
		if err == nil {
			err = lib.Validate()
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// EngineConfig maps the server configuration onto tokenguard.Config.
func (c *Config) EngineConfig() (tokenguard.Config, error) {
	out := tokenguard.DefaultConfig()

	sameSite, err := parseSameSite(c.Cookie.SameSite)
	if err != nil {
		return out, err
	}

	out.JWT.SigningMethod = c.JWT.SigningMethod
	out.JWT.AccessTTL = c.JWT.AccessTTL
	out.JWT.RefreshTTL = c.JWT.RefreshTTL
	out.JWT.Issuer = c.JWT.Issuer
	out.JWT.Leeway = c.JWT.Leeway
	out.JWT.AccessKey = []byte(c.JWT.AccessSecret)
	out.JWT.RefreshKey = []byte(c.JWT.RefreshSecret)

	out.Cookie = tokenguard.CookieConfig{
		Name:        c.Cookie.Name,
		Path:        c.Cookie.Path,
		Domain:      c.Cookie.Domain,
		Secure:      c.Cookie.Secure,
		SameSite:    sameSite,
		AllowBearer: c.Cookie.AllowBearer,
	}
	out.Store = tokenguard.StoreConfig{
		KeyPrefix: c.Redis.KeyPrefix,
		OpTimeout: c.Redis.OpTimeout,
	}
	out.Bypass = tokenguard.BypassConfig{
		Prefixes: c.Bypass.Prefixes,
		Exact:    c.Bypass.Exact,
		Suffixes: c.Bypass.Suffixes,
	}
	out.Security = tokenguard.SecurityConfig{
		EnableLoginThrottle:   c.Security.LoginThrottle,
		MaxLoginAttempts:      c.Security.MaxLoginAttempts,
		LoginCooldownDuration: c.Security.LoginCooldown,
		EnableIPThrottle:      c.Security.IPThrottle,
		EnableRenewThrottle:   c.Security.RenewThrottle,
		MaxRenewAttempts:      c.Security.MaxRenewAttempts,
		RenewCooldownDuration: c.Security.RenewCooldown,
	}
	out.Password.Memory = c.Password.Memory
	out.Password.Time = c.Password.Time
	out.Password.Parallelism = c.Password.Parallelism
	out.Signup = tokenguard.SignupConfig{
		Enabled:     c.Signup.Enabled,
		DefaultRole: tokenguard.Role(strings.ToUpper(c.Signup.DefaultRole)),
	}
	out.Audit = tokenguard.AuditConfig{
		Enabled:    c.Audit.Enabled,
		BufferSize: c.Audit.BufferSize,
		DropIfFull: c.Audit.DropIfFull,
	}
	out.Metrics = tokenguard.MetricsConfig{
		Enabled:                 c.Metrics.Enabled,
		EnableLatencyHistograms: c.Metrics.LatencyHistograms,
	}
	return out, nil
}

func parseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(v) {
	case "", "strict":
		return http.SameSiteStrictMode, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("cookie.same_site %q must be strict, lax or none", v)
	}
}
