package tokenguard

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/tokenguard/internal/audit"
	"github.com/MrEthical07/tokenguard/internal/rate"
	"github.com/MrEthical07/tokenguard/jwt"
	"github.com/MrEthical07/tokenguard/password"
	"github.com/MrEthical07/tokenguard/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. It is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users     UserLookup
	verifier  PasswordVerifier
	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the refresh store and the throttles.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserLookup sets the user directory. If it also implements
// [UserRegistrar], Signup is available.
func (b *Builder) WithUserLookup(users UserLookup) *Builder {
	b.users = users
	return b
}

// WithPasswordVerifier replaces the argon2id verifier built from
// Config.Password.
func (b *Builder) WithPasswordVerifier(v PasswordVerifier) *Builder {
	b.verifier = v
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for token minting and expiry checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component. Keys are
// parsed here, once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.users == nil {
		return nil, errors.New("user lookup required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	// -------- TOKEN CODEC --------
	method := jwt.SigningMethod(cfg.JWT.SigningMethod)
	codec, err := jwt.NewCodec(
		jwt.Config{
			TTL:           cfg.JWT.AccessTTL,
			SigningMethod: method,
			PrivateKey:    cloneBytes(cfg.JWT.AccessKey),
			PublicKey:     cloneBytes(cfg.JWT.AccessPublicKey),
			Issuer:        cfg.JWT.Issuer,
			Leeway:        cfg.JWT.Leeway,
			Now:           now,
		},
		jwt.Config{
			TTL:           cfg.JWT.RefreshTTL,
			SigningMethod: method,
			PrivateKey:    cloneBytes(cfg.JWT.RefreshKey),
			PublicKey:     cloneBytes(cfg.JWT.RefreshPublicKey),
			Issuer:        cfg.JWT.Issuer,
			Leeway:        cfg.JWT.Leeway,
			Now:           now,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}

	// -------- PASSWORD --------
	argon, err := password.NewArgon2(password.Config{
		Memory:         cfg.Password.Memory,
		Time:           cfg.Password.Time,
		Parallelism:    cfg.Password.Parallelism,
		SaltLength:     cfg.Password.SaltLength,
		KeyLength:      cfg.Password.KeyLength,
		MaxSecretBytes: cfg.Password.MaxSecretBytes,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:  cfg,
		codec:   codec,
		store:   session.NewStore(b.redis, cfg.Store.KeyPrefix, cfg.Store.OpTimeout),
		users:   b.users,
		hasher:  argon,
		logger:  logger,
		now:     now,
		metrics: NewMetrics(cfg.Metrics),
	}

	engine.verifier = argon
	if b.verifier != nil {
		engine.verifier = b.verifier
	}
	if r, ok := b.users.(UserRegistrar); ok && cfg.Signup.Enabled {
		engine.registrar = r
	}

	// -------- THROTTLES --------
	if cfg.Security.EnableLoginThrottle || cfg.Security.EnableRenewThrottle {
		engine.limiter = rate.New(b.redis, rate.Config{
			MaxLoginAttempts:    cfg.Security.MaxLoginAttempts,
			LoginWindow:         cfg.Security.LoginCooldownDuration,
			EnableIPThrottle:    cfg.Security.EnableIPThrottle,
			EnableRenewThrottle: cfg.Security.EnableRenewThrottle,
			MaxRenewAttempts:    cfg.Security.MaxRenewAttempts,
			RenewWindow:         cfg.Security.RenewCooldownDuration,
			OpTimeout:           cfg.Store.OpTimeout,
		})
	}

	// -------- AUDIT --------
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true

	return engine, nil
}
