package tokenguard

import (
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigNeedsKeys(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("default config without keys must not validate")
	}

	cfg = testConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config should validate: %v", err)
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.JWT.AccessTTL != 5*time.Minute || cfg.JWT.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("unexpected token windows %v / %v", cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	}
	if cfg.Cookie.Name != "accessToken" || cfg.Cookie.Path != "/" || cfg.Cookie.SameSite != http.SameSiteStrictMode || cfg.Cookie.Secure {
		t.Fatalf("unexpected cookie defaults %+v", cfg.Cookie)
	}
	if cfg.Store.KeyPrefix != "RT:" {
		t.Fatalf("unexpected key prefix %q", cfg.Store.KeyPrefix)
	}
}

func TestConfigValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"refresh not longer", func(c *Config) { c.JWT.RefreshTTL = c.JWT.AccessTTL }, "RefreshTTL"},
		{"short key", func(c *Config) { c.JWT.AccessKey = []byte("short") }, "32 bytes"},
		{"leeway", func(c *Config) { c.JWT.Leeway = time.Hour }, "Leeway"},
		{"method", func(c *Config) { c.JWT.SigningMethod = "rs256" }, "signing method"},
		{"ed25519 without public", func(c *Config) { c.JWT.SigningMethod = "ed25519" }, "PublicKey"},
		{"cookie name", func(c *Config) { c.Cookie.Name = "bad name" }, "Cookie Name"},
		{"cookie path", func(c *Config) { c.Cookie.Path = "api" }, "Cookie Path"},
		{"samesite none", func(c *Config) { c.Cookie.SameSite = http.SameSiteNoneMode }, "Secure"},
		{"prefix", func(c *Config) { c.Store.KeyPrefix = "" }, "KeyPrefix"},
		{"bypass", func(c *Config) { c.Bypass.Prefixes = []string{"api/"} }, "Bypass"},
		{"login attempts", func(c *Config) { c.Security.MaxLoginAttempts = 0 }, "MaxLoginAttempts"},
		{"renew attempts", func(c *Config) {
			c.Security.EnableRenewThrottle = true
			c.Security.MaxRenewAttempts = 0
		}, "MaxRenewAttempts"},
		{"argon memory", func(c *Config) { c.Password.Memory = 1024 }, "Memory"},
		{"signup role", func(c *Config) { c.Signup.DefaultRole = "ROOT" }, "DefaultRole"},
		{"audit buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}, "BufferSize"},
	}

	for _, tc := range cases {
		cfg := testConfig()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestBuilderRequiresCollaborators(t *testing.T) {
	_, rdb := newTestRedis(t)

	if _, err := New().WithConfig(testConfig()).WithUserLookup(newMockUsers()).Build(); err == nil {
		t.Fatal("expected error without redis")
	}
	if _, err := New().WithConfig(testConfig()).WithRedis(rdb).Build(); err == nil {
		t.Fatal("expected error without user lookup")
	}

	cfg := testConfig()
	cfg.JWT.RefreshKey = cfg.JWT.AccessKey
	if _, err := New().WithConfig(cfg).WithRedis(rdb).WithUserLookup(newMockUsers()).Build(); err == nil {
		t.Fatal("expected identical access and refresh keys to be rejected")
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	_, rdb := newTestRedis(t)
	b := New().WithConfig(testConfig()).WithRedis(rdb).WithUserLookup(newMockUsers())

	e, err := b.Build()
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	defer e.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("second build must fail")
	}
}

func TestConfigCopiesAreIsolated(t *testing.T) {
	cfg := testConfig()
	_, rdb := newTestRedis(t)

	e, err := New().WithConfig(cfg).WithRedis(rdb).WithUserLookup(newMockUsers()).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer e.Close()

	cfg.JWT.AccessKey[0] = 'X'
	cfg.Bypass.Prefixes[0] = "/mutated/"

	got := e.Config()
	if got.JWT.AccessKey[0] == 'X' || got.Bypass.Prefixes[0] == "/mutated/" {
		t.Fatal("engine config must not alias caller slices")
	}
}

func TestSecurityReport(t *testing.T) {
	te := newTestEngine(t, testConfig(), withSignup)
	r := te.SecurityReport()

	if r.SigningAlgorithm != "hs256" || r.CookieSameSite != "Strict" || !r.LoginThrottleActive || !r.SignupActive {
		t.Fatalf("unexpected report %+v", r)
	}
	if r.RenewThrottleActive || r.AuditActive || r.MetricsActive {
		t.Fatalf("unexpected optional features active %+v", r)
	}
}
