package config

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/tokenguard"
)

const (
	accessSecret  = "access-secret-access-secret-access-01"
	refreshSecret = "refresh-secret-refresh-secret-refresh"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func setSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("TOKENGUARD_JWT_ACCESS_SECRET", accessSecret)
	t.Setenv("TOKENGUARD_JWT_REFRESH_SECRET", refreshSecret)
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	path := writeFile(t, "tokenguard.yaml", `
server:
  listen: ":9000"
  cors_origins: ["https://app.example"]
jwt:
  access_ttl: 10m
  refresh_ttl: 48h
  access_secret: "from-file-must-be-ignored-000000000000"
cookie:
  same_site: lax
  secure: true
signup:
  default_role: admin
`)
	setSecrets(t)
	t.Setenv("TOKENGUARD_LISTEN", ":7000")
	t.Setenv("TOKENGUARD_REDIS_PASSWORD", "hunter2")

	cfg, err := load(path, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Listen != ":7000" {
		t.Fatalf("expected env listen to win, got %q", cfg.Server.Listen)
	}
	if cfg.JWT.AccessTTL != 10*time.Minute || cfg.JWT.RefreshTTL != 48*time.Hour {
		t.Fatalf("unexpected TTLs %v / %v", cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	}
	if cfg.JWT.AccessSecret != accessSecret {
		t.Fatal("secret must come from the environment, not the file")
	}
	if cfg.Redis.Password != "hunter2" {
		t.Fatalf("expected redis password from env, got %q", cfg.Redis.Password)
	}
	if cfg.Metrics.Listen != ":9090" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatal("unset keys must keep defaults")
	}

	lib, err := cfg.EngineConfig()
	if err != nil {
		t.Fatalf("EngineConfig: %v", err)
	}
	if lib.Cookie.SameSite != http.SameSiteLaxMode || !lib.Cookie.Secure {
		t.Fatalf("unexpected cookie config %+v", lib.Cookie)
	}
	if lib.Signup.DefaultRole != tokenguard.RoleAdmin {
		t.Fatalf("expected ADMIN default role, got %q", lib.Signup.DefaultRole)
	}
	if string(lib.JWT.RefreshKey) != refreshSecret {
		t.Fatal("refresh key not mapped")
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	setSecrets(t)

	cfg, err := load("", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Listen != ":8080" || cfg.Server.BodyLimit != 1<<20 {
		t.Fatalf("unexpected server defaults %+v", cfg.Server)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected CORS defaults %v", cfg.Server.CORSOrigins)
	}
}

func TestDotenvFillsButProcessEnvWins(t *testing.T) {
	envFile := writeFile(t, ".env", strings.Join([]string{
		"TOKENGUARD_JWT_ACCESS_SECRET=" + accessSecret,
		"TOKENGUARD_JWT_REFRESH_SECRET=" + refreshSecret,
		"TOKENGUARD_REDIS_ADDR=redis-from-dotenv:6379",
		"TOKENGUARD_CORS_ORIGINS=https://a.example, https://b.example",
	}, "\n"))
	t.Setenv("TOKENGUARD_REDIS_ADDR", "redis-from-env:6379")

	cfg, err := load("", envFile)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWT.AccessSecret != accessSecret {
		t.Fatal("expected secret from .env")
	}
	if cfg.Redis.Addr != "redis-from-env:6379" {
		t.Fatalf("expected process env to win, got %q", cfg.Redis.Addr)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.Server.CORSOrigins)
	}
}

func TestMissingDotenvIsIgnored(t *testing.T) {
	setSecrets(t)
	if _, err := load("", filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("missing .env must be ignored: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		setSecrets(t)
		_, err := load(filepath.Join(t.TempDir(), "nope.yaml"), "")
		if err == nil || !strings.Contains(err.Error(), "reading config file") {
			t.Fatalf("unexpected error %v", err)
		}
	})

	t.Run("bad yaml", func(t *testing.T) {
		setSecrets(t)
		_, err := load(writeFile(t, "bad.yaml", "server: [unclosed"), "")
		if err == nil || !strings.Contains(err.Error(), "parsing config file") {
			t.Fatalf("unexpected error %v", err)
		}
	})

	t.Run("missing secrets", func(t *testing.T) {
		_, err := load("", "")
		if err == nil || !strings.Contains(err.Error(), "TOKENGUARD_JWT_ACCESS_SECRET") {
			t.Fatalf("unexpected error %v", err)
		}
	})

	t.Run("short secret", func(t *testing.T) {
		t.Setenv("TOKENGUARD_JWT_ACCESS_SECRET", "short")
		t.Setenv("TOKENGUARD_JWT_REFRESH_SECRET", refreshSecret)
		_, err := load("", "")
		if err == nil || !strings.Contains(err.Error(), "at least 32 bytes") {
			t.Fatalf("unexpected error %v", err)
		}
	})

	t.Run("bad boolean", func(t *testing.T) {
		setSecrets(t)
		t.Setenv("TOKENGUARD_COOKIE_SECURE", "maybe")
		_, err := load("", "")
		if err == nil || !strings.Contains(err.Error(), "TOKENGUARD_COOKIE_SECURE must be a boolean") {
			t.Fatalf("unexpected error %v", err)
		}
	})

	t.Run("wildcard origin", func(t *testing.T) {
		setSecrets(t)
		t.Setenv("TOKENGUARD_CORS_ORIGINS", "*")
		_, err := load("", "")
		if err == nil || !strings.Contains(err.Error(), "cannot contain *") {
			t.Fatalf("unexpected error %v", err)
		}
	})

	t.Run("bad same site", func(t *testing.T) {
		setSecrets(t)
		_, err := load(writeFile(t, "c.yaml", "cookie:\n  same_site: sideways\n"), "")
		if err == nil || !strings.Contains(err.Error(), "same_site") {
			t.Fatalf("unexpected error %v", err)
		}
	})
}
