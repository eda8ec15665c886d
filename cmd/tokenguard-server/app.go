package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/handler"
	"github.com/MrEthical07/tokenguard/internal/config"
	"github.com/MrEthical07/tokenguard/internal/userdir"
	promexport "github.com/MrEthical07/tokenguard/metrics/export/prometheus"
	"github.com/MrEthical07/tokenguard/middleware"
)

type app struct {
	cfg     *config.Config
	log     *slog.Logger
	redis   redis.UniversalClient
	engine  *tokenguard.Engine
	api     http.Handler
	metrics http.Handler
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.Redis.Addr},
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, cfg.Redis.OpTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		// Requests fail with STORE_UNAVAILABLE until Redis comes back.
		log.Warn("redis not reachable at startup", "addr", cfg.Redis.Addr, "error", err)
	}

	users := userdir.New()
	if cfg.Users.SeedFile != "" {
		n, err := users.LoadFile(cfg.Users.SeedFile)
		if err != nil {
			_ = rdb.Close()
			return nil, err
		}
		log.Info("seeded user directory", "users", n, "file", cfg.Users.SeedFile)
	}

	b := tokenguard.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithUserLookup(users).
		WithLogger(log)
	if engineCfg.Audit.Enabled {
		b = b.WithAuditSink(tokenguard.NewSlogSink(log.With("component", "audit")))
	}
	engine, err := b.Build()
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("building engine: %w", err)
	}

	report := engine.SecurityReport()
	log.Info("engine ready",
		"signing_algorithm", report.SigningAlgorithm,
		"access_ttl", report.AccessTTL,
		"refresh_ttl", report.RefreshTTL,
		"cookie_secure", report.CookieSecure,
		"cookie_same_site", report.CookieSameSite,
		"login_throttle", report.LoginThrottleActive,
		"signup", report.SignupActive,
		"audit", report.AuditActive,
		"metrics", report.MetricsActive,
	)
	if !report.CookieSecure {
		log.Warn("access cookie is not marked Secure; enable cookie.secure behind TLS")
	}

	h := handler.New(engine, log)
	a := &app{
		cfg:    cfg,
		log:    log,
		redis:  rdb,
		engine: engine,
		api: h.Router(middleware.GuardEngine(engine),
			middleware.Recover(log),
			middleware.RequestID,
			middleware.AccessLog(log),
			middleware.CORS(cfg.Server.CORSOrigins),
			middleware.BodyLimit(cfg.Server.BodyLimit),
			middleware.ClientIP(cfg.Server.TrustProxy),
		),
	}
	if cfg.Metrics.Enabled {
		a.metrics = promexport.NewPrometheusExporter(engine).Handler()
	}
	return a, nil
}

func (a *app) close() {
	a.engine.Close()
	if err := a.redis.Close(); err != nil {
		a.log.Warn("closing redis", "error", err)
	}
}

// serve runs the API listener and, when configured, the metrics listener
// until ctx is done or a listener fails.
func (a *app) serve(ctx context.Context) error {
	servers := []*http.Server{{
		Addr:         a.cfg.Server.Listen,
		Handler:      a.api,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}}
	if a.metrics != nil && a.cfg.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", a.metrics)
		servers = append(servers, &http.Server{
			Addr:              a.cfg.Metrics.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			a.log.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("listener %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received, draining")
	case serveErr = <-errCh:
		a.log.Error("listener failed, shutting down", "error", serveErr)
	}

	drain := a.cfg.Server.ShutdownTimeout
	if drain <= 0 {
		drain = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Warn("shutdown", "addr", srv.Addr, "error", err)
		}
	}

	a.log.Info("tokenguard stopped")
	return serveErr
}
