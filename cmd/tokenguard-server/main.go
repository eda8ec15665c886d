// Command tokenguard-server serves the cookie-based login, refresh, logout
// and signup endpoints in front of Redis.
//
// Configuration comes from a YAML file (-config or TOKENGUARD_CONFIG) plus
// TOKENGUARD_* environment overrides; see internal/config.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/tokenguard/internal/config"
	"github.com/MrEthical07/tokenguard/internal/logging"
)

var (
	version = "dev"
	commit  = "unknown"
)

const defaultConfigPath = "configs/tokenguard.yaml"

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, resolveConfigPath(*configPath)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run loads configuration, serves until ctx is cancelled, then drains.
func run(ctx context.Context, configPath string) error {
	log := logging.Default()
	log.Info("starting tokenguard", "version", version, "commit", commit)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	return a.serve(ctx)
}

// resolveConfigPath prefers the flag, then TOKENGUARD_CONFIG, then the
// default path if it exists. An empty result runs on defaults and env.
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv("TOKENGUARD_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}
