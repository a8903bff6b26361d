// fbp - front-panel controller
//
// This is the main entry point for the fbp controller. It reads the panel
// buttons and the hall sensor, drives the display, stores events in SQLite
// and optionally publishes telemetry over MQTT and InfluxDB.
//
// Startup and shutdown are owned by internal/system.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata" // the device image ships without a zoneinfo database

	_ "github.com/nerrad567/fbp-core/migrations"

	"github.com/nerrad567/fbp-core/internal/infrastructure/logging"
	"github.com/nerrad567/fbp-core/internal/system"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on Ctrl+C and SIGTERM so the coordinator runs its teardown.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Exit)
	cancel()
	os.Exit(code)
}

// run builds the coordinator and blocks until shutdown, separated from main
// for testability.
//
// Parameters:
//   - ctx: Cancelled on a shutdown signal
//   - exit: Called by the coordinator when a shutdown completes
//
// Returns:
//   - int: Process exit code
func run(ctx context.Context, exit func(int)) int {
	// Buffered until the configured output exists.
	log := logging.Bootstrap()
	log.Info("fbp build",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	coordinator := system.New(system.Options{
		ConfigPath: getConfigPath(),
		Version:    version,
		Logger:     log,
		Exit:       exit,
	})
	return coordinator.Run(ctx)
}

// getConfigPath returns the configuration file path.
// Uses FBP_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("FBP_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
