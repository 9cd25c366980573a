// Package config loads client settings from the environment, with an
// optional .env file overlay for local development.
package config

import (
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// ServerURL is the base URL of the conversion service REST API.
	ServerURL string
	// PushURL is the websocket endpoint of the push-notification channel.
	PushURL string
	// OutputDir receives downloaded artifacts.
	OutputDir string
	// MetricsPort exposes /metrics when non-empty.
	MetricsPort string
	// Dev switches the logger to the development configuration.
	Dev bool

	MaxConcurrentUploads int64
	SettleDelay          time.Duration
	PendingTimeout       time.Duration
	PendingPollInterval  time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load() // missing .env is fine

	var ge getenv
	cfg := Config{
		ServerURL:            ge.String("CONVERT_SERVER_URL", "http://localhost:8080"),
		PushURL:              ge.String("CONVERT_PUSH_URL", "ws://localhost:8080/ws"),
		OutputDir:            ge.String("CONVERT_OUTPUT_DIR", "./converted"),
		MetricsPort:          ge.String("CONVERT_METRICS_PORT", ""),
		Dev:                  ge.Bool("CONVERT_DEV", false),
		MaxConcurrentUploads: ge.Int64("CONVERT_MAX_UPLOADS", 4),
		SettleDelay:          ge.Duration("CONVERT_SETTLE_DELAY", time.Second),
		PendingTimeout:       ge.Duration("CONVERT_PENDING_TIMEOUT", 60*time.Second),
		PendingPollInterval:  ge.Duration("CONVERT_PENDING_POLL", 2*time.Second),
	}
	return cfg, ge.Err()
}
