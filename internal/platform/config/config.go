// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the status server configuration.
type Config struct {
	HTTPAddr      string        `env:"WORLDSTATUS_HTTP_ADDR" envDefault:":8080"`
	DBPath        string        `env:"WORLDSTATUS_DB_PATH" envDefault:"worldstatus.db"`
	TickPeriod    time.Duration `env:"WORLDSTATUS_TICK_PERIOD" envDefault:"1s"`
	TickWorkers   int           `env:"WORLDSTATUS_TICK_WORKERS" envDefault:"8"`
	AIEndpoint    string        `env:"WORLDSTATUS_AI_ENDPOINT"`
	LogLevel      string        `env:"WORLDSTATUS_LOG_LEVEL" envDefault:"info"`
	LogFormat     string        `env:"WORLDSTATUS_LOG_FORMAT" envDefault:"console"`
	SendBuffer    int           `env:"WORLDSTATUS_SEND_BUFFER" envDefault:"256"`
	SnapshotSize  int           `env:"WORLDSTATUS_SNAPSHOT_CACHE_SIZE" envDefault:"1024"`
	SnapshotTTL   time.Duration `env:"WORLDSTATUS_SNAPSHOT_CACHE_TTL" envDefault:"2s"`
	OTelEndpoint  string        `env:"WORLDSTATUS_OTEL_ENDPOINT"`
	OTelEnabled   bool          `env:"WORLDSTATUS_OTEL_ENABLED" envDefault:"true"`
	ServiceName   string        `env:"WORLDSTATUS_SERVICE_NAME" envDefault:"worldstatus"`
	ShutdownGrace time.Duration `env:"WORLDSTATUS_SHUTDOWN_GRACE" envDefault:"5s"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses Config and checks the values the engine cannot run without.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.TickPeriod <= 0 {
		return Config{}, fmt.Errorf("tick period must be positive, got %s", cfg.TickPeriod)
	}
	if cfg.TickWorkers < 1 {
		cfg.TickWorkers = 1
	}
	return cfg, nil
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
