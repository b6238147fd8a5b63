// Package config loads process configuration from the environment, optionally
// seeded from .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/database"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/notify"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/telemetry"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the full server configuration.
type Config struct {
	Port              string        `env:"PORT" envDefault:"8080"`
	SiteDir           string        `env:"SITE_DIR" envDefault:"./web"`
	CORSOrigin        string        `env:"CORS_ORIGIN" envDefault:"*"`
	StoreDriver       string        `env:"STORE_DRIVER" envDefault:"postgres"`
	SQLitePath        string        `env:"SQLITE_PATH" envDefault:"data/studio.db"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"1m"`

	Database  database.Config
	Mail      notify.MailerConfig
	Dispatch  notify.DispatcherConfig
	Telemetry telemetry.Config
}

// Load reads files into the environment (missing files are skipped, set
// variables win) and parses the result.
func Load(files ...string) (Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want %s or %s)", c.StoreDriver, DriverPostgres, DriverSQLite)
	}
	if c.StoreDriver == DriverSQLite && c.SQLitePath == "" {
		return errors.New("SQLITE_PATH is required for the sqlite driver")
	}
	if c.ReconcileInterval < 0 {
		return errors.New("RECONCILE_INTERVAL must not be negative")
	}
	return c.Telemetry.Validate()
}
