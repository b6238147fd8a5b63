// Package database provides connection management for the PostgreSQL (pgx) and
// embedded SQLite stores, and applies the embedded schema migrations.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"

	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/database/migrations"
)

// Config holds PostgreSQL connection settings read from environment variables.
type Config struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName   string `env:"DB_NAME" envDefault:"studio"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConns int32  `env:"DB_MAX_CONNS" envDefault:"20"`
}

// DSN builds a libpq-compatible connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// MigrationURL builds the pgx5:// URL the migration runner dials.
func (c Config) MigrationURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}

// NewPool creates and validates a pgxpool connection pool.
// It retries up to 5 times to accommodate containers starting up.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	if poolCfg.MaxConns <= 0 {
		poolCfg.MaxConns = 20
	}
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	const attempts = 5
	for attempt := 1; attempt <= attempts; attempt++ {
		var pool *pgxpool.Pool
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		log.Printf("db connect attempt %d/%d failed: %v", attempt, attempts, err)
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
	}
	return nil, fmt.Errorf("connect to postgres: %w", err)
}

// MigratePostgres applies the embedded PostgreSQL migrations.
func MigratePostgres(cfg Config) error {
	return MigratePostgresURL(cfg.MigrationURL())
}

// MigratePostgresURL applies the embedded PostgreSQL migrations to the
// database at rawURL. postgres:// and postgresql:// URLs are accepted.
func MigratePostgresURL(rawURL string) error {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(rawURL, scheme) {
			rawURL = "pgx5://" + strings.TrimPrefix(rawURL, scheme)
			break
		}
	}

	src, err := iofs.New(migrations.FS, "postgres")
	if err != nil {
		return fmt.Errorf("open postgres migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, rawURL)
	if err != nil {
		return fmt.Errorf("init postgres migrations: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Printf("close migrator: source=%v database=%v", srcErr, dbErr)
		}
	}()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply postgres migrations: %w", err)
	}
	return nil
}

// OpenSQLite opens (creating if needed) the SQLite database at path and
// applies the embedded migrations. The pool is limited to one connection so
// writers queue in-process instead of failing with SQLITE_BUSY.
func OpenSQLite(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	dsn := "file::memory:"
	if path != ":memory:" {
		cleanPath := filepath.Clean(path)
		if dir := filepath.Dir(cleanPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		dsn = "file:" + cleanPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}
	dsn += pragmaSeparator(dsn) + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := ensureForeignKeysEnabled(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrateSQLite(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func pragmaSeparator(dsn string) string {
	if strings.Contains(dsn, "?") {
		return "&"
	}
	return "?"
}

func ensureForeignKeysEnabled(db *sql.DB) error {
	var enabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return fmt.Errorf("check sqlite foreign key pragma: %w", err)
	}
	if enabled != 1 {
		return fmt.Errorf("sqlite foreign keys are disabled")
	}
	return nil
}

// migrateSQLite applies the embedded SQLite migrations. The migrator is not
// closed because its driver would close the shared *sql.DB.
func migrateSQLite(db *sql.DB) error {
	src, err := iofs.New(migrations.FS, "sqlite")
	if err != nil {
		return fmt.Errorf("open sqlite migrations: %w", err)
	}
	defer src.Close()

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("init sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("init sqlite migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply sqlite migrations: %w", err)
	}
	return nil
}
