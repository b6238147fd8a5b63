// Package storage opens the configured store and hands back its repositories.
package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/config"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/database"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/repository"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/repository/postgres"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/repository/sqlite"
)

// Stores holds the repositories of one open database.
type Stores struct {
	Classes  repository.ClassStore
	Bookings repository.BookingStore
	close    func() error
}

// Close releases the underlying connections.
func (s Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open connects to the store selected by cfg.StoreDriver and applies
// migrations.
func Open(ctx context.Context, cfg config.Config) (Stores, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := database.NewPool(ctx, cfg.Database)
		if err != nil {
			return Stores{}, err
		}
		if err := database.MigratePostgres(cfg.Database); err != nil {
			pool.Close()
			return Stores{}, err
		}
		log.Printf("connected to postgres host=%s db=%s", cfg.Database.Host, cfg.Database.DBName)
		return Stores{
			Classes:  postgres.NewClassRepository(pool),
			Bookings: postgres.NewBookingRepository(pool),
			close: func() error {
				pool.Close()
				return nil
			},
		}, nil

	case config.DriverSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return Stores{}, err
		}
		log.Printf("opened sqlite store path=%s", cfg.SQLitePath)
		return Stores{
			Classes:  sqlite.NewClassRepository(db),
			Bookings: sqlite.NewBookingRepository(db),
			close:    db.Close,
		}, nil

	default:
		return Stores{}, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
