// Package testutil provides shared helpers for store-backed tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/database"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/model"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/repository/sqlite"
)

// Stores bundles the SQLite repositories for one test database.
type Stores struct {
	Classes  *sqlite.ClassRepository
	Bookings *sqlite.BookingRepository
}

// OpenStores creates a migrated SQLite database in a temp dir.
func OpenStores(t *testing.T) Stores {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "studio.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	return Stores{
		Classes:  sqlite.NewClassRepository(db),
		Bookings: sqlite.NewBookingRepository(db),
	}
}

// PersonalTraining returns the one-seat Tuesday evening class used across tests.
func PersonalTraining() model.ClassSession {
	return model.ClassSession{
		Name:        "Personal Training",
		Description: "1-on-1 session tailored to your specific goals and needs.",
		Trainer:     "Mohammed Altaf",
		Day:         model.Tuesday,
		Time:        "07:00 PM",
		Duration:    60,
		Capacity:    1,
		Difficulty:  model.Beginner,
		Category:    model.PersonalTraining,
	}
}

// CreateClass stores a class with the given capacity and returns it.
func CreateClass(t *testing.T, classes *sqlite.ClassRepository, capacity int) model.ClassSession {
	t.Helper()
	class := PersonalTraining()
	class.Capacity = capacity
	if err := classes.Create(context.Background(), &class); err != nil {
		t.Fatalf("create class: %v", err)
	}
	return class
}

// BookedCount reloads a class and returns its counter.
func BookedCount(t *testing.T, classes *sqlite.ClassRepository, id string) int {
	t.Helper()
	class, err := classes.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get class: %v", err)
	}
	return class.BookedCount
}
