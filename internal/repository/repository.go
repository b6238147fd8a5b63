// Package repository defines the persistence contract for classes and bookings.
// Implementations live in the postgres (pgx) and sqlite (modernc) subpackages.
package repository

import (
	"context"
	"errors"

	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrClassFull is returned when a class has no remaining capacity.
var ErrClassFull = errors.New("class is fully booked")

// ErrUnderflow is returned when a release would take booked_count below zero.
var ErrUnderflow = errors.New("booked count is already zero")

// ErrDuplicateBooking is returned when the email already holds a confirmed
// booking for the class.
var ErrDuplicateBooking = errors.New("email already has a confirmed booking for this class")

// ClassStore persists class sessions and owns the atomic counter primitives.
type ClassStore interface {
	Create(ctx context.Context, class *model.ClassSession) error
	List(ctx context.Context) ([]model.ClassSession, error)
	GetByID(ctx context.Context, id string) (*model.ClassSession, error)

	// IncrementIfBelowCapacity adds one to booked_count in a single conditional
	// update. It returns ErrClassFull without mutating when the class is full.
	IncrementIfBelowCapacity(ctx context.Context, id string) (*model.ClassSession, error)
	// DecrementIfPositive subtracts one from booked_count in a single conditional
	// update. It returns ErrUnderflow without mutating when the count is zero.
	DecrementIfPositive(ctx context.Context, id string) (*model.ClassSession, error)

	Occupancy(ctx context.Context) ([]model.Occupancy, error)
	// SetBookedCount overwrites booked_count only if the counter version still
	// equals version.
	SetBookedCount(ctx context.Context, id string, version int64, value int) (bool, error)

	// Reset removes every booking and class.
	Reset(ctx context.Context) error
}

// BookingStore persists bookings. Create must enforce one confirmed booking per
// (email, class) at write time and report violations as ErrDuplicateBooking.
type BookingStore interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	FindConfirmed(ctx context.Context, email, classID string) (*model.Booking, error)
	ListConfirmedByEmail(ctx context.Context, email string) ([]model.Booking, error)
	// MarkCancelled flips a confirmed booking to cancelled and reports whether
	// this call performed the flip.
	MarkCancelled(ctx context.Context, id string) (bool, error)
}
