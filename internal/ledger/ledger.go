// Package ledger guards class occupancy: booked_count never exceeds capacity
// and never drops below zero, however many booking and cancellation requests
// race on the same class.
//
// The ledger holds no locks of its own. Every mutation is a single conditional
// update executed by the store, so the guarantee holds across processes that
// share the database.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/model"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/repository"
)

// ErrFull means the class has no free seat. It is an expected outcome.
var ErrFull = errors.New("class is full")

// ErrNotFound means the class id does not exist.
var ErrNotFound = errors.New("class not found")

// ErrUnderflow means a release was attempted on a class with no booked seats,
// which points at a bookkeeping bug upstream.
var ErrUnderflow = errors.New("release would make booked count negative")

// Store is the subset of the class repository the ledger drives.
type Store interface {
	GetByID(ctx context.Context, id string) (*model.ClassSession, error)
	IncrementIfBelowCapacity(ctx context.Context, id string) (*model.ClassSession, error)
	DecrementIfPositive(ctx context.Context, id string) (*model.ClassSession, error)
}

// Reservation is proof that one seat was claimed. Class is the state of the
// class immediately after the claim.
type Reservation struct {
	ClassID string
	Class   model.ClassSession
}

// Ledger is the capacity ledger.
type Ledger struct {
	store  Store
	tracer trace.Tracer
}

// New constructs a Ledger over store.
func New(store Store) *Ledger {
	return &Ledger{
		store:  store,
		tracer: otel.Tracer("github.com/mohammedshaibaaz/pulse-strength-gym/internal/ledger"),
	}
}

// TryReserve claims one seat if the class is below capacity.
func (l *Ledger) TryReserve(ctx context.Context, classID string) (Reservation, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.TryReserve", trace.WithAttributes(attribute.String("class.id", classID)))
	defer span.End()

	class, err := l.store.IncrementIfBelowCapacity(ctx, classID)
	switch {
	case err == nil:
		span.SetAttributes(attribute.Int("class.booked_count", class.BookedCount))
		return Reservation{ClassID: classID, Class: *class}, nil
	case errors.Is(err, repository.ErrClassFull):
		span.SetAttributes(attribute.Bool("class.full", true))
		return Reservation{}, ErrFull
	case errors.Is(err, repository.ErrNotFound):
		return Reservation{}, ErrNotFound
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "reserve failed")
		return Reservation{}, fmt.Errorf("reserve seat in class %s: %w", classID, err)
	}
}

// Release returns one seat to the class.
func (l *Ledger) Release(ctx context.Context, classID string) error {
	ctx, span := l.tracer.Start(ctx, "ledger.Release", trace.WithAttributes(attribute.String("class.id", classID)))
	defer span.End()

	class, err := l.store.DecrementIfPositive(ctx, classID)
	switch {
	case err == nil:
		span.SetAttributes(attribute.Int("class.booked_count", class.BookedCount))
		return nil
	case errors.Is(err, repository.ErrUnderflow):
		span.SetStatus(codes.Error, "underflow")
		return ErrUnderflow
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "release failed")
		return fmt.Errorf("release seat in class %s: %w", classID, err)
	}
}

// Full reports whether the class is currently full. The answer may be stale by
// the time the caller acts on it, so it is for display only and must never gate
// a reservation.
func (l *Ledger) Full(ctx context.Context, classID string) (bool, error) {
	class, err := l.store.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("load class %s: %w", classID, err)
	}
	return class.IsFull(), nil
}
