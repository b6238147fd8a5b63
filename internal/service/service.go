// Package service implements the booking lifecycle: validation, orchestration
// between the capacity ledger and the booking store, and compensation when a
// claimed seat cannot be turned into a booking.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/ledger"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/model"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/repository"
)

// ErrClassNotFound is returned when a class id does not exist.
var ErrClassNotFound = errors.New("class not found")

// ErrBookingNotFound is returned when a booking id does not exist.
var ErrBookingNotFound = errors.New("booking not found")

// ErrClassFull is returned when every seat is taken.
var ErrClassFull = errors.New("class is full")

// ErrAlreadyBooked is returned when the email already holds a confirmed
// booking for the class.
var ErrAlreadyBooked = errors.New("already booked")

// compensationTimeout bounds the seat release that undoes a failed booking.
const compensationTimeout = 5 * time.Second

// IsUserError reports whether err is an expected, caller-correctable outcome
// rather than a server fault.
func IsUserError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr) ||
		errors.Is(err, ErrClassNotFound) ||
		errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrClassFull) ||
		errors.Is(err, ErrAlreadyBooked)
}

// ClassStore reads class sessions.
type ClassStore interface {
	List(ctx context.Context) ([]model.ClassSession, error)
	GetByID(ctx context.Context, id string) (*model.ClassSession, error)
}

// BookingStore persists bookings.
type BookingStore interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	FindConfirmed(ctx context.Context, email, classID string) (*model.Booking, error)
	ListConfirmedByEmail(ctx context.Context, email string) ([]model.Booking, error)
	MarkCancelled(ctx context.Context, id string) (bool, error)
}

// Notifier sends the booking confirmation. Implementations must return
// promptly and must not report delivery failures to the caller.
type Notifier interface {
	Notify(ctx context.Context, email, name string, class model.ClassSession)
}

// BookingService orchestrates class listing, booking and cancellation.
type BookingService struct {
	classes  ClassStore
	bookings BookingStore
	ledger   *ledger.Ledger
	notifier Notifier
	tracer   trace.Tracer
}

// NewBookingService constructs a BookingService with its dependencies.
func NewBookingService(
	classes ClassStore,
	bookings BookingStore,
	seats *ledger.Ledger,
	notifier Notifier,
) *BookingService {
	return &BookingService{
		classes:  classes,
		bookings: bookings,
		ledger:   seats,
		notifier: notifier,
		tracer:   otel.Tracer("github.com/mohammedshaibaaz/pulse-strength-gym/internal/service"),
	}
}

// ListClasses returns the weekly schedule.
func (s *BookingService) ListClasses(ctx context.Context) ([]model.ClassSession, error) {
	classes, err := s.classes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// GetClass returns a single class by id.
func (s *BookingService) GetClass(ctx context.Context, id string) (*model.ClassSession, error) {
	class, err := s.classes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, fmt.Errorf("get class %s: %w", id, err)
	}
	return class, nil
}

// ListBookings returns the confirmed bookings for email, newest first.
func (s *BookingService) ListBookings(ctx context.Context, email string) ([]model.Booking, error) {
	req := model.BookRequest{Email: email}
	req.Normalize()
	bookings, err := s.bookings.ListConfirmedByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("list bookings for %s: %w", req.Email, err)
	}
	return bookings, nil
}

// Book runs one reservation: validate, reject duplicates, claim a seat, then
// record the booking. A claimed seat is always released again if the booking
// record does not land.
func (s *BookingService) Book(ctx context.Context, req model.BookRequest) (*model.Booking, error) {
	req.Normalize()
	ctx, span := s.tracer.Start(ctx, "service.Book", trace.WithAttributes(attribute.String("class.id", req.ClassID)))
	defer span.End()

	if err := validateBookRequest(req); err != nil {
		return nil, err
	}

	class, err := s.classes.GetByID(ctx, req.ClassID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, s.fault(span, fmt.Errorf("book class %s for %s: load class: %w", req.ClassID, req.Email, err))
	}

	// Fast path only. The unique index checked by Create is the real guard.
	_, err = s.bookings.FindConfirmed(ctx, req.Email, class.ID)
	switch {
	case err == nil:
		return nil, ErrAlreadyBooked
	case !errors.Is(err, repository.ErrNotFound):
		return nil, s.fault(span, fmt.Errorf("book class %s for %s: duplicate check: %w", class.ID, req.Email, err))
	}

	reservation, err := s.ledger.TryReserve(ctx, class.ID)
	switch {
	case errors.Is(err, ledger.ErrFull):
		return nil, ErrClassFull
	case errors.Is(err, ledger.ErrNotFound):
		return nil, ErrClassNotFound
	case err != nil:
		return nil, s.fault(span, fmt.Errorf("book class %s for %s: %w", class.ID, req.Email, err))
	}

	booking := &model.Booking{
		UserName:         req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		EmergencyContact: req.EmergencyContact,
		ClassID:          class.ID,
		Status:           model.StatusConfirmed,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		s.compensate(ctx, reservation, req.Email, err)
		switch {
		case errors.Is(err, repository.ErrDuplicateBooking):
			return nil, ErrAlreadyBooked
		case errors.Is(err, repository.ErrNotFound):
			// The class was removed between the seat claim and the insert.
			return nil, ErrClassNotFound
		}
		return nil, s.fault(span, fmt.Errorf("book class %s for %s: create booking: %w", class.ID, req.Email, err))
	}

	booked := reservation.Class
	booking.Class = &booked
	span.SetAttributes(attribute.String("booking.id", booking.ID))

	s.notifier.Notify(ctx, booking.Email, booking.UserName, booked)
	return booking, nil
}

// compensate releases a seat whose booking was never recorded. The release
// runs on a context detached from the request so a disconnecting client
// cannot leak the seat.
func (s *BookingService) compensate(ctx context.Context, reservation ledger.Reservation, email string, cause error) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	err := s.ledger.Release(releaseCtx, reservation.ClassID)
	if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		log.Printf("compensation failed reconcile_required=true op=book class_id=%s email=%s cause=%q: %v",
			reservation.ClassID, email, cause.Error(), err)
	}
}

// Cancel cancels a booking and returns its seat. Cancelling an already
// cancelled booking succeeds without releasing a second seat.
func (s *BookingService) Cancel(ctx context.Context, bookingID string) error {
	ctx, span := s.tracer.Start(ctx, "service.Cancel", trace.WithAttributes(attribute.String("booking.id", bookingID)))
	defer span.End()

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrBookingNotFound
		}
		return s.fault(span, fmt.Errorf("cancel booking %s: load booking: %w", bookingID, err))
	}
	if booking.Status == model.StatusCancelled {
		return nil
	}

	flipped, err := s.bookings.MarkCancelled(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrBookingNotFound
		}
		return s.fault(span, fmt.Errorf("cancel booking %s: mark cancelled: %w", bookingID, err))
	}
	if !flipped {
		// A concurrent cancel won the flip and owns the release.
		return nil
	}

	// The status flip is durable; the seat must follow even if the client leaves.
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()
	if err := s.ledger.Release(releaseCtx, booking.ClassID); err != nil {
		log.Printf("seat release failed reconcile_required=true op=cancel booking_id=%s class_id=%s email=%s: %v",
			booking.ID, booking.ClassID, booking.Email, err)
		return s.fault(span, fmt.Errorf("cancel booking %s: release seat in class %s: %w", bookingID, booking.ClassID, err))
	}
	return nil
}

func (s *BookingService) fault(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "fault")
	return err
}
