// Package postgres implements the class and booking repositories on PostgreSQL.
// It uses pgx directly (no ORM) for transparency and performance.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/model"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/repository"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

const classColumns = `id, name, description, trainer, day_of_week, start_time, duration_minutes,
	capacity, booked_count, difficulty, category, created_at, updated_at`

func scanClass(row pgx.Row) (*model.ClassSession, error) {
	var c model.ClassSession
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Trainer, &c.Day, &c.Time, &c.Duration,
		&c.Capacity, &c.BookedCount, &c.Difficulty, &c.Category, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// validID rejects ids that cannot be a UUID before they reach a uuid column,
// so malformed path parameters read as "not found" rather than a query fault.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// ClassRepository handles persistence for class sessions.
type ClassRepository struct {
	db *pgxpool.Pool
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *pgxpool.Pool) *ClassRepository {
	return &ClassRepository{db: db}
}

// Create inserts a class, assigning an id and timestamps when absent.
func (r *ClassRepository) Create(ctx context.Context, class *model.ClassSession) error {
	if err := class.Validate(); err != nil {
		return err
	}
	if class.ID == "" {
		class.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	class.CreatedAt, class.UpdatedAt = now, now

	_, err := r.db.Exec(ctx,
		`INSERT INTO classes (`+classColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		class.ID, class.Name, class.Description, class.Trainer, class.Day, class.Time, class.Duration,
		class.Capacity, class.BookedCount, class.Difficulty, class.Category, class.CreatedAt, class.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert class: %w", err)
	}
	return nil
}

// List returns every class ordered by weekday and start time.
func (r *ClassRepository) List(ctx context.Context) ([]model.ClassSession, error) {
	rows, err := r.db.Query(ctx, `SELECT `+classColumns+` FROM classes`)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	defer rows.Close()

	var classes []model.ClassSession
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	model.SortSchedule(classes)
	return classes, nil
}

// GetByID returns a single class or repository.ErrNotFound.
func (r *ClassRepository) GetByID(ctx context.Context, id string) (*model.ClassSession, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	c, err := scanClass(r.db.QueryRow(ctx, `SELECT `+classColumns+` FROM classes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get class: %w", err)
	}
	return c, nil
}

// IncrementIfBelowCapacity claims one seat.
//
// The capacity test and the increment are a single UPDATE. Under READ COMMITTED
// a second writer blocked on the same row re-evaluates the WHERE clause against
// the committed row once the first writer finishes, so two requests can never
// both observe the last free seat and both take it.
func (r *ClassRepository) IncrementIfBelowCapacity(ctx context.Context, id string) (*model.ClassSession, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	c, err := scanClass(r.db.QueryRow(ctx,
		`UPDATE classes
		 SET booked_count = booked_count + 1, version = version + 1, updated_at = now()
		 WHERE id = $1 AND booked_count < capacity
		 RETURNING `+classColumns,
		id,
	))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("increment booked_count: %w", err)
	}
	return nil, r.explainMiss(ctx, id, repository.ErrClassFull)
}

// DecrementIfPositive releases one seat, refusing to go below zero.
func (r *ClassRepository) DecrementIfPositive(ctx context.Context, id string) (*model.ClassSession, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	c, err := scanClass(r.db.QueryRow(ctx,
		`UPDATE classes
		 SET booked_count = booked_count - 1, version = version + 1, updated_at = now()
		 WHERE id = $1 AND booked_count > 0
		 RETURNING `+classColumns,
		id,
	))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("decrement booked_count: %w", err)
	}
	return nil, r.explainMiss(ctx, id, repository.ErrUnderflow)
}

// explainMiss tells a missing class apart from a failed guard after a
// conditional update matched no rows.
func (r *ClassRepository) explainMiss(ctx context.Context, id string, guardErr error) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM classes WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check class exists: %w", err)
	}
	if !exists {
		return repository.ErrNotFound
	}
	return guardErr
}

// Occupancy returns each class counter next to its booking counts.
func (r *ClassRepository) Occupancy(ctx context.Context) ([]model.Occupancy, error) {
	rows, err := r.db.Query(ctx,
		`SELECT c.id, c.capacity, c.booked_count, c.version,
		        COUNT(b.id) FILTER (WHERE b.status = 'confirmed'),
		        COUNT(b.id)
		 FROM classes c
		 LEFT JOIN bookings b ON b.class_id = c.id
		 GROUP BY c.id, c.capacity, c.booked_count, c.version
		 ORDER BY c.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query occupancy: %w", err)
	}
	defer rows.Close()

	var out []model.Occupancy
	for rows.Next() {
		var o model.Occupancy
		if err := rows.Scan(&o.ClassID, &o.Capacity, &o.BookedCount, &o.Version, &o.Confirmed, &o.Bookings); err != nil {
			return nil, fmt.Errorf("scan occupancy: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// SetBookedCount is a compare-and-set on the counter version.
func (r *ClassRepository) SetBookedCount(ctx context.Context, id string, version int64, value int) (bool, error) {
	if !validID(id) {
		return false, repository.ErrNotFound
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE classes SET booked_count = $3, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $2`,
		id, version, value,
	)
	if err != nil {
		return false, fmt.Errorf("set booked_count: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Reset deletes all bookings and classes in one transaction.
func (r *ClassRepository) Reset(ctx context.Context) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM bookings`); err != nil {
		return fmt.Errorf("delete bookings: %w", err)
	}
	if _, err = tx.Exec(ctx, `DELETE FROM classes`); err != nil {
		return fmt.Errorf("delete classes: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// BookingRepository handles persistence for bookings.
type BookingRepository struct {
	db *pgxpool.Pool
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(db *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, user_name, email, phone, emergency_contact, class_id, status, created_at, updated_at`

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.UserName, &b.Email, &b.Phone, &b.EmergencyContact, &b.ClassID,
		&b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a confirmed booking. The partial unique index on
// (email, class_id) WHERE status = 'confirmed' is the authoritative
// double-booking guard; its violation maps to repository.ErrDuplicateBooking.
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	if !validID(booking.ClassID) {
		return repository.ErrNotFound
	}
	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}
	if booking.Status == "" {
		booking.Status = model.StatusConfirmed
	}
	now := time.Now().UTC()
	booking.CreatedAt, booking.UpdatedAt = now, now

	_, err := r.db.Exec(ctx,
		`INSERT INTO bookings (`+bookingColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		booking.ID, booking.UserName, booking.Email, booking.Phone, booking.EmergencyContact,
		booking.ClassID, booking.Status, booking.CreatedAt, booking.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case uniqueViolation:
				return repository.ErrDuplicateBooking
			case foreignKeyViolation:
				return repository.ErrNotFound
			}
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// GetByID returns a booking without its class populated.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// FindConfirmed returns the confirmed booking for (email, classID), if any.
func (r *BookingRepository) FindConfirmed(ctx context.Context, email, classID string) (*model.Booking, error) {
	if !validID(classID) {
		return nil, repository.ErrNotFound
	}
	b, err := scanBooking(r.db.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE email = $1 AND class_id = $2 AND status = 'confirmed'`,
		email, classID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find confirmed booking: %w", err)
	}
	return b, nil
}

// ListConfirmedByEmail returns confirmed bookings for email, newest first,
// each with its class populated.
func (r *BookingRepository) ListConfirmedByEmail(ctx context.Context, email string) ([]model.Booking, error) {
	rows, err := r.db.Query(ctx,
		`SELECT b.id, b.user_name, b.email, b.phone, b.emergency_contact, b.class_id, b.status,
		        b.created_at, b.updated_at,
		        c.id, c.name, c.description, c.trainer, c.day_of_week, c.start_time, c.duration_minutes,
		        c.capacity, c.booked_count, c.difficulty, c.category, c.created_at, c.updated_at
		 FROM bookings b
		 JOIN classes c ON c.id = b.class_id
		 WHERE b.email = $1 AND b.status = 'confirmed'
		 ORDER BY b.created_at DESC, b.id`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		var b model.Booking
		var c model.ClassSession
		if err := rows.Scan(&b.ID, &b.UserName, &b.Email, &b.Phone, &b.EmergencyContact, &b.ClassID,
			&b.Status, &b.CreatedAt, &b.UpdatedAt,
			&c.ID, &c.Name, &c.Description, &c.Trainer, &c.Day, &c.Time, &c.Duration,
			&c.Capacity, &c.BookedCount, &c.Difficulty, &c.Category, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		b.Class = &c
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// MarkCancelled flips a confirmed booking to cancelled. It returns false
// without error when the booking was already cancelled.
func (r *BookingRepository) MarkCancelled(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, repository.ErrNotFound
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE bookings SET status = 'cancelled', updated_at = now()
		 WHERE id = $1 AND status = 'confirmed'`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("cancel booking: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}
