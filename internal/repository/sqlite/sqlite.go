// Package sqlite implements the class and booking repositories on an embedded
// SQLite database (modernc.org/sqlite). It backs local development and tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/model"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/repository"
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

type scanner interface {
	Scan(dest ...any) error
}

const classColumns = `id, name, description, trainer, day_of_week, start_time, duration_minutes,
	capacity, booked_count, difficulty, category, created_at, updated_at`

func scanClass(row scanner) (*model.ClassSession, error) {
	var c model.ClassSession
	var created, updated int64
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Trainer, &c.Day, &c.Time, &c.Duration,
		&c.Capacity, &c.BookedCount, &c.Difficulty, &c.Category, &created, &updated)
	if err != nil {
		return nil, err
	}
	c.CreatedAt, c.UpdatedAt = fromMillis(created), fromMillis(updated)
	return &c, nil
}

// ClassRepository handles persistence for class sessions.
type ClassRepository struct {
	db *sql.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sql.DB) *ClassRepository {
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
	now := time.Now().UTC().Truncate(time.Millisecond)
	class.CreatedAt, class.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO classes (`+classColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		class.ID, class.Name, class.Description, class.Trainer, class.Day, class.Time, class.Duration,
		class.Capacity, class.BookedCount, class.Difficulty, class.Category, toMillis(now), toMillis(now),
	)
	if err != nil {
		return fmt.Errorf("insert class: %w", err)
	}
	return nil
}

// List returns every class ordered by weekday and start time.
func (r *ClassRepository) List(ctx context.Context) ([]model.ClassSession, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+classColumns+` FROM classes`)
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
	c, err := scanClass(r.db.QueryRowContext(ctx, `SELECT `+classColumns+` FROM classes WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get class: %w", err)
	}
	return c, nil
}

// IncrementIfBelowCapacity claims one seat with a single conditional UPDATE.
// SQLite serialises writers, so the guard and the increment are evaluated
// against the same row version.
func (r *ClassRepository) IncrementIfBelowCapacity(ctx context.Context, id string) (*model.ClassSession, error) {
	c, err := scanClass(r.db.QueryRowContext(ctx,
		`UPDATE classes
		 SET booked_count = booked_count + 1, version = version + 1, updated_at = ?
		 WHERE id = ? AND booked_count < capacity
		 RETURNING `+classColumns,
		toMillis(time.Now()), id,
	))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("increment booked_count: %w", err)
	}
	return nil, r.explainMiss(ctx, id, repository.ErrClassFull)
}

// DecrementIfPositive releases one seat, refusing to go below zero.
func (r *ClassRepository) DecrementIfPositive(ctx context.Context, id string) (*model.ClassSession, error) {
	c, err := scanClass(r.db.QueryRowContext(ctx,
		`UPDATE classes
		 SET booked_count = booked_count - 1, version = version + 1, updated_at = ?
		 WHERE id = ? AND booked_count > 0
		 RETURNING `+classColumns,
		toMillis(time.Now()), id,
	))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("decrement booked_count: %w", err)
	}
	return nil, r.explainMiss(ctx, id, repository.ErrUnderflow)
}

func (r *ClassRepository) explainMiss(ctx context.Context, id string, guardErr error) error {
	var found int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM classes WHERE id = ?`, id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check class exists: %w", err)
	}
	return guardErr
}

// Occupancy returns each class counter next to its booking counts.
func (r *ClassRepository) Occupancy(ctx context.Context) ([]model.Occupancy, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.capacity, c.booked_count, c.version,
		        COALESCE(SUM(CASE WHEN b.status = 'confirmed' THEN 1 ELSE 0 END), 0),
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
	res, err := r.db.ExecContext(ctx,
		`UPDATE classes SET booked_count = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		value, toMillis(time.Now()), id, version,
	)
	if err != nil {
		return false, fmt.Errorf("set booked_count: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set booked_count: %w", err)
	}
	return n == 1, nil
}

// Reset deletes all bookings and classes in one transaction.
func (r *ClassRepository) Reset(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback reset: %v", cause, rollbackErr)
		}
		return cause
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings`); err != nil {
		return rollbackWith(fmt.Errorf("delete bookings: %w", err))
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM classes`); err != nil {
		return rollbackWith(fmt.Errorf("delete classes: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}
	return nil
}

// BookingRepository handles persistence for bookings.
type BookingRepository struct {
	db *sql.DB
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, user_name, email, phone, emergency_contact, class_id, status, created_at, updated_at`

func scanBooking(row scanner) (*model.Booking, error) {
	var b model.Booking
	var created, updated int64
	err := row.Scan(&b.ID, &b.UserName, &b.Email, &b.Phone, &b.EmergencyContact, &b.ClassID,
		&b.Status, &created, &updated)
	if err != nil {
		return nil, err
	}
	b.CreatedAt, b.UpdatedAt = fromMillis(created), fromMillis(updated)
	return &b, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return false
}

// Create inserts a confirmed booking. The partial unique index on
// (email, class_id) WHERE status = 'confirmed' is the authoritative
// double-booking guard; its violation maps to repository.ErrDuplicateBooking.
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}
	if booking.Status == "" {
		booking.Status = model.StatusConfirmed
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	booking.CreatedAt, booking.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bookings (`+bookingColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.ID, booking.UserName, booking.Email, booking.Phone, booking.EmergencyContact,
		booking.ClassID, booking.Status, toMillis(now), toMillis(now),
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return repository.ErrDuplicateBooking
		case isForeignKeyViolation(err):
			return repository.ErrNotFound
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// GetByID returns a booking without its class populated.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// FindConfirmed returns the confirmed booking for (email, classID), if any.
func (r *BookingRepository) FindConfirmed(ctx context.Context, email, classID string) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE email = ? AND class_id = ? AND status = 'confirmed'`,
		email, classID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find confirmed booking: %w", err)
	}
	return b, nil
}

// ListConfirmedByEmail returns confirmed bookings for email, newest first,
// each with its class populated.
func (r *BookingRepository) ListConfirmedByEmail(ctx context.Context, email string) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT b.id, b.user_name, b.email, b.phone, b.emergency_contact, b.class_id, b.status,
		        b.created_at, b.updated_at,
		        c.id, c.name, c.description, c.trainer, c.day_of_week, c.start_time, c.duration_minutes,
		        c.capacity, c.booked_count, c.difficulty, c.category, c.created_at, c.updated_at
		 FROM bookings b
		 JOIN classes c ON c.id = b.class_id
		 WHERE b.email = ? AND b.status = 'confirmed'
		 ORDER BY b.created_at DESC, b.rowid DESC`,
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
		var bCreated, bUpdated, cCreated, cUpdated int64
		if err := rows.Scan(&b.ID, &b.UserName, &b.Email, &b.Phone, &b.EmergencyContact, &b.ClassID,
			&b.Status, &bCreated, &bUpdated,
			&c.ID, &c.Name, &c.Description, &c.Trainer, &c.Day, &c.Time, &c.Duration,
			&c.Capacity, &c.BookedCount, &c.Difficulty, &c.Category, &cCreated, &cUpdated,
		); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		b.CreatedAt, b.UpdatedAt = fromMillis(bCreated), fromMillis(bUpdated)
		c.CreatedAt, c.UpdatedAt = fromMillis(cCreated), fromMillis(cUpdated)
		b.Class = &c
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// MarkCancelled flips a confirmed booking to cancelled. It returns false
// without error when the booking was already cancelled.
func (r *BookingRepository) MarkCancelled(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = 'cancelled', updated_at = ?
		 WHERE id = ? AND status = 'confirmed'`,
		toMillis(time.Now()), id,
	)
	if err != nil {
		return false, fmt.Errorf("cancel booking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel booking: %w", err)
	}
	if n == 1 {
		return true, nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}
