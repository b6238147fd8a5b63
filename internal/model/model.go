// Package model defines the core domain types for the class booking system.
package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Weekday is the day a class recurs on each week.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

// Weekdays lists the schedule days in calendar order, Monday first.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Index returns the position of d in Weekdays, or -1 if d is not a known day.
func (d Weekday) Index() int {
	for i, day := range Weekdays {
		if day == d {
			return i
		}
	}
	return -1
}

// Valid reports whether d is one of the seven schedule days.
func (d Weekday) Valid() bool {
	return d.Index() >= 0
}

// Difficulty is the advertised level of a class.
type Difficulty string

const (
	Beginner     Difficulty = "Beginner"
	Intermediate Difficulty = "Intermediate"
	Advanced     Difficulty = "Advanced"
)

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case Beginner, Intermediate, Advanced:
		return true
	}
	return false
}

// Category groups classes on the schedule.
type Category string

const (
	Strength         Category = "Strength"
	Conditioning     Category = "Conditioning"
	HIIT             Category = "HIIT"
	PersonalTraining Category = "Personal Training"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case Strength, Conditioning, HIIT, PersonalTraining:
		return true
	}
	return false
}

// ClassSession is a scheduled class that recurs weekly with a fixed number of seats.
type ClassSession struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Trainer     string     `json:"trainer"`
	Day         Weekday    `json:"day"`
	Time        string     `json:"time"`
	Duration    int        `json:"duration"`
	Capacity    int        `json:"capacity"`
	BookedCount int        `json:"booked_count"`
	Difficulty  Difficulty `json:"difficulty"`
	Category    Category   `json:"category"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AvailableSpots returns the number of seats still open.
func (c ClassSession) AvailableSpots() int {
	return c.Capacity - c.BookedCount
}

// IsFull returns true when no seats remain.
func (c ClassSession) IsFull() bool {
	return c.BookedCount >= c.Capacity
}

// MarshalJSON adds the derived available_spots and is_full fields.
func (c ClassSession) MarshalJSON() ([]byte, error) {
	type plain ClassSession
	return json.Marshal(struct {
		plain
		AvailableSpots int  `json:"available_spots"`
		IsFull         bool `json:"is_full"`
	}{plain(c), c.AvailableSpots(), c.IsFull()})
}

// Validate checks the static attributes of a class before it is stored.
func (c ClassSession) Validate() error {
	switch {
	case strings.TrimSpace(c.Name) == "":
		return fmt.Errorf("class name is required")
	case strings.TrimSpace(c.Description) == "":
		return fmt.Errorf("class description is required")
	case strings.TrimSpace(c.Trainer) == "":
		return fmt.Errorf("class trainer is required")
	case !c.Day.Valid():
		return fmt.Errorf("class day %q is not a weekday", c.Day)
	case strings.TrimSpace(c.Time) == "":
		return fmt.Errorf("class time is required")
	case c.Duration <= 0:
		return fmt.Errorf("class duration must be a positive number of minutes")
	case c.Capacity < 1:
		return fmt.Errorf("class capacity must be at least 1")
	case c.BookedCount < 0 || c.BookedCount > c.Capacity:
		return fmt.Errorf("booked count %d is outside 0..%d", c.BookedCount, c.Capacity)
	case !c.Difficulty.Valid():
		return fmt.Errorf("class difficulty %q is not recognised", c.Difficulty)
	case !c.Category.Valid():
		return fmt.Errorf("class category %q is not recognised", c.Category)
	}
	return nil
}

// clockLayout is the display format used for class start times, e.g. "06:30 PM".
const clockLayout = "03:04 PM"

// minuteOfDay parses a display time into minutes after midnight. Unparseable
// times sort after every parseable one.
func minuteOfDay(s string) int {
	t, err := time.Parse(clockLayout, strings.TrimSpace(s))
	if err != nil {
		return 24 * 60
	}
	return t.Hour()*60 + t.Minute()
}

// SortSchedule orders classes by weekday and then by start time.
func SortSchedule(classes []ClassSession) {
	sort.SliceStable(classes, func(i, j int) bool {
		a, b := classes[i], classes[j]
		if a.Day != b.Day {
			return a.Day.Index() < b.Day.Index()
		}
		ma, mb := minuteOfDay(a.Time), minuteOfDay(b.Time)
		if ma != mb {
			return ma < mb
		}
		return a.Time < b.Time
	})
}

// Occupancy compares a class counter with the bookings that back it.
//
// Version advances on every counter write and Bookings counts every booking
// ever made for the class, whatever its status. Together they change whenever
// any seat or booking activity touches the class.
type Occupancy struct {
	ClassID     string
	Capacity    int
	BookedCount int
	Version     int64
	Confirmed   int
	Bookings    int
}

// Drift is the number of seats counted that no confirmed booking accounts for.
// A negative drift means confirmed bookings exceed the counter.
func (o Occupancy) Drift() int {
	return o.BookedCount - o.Confirmed
}

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
)

// Booking represents one person's reservation for one class.
type Booking struct {
	ID               string        `json:"id"`
	UserName         string        `json:"user_name"`
	Email            string        `json:"email"`
	Phone            string        `json:"phone"`
	EmergencyContact string        `json:"emergency_contact,omitempty"`
	ClassID          string        `json:"class_id"`
	Class            *ClassSession `json:"class,omitempty"`
	Status           BookingStatus `json:"status"`
	CreatedAt        time.Time     `json:"booking_date"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// BookRequest is the payload for booking a class.
type BookRequest struct {
	Name             string `json:"name" validate:"required,max=100"`
	Email            string `json:"email" validate:"required,email,max=254"`
	Phone            string `json:"phone" validate:"required,max=30"`
	ClassID          string `json:"class_id" validate:"required,uuid"`
	EmergencyContact string `json:"emergency_contact" validate:"omitempty,max=100"`
}

// Normalize trims every field and lowercases the email.
func (r *BookRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	r.ClassID = strings.TrimSpace(r.ClassID)
	r.EmergencyContact = strings.TrimSpace(r.EmergencyContact)
}

// FieldError describes one invalid request field.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

// ListResponse is the envelope for collection endpoints.
type ListResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
	Data    any  `json:"data"`
}

// DataResponse is the envelope for single-resource endpoints.
type DataResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   string       `json:"error,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}
