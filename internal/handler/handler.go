// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the booking service.
package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/model"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/service"
)

const (
	msgBooked         = "Class booked successfully! Check your email for confirmation."
	msgCancelled      = "Booking cancelled successfully"
	msgClassFull      = "Class is full. Please choose another class or time."
	msgAlreadyBooked  = "You have already booked this class."
	msgClassMissing   = "Class not found"
	msgBookingMissing = "Booking not found"
)

// BookingHandler holds all HTTP handlers for the class booking API.
type BookingHandler struct {
	svc *service.BookingService
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(svc *service.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

// writeFault logs err with the request id and answers with a generic 500.
func writeFault(w http.ResponseWriter, r *http.Request, msg string, err error) {
	log.Printf("[%s] %s %s: %v", middleware.GetReqID(r.Context()), r.Method, r.URL.Path, err)
	writeError(w, http.StatusInternalServerError, msg)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// ListClasses handles GET /api/classes
// Returns the weekly schedule ordered by day then start time.
func (h *BookingHandler) ListClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := h.svc.ListClasses(r.Context())
	if err != nil {
		writeFault(w, r, "Failed to fetch classes", err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if classes == nil {
		classes = []model.ClassSession{}
	}

	writeJSON(w, http.StatusOK, model.ListResponse{Success: true, Count: len(classes), Data: classes})
}

// GetClass handles GET /api/classes/{id}
func (h *BookingHandler) GetClass(w http.ResponseWriter, r *http.Request) {
	class, err := h.svc.GetClass(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, service.ErrClassNotFound) {
			writeError(w, http.StatusNotFound, msgClassMissing)
			return
		}
		writeFault(w, r, "Failed to fetch class", err)
		return
	}

	writeJSON(w, http.StatusOK, model.DataResponse{Success: true, Data: class})
}

// Book handles POST /api/book
// Reserves a seat and records the booking; the confirmation email is sent
// in the background.
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req model.BookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	booking, err := h.svc.Book(r.Context(), req)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Errors: verr.Fields})
		case errors.Is(err, service.ErrClassNotFound):
			writeError(w, http.StatusNotFound, msgClassMissing)
		case errors.Is(err, service.ErrClassFull):
			writeError(w, http.StatusBadRequest, msgClassFull)
		case errors.Is(err, service.ErrAlreadyBooked):
			writeError(w, http.StatusBadRequest, msgAlreadyBooked)
		default:
			writeFault(w, r, "Failed to process booking. Please try again.", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, model.DataResponse{Success: true, Message: msgBooked, Data: booking})
}

// ListBookings handles GET /api/bookings/{email}
// Returns the confirmed bookings for an email, newest first.
func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.svc.ListBookings(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		writeFault(w, r, "Failed to fetch bookings", err)
		return
	}

	if bookings == nil {
		bookings = []model.Booking{}
	}

	writeJSON(w, http.StatusOK, model.ListResponse{Success: true, Count: len(bookings), Data: bookings})
}

// CancelBooking handles DELETE /api/booking/{id}
// Cancelling an already cancelled booking succeeds.
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, service.ErrBookingNotFound) {
			writeError(w, http.StatusNotFound, msgBookingMissing)
			return
		}
		writeFault(w, r, "Failed to cancel booking", err)
		return
	}

	writeJSON(w, http.StatusOK, model.DataResponse{Success: true, Message: msgCancelled})
}

// NotFound answers unknown API routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Route not found")
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /api/health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"message":   "Pulse Strength Club API is running",
		"timestamp": time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}
