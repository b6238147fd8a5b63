package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the API under /api and serves siteDir for everything else.
func NewRouter(h *BookingHandler, siteDir, corsOrigin string) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger)
	r.Use(CORS(corsOrigin))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", HealthCheck)
		r.Get("/classes", h.ListClasses)
		r.Get("/classes/{id}", h.GetClass)
		r.Post("/book", h.Book)
		r.Get("/bookings/{email}", h.ListBookings)
		r.Delete("/booking/{id}", h.CancelBooking)
		r.NotFound(NotFound)
	})

	// Static site: index.html, classes page, stylesheets and images.
	r.Handle("/*", http.FileServer(http.Dir(siteDir)))

	return r
}
