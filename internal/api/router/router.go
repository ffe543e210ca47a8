package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/salon-booking-engine/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/salon-booking-engine/internal/http/middleware"
	"github.com/wolfman30/salon-booking-engine/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Booking            *handlers.BookingHandler
	Health             http.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	// WriteLimiter guards booking, checkout and profile writes when set.
	WriteLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	if cfg.Health != nil {
		r.Method(http.MethodGet, "/health", cfg.Health)
	}
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	h := cfg.Booking
	if h == nil {
		return r
	}

	// Reads
	r.Group(func(read chi.Router) {
		read.Get("/stylists/{stylistID}", h.GetStylist)
		read.Get("/stylists/{stylistID}/prices", h.GetPrices)
		read.Get("/stylists/{stylistID}/slots", h.GetSlots)
	})

	// Writes
	r.Group(func(write chi.Router) {
		if cfg.WriteLimiter != nil {
			write.Use(cfg.WriteLimiter.Middleware)
		}
		write.Put("/stylists/{stylistID}", h.PutStylist)
		write.Post("/stylists/{stylistID}/appointments", h.CreateAppointment)
		write.Route("/appointments/{appointmentID}", func(appt chi.Router) {
			appt.Post("/checkout", h.Checkout)
			appt.Post("/status", h.SetStatus)
		})
	})

	return r
}
