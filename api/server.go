/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the sign-up page

ROUTE GROUPS:
  /api/signup         Sign-up webhook (QR code front door)
  /api/customers/*    Customer profiles, purchases, feedback
  /api/campaigns/*    Campaign runs
  /api/reports/*      Report generation and retrieval

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Sign-up webhook
		r.Post("/signup", h.CaptureSignup)

		// Customer routes
		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.ListCustomers)
			r.Get("/{id}", h.GetCustomer)
			r.Get("/{id}/transactions", h.GetTransactions)
			r.Post("/{id}/purchases", h.TrackPurchase)
			r.Post("/{id}/feedback", h.SubmitFeedback)
			r.Post("/{id}/archive", h.ArchiveCustomer)
		})

		// Campaign routes
		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/run", h.RunCampaigns)
		})

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Post("/generate", h.GenerateReport)
			r.Get("/{storeID}", h.GetReport)
		})

		// Demo scenario routes (development only)
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
