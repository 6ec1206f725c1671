/**
 * @description
 * This file sets up the HTTP router for the allocation service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// AllocationRoutes creates and returns a new router for the allocation service.
func AllocationRoutes(h *AllocationHandlers, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))

		// Worker pool
		r.Get("/workers", h.ListWorkersHandler)
		r.Get("/workers/{workerID}", h.GetWorkerHandler)

		// Reservations (customer)
		r.Post("/reservations", h.ReserveWorkerHandler)
		r.Get("/reservations", h.ListReservationsHandler)
		r.Get("/reservations/{reservationID}", h.GetReservationHandler)
		r.Post("/reservations/{reservationID}/cancel", h.CancelReservationHandler)

		// Contracts and invoices (customer)
		r.Post("/contracts", h.CreateContractHandler)
		r.Get("/contracts", h.ListContractsHandler)
		r.Get("/contracts/{contractID}", h.GetContractHandler)
		r.Get("/contracts/{contractID}/invoice", h.GetInvoiceHandler)
		r.Post("/contracts/{contractID}/cancel", h.CancelContractHandler)

		// Payment sessions (customer)
		r.Post("/contracts/{contractID}/payment-sessions", h.StartPaymentSessionHandler)
		r.Get("/payment-sessions/{sessionID}", h.GetPaymentSessionStatusHandler)
		r.Post("/payment-sessions/{sessionID}/verify", h.VerifyOTPHandler)
		r.Post("/payment-sessions/{sessionID}/cancel", h.CancelPaymentSessionHandler)

		// Proposals (agency)
		r.Group(func(r chi.Router) {
			r.Use(RequireRole(RoleAgency))
			r.Post("/proposals", h.SubmitProposalHandler)
		})

		// Back office
		r.Group(func(r chi.Router) {
			r.Use(RequireRole(RoleStaff))

			r.Post("/workers", h.RegisterWorkerHandler)
			r.Post("/workers/{workerID}/onboarding/advance", h.AdvanceOnboardingHandler)
			r.Post("/workers/{workerID}/release", h.ReleaseWorkerHandler)
			r.Post("/reservations/{reservationID}/process", h.ProcessReservationHandler)
			r.Post("/contracts/{contractID}/transition", h.TransitionContractHandler)

			r.Post("/requests", h.CreateRequestHandler)
			r.Get("/requests/{requestID}", h.GetRequestHandler)
			r.Get("/requests/{requestID}/proposals", h.ListProposalsHandler)
			r.Post("/proposals/{proposalID}/review", h.ReviewProposalHandler)
			r.Post("/proposals/{proposalID}/approve", h.ApproveProposalHandler)
			r.Post("/proposals/{proposalID}/reject", h.RejectProposalHandler)

			r.Post("/workers/{workerID}/problems", h.ReportProblemHandler)
			r.Get("/problems/{problemID}", h.GetProblemHandler)
			r.Post("/problems/{problemID}/resolve", h.ResolveProblemHandler)
			r.Post("/problems/{problemID}/close", h.CloseProblemHandler)
		})
	})

	return r
}
