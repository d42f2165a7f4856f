package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// RouterDependencies collects handler dependencies.
type RouterDependencies struct {
	Health HealthService
	API    *APIHandlers
}

// NewRouter wires the HTTP routes exposed by the backend API.
func NewRouter(logger *slog.Logger, deps RouterDependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(loggingMiddleware(logger))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		payload := map[string]any{"status": "ok"}

		if deps.Health != nil {
			if err := deps.Health.Probe(ctx); err != nil {
				logger.Error("health probe failed", "error", err)
				status = http.StatusServiceUnavailable
				payload["status"] = "degraded"
			}
		}

		respondJSON(w, status, payload)
	})

	if api := deps.API; api != nil {
		r.Route("/recipients", func(r chi.Router) {
			r.Post("/", api.handleCreateRecipient)
			r.Get("/", api.handleSearchRecipients)
			r.Get("/{id}", api.handleGetRecipient)
			r.Post("/{id}/status", api.handleSetRecipientStatus)
			r.Post("/{id}/credit", api.handleCreditWallet)
		})

		r.Get("/payout-methods", api.handleListPayoutMethods)

		r.Route("/invoices", func(r chi.Router) {
			r.Post("/", api.handleCreateInvoice)
			r.Get("/", api.handleListInvoices)
			r.Post("/{id}/transition", api.handleTransitionInvoice)
		})

		r.Route("/payouts", func(r chi.Router) {
			r.Post("/", api.handleCreatePayout)
			r.Get("/", api.handleListPayouts)
			r.Post("/{id}/transition", api.handleTransitionPayout)
			r.Post("/{id}/cancel", api.handleCancelPayout)
		})

		r.Get("/balance", api.handleGetBalance)
		r.Get("/history", api.handleGetHistory)
		r.Get("/stats", api.handleGetStats)
	}

	return r
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
