package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/cardledger/internal/adapter/http/handler"
	"github.com/iho/cardledger/internal/adapter/http/middleware"
	"github.com/iho/cardledger/internal/infrastructure/metrics"
	"github.com/iho/cardledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	CardHandler        *handler.CardHandler
	TransactionHandler *handler.TransactionHandler
	SummaryHandler     *handler.SummaryHandler
	HealthHandler      *handler.HealthHandler

	// Authenticator resolves the owner of every /api/v1 request.
	Authenticator func(http.Handler) http.Handler

	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	Metrics          *metrics.Metrics
	MetricsHandler   http.Handler
	Logger           zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))

	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		authenticate := cfg.Authenticator
		if authenticate == nil {
			authenticate = middleware.HeaderOwner
		}
		r.Use(authenticate)

		// Idempotency keys are scoped per owner, so this runs after auth.
		if cfg.IdempotencyStore != nil {
			idempotency := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger)
			r.Use(idempotency.Wrap)
		}

		r.Route("/cards", func(r chi.Router) {
			r.Post("/", cfg.CardHandler.Create)
			r.Get("/", cfg.CardHandler.List)
			r.Get("/{id}", cfg.CardHandler.Get)
			r.Post("/{id}/block", cfg.CardHandler.Block)
			r.Post("/{id}/unblock", cfg.CardHandler.Unblock)
			r.Get("/{id}/transactions", cfg.CardHandler.Transactions)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", cfg.TransactionHandler.Process)
			r.Get("/", cfg.TransactionHandler.List)
			r.Get("/{id}", cfg.TransactionHandler.Get)
		})

		r.Get("/summary", cfg.SummaryHandler.Get)
		r.Post("/summary/refresh", cfg.SummaryHandler.Refresh)
		r.Get("/reconciliation", cfg.SummaryHandler.Reconcile)
	})

	return r
}
