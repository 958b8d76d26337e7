package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ndewijer/exchange-rate-oracle/internal/api/handlers"
	custommiddleware "github.com/ndewijer/exchange-rate-oracle/internal/api/middleware"
	"github.com/ndewijer/exchange-rate-oracle/internal/config"
	"github.com/ndewijer/exchange-rate-oracle/internal/metrics"
	"github.com/ndewijer/exchange-rate-oracle/internal/service"
)

// Services groups the services the router exposes.
type Services struct {
	System *service.SystemService
	Rates  *service.RateService
	Logs   *service.LogService
	Forex  *service.ForexService
}

// NewRouter creates and configures the HTTP router
func NewRouter(svc Services, m *metrics.Metrics, logger *zap.Logger, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger(logger.Named("http")))
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(svc.System)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
			r.Get("/status", systemHandler.Status)
		})

		rateHandler := handlers.NewRateHandler(svc.Rates)
		r.Get("/rates", rateHandler.Rate)

		r.Route("/logs", func(r chi.Router) {
			logHandler := handlers.NewLogHandler(svc.Logs)
			r.Get("/", logHandler.Entries)
			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", logHandler.Entry)
			})
		})

		r.Route("/forex", func(r chi.Router) {
			forexHandler := handlers.NewForexHandler(svc.Forex)
			r.Post("/collect", forexHandler.Collect)
			r.Get("/{day}", forexHandler.Day)
		})
	})

	return r
}
