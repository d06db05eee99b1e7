package main

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/billtrack/billtrack/internal/cache"
	"github.com/billtrack/billtrack/internal/config"
	"github.com/billtrack/billtrack/internal/handler"
	"github.com/billtrack/billtrack/internal/metrics"
	"github.com/billtrack/billtrack/internal/middleware"
	"github.com/billtrack/billtrack/internal/service"
)

type routerDeps struct {
	cfg      *config.Config
	logger   *slog.Logger
	service  service.Deps
	checks   map[string]handler.HealthChecker
	limiter  middleware.Limiter
	recorder *metrics.PrometheusRecorder
}

// newRouter configures the chi router with all routes and middleware.
func newRouter(d routerDeps) *chi.Mux {
	users := service.NewUserService(d.service)
	bills := service.NewBillService(d.service, users, d.cfg.DefaultPageSize, d.cfg.MaxPageSize)

	healthHandler := handler.NewHealthHandler(d.checks)
	billHandler := handler.NewBillHandler(bills, d.logger)
	userHandler := handler.NewUserHandler(users, d.logger)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = d.cfg.GetCORSAllowedOrigins()

	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.logger))
	r.Use(middleware.Instrument(d.recorder))
	r.Use(middleware.Recoverer(d.logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: d.cfg.IsDevelopment()}))
	r.Use(middleware.CORS(corsCfg))

	// Probes and metrics skip body limits and rate limiting.
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Handle("/metrics", d.recorder.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.MaxBodySize(d.cfg.MaxRequestBodySize))
		r.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Logger:  d.logger,
			Limiter: d.limiter,
			Enabled: d.cfg.RateLimitEnabled,
			Read:    cache.Limit{Rate: d.cfg.RateLimitRPS, Burst: d.cfg.RateLimitBurst},
			Write:   cache.Limit{Rate: d.cfg.RateLimitWriteRPS, Burst: d.cfg.RateLimitWriteBurst},
		}))

		billHandler.Routes(r)
		userHandler.Routes(r)
	})

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}
