// Package main is the entrypoint for the billtrack API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/billtrack/billtrack/internal/cache"
	"github.com/billtrack/billtrack/internal/config"
	"github.com/billtrack/billtrack/internal/events"
	"github.com/billtrack/billtrack/internal/handler"
	"github.com/billtrack/billtrack/internal/metrics"
	"github.com/billtrack/billtrack/internal/repository"
	"github.com/billtrack/billtrack/internal/repository/sqlite"
	"github.com/billtrack/billtrack/internal/server"
	"github.com/billtrack/billtrack/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	store, err := openStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	checks := map[string]handler.HealthChecker{"database": store}
	deps := service.Deps{Store: store, Logger: logger}
	var limiter *cache.Cache

	if cfg.RedisURL != "" {
		cacheClient, err := cache.Open(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			os.Exit(1)
		}
		logger.Info("connected to Redis")
		deps.Cache = cacheClient
		checks["redis"] = cacheClient
		limiter = cacheClient
	} else {
		logger.Warn("REDIS_URL not set; caching and rate limiting disabled")
		checks["redis"] = nil
	}

	if cfg.AMQPURL != "" {
		publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Error("failed to connect to AMQP broker",
				slog.String("error", sanitizeError(err, cfg.AMQPURL)),
				slog.String("amqp_url", redactURL(cfg.AMQPURL)),
			)
			os.Exit(1)
		}
		logger.Info("connected to AMQP broker", slog.String("exchange", cfg.AMQPExchange))
		deps.Publisher = publisher
	}

	recorder := metrics.NewPrometheus()
	deps.Metrics = recorder

	rd := routerDeps{
		cfg:      cfg,
		logger:   logger,
		service:  deps,
		checks:   checks,
		recorder: recorder,
	}
	if limiter != nil {
		rd.limiter = limiter
	}
	r := newRouter(rd)

	srv := server.New(r, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Registered first, closed last.
	srv.OnShutdown("database", func(context.Context) error {
		store.Close()
		return nil
	})
	if limiter != nil {
		srv.OnShutdown("redis", func(context.Context) error { return limiter.Close() })
	}
	if deps.Publisher != nil {
		publisher := deps.Publisher
		srv.OnShutdown("amqp", func(context.Context) error { return publisher.Close() })
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// openStore picks the backend from the URL scheme.
func openStore(ctx context.Context, databaseURL string) (repository.Store, error) {
	if path, ok := sqlite.PathFromURL(databaseURL); ok {
		store, err := sqlite.New(ctx, path)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		repo, err := repository.New(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
	return nil, fmt.Errorf("unsupported DATABASE_URL scheme in %q", redactURL(databaseURL))
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		h = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
