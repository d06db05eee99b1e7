package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/billtrack/billtrack/internal/cache"
)

// Limiter takes one token from a client's bucket. *cache.Cache implements it.
type Limiter interface {
	Take(ctx context.Context, bucket cache.Bucket, client string, limit cache.Limit) (cache.Decision, error)
}

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter Limiter
	Enabled bool
	// Read applies to GET, HEAD and OPTIONS; Write to everything else.
	Read  cache.Limit
	Write cache.Limit
}

// RateLimit limits each client address separately for reads and writes.
// A nil Limiter disables limiting and limiter errors fail open.
// It expects chi's RealIP to have rewritten RemoteAddr.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled || cfg.Limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bucket, limit := cache.BucketWrite, cfg.Write
			if isRead(r.Method) {
				bucket, limit = cache.BucketRead, cfg.Read
			}
			client := clientAddr(r)

			d, err := cfg.Limiter.Take(r.Context(), bucket, client, limit)
			if err != nil {
				cfg.Logger.Error("rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("bucket", string(bucket)),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Burst))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))

			if !d.Allowed {
				retry := d.RetryAfterSeconds()
				cfg.Logger.Warn("rate limit exceeded",
					slog.String("bucket", string(bucket)),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int("retry_after_seconds", retry),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED",
					fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", retry))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isRead(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func clientAddr(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
