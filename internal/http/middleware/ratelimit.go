package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/salon-booking-engine/pkg/logging"
)

// RateLimiter counts requests per client in fixed one-minute windows shared
// through Redis, so every API replica enforces the same budget.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
	logger *logging.Logger
}

// NewRateLimiter allows limit requests per client per minute.
func NewRateLimiter(client *redis.Client, limit int, logger *logging.Logger) *RateLimiter {
	if client == nil {
		panic("middleware: redis client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RateLimiter{client: client, limit: limit, window: time.Minute, now: time.Now, logger: logger}
}

// Allow records one request for key and reports whether it fits the budget.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	slot := rl.now().Unix() / int64(rl.window/time.Second)
	redisKey := fmt.Sprintf("salon:ratelimit:%s:%d", key, slot)

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("middleware: rate limit: %w", err)
	}
	return incr.Val() <= int64(rl.limit), nil
}

// Middleware rejects requests over budget with 429. Redis failures let the
// request through.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		ok, err := rl.Allow(r.Context(), clientKey(r))
		if err != nil {
			rl.logger.Warn("rate limiter unavailable", "error", err)
		} else if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window/time.Second)))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey prefers X-Real-Ip, which chi's RealIP middleware sets.
func clientKey(r *http.Request) string {
	if ip := r.Header.Get("X-Real-Ip"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
