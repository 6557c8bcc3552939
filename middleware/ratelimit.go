package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/yashasviy/banco-solar-api/logging"
)

const (
	// RateLimitKeyPrefix namespaces the per-client counters in Redis
	RateLimitKeyPrefix = "ratelimit:"

	// RateLimitLimitHeader reports the configured maximum per window
	RateLimitLimitHeader = "X-RateLimit-Limit"

	// RateLimitRemainingHeader reports how many requests are left in the window
	RateLimitRemainingHeader = "X-RateLimit-Remaining"

	// redisTimeout bounds each counter round trip so a slow Redis never stalls requests
	redisTimeout = 500 * time.Millisecond
)

// RateLimiter is a fixed-window request limiter keyed by client IP and
// backed by Redis, so every replica of the service shares the same counters.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	logger *zap.Logger
	now    func() time.Time
}

func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		logger: logging.OrNop(logger).Named("ratelimit"),
		now:    time.Now,
	}
}

// Handler rejects requests above the limit with 429. When Redis is
// unavailable it lets requests through and logs the failure.
//
// Flow:
//  1. Derive the window bucket and the client key
//  2. INCR the counter and set its TTL in one transaction
//  3. Reject with Retry-After once the counter exceeds the limit
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := rl.now()
		bucket := now.UnixNano() / int64(rl.window)
		key := fmt.Sprintf("%s%s:%d", RateLimitKeyPrefix, clientIP(r), bucket)

		ctx, cancel := context.WithTimeout(r.Context(), redisTimeout)
		defer cancel()

		var incr *redis.IntCmd
		_, err := rl.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, rl.window)
			return nil
		})
		if err != nil {
			rl.logger.Warn("rate limit check failed, allowing request", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		count := int(incr.Val())
		remaining := rl.limit - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set(RateLimitLimitHeader, strconv.Itoa(rl.limit))
		w.Header().Set(RateLimitRemainingHeader, strconv.Itoa(remaining))

		if count > rl.limit {
			windowEnd := time.Unix(0, (bucket+1)*int64(rl.window))
			retryAfter := int(windowEnd.Sub(now).Seconds()) + 1
			rl.logger.Info("rate limit exceeded", zap.String("key", key), zap.Int("count", count))

			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"message":"Too many requests, try again later."}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
