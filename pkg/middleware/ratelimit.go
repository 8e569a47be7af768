package middleware

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/matura-ai/matura-engine/pkg/apperrors"
	"github.com/matura-ai/matura-engine/pkg/config"
)

// Limiter decides whether a client may proceed. Allow returns a
// *apperrors.RateLimitError when the client is over its budget.
type Limiter interface {
	Allow(ctx context.Context, client string) error
}

// memoryLimiter is a per-client sliding window over in-process timestamps.
type memoryLimiter struct {
	mu       sync.Mutex
	requests int
	window   time.Duration
	clients  map[string][]time.Time
}

// NewMemoryLimiter creates a sliding-window limiter backed by process memory.
func NewMemoryLimiter(cfg *config.RateLimitConfig) Limiter {
	return &memoryLimiter{
		requests: cfg.Requests,
		window:   cfg.Window(),
		clients:  make(map[string][]time.Time),
	}
}

func (l *memoryLimiter) Allow(_ context.Context, client string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.window)

	recent := l.clients[client][:0]
	for _, t := range l.clients[client] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= l.requests {
		l.clients[client] = recent
		retryAfter := recent[0].Add(l.window).Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return apperrors.NewRateLimitError(retryAfter)
	}

	l.clients[client] = append(recent, now)
	return nil
}

// redisLimiter is a sliding window over a Redis sorted set per client, so
// the budget holds across engine replicas.
type redisLimiter struct {
	client   *redis.Client
	requests int
	window   time.Duration
}

// NewRedisLimiter creates a sliding-window limiter backed by Redis.
func NewRedisLimiter(client *redis.Client, cfg *config.RateLimitConfig) Limiter {
	return &redisLimiter{
		client:   client,
		requests: cfg.Requests,
		window:   cfg.Window(),
	}
}

func (l *redisLimiter) Allow(ctx context.Context, client string) error {
	key := "ratelimit:" + client
	now := time.Now()
	cutoff := now.Add(-l.window)

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff.UnixNano(), 10))
	count := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		// Redis being down must not take the API with it.
		return nil
	}

	if count.Val() >= int64(l.requests) {
		oldest, err := l.client.ZRangeWithScores(ctx, key, 0, 0).Result()
		retryAfter := l.window
		if err == nil && len(oldest) > 0 {
			retryAfter = time.Unix(0, int64(oldest[0].Score)).Add(l.window).Sub(now)
		}
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return apperrors.NewRateLimitError(retryAfter)
	}

	pipe = l.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})
	pipe.Expire(ctx, key, l.window)
	_, _ = pipe.Exec(ctx)
	return nil
}

// RateLimit returns middleware that enforces the limiter per client
// address, answering 429 with a Retry-After header when over budget.
func RateLimit(limiter Limiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientAddr(r)

			if err := limiter.Allow(r.Context(), client); err != nil {
				var rateErr *apperrors.RateLimitError
				retryAfter := time.Minute
				if errors.As(err, &rateErr) {
					retryAfter = rateErr.RetryAfter
				}
				if logger != nil {
					logger.Warn("request rate limited",
						zap.String("client", client),
						zap.Duration("retry_after", retryAfter))
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Round(time.Second).Seconds())))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprintf(w, `{"error":"rate limit exceeded, retry after %ds"}`, int(retryAfter.Round(time.Second).Seconds()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr extracts the client identity for rate limiting: the first
// X-Forwarded-For hop when present, otherwise the remote address host.
func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
