package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	redis "github.com/redis/go-redis/v9"

	"github.com/rocketsafe/rocketsafe/internal/logger"
)

// Limiter provides Redis-backed per-client rate limiting for the write
// endpoints. The API is anonymous, so the client key is the caller's IP.
// Counters live in fixed one-minute windows; when Redis is unavailable the
// limiter fails open so an infra hiccup never blocks safety checks.
type Limiter struct {
	redis *redis.Client
	rpm   int
	clock clockwork.Clock
}

// NewLimiter creates a limiter over an existing Redis client. client may be
// nil; every check then passes.
func NewLimiter(client *redis.Client, rpm int, clock clockwork.Clock) *Limiter {
	return &Limiter{redis: client, rpm: rpm, clock: clock}
}

// CheckRate returns allowed=false when the client exhausted its minute
// budget, along with the seconds until the window resets.
func (l *Limiter) CheckRate(ctx context.Context, clientKey, path string) (allowed bool, resetSec int, err error) {
	if l.redis == nil || l.rpm <= 0 {
		return true, 0, nil
	}

	now := l.clock.Now().UTC()
	window := now.Unix() / 60
	rk := fmt.Sprintf("rl:%s:%s:%d", clientKey, path, window)

	pipe := l.redis.TxPipeline()
	incr := pipe.Incr(ctx, rk)
	pipe.Expire(ctx, rk, time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	count := int(incr.Val())
	if count > l.rpm {
		secPassed := int(now.Unix() % 60)
		return false, 60 - secPassed, nil
	}
	return true, 0, nil
}

// Middleware enforces the limit per client IP. clientKey extracts the key
// from the request; typically the resolved remote IP.
func (l *Limiter) Middleware(clientKey func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, resetSec, err := l.CheckRate(r.Context(), clientKey(r), r.URL.Path)
			if err != nil {
				// Fail open on limiter errors
				logger.WithContext(r.Context()).Warn("Rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(resetSec))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
