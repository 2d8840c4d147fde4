package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"solarforge/internal/metrics"
)

// Limiter admits or rejects one request for a client key within a fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type bucket struct {
	count int
	until time.Time
}

// MemoryLimiter keeps per-process fixed windows. Used when Redis is not configured.
type MemoryLimiter struct {
	limit int
	per   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

func NewMemoryLimiter(limit int, per time.Duration) *MemoryLimiter {
	return &MemoryLimiter{limit: limit, per: per, now: time.Now, buckets: make(map[string]*bucket)}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	b, ok := l.buckets[key]
	if !ok || now.After(b.until) {
		b = &bucket{until: now.Add(l.per)}
		l.buckets[key] = b
	}
	if b.count >= l.limit {
		return false, nil
	}
	b.count++
	return true, nil
}

// RedisLimiter shares fixed windows across api replicas.
type RedisLimiter struct {
	client *redis.Client
	limit  int64
	per    time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int, per time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: int64(limit), per: per}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	countKey := "solarforge:ratelimit:" + key
	cnt, err := l.client.Incr(ctx, countKey).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		_ = l.client.Expire(ctx, countKey, l.per).Err()
	}
	return cnt <= l.limit, nil
}

// RateLimit rejects clients over their window with 429. Limiter failures
// admit the request.
func RateLimit(limiter Limiter, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIPForRateLimit(r)
			ok, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				logger.Warn().Err(err).Str("client_ip", ip).Msg("ratelimit: limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				metrics.RateLimited.Inc()
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIPForRateLimit(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		for _, part := range strings.Split(xf, ",") {
			ip := strings.TrimSpace(part)
			if ip == "" {
				continue
			}
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		if net.ParseIP(host) != nil {
			return host
		}
	} else if net.ParseIP(r.RemoteAddr) != nil {
		return r.RemoteAddr
	}

	return r.RemoteAddr
}
