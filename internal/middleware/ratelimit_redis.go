package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/lifedeck/sso-hub/internal/service"
)

const redisRateLimitWindow = 60 * time.Second

// RedisRateLimitMiddleware throttles callers per client IP with the
// shared Redis sliding window, so the limit holds across replicas.
type RedisRateLimitMiddleware struct {
	limiter *service.RateLimiter
	limit   int
}

func NewRedisRateLimitMiddleware(client *redis.Client, limit int) *RedisRateLimitMiddleware {
	return &RedisRateLimitMiddleware{
		limiter: service.NewRateLimiter(client),
		limit:   limit,
	}
}

func (m *RedisRateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		key := fmt.Sprintf("ip:%s", ip)

		allowed, resetAt := m.limiter.CheckLimit(r.Context(), key, m.limit, redisRateLimitWindow)
		if !allowed {
			secondsLeft := int(time.Until(resetAt).Seconds()) + 1
			log.Warn().Str("ip", ip).Msg("rate limit exceeded")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", secondsLeft))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "Rate limit exceeded",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
