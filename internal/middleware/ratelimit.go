package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"retail-rfm/internal/config"
	"retail-rfm/internal/errors"
	"retail-rfm/internal/observability"
)

// Clients idle for longer than limiterTTL lose their limiter.
const limiterTTL = time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client address. Idle buckets are
// swept on access at most once per limiterTTL.
type RateLimiter struct {
	config config.SecurityConfig
	now    func() time.Time

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

func NewRateLimiter(cfg config.SecurityConfig) *RateLimiter {
	return &RateLimiter{
		config:   cfg,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

func (rl *RateLimiter) Allow(ip string) bool {
	if !rl.config.EnableRateLimit {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= limiterTTL {
		rl.sweep(now)
	}

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(rl.config.RateLimitRPS), rl.config.RateLimitBurst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) sweep(now time.Time) {
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > limiterTTL {
			delete(rl.visitors, ip)
		}
	}
	rl.lastSweep = now
}

func (rl *RateLimiter) tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// retryAfter is the whole number of seconds until one token is available.
func (rl *RateLimiter) retryAfter() string {
	secs := math.Ceil(1 / float64(rl.config.RateLimitRPS))
	return strconv.Itoa(max(int(secs), 1))
}

func RateLimit(limiter *RateLimiter, logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(limiter.config.RateLimitExempt, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(clientIP(r)) {
				w.Header().Set("Retry-After", limiter.retryAfter())
				errors.WriteError(w, logger, errors.RateLimit("Too many requests"), observability.GetRequestID(r.Context()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
