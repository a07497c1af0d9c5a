package server

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRateLimit is the sustained request rate per client IP on the
	// credential and callback endpoints.
	DefaultRateLimit = 10

	// DefaultRateBurst is the burst allowed per client IP.
	DefaultRateBurst = 20

	limiterIdleTTL      = 5 * time.Minute
	limiterPruneEvery   = time.Minute
	rateLimitedErrorMsg = "Trop de requêtes"
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per client IP. Idle entries are pruned
// lazily while serving, so it runs no goroutine.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*ipLimiter
	rate      rate.Limit
	burst     int
	lastPrune time.Time
	now       func() time.Time
}

// NewRateLimiter creates a RateLimiter allowing r requests per second with
// the given burst. A non-positive rate disables limiting.
func NewRateLimiter(r float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*ipLimiter),
		rate:     rate.Limit(r),
		burst:    burst,
		now:      time.Now,
	}
}

// Allow reports whether a request from ip may proceed.
func (rl *RateLimiter) Allow(ip string) bool {
	if rl == nil || rl.rate <= 0 {
		return true
	}

	rl.mu.Lock()
	now := rl.now()
	if now.Sub(rl.lastPrune) > limiterPruneEvery {
		for k, l := range rl.limiters {
			if now.Sub(l.lastSeen) > limiterIdleTTL {
				delete(rl.limiters, k)
			}
		}
		rl.lastPrune = now
	}
	l, ok := rl.limiters[ip]
	if !ok {
		l = &ipLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[ip] = l
	}
	l.lastSeen = now
	rl.mu.Unlock()

	return l.limiter.AllowN(now, 1)
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			retryAfter := 1
			if rl.rate > 0 && rl.rate < 1 {
				retryAfter = int(1 / float64(rl.rate))
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: rateLimitedErrorMsg})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the peer address. Forwarding headers are not trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
