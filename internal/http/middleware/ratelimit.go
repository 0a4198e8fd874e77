package middleware

import (
	"net/http"
	"sync"
	"time"
)

// RateLimiter applies a per-client token bucket. Webhook endpoints sit behind
// it so a runaway provider retry loop cannot starve the process.
type RateLimiter struct {
	mu     sync.Mutex
	byAddr map[string]*bucket
	rate   float64
	burst  int
}

type bucket struct {
	tokens  float64
	refresh time.Time
}

// NewRateLimiter allows rate requests/sec with the given burst per client.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		byAddr: make(map[string]*bucket),
		rate:   rate,
		burst:  burst,
	}
	go rl.sweep()
	return rl
}

// Allow reports whether a request from addr is within the limit.
func (rl *RateLimiter) Allow(addr string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.byAddr[addr]
	if !ok {
		b = &bucket{tokens: float64(rl.burst), refresh: now}
		rl.byAddr[addr] = b
	}

	b.tokens += now.Sub(b.refresh).Seconds() * rl.rate
	if b.tokens > float64(rl.burst) {
		b.tokens = float64(rl.burst)
	}
	b.refresh = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweep evicts buckets idle for more than ten minutes.
func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-10 * time.Minute)
		for addr, b := range rl.byAddr {
			if b.refresh.Before(cutoff) {
				delete(rl.byAddr, addr)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimit rejects requests over the configured rate with a 429.
func RateLimit(rate float64, burst int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(rate, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := r.RemoteAddr
			// X-Real-Ip is set by chi's RealIP middleware when behind a proxy.
			if xri := r.Header.Get("X-Real-Ip"); xri != "" {
				addr = xri
			}
			if !limiter.Allow(addr) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
