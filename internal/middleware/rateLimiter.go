package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/utils"
)

const (
	// Rate Limit Rules
	DefaultRequests = 20 // Steady state rate (token refilling speed)
	BurstSize       = 50 // Max burst capacity (bucket size) for traffic spikes

	// Garbage Collection
	VisitorTTL      = 5 * time.Minute // Time before an inactive IP is removed from memory
	CleanupInterval = 3 * time.Minute // Frequency of the cleanup routine
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	visitors map[string]*visitor
}

// NewRateLimiter allows requests per window with the given burst. Zero values
// fall back to 20 per second with a burst of 50.
func NewRateLimiter(requests int, window time.Duration, burst int) *RateLimiter {
	if window <= 0 {
		window = time.Second
	}
	if requests <= 0 {
		requests = DefaultRequests
	}
	if burst <= 0 {
		burst = BurstSize
	}
	return &RateLimiter{
		limit:    rate.Limit(float64(requests) / window.Seconds()),
		burst:    burst,
		visitors: make(map[string]*visitor),
	}
}

// Run removes stale visitor entries until ctx is cancelled, preventing memory
// leaks over time.
func (l *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.cleanup(time.Now())
		}
	}
}

func (l *RateLimiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > VisitorTTL {
			delete(l.visitors, key)
		}
	}
}

// Allow consumes one token from key's bucket.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	v, exists := l.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = time.Now()
	l.mu.Unlock()

	return v.limiter.Allow()
}

// Middleware enforces request quotas per IP address and answers excess
// requests with a 429 JSON error carrying code.
func (l *RateLimiter) Middleware(code, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(utils.GetRealIP(r)) {
				utils.WriteError(w, http.StatusTooManyRequests, code, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
