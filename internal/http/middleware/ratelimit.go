package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/daysync/daysync-api/internal/utils/response"
)

// Limiter tracking windows. Idle client buckets are pruned so the map
// does not grow with every IP that ever connected.
const (
	clientTTL     = 10 * time.Minute
	pruneInterval = 2 * time.Minute
)

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// RateLimiter is a token-bucket limiter keyed by client IP. Each client
// accrues rate tokens per second up to burst; a request spends one.
type RateLimiter struct {
	rate  float64
	burst float64

	mu        sync.Mutex
	clients   map[string]*bucket
	lastPrune time.Time
}

// NewRateLimiter returns a limiter granting rate requests per second
// with burst headroom per client IP.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:      rate,
		burst:     float64(burst),
		clients:   make(map[string]*bucket),
		lastPrune: time.Now(),
	}
}

// Allow reports whether the request's client may proceed.
func (l *RateLimiter) Allow(r *http.Request) bool {
	return l.allow(clientIP(r), time.Now())
}

// allow is the clock-explicit core, separated so tests can drive time.
func (l *RateLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastPrune) >= pruneInterval {
		l.pruneLocked(now)
	}

	b, ok := l.clients[ip]
	if !ok {
		b = &bucket{tokens: l.burst}
		l.clients[ip] = b
	} else {
		b.tokens += now.Sub(b.lastSeen).Seconds() * l.rate
		if b.tokens > l.burst {
			b.tokens = l.burst
		}
	}
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--

	return true
}

func (l *RateLimiter) pruneLocked(now time.Time) {
	for ip, b := range l.clients {
		if now.Sub(b.lastSeen) > clientTTL {
			delete(l.clients, ip)
		}
	}
	l.lastPrune = now
}

// clientIP extracts the peer address. Deliberately NOT read from
// X-Forwarded-For: that header is client-controlled, and trusting it
// would let anyone mint fresh rate-limit buckets per request.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit rejects over-budget clients with 429. Wiring is conditional
// in main: a configured rate of 0 means the middleware is never
// installed.
func RateLimit(l *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(r) {
				response.WriteJSON(w, http.StatusTooManyRequests, response.Response{
					Status: response.StatusError,
					Error:  "rate limit exceeded",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
