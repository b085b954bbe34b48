package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clientLimiter keeps one token bucket per client. A client may burst the whole
// budget and then refills at limit/window.
type clientLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	window  time.Duration
	clients map[string]*clientEntry
	swept   time.Time
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newClientLimiter returns a limiter allowing requests per window. A non-positive
// requests or window disables limiting.
func newClientLimiter(requests int, window time.Duration) *clientLimiter {
	if requests <= 0 || window <= 0 {
		return &clientLimiter{limit: rate.Inf}
	}
	return &clientLimiter{
		limit:   rate.Limit(float64(requests) / window.Seconds()),
		burst:   requests,
		window:  window,
		clients: make(map[string]*clientEntry),
	}
}

// Allow reports whether the client identified by key may make a request at now.
func (l *clientLimiter) Allow(key string, now time.Time) bool {
	if l.limit == rate.Inf {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)
	entry, ok := l.clients[key]
	if !ok {
		entry = &clientEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// sweep drops clients idle for a full window, whose buckets are full again.
func (l *clientLimiter) sweep(now time.Time) {
	if now.Sub(l.swept) < l.window {
		return
	}
	l.swept = now
	for key, entry := range l.clients {
		if now.Sub(entry.lastSeen) >= l.window {
			delete(l.clients, key)
		}
	}
}
