package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"crunchbot/internal/util"
)

// window is one caller's request count inside the current fixed window.
type window struct {
	start time.Time
	count int
}

// Limiter throttles the ops endpoint per client IP with fixed windows.
// A counter resets when its window lapses; Sweep drops idle entries so
// the map stays bounded.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*window
	max     int
	span    time.Duration
	now     func() time.Time
}

func NewLimiter(max int, span time.Duration) *Limiter {
	return &Limiter{
		clients: make(map[string]*window),
		max:     max,
		span:    span,
		now:     time.Now,
	}
}

// allow counts one request from ip and reports whether it fits in the
// current window, how many more would fit, and seconds until reset.
func (l *Limiter) allow(ip string) (ok bool, remaining, resetIn int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w := l.clients[ip]
	if w == nil || now.Sub(w.start) >= l.span {
		w = &window{start: now}
		l.clients[ip] = w
	}

	resetIn = int((l.span - now.Sub(w.start)).Seconds()) + 1
	if w.count >= l.max {
		return false, 0, resetIn
	}
	w.count++
	return true, l.max - w.count, resetIn
}

func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, remaining, resetIn := l.allow(util.GetClientIP(r))

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.max))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !ok {
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(resetIn))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"error":   "Too many requests. Please slow down.",
				"resetIn": resetIn,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Sweep periodically deletes clients whose window has already lapsed.
func (l *Limiter) Sweep(every time.Duration) {
	go func() {
		ticker := time.NewTicker(every)
		for range ticker.C {
			l.mu.Lock()
			now := l.now()
			for ip, w := range l.clients {
				if now.Sub(w.start) >= l.span {
					delete(l.clients, ip)
				}
			}
			l.mu.Unlock()
		}
	}()
}
