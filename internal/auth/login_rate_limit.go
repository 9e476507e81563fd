package auth

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LoginRateLimiter throttles login attempts per client IP with a fixed window.
// This is an in-process guard against brute force on /auth/login only; the
// per-user daily quota lives in the quota package and is shared across
// processes.
type LoginRateLimiter struct {
	mu        sync.Mutex
	maxHits   int
	window    time.Duration
	windows   map[string]*ipWindow
	maxMemory int
}

type ipWindow struct {
	startedAt time.Time
	hits      int
}

func NewLoginRateLimiter(maxHits int, window time.Duration) *LoginRateLimiter {
	if maxHits <= 0 {
		maxHits = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	return &LoginRateLimiter{
		maxHits:   maxHits,
		window:    window,
		windows:   make(map[string]*ipWindow),
		maxMemory: 5000,
	}
}

func (l *LoginRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, retryAfter := l.allow(clientIP(r), time.Now().UTC())
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			writeError(w, http.StatusTooManyRequests, "too many login attempts")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *LoginRateLimiter) allow(ip string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	win := l.windows[ip]
	if win == nil || now.Sub(win.startedAt) >= l.window {
		l.evictStale(now)
		l.windows[ip] = &ipWindow{startedAt: now, hits: 1}
		return true, 0
	}

	win.hits++
	if win.hits <= l.maxHits {
		return true, 0
	}

	retryAfter := win.startedAt.Add(l.window).Sub(now)
	if retryAfter < time.Second {
		retryAfter = time.Second
	}

	return false, retryAfter
}

func (l *LoginRateLimiter) evictStale(now time.Time) {
	if len(l.windows) < l.maxMemory {
		return
	}
	for ip, win := range l.windows {
		if now.Sub(win.startedAt) >= l.window {
			delete(l.windows, ip)
		}
	}
}

func clientIP(r *http.Request) string {
	xForwardedFor := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if xForwardedFor != "" {
		parts := strings.Split(xForwardedFor, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}

	return "unknown"
}
