package httpmiddleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimitConfig configures the fixed-window rate limiter.
type RateLimitConfig struct {
	// Max is the number of requests allowed per client per window.
	Max int
	// Window is the length of the fixed window.
	Window time.Duration
	// KeyFunc extracts the client key from a request. Defaults to the
	// remote IP address.
	KeyFunc func(*http.Request) string
}

type rateWindow struct {
	start time.Time
	count int
}

type rateLimiter struct {
	cfg RateLimitConfig
	now func() time.Time

	mu      sync.Mutex
	windows map[string]*rateWindow
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientIP
	}
	return &rateLimiter{
		cfg:     cfg,
		now:     time.Now,
		windows: make(map[string]*rateWindow),
	}
}

// allow reports whether a request from key may proceed, along with the
// number of remaining requests in the window and the time the window resets.
func (l *rateLimiter) allow(key string) (ok bool, remaining int, reset time.Time) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[key]
	if w == nil || now.Sub(w.start) >= l.cfg.Window {
		w = &rateWindow{start: now}
		l.windows[key] = w
	}

	reset = w.start.Add(l.cfg.Window)
	if w.count >= l.cfg.Max {
		return false, 0, reset
	}
	w.count++
	return true, l.cfg.Max - w.count, reset
}

// sweep drops windows that have already expired.
func (l *rateLimiter) sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.windows {
		if now.Sub(w.start) >= l.cfg.Window {
			delete(l.windows, key)
		}
	}
}

func (l *rateLimiter) middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, remaining, reset := l.allow(l.cfg.KeyFunc(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Max))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(time.Until(reset).Seconds())+1))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"code":429,"message":"rate limit exceeded"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit returns a fixed-window per-client rate limiting middleware.
func RateLimit(cfg RateLimitConfig) Middleware {
	return newRateLimiter(cfg).middleware()
}

// RateLimitWithCleanup is like RateLimit but also starts a background
// goroutine that periodically evicts expired windows. The goroutine exits
// when ctx is cancelled.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newRateLimiter(cfg)
	go func() {
		t := time.NewTicker(cfg.Window)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				l.sweep()
			}
		}
	}()
	return l.middleware()
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
