package httpmiddleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max is the number of requests allowed per window.
	Max int
	// Window is the length of one window.
	Window time.Duration
	// KeyFunc extracts the client key from a request. Defaults to ClientIP.
	KeyFunc func(*http.Request) string
	// Skip exempts matching requests, e.g. health probes.
	Skip func(*http.Request) bool
}

// window tracks request counts of the current and previous fixed windows.
type window struct {
	prevCount float64
	currCount float64
	currStart time.Time
}

type rateLimiter struct {
	cfg RateLimitConfig

	mu      sync.Mutex
	windows map[string]*window
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}
	return &rateLimiter{
		cfg:     cfg,
		windows: make(map[string]*window),
	}
}

// allow counts a request for key. The previous window is weighted by how
// much of it still overlaps the sliding window ending at now.
func (rl *rateLimiter) allow(key string, now time.Time) (remaining int, resetAt time.Time, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, found := rl.windows[key]
	if !found {
		w = &window{currStart: now.Truncate(rl.cfg.Window)}
		rl.windows[key] = w
	}

	if start := now.Truncate(rl.cfg.Window); start.After(w.currStart) {
		if start.Sub(w.currStart) == rl.cfg.Window {
			w.prevCount = w.currCount
		} else {
			w.prevCount = 0
		}
		w.currCount = 0
		w.currStart = start
	}

	overlap := 1 - float64(now.Sub(w.currStart))/float64(rl.cfg.Window)
	effective := w.prevCount*math.Max(overlap, 0) + w.currCount
	resetAt = w.currStart.Add(rl.cfg.Window)

	if effective >= float64(rl.cfg.Max) {
		return 0, resetAt, false
	}
	w.currCount++
	return max(int(float64(rl.cfg.Max)-effective-1), 0), resetAt, true
}

// evict drops keys idle for more than two windows.
func (rl *rateLimiter) evict(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, w := range rl.windows {
		if now.Sub(w.currStart) >= 2*rl.cfg.Window {
			delete(rl.windows, key)
		}
	}
}

func (rl *rateLimiter) runEviction(ctx context.Context) {
	ticker := time.NewTicker(2 * rl.cfg.Window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.evict(now)
		}
	}
}

// RateLimit returns a per-client sliding window rate limiter. Rejected
// requests get 429 with a Retry-After header; every response carries the
// X-RateLimit-* headers.
func RateLimit(cfg RateLimitConfig) Middleware {
	return newRateLimiter(cfg).middleware
}

// RateLimitWithCleanup is RateLimit plus a goroutine evicting idle clients
// until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	rl := newRateLimiter(cfg)
	go rl.runEviction(ctx)
	return rl.middleware
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.cfg.Skip != nil && rl.cfg.Skip(r) {
			next.ServeHTTP(w, r)
			return
		}

		remaining, resetAt, ok := rl.allow(rl.cfg.KeyFunc(r), time.Now())

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Max))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !ok {
			retry := max(time.Until(resetAt), 0)
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP keys requests by client address, preferring the first
// X-Forwarded-For hop, then X-Real-IP, then the connection address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// APIKeyOrIP keys authenticated requests by a digest of their api_key
// header so every customer gets their own budget, and anonymous ones by
// ClientIP.
func APIKeyOrIP(header string) func(*http.Request) string {
	return func(r *http.Request) string {
		key := r.Header.Get(header)
		if key == "" {
			return "ip:" + ClientIP(r)
		}
		sum := sha256.Sum256([]byte(key))
		return "key:" + hex.EncodeToString(sum[:8])
	}
}
