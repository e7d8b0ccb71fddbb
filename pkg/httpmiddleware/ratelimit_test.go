package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, mutate func(r *http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/restaurants", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func fromAddr(addr string) func(r *http.Request) {
	return func(r *http.Request) { r.RemoteAddr = addr }
}

func TestRateLimit_AllowsUpToMax(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 3, Window: time.Minute})(okHandler())

	for i, want := range []string{"2", "1", "0"} {
		w := serve(h, nil)
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, want, w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimit_RejectsWithJSONBody(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())

	require.Equal(t, http.StatusOK, serve(h, nil).Code)

	w := serve(h, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var (
		code int
		msg  string
	)
	err := jx.DecodeBytes(w.Body.Bytes()).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			code, err = d.Int()
		case "message":
			msg, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "rate limit exceeded", msg)
}

func TestRateLimit_KeysAreIndependent(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())

	assert.Equal(t, http.StatusOK, serve(h, fromAddr("10.0.0.1:1234")).Code)
	assert.Equal(t, http.StatusOK, serve(h, fromAddr("10.0.0.2:1234")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, fromAddr("10.0.0.1:5678")).Code)
}

func TestRateLimit_Skip(t *testing.T) {
	h := RateLimit(RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		Skip:   func(r *http.Request) bool { return r.URL.Path == "/livez" },
	})(okHandler())

	probe := func(r *http.Request) { r.URL.Path = "/livez" }
	for range 3 {
		w := serve(h, probe)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
	assert.Equal(t, http.StatusOK, serve(h, nil).Code)
}

func TestRateLimit_APIKeyOrIP(t *testing.T) {
	h := RateLimit(RateLimitConfig{
		Max:     1,
		Window:  time.Minute,
		KeyFunc: APIKeyOrIP("api_key"),
	})(okHandler())

	withKey := func(key string) func(r *http.Request) {
		return func(r *http.Request) { r.Header.Set("api_key", key) }
	}

	assert.Equal(t, http.StatusOK, serve(h, withKey("alice")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, withKey("alice")).Code)
	// Same address, different customer.
	assert.Equal(t, http.StatusOK, serve(h, withKey("bob")).Code)
	// Anonymous traffic from the same address has its own budget.
	assert.Equal(t, http.StatusOK, serve(h, nil).Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{name: "remote addr", remote: "192.168.1.1:4444", want: "192.168.1.1"},
		{name: "forwarded first hop", header: map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"}, remote: "10.0.0.1:1", want: "203.0.113.50"},
		{name: "real ip", header: map[string]string{"X-Real-IP": "198.51.100.7"}, remote: "10.0.0.1:1", want: "198.51.100.7"},
		{name: "addr without port", remote: "unix", want: "unix"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}

func TestRateLimiter_Evict(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 1, Window: time.Second})
	now := time.Now()
	_, _, ok := rl.allow("a", now)
	require.True(t, ok)

	rl.evict(now.Add(3 * time.Second))
	assert.Empty(t, rl.windows)
}
