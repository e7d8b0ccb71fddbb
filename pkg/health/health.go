// Package health serves Kubernetes-style liveness and readiness probes.
//
// Every registered check runs in its own goroutine. A check flips to
// unhealthy only after FailureThreshold consecutive failures and back after
// SuccessThreshold consecutive successes, so a single slow ping does not
// take the storefront out of rotation.
package health

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
)

// CheckFunc returns nil when the checked dependency is healthy.
type CheckFunc func(ctx context.Context) error

// CheckOption tunes a registered check.
type CheckOption func(*check)

// WithThresholds overrides the default failure (3) and success (1)
// thresholds.
func WithThresholds(failure, success int) CheckOption {
	return func(c *check) {
		c.failureThreshold = max(failure, 1)
		c.successThreshold = max(success, 1)
	}
}

// check is run from a single goroutine; only healthy and lastErr are read
// concurrently.
type check struct {
	name             string
	timeout          time.Duration
	fn               CheckFunc
	failureThreshold int
	successThreshold int

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails, oks int
}

func newCheck(name string, timeout time.Duration, fn CheckFunc, opts []CheckOption) *check {
	c := &check{
		name:             name,
		timeout:          timeout,
		fn:               fn,
		failureThreshold: 3,
		successThreshold: 1,
	}
	for _, o := range opts {
		o(c)
	}
	c.healthy.Store(true)
	return c
}

func (c *check) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(ctx)
	c.lastErr.Store(&err)

	if err != nil {
		c.oks = 0
		c.fails++
		if c.fails >= c.failureThreshold {
			c.healthy.Store(false)
		}
		return
	}
	c.fails = 0
	c.oks++
	if c.oks >= c.successThreshold {
		c.healthy.Store(true)
	}
}

func (c *check) failure() (string, bool) {
	if c.healthy.Load() {
		return "", false
	}
	if p := c.lastErr.Load(); p != nil && *p != nil {
		return (*p).Error(), true
	}
	return "check is unhealthy", true
}

// Health tracks liveness and readiness checks of the service.
type Health struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*check
	readiness []*check
	cancel    context.CancelFunc
}

// New returns a Health that reports not ready until SetReady(true).
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check that decides whether the process
// should be restarted.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc, opts ...CheckOption) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newCheck(name, timeout, fn, opts))
}

// AddReadinessCheck registers a check that decides whether the service
// should receive traffic, e.g. database or Redis reachability.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc, opts ...CheckOption) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newCheck(name, timeout, fn, opts))
}

// Start runs every registered check now and then at interval until Stop
// is called or ctx is done.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	checks := slices.Concat(h.liveness, h.readiness)
	h.mu.Unlock()

	for _, c := range checks {
		go loop(ctx, c, interval)
	}
}

func loop(ctx context.Context, c *check, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.run(ctx)
		}
	}
}

// Stop cancels the check goroutines. It is safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady marks the service ready after start-up or not ready when
// draining.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// check passes.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.readiness {
		if !c.healthy.Load() {
			return false
		}
	}
	return true
}

func (h *Health) snapshot(readiness bool) []*check {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if readiness {
		return slices.Clone(h.readiness)
	}
	return slices.Clone(h.liveness)
}

// LiveEndpoint serves /livez: 200 {"status":"ok"} or 503 with the failing
// checks.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, failures(h.snapshot(false)))
}

// ReadyEndpoint serves /readyz: 200 only when marked ready and every
// readiness check passes.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failed := failures(h.snapshot(true))
	if !h.ready.Load() {
		failed = append(failed, failedCheck{name: "_readiness", reason: "service is not ready"})
	}
	writeStatus(w, failed)
}

type failedCheck struct {
	name, reason string
}

func failures(checks []*check) []failedCheck {
	var out []failedCheck
	for _, c := range checks {
		if reason, failed := c.failure(); failed {
			out = append(out, failedCheck{name: c.name, reason: reason})
		}
	}
	return out
}

func writeStatus(w http.ResponseWriter, failed []failedCheck) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("status")
	status := http.StatusOK
	if len(failed) == 0 {
		e.Str("ok")
	} else {
		status = http.StatusServiceUnavailable
		e.Str("unhealthy")
		e.FieldStart("checks")
		e.ObjStart()
		for _, f := range failed {
			e.FieldStart(f.name)
			e.Str(f.reason)
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
