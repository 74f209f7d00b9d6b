// Package health serves liveness and readiness probes.
//
// Every check runs in its own goroutine on a fixed interval. A check flips to
// unhealthy after FailureThreshold consecutive failures and back to healthy
// after SuccessThreshold consecutive successes.
package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

// Kind tells which probe a check contributes to.
type Kind int

const (
	Liveness Kind = iota
	Readiness
)

// Thresholds control how many consecutive results flip a check.
type Thresholds struct {
	Failure int
	Success int
}

// DefaultThresholds are applied by New.
var DefaultThresholds = Thresholds{Failure: 3, Success: 1}

type check struct {
	name    string
	kind    Kind
	timeout time.Duration
	fn      CheckFunc

	healthy atomic.Bool
	lastErr atomic.Pointer[string]

	// Touched only by the goroutine driving run.
	fails, oks int
}

func (c *check) run(ctx context.Context, th Thresholds) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.fn(ctx); err != nil {
		msg := err.Error()
		c.lastErr.Store(&msg)
		c.oks = 0
		c.fails++
		if c.fails >= th.Failure {
			c.healthy.Store(false)
		}
		return
	}
	c.lastErr.Store(nil)
	c.fails = 0
	c.oks++
	if c.oks >= th.Success {
		c.healthy.Store(true)
	}
}

// failure returns the reason the check is unhealthy, or "" when it is healthy.
func (c *check) failure() string {
	if c.healthy.Load() {
		return ""
	}
	if msg := c.lastErr.Load(); msg != nil {
		return *msg
	}
	return "check is unhealthy"
}

// Health aggregates liveness and readiness checks. It starts not ready; call
// SetReady(true) once initialization completes.
type Health struct {
	thresholds Thresholds
	ready      atomic.Bool

	mu     sync.RWMutex
	checks []*check
	cancel context.CancelFunc
}

// Option configures Health.
type Option func(*Health)

// WithThresholds overrides DefaultThresholds.
func WithThresholds(th Thresholds) Option {
	return func(h *Health) {
		h.thresholds = th
	}
}

// New creates a Health instance.
func New(opts ...Option) *Health {
	h := &Health{thresholds: DefaultThresholds}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Add registers a check. Checks start healthy.
func (h *Health) Add(kind Kind, name string, timeout time.Duration, fn CheckFunc) {
	c := &check{name: name, kind: kind, timeout: timeout, fn: fn}
	c.healthy.Store(true)

	h.mu.Lock()
	h.checks = append(h.checks, c)
	h.mu.Unlock()
}

// Start runs every registered check immediately and then on each interval
// until Stop is called or ctx is done.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	checks := append([]*check(nil), h.checks...)
	h.mu.Unlock()

	for _, c := range checks {
		go h.loop(ctx, c, interval)
	}
}

func (h *Health) loop(ctx context.Context, c *check, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		c.run(ctx, h.thresholds)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop cancels the background checks. It is safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness gate, typically to false at the start
// of graceful shutdown.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the gate is open and all readiness checks pass.
func (h *Health) IsReady() bool {
	return h.ready.Load() && len(h.failures(Readiness)) == 0
}

func (h *Health) failures(kind Kind) map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]string)
	for _, c := range h.checks {
		if c.kind != kind {
			continue
		}
		if msg := c.failure(); msg != "" {
			out[c.name] = msg
		}
	}
	return out
}

// statusResponse is the JSON body of both probes.
type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Routes mounts /livez and /readyz.
func (h *Health) Routes(r gin.IRouter) {
	r.GET("/livez", h.Live)
	r.GET("/readyz", h.Ready)
}

// Live answers 200 while every liveness check passes and 503 otherwise.
func (h *Health) Live(c *gin.Context) {
	respond(c, h.failures(Liveness))
}

// Ready answers 200 when the service is marked ready and every readiness
// check passes, 503 with the failing checks otherwise.
func (h *Health) Ready(c *gin.Context) {
	failures := h.failures(Readiness)
	if !h.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	respond(c, failures)
}

func respond(c *gin.Context, failures map[string]string) {
	if len(failures) == 0 {
		c.JSON(http.StatusOK, statusResponse{Status: "ok"})
		return
	}
	c.JSON(http.StatusServiceUnavailable, statusResponse{Status: "unhealthy", Checks: failures})
}
