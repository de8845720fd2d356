// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/noah-isme/toko-cart/internal/common"
)

const defaultTimeout = 500 * time.Millisecond

// Check is one dependency probed by Ready.
type Check struct {
	Name    string
	Timeout time.Duration
	Ping    func(ctx context.Context, timeout time.Duration) error
}

// Handler exposes /health/live and /health/ready. Ready answers 503 until
// SetReady(true) and again once shutdown starts.
type Handler struct {
	Checks []Check

	ready atomic.Bool
}

// SetReady flips the readiness gate.
func (h *Handler) SetReady(v bool) { h.ready.Store(v) }

// Live reports liveness status.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready probes every check and reports each outcome by name.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.ready.Load() {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "draining"})
		return
	}
	status := make(map[string]string, len(h.Checks)+1)
	healthy := true
	for _, c := range h.Checks {
		if c.Ping == nil {
			continue
		}
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		if err := c.Ping(r.Context(), timeout); err != nil {
			status[c.Name] = err.Error()
			healthy = false
			continue
		}
		status[c.Name] = "ok"
	}
	code := http.StatusOK
	status["status"] = "ok"
	if !healthy {
		code = http.StatusServiceUnavailable
		status["status"] = "degraded"
	}
	common.JSON(w, code, status)
}
