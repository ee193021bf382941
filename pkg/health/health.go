package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Checker probes one dependency. A nil return means the dependency is
// reachable.
type Checker func(ctx context.Context) error

// Status is the aggregate or per-check state reported by the handler.
type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

const checkTimeout = 5 * time.Second

// Response is the body of the readiness and liveness endpoints.
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult reports one dependency probe.
type CheckResult struct {
	Status   Status `json:"status"`
	Critical bool   `json:"critical"`
	Error    string `json:"error,omitempty"`
}

type registration struct {
	check    Checker
	critical bool
}

// Handler serves liveness and readiness endpoints over a set of named
// dependency checks. A failing critical check makes the service not
// ready (503); a failing non-critical one only degrades it (200).
type Handler struct {
	mu     sync.RWMutex
	checks map[string]registration
}

// NewHandler creates a handler with no registered checks.
func NewHandler() *Handler {
	return &Handler{checks: make(map[string]registration)}
}

// Register adds a critical dependency check. Registering the same name
// twice replaces the earlier check.
func (h *Handler) Register(name string, check Checker) {
	h.RegisterCritical(name, check)
}

// RegisterCritical adds a check whose failure makes the service unready.
func (h *Handler) RegisterCritical(name string, check Checker) {
	h.add(name, check, true)
}

// RegisterNonCritical adds a check whose failure only degrades the
// service. Kafka is registered this way: the storefront keeps serving
// carts when the broker is down, it just stops emitting events.
func (h *Handler) RegisterNonCritical(name string, check Checker) {
	h.add(name, check, false)
}

func (h *Handler) add(name string, check Checker, critical bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = registration{check: check, critical: critical}
}

// LivenessHandler reports that the process is up. It never probes
// dependencies, so a wedged downstream cannot get the pod restarted.
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, http.StatusOK, Response{
			Status:    StatusUp,
			Timestamp: time.Now().UTC(),
		})
	}
}

// ReadinessHandler probes every registered dependency and aggregates
// the results.
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()

		h.mu.RLock()
		regs := make(map[string]registration, len(h.checks))
		for name, reg := range h.checks {
			regs[name] = reg
		}
		h.mu.RUnlock()

		results := make(map[string]CheckResult, len(regs))
		overall := StatusUp
		httpStatus := http.StatusOK

		for name, reg := range regs {
			result := CheckResult{Status: StatusUp, Critical: reg.critical}
			if err := reg.check(ctx); err != nil {
				result.Status = StatusDown
				result.Error = err.Error()
				if reg.critical {
					overall = StatusDown
					httpStatus = http.StatusServiceUnavailable
				} else if overall == StatusUp {
					overall = StatusDegraded
				}
			}
			results[name] = result
		}

		writeResponse(w, httpStatus, Response{
			Status:    overall,
			Timestamp: time.Now().UTC(),
			Checks:    results,
		})
	}
}

func writeResponse(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
