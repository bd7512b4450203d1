package healthprobe

import (
	"net/http"
	"sort"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// HealthChecker provides liveness and readiness checks. Readiness is
// tracked per component so a venue feed reconnecting does not flip the
// whole process unhealthy.
type HealthChecker struct {
	startTime time.Time

	mu    sync.RWMutex
	comps map[string]bool
}

// New creates a HealthChecker expecting the named components to report
// ready. With no components the process is ready immediately.
func New(components ...string) *HealthChecker {
	comps := make(map[string]bool, len(components))
	for _, c := range components {
		comps[c] = false
	}
	return &HealthChecker{
		startTime: time.Now(),
		comps:     comps,
	}
}

// SetReady marks one component's readiness. Unknown components are
// registered on first report.
func (h *HealthChecker) SetReady(component string, ready bool) {
	h.mu.Lock()
	h.comps[component] = ready
	h.mu.Unlock()
}

// IsReady reports whether every registered component is ready.
func (h *HealthChecker) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ready := range h.comps {
		if !ready {
			return false
		}
	}
	return true
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string          `json:"status"`
	Uptime  string          `json:"uptime"`
	Waiting []string        `json:"waiting,omitempty"`
	Message string          `json:"message,omitempty"`
	Detail  map[string]bool `json:"components,omitempty"`
}

// Health returns an HTTP handler for liveness checks.
// Always returns 200 OK if the application is running.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status: "healthy",
			Uptime: time.Since(h.startTime).String(),
		})
	}
}

// Ready returns an HTTP handler for readiness checks.
// Returns 200 OK when every component is ready, 503 otherwise.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mu.RLock()
		detail := make(map[string]bool, len(h.comps))
		var waiting []string
		for c, ready := range h.comps {
			detail[c] = ready
			if !ready {
				waiting = append(waiting, c)
			}
		}
		h.mu.RUnlock()
		sort.Strings(waiting)

		if len(waiting) > 0 {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status:  "not_ready",
				Message: "components are starting",
				Waiting: waiting,
				Detail:  detail,
			})
			return
		}

		writeJSON(w, http.StatusOK, HealthResponse{
			Status: "ready",
			Uptime: time.Since(h.startTime).String(),
			Detail: detail,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, resp HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
