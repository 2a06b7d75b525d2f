package httpapi

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// Pinger checks one backing service.
type Pinger func(ctx context.Context) error

// HealthCheckResponse is the body of /healthz.
type HealthCheckResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Sessions  int               `json:"sessions"`
}

// HealthHandler reports the state of the configured backends.
type HealthHandler struct {
	checks   map[string]Pinger
	sessions func() int
	now      func() time.Time
}

// NewHealthHandler creates a handler. sessions reports the number of live sessions and may be nil.
func NewHealthHandler(sessions func() int) *HealthHandler {
	return &HealthHandler{checks: make(map[string]Pinger), sessions: sessions, now: time.Now}
}

// AddCheck registers a backend under name.
func (h *HealthHandler) AddCheck(name string, p Pinger) {
	h.checks[name] = p
}

func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	services := make(map[string]string, len(h.checks))

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		err := h.checks[name](ctx)
		cancel()
		if err != nil {
			status = "unhealthy"
			services[name] = "unhealthy: " + err.Error()
			continue
		}
		services[name] = "healthy"
	}

	resp := HealthCheckResponse{Status: status, Timestamp: h.now(), Services: services}
	if h.sessions != nil {
		resp.Sessions = h.sessions()
	}

	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}
