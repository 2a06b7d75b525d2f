package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const (
	framesPath   = "/api/v1/rppg/frames"
	framePath    = "/api/v1/rppg/frame"
	sessionsPath = "/api/v1/rppg/sessions/"
)

// Router uses the standard http.ServeMux.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler registers an http.Handler such as the websocket hub.
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterFrameRoutes registers the submission and query routes.
func (r *Router) RegisterFrameRoutes(h *FrameHandler) {
	r.Handle(framesPath, func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.SubmitBatch(w, req)
	})

	r.Handle(framePath, func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.SubmitFrame(w, req)
	})

	// sessions/{id} and sessions/{id}/latest
	r.Handle(sessionsPath, func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, sessionsPath)
		id, tail, _ := strings.Cut(rest, "/")
		if id == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch {
		case tail == "latest" && req.Method == http.MethodGet:
			h.GetLatest(w, req, id)
		case tail == "" && req.Method == http.MethodDelete:
			h.EndSession(w, req, id)
		case tail == "latest" || tail == "":
			w.WriteHeader(http.StatusMethodNotAllowed)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

// RegisterLiveRoutes exposes live estimates over websocket.
func (r *Router) RegisterLiveRoutes(hub http.Handler) {
	r.HandleHandler("/ws", hub)
}

// RegisterHealthRoutes registers the liveness probe.
func (r *Router) RegisterHealthRoutes(h *HealthHandler) {
	r.Handle("/health", h.HealthCheck)
	r.Handle("/healthz", h.HealthCheck)
}
