// Package server exposes the board over HTTP and websockets.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/handboard/internal/engine"
	"github.com/ayusman/handboard/internal/server/api"
	"github.com/ayusman/handboard/internal/store"
)

// Config holds the server dependencies. Endpoints whose dependency is nil
// are not registered.
type Config struct {
	StaticDir string
	Store     *store.Store
	Events    api.EventPoster
	Hub       *Hub
	Frames    FrameSource
	// Defaults holds the configured value of every tuning key.
	Defaults map[string]float64
}

// Server is the handboard HTTP server.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Events != nil {
		s.mux.Handle("/api/pointer", NewPointerHandler(s.config.Events))
	}

	if s.config.Hub != nil {
		s.mux.Handle("/api/board", s.config.Hub)
		s.mux.HandleFunc("/api/routes", s.handleRoutes)
	}

	if s.config.Store != nil && s.config.Events != nil {
		settings := api.NewSettingsHandler(s.config.Store, s.config.Events, s.config.Defaults)
		s.mux.Handle("/api/settings", settings)
		s.mux.Handle("/api/settings/", settings)
	}

	if s.config.Frames != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Frames))
	}

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

type routesResponse struct {
	Routes []engine.RouteSummary `json:"routes"`
	Mode   string                `json:"mode"`
}

// handleRoutes serves GET /api/routes from the latest snapshot. Routes are
// read-only here; they are removed only by erasing.
func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		resp := routesResponse{Routes: []engine.RouteSummary{}, Mode: engine.ModeIdle.String()}
		if snap, ok := s.config.Hub.Latest(); ok {
			resp.Routes = snap.Routes
			resp.Mode = snap.Mode
		}
		writeJSON(w, http.StatusOK, resp)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// Handler wraps s in an *http.Server for graceful shutdown.
func (s *Server) Handler(addr string) *http.Server {
	return &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}
}
