// Package server provides the HTTP surface of the CoachT training system.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/coacht/internal/app"
	"github.com/ayusman/coacht/internal/server/api"
	"github.com/ayusman/coacht/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       *app.App
	Logger    *zap.Logger
}

// Server is the HTTP server for the CoachT application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	scores *ScoresHandler
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		sessionHandler := api.NewSessionHandler(s.config.Store)
		s.mux.Handle("/api/sessions", sessionHandler)
		s.mux.Handle("/api/sessions/", sessionHandler)
	}

	if s.config.App != nil {
		testHandler := api.NewTestHandler(s.config.App)
		s.mux.Handle("/api/test/", testHandler)

		poseHandler := api.NewPoseHandler(s.config.App.Library(), s.config.Store)
		s.mux.Handle("/api/poses", poseHandler)
		s.mux.Handle("/api/poses/", poseHandler)

		s.mux.Handle("/api/stream", NewStreamHandler(s.config.App.Camera()))

		// Live frame scores and the framing check ride a websocket fed
		// by the pipeline
		s.scores = NewScoresHandler(s.config.Logger)
		s.config.App.OnFrame(func(u app.FrameUpdate) {
			s.scores.Publish(u)
		})
		s.mux.Handle("/api/scores", s.scores)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
