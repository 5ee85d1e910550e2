// Package api provides HTTP API handlers for the CoachT training system.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/coacht/internal/store"
)

// SessionHandler handles HTTP requests for stored test sessions.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a new SessionHandler with the given store.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

// ServeHTTP routes requests to the appropriate method.
// Expected paths: /api/sessions, /api/sessions/{id},
// /api/sessions/{id}/joints and /api/sessions/{id}/angles.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	id, sub, _ := strings.Cut(path, "/")
	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "joints":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.joints(w, r, id)
	case "angles":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.angles(w, r, id)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// Request and response types

type sessionResponse struct {
	ID            string `json:"id"`
	ReferenceName string `json:"referenceName"`
	StartedAt     int64  `json:"startedAt"`
	StoppedAt     int64  `json:"stoppedAt"`
	OverallScore  int    `json:"overallScore"`
	DTWScore      int    `json:"dtwScore"`
	FrameScore    int    `json:"frameScore"`
	Feedback      string `json:"feedback"`
	CreatedAt     string `json:"created_at"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type jointResultResponse struct {
	Joint      string  `json:"joint"`
	DTWScore   int     `json:"dtwScore"`
	DTWCost    float64 `json:"dtwCost"`
	FrameScore int     `json:"frameScore"`
	Severity   string  `json:"severity"`
}

type angleSampleResponse struct {
	Joint    string `json:"joint"`
	Sequence int    `json:"sequence"`
	Angle    int    `json:"angle"`
	Elapsed  string `json:"elapsed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// toResponse converts a store.Session to a sessionResponse.
func toResponse(s *store.Session) sessionResponse {
	return sessionResponse{
		ID:            s.ID,
		ReferenceName: s.ReferenceName,
		StartedAt:     s.StartedAt,
		StoppedAt:     s.StoppedAt,
		OverallScore:  s.OverallScore,
		DTWScore:      s.DTWScore,
		FrameScore:    s.FrameScore,
		Feedback:      s.Feedback,
		CreatedAt:     s.CreatedAt.Format(time.RFC3339),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/sessions and returns all stored sessions.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(sessions)),
	}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toResponse(s))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/sessions/{id}.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(sess))
}

// delete handles DELETE /api/sessions/{id}.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// joints handles GET /api/sessions/{id}/joints.
func (h *SessionHandler) joints(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.store.Sessions().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	results, err := h.store.Sessions().JointResults(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load joint results")
		return
	}

	response := make([]jointResultResponse, 0, len(results))
	for _, jr := range results {
		response = append(response, jointResultResponse{
			Joint:      jr.Joint,
			DTWScore:   jr.DTWScore,
			DTWCost:    jr.DTWCost,
			FrameScore: jr.FrameScore,
			Severity:   jr.Severity,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"joints": response})
}

// angles handles GET /api/sessions/{id}/angles?stream=user|instructor.
func (h *SessionHandler) angles(w http.ResponseWriter, r *http.Request, id string) {
	stream := r.URL.Query().Get("stream")
	if stream == "" {
		stream = store.StreamUser
	}
	if stream != store.StreamUser && stream != store.StreamInstructor {
		writeError(w, http.StatusBadRequest, "Invalid stream")
		return
	}

	if _, err := h.store.Sessions().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	samples, err := h.store.Sessions().AngleSamples(id, stream)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load angle samples")
		return
	}

	response := make([]angleSampleResponse, 0, len(samples))
	for _, as := range samples {
		response = append(response, angleSampleResponse{
			Joint:    as.Joint,
			Sequence: as.Sequence,
			Angle:    as.Angle,
			Elapsed:  as.Elapsed,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stream":  stream,
		"samples": response,
	})
}
