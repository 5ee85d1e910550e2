package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ayusman/coacht/internal/library"
	"github.com/ayusman/coacht/internal/store"
)

// PoseHandler handles the pose signature endpoints.
type PoseHandler struct {
	lib   *library.Library
	store *store.Store
}

// NewPoseHandler creates a new PoseHandler. The store may be nil, in
// which case trained signatures are kept in memory only.
func NewPoseHandler(lib *library.Library, s *store.Store) *PoseHandler {
	return &PoseHandler{lib: lib, store: s}
}

// ServeHTTP routes /api/poses, /api/poses/{name} and
// /api/poses/{name}/train.
func (h *PoseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/poses")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"poses": h.lib.Names()})
		return
	}

	name, sub, _ := strings.Cut(path, "/")
	switch sub {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.get(w, r, name)
	case "train":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.train(w, r, name)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

type trainPoseRequest struct {
	Profiles []map[string]float64 `json:"profiles"`
}

type signatureResponse struct {
	Name       string             `json:"name"`
	Values     map[string]float64 `json:"values"`
	Tolerances library.Tolerances `json:"tolerances"`
}

// get handles GET /api/poses/{name}.
func (h *PoseHandler) get(w http.ResponseWriter, r *http.Request, name string) {
	sig, ok := h.lib.Signature(name)
	if !ok {
		writeError(w, http.StatusNotFound, "Pose not found")
		return
	}

	writeJSON(w, http.StatusOK, signatureResponse{
		Name:       name,
		Values:     sig.Values,
		Tolerances: sig.Tolerances,
	})
}

// train handles POST /api/poses/{name}/train. The averaged signature is
// installed in the library and persisted when a store is configured.
func (h *PoseHandler) train(w http.ResponseWriter, r *http.Request, name string) {
	var req trainPoseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Profiles) == 0 {
		writeError(w, http.StatusBadRequest, "At least one profile is required")
		return
	}

	if err := h.lib.Train(name, req.Profiles); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sig, _ := h.lib.Signature(name)
	if h.store != nil {
		if err := h.store.Signatures().Put(name, sig); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to persist signature")
			return
		}
	}

	writeJSON(w, http.StatusOK, signatureResponse{
		Name:       name,
		Values:     sig.Values,
		Tolerances: sig.Tolerances,
	})
}
