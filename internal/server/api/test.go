package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/coacht/internal/app"
	"github.com/ayusman/coacht/internal/session"
)

// TestController is the application surface the test endpoints drive.
type TestController interface {
	StartTest() (string, error)
	StopTest() (*session.Result, error)
	Status() app.Status
}

// TestHandler handles the test lifecycle endpoints.
type TestHandler struct {
	ctrl TestController
}

// NewTestHandler creates a new TestHandler with the given controller.
func NewTestHandler(ctrl TestController) *TestHandler {
	return &TestHandler{ctrl: ctrl}
}

// ServeHTTP routes /api/test/start, /api/test/stop and /api/test/status.
func (h *TestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.TrimPrefix(r.URL.Path, "/api/test/")

	switch action {
	case "start":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.start(w, r)
	case "stop":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.stop(w, r)
	case "status":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, h.ctrl.Status())
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// start handles POST /api/test/start.
func (h *TestHandler) start(w http.ResponseWriter, r *http.Request) {
	id, err := h.ctrl.StartTest()
	if err != nil {
		if errors.Is(err, app.ErrNoReference) {
			writeError(w, http.StatusBadRequest, "No reference media loaded")
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": id})
}

// stop handles POST /api/test/stop and returns the finalized result.
func (h *TestHandler) stop(w http.ResponseWriter, r *http.Request) {
	res, err := h.ctrl.StopTest()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, res)
}
