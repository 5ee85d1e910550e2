package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/coacht/internal/app"
	"github.com/ayusman/coacht/internal/capture"
	"github.com/ayusman/coacht/internal/detector"
	"github.com/ayusman/coacht/internal/library"
	"github.com/ayusman/coacht/internal/server"
	"github.com/ayusman/coacht/internal/store"
)

// newApplication wires a store, an app with a mock detector and a mock
// reference source, and an HTTP server around them.
func newApplication(t *testing.T) (*app.App, *store.Store, *httptest.Server) {
	t.Helper()

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	a := app.New(app.Config{
		Store:       s,
		ExporterDir: filepath.Join(tmpDir, "exporters"),
	})
	a.SetDetector(detector.NewMockDetector())

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })
	a.SetReference(capture.NewMockCamera([]*gocv.Mat{&frame}, true), "front_kick_drill")

	srv := server.New(server.Config{Store: s, App: a})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return a, s, ts
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	_, s, ts := newApplication(t)
	client := ts.Client()

	var sessionID string

	t.Run("TrainPose", func(t *testing.T) {
		body := `{"profiles": [` +
			`{"leftKneeAngle": 100, "stanceWidth": 80},` +
			`{"leftKneeAngle": 110, "stanceWidth": 100}]}`

		resp, err := client.Post(
			ts.URL+"/api/poses/low_stance/train",
			"application/json",
			strings.NewReader(body),
		)
		if err != nil {
			t.Fatalf("train pose error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var trained struct {
			Name   string             `json:"name"`
			Values map[string]float64 `json:"values"`
		}
		json.NewDecoder(resp.Body).Decode(&trained)

		if trained.Values[library.LeftKneeAngle] != 105 {
			t.Errorf("averaged knee angle = %v, want 105", trained.Values[library.LeftKneeAngle])
		}
	})

	t.Run("TrainedPosePersisted", func(t *testing.T) {
		sig, err := s.Signatures().Get("low_stance")
		if err != nil {
			t.Fatalf("trained pose not persisted: %v", err)
		}
		if sig.Values[library.StanceWidth] != 90 {
			t.Errorf("persisted stance width = %v, want 90", sig.Values[library.StanceWidth])
		}
	})

	t.Run("StartTest", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/test/start", "application/json", nil)
		if err != nil {
			t.Fatalf("start test error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
		}

		var started struct {
			SessionID string `json:"sessionId"`
		}
		json.NewDecoder(resp.Body).Decode(&started)
		if started.SessionID == "" {
			t.Fatal("start returned empty session id")
		}
		sessionID = started.SessionID
	})

	t.Run("StatusRunning", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/test/status")
		if err != nil {
			t.Fatalf("status error = %v", err)
		}
		defer resp.Body.Close()

		var status struct {
			State         string `json:"state"`
			SessionID     string `json:"sessionId"`
			ReferenceName string `json:"referenceName"`
		}
		json.NewDecoder(resp.Body).Decode(&status)

		if status.State != "running" {
			t.Errorf("state = %q, want running", status.State)
		}
		if status.SessionID != sessionID {
			t.Errorf("session id = %q, want %q", status.SessionID, sessionID)
		}
		if status.ReferenceName != "front_kick_drill" {
			t.Errorf("reference name = %q, want front_kick_drill", status.ReferenceName)
		}
	})

	t.Run("StopTest", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/test/stop", "application/json", nil)
		if err != nil {
			t.Fatalf("stop test error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var result struct {
			ID           string `json:"id"`
			OverallScore int    `json:"overallScore"`
			Feedback     string `json:"feedback"`
		}
		json.NewDecoder(resp.Body).Decode(&result)

		if result.ID != sessionID {
			t.Errorf("result id = %q, want %q", result.ID, sessionID)
		}
		// No frames were scored during the short run
		if !strings.Contains(result.Feedback, "Not enough pose data") {
			t.Errorf("unexpected feedback %q", result.Feedback)
		}
	})

	t.Run("SessionListed", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/sessions")
		if err != nil {
			t.Fatalf("list sessions error = %v", err)
		}
		defer resp.Body.Close()

		var listed struct {
			Sessions []struct {
				ID            string `json:"id"`
				ReferenceName string `json:"referenceName"`
			} `json:"sessions"`
		}
		json.NewDecoder(resp.Body).Decode(&listed)

		if len(listed.Sessions) != 1 {
			t.Fatalf("sessions = %d, want 1", len(listed.Sessions))
		}
		if listed.Sessions[0].ID != sessionID {
			t.Errorf("listed id = %q, want %q", listed.Sessions[0].ID, sessionID)
		}
		if listed.Sessions[0].ReferenceName != "front_kick_drill" {
			t.Errorf("listed reference = %q", listed.Sessions[0].ReferenceName)
		}
	})

	t.Run("SessionFetchable", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/sessions/" + sessionID)
		if err != nil {
			t.Fatalf("get session error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
	})

	t.Run("APIStillWorks", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/health")
		if err != nil {
			t.Fatalf("health check error = %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("health check failed after test run")
		}
		resp.Body.Close()
	})
}

func TestE2E_ExporterRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("shell script exporters are not supported on windows")
	}

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	expDir := filepath.Join(tmpDir, "exporters", "dump")
	if err := os.MkdirAll(expDir, 0755); err != nil {
		t.Fatalf("mkdir error = %v", err)
	}

	manifest := `{"name": "dump", "version": "1.0.0", "executable": "dump.sh"}`
	if err := os.WriteFile(filepath.Join(expDir, "exporter.json"), []byte(manifest), 0644); err != nil {
		t.Fatalf("write manifest error = %v", err)
	}
	script := "#!/bin/sh\ncat > received.json\necho '{\"success\":true}'\n"
	if err := os.WriteFile(filepath.Join(expDir, "dump.sh"), []byte(script), 0755); err != nil {
		t.Fatalf("write script error = %v", err)
	}

	a := app.New(app.Config{
		Store:       s,
		ExporterDir: filepath.Join(tmpDir, "exporters"),
	})
	a.SetDetector(detector.NewMockDetector())

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()
	a.SetReference(capture.NewMockCamera([]*gocv.Mat{&frame}, true), "front_kick_drill")

	if err := a.DiscoverExporters(); err != nil {
		t.Fatalf("DiscoverExporters() error = %v", err)
	}

	id, err := a.StartTest()
	if err != nil {
		t.Fatalf("StartTest() error = %v", err)
	}
	if _, err := a.StopTest(); err != nil {
		t.Fatalf("StopTest() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(expDir, "received.json"))
	if err != nil {
		t.Fatalf("exporter did not receive the result: %v", err)
	}

	var req struct {
		Event     string `json:"event"`
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		t.Fatalf("exporter received invalid JSON: %v", err)
	}
	if req.Event != "test_completed" {
		t.Errorf("event = %q, want test_completed", req.Event)
	}
	if req.SessionID != id {
		t.Errorf("session id = %q, want %q", req.SessionID, id)
	}
}
