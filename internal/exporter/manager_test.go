package exporter

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeManifest creates an exporter subdirectory with a manifest.
func writeManifest(t *testing.T, dir string, manifest Manifest) string {
	t.Helper()

	expDir := filepath.Join(dir, manifest.Name)
	if err := os.MkdirAll(expDir, 0755); err != nil {
		t.Fatalf("failed to create exporter dir: %v", err)
	}

	data, err := json.Marshal(manifest)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(expDir, "exporter.json"), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	return expDir
}

func TestManager_Discover(t *testing.T) {
	tmpDir := t.TempDir()
	expDir := writeManifest(t, tmpDir, Manifest{
		Name:        "csv-report",
		Version:     "1.0.0",
		Description: "Writes session scores to a CSV file",
		Executable:  "csv-report",
		Formats:     []string{"csv"},
	})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	exporters := manager.List()
	if len(exporters) != 1 {
		t.Fatalf("expected 1 exporter, got %d", len(exporters))
	}

	exp := exporters[0]
	if exp.Manifest.Name != "csv-report" {
		t.Errorf("expected name 'csv-report', got %q", exp.Manifest.Name)
	}
	if exp.Manifest.Version != "1.0.0" {
		t.Errorf("expected version '1.0.0', got %q", exp.Manifest.Version)
	}
	if len(exp.Manifest.Formats) != 1 || exp.Manifest.Formats[0] != "csv" {
		t.Errorf("unexpected formats: %v", exp.Manifest.Formats)
	}
	if exp.Path != expDir {
		t.Errorf("expected path %q, got %q", expDir, exp.Path)
	}
	if exp.Executable != filepath.Join(expDir, "csv-report") {
		t.Errorf("unexpected executable path %q", exp.Executable)
	}
}

func TestManager_Discover_Multiple(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"csv-report", "dashboard-sync"} {
		writeManifest(t, tmpDir, Manifest{
			Name:       name,
			Version:    "1.0.0",
			Executable: name,
		})
	}

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	if got := len(manager.List()); got != 2 {
		t.Fatalf("expected 2 exporters, got %d", got)
	}
}

func TestManager_Discover_EmptyDir(t *testing.T) {
	manager := NewManager(t.TempDir())
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed on empty dir: %v", err)
	}
	if got := len(manager.List()); got != 0 {
		t.Fatalf("expected 0 exporters, got %d", got)
	}
}

func TestManager_Discover_NonExistentDir(t *testing.T) {
	manager := NewManager("/path/that/does/not/exist")
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed on non-existent dir: %v", err)
	}
	if got := len(manager.List()); got != 0 {
		t.Fatalf("expected 0 exporters, got %d", got)
	}
}

func TestManager_Discover_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	badDir := filepath.Join(tmpDir, "bad-exporter")
	if err := os.MkdirAll(badDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(badDir, "exporter.json"), []byte("not valid json"), 0644); err != nil {
		t.Fatal(err)
	}

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed unexpectedly: %v", err)
	}

	// Malformed manifests are skipped
	if got := len(manager.List()); got != 0 {
		t.Fatalf("expected 0 exporters, got %d", got)
	}
}

func TestManager_Get(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, Manifest{
		Name:       "dashboard-sync",
		Version:    "2.0.0",
		Executable: "dashboard-sync-bin",
	})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	exp, err := manager.Get("dashboard-sync")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if exp.Manifest.Version != "2.0.0" {
		t.Errorf("expected version '2.0.0', got %q", exp.Manifest.Version)
	}

	if _, err := manager.Get("nonexistent"); !errors.Is(err, ErrExporterNotFound) {
		t.Errorf("expected ErrExporterNotFound, got %v", err)
	}
}

func TestManager_Dir(t *testing.T) {
	manager := NewManager("/path/to/exporters")
	if manager.Dir() != "/path/to/exporters" {
		t.Errorf("unexpected dir %q", manager.Dir())
	}
}
