package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ayusman/coacht/internal/library"
)

// newTestStore creates a Store backed by a throwaway database file.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func testSession() *Session {
	return &Session{
		ID:            "sess-1",
		ReferenceName: "front_kick_drill",
		StartedAt:     10_000,
		StoppedAt:     25_000,
		OverallScore:  78,
		DTWScore:      80,
		FrameScore:    72,
		Feedback:      "Test completed. Overall Score: 78%. DTW Score: 80%. Frame Score: 72%.",
	}
}

func TestSessionRepository_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	if err := repo.Create(testSession()); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	got, err := repo.GetByID("sess-1")
	if err != nil {
		t.Fatalf("failed to get session: %v", err)
	}
	if got.OverallScore != 78 || got.ReferenceName != "front_kick_drill" {
		t.Errorf("unexpected session: %+v", got)
	}
	if got.StartedAt != 10_000 || got.StoppedAt != 25_000 {
		t.Errorf("unexpected times: started %d stopped %d", got.StartedAt, got.StoppedAt)
	}
}

func TestSessionRepository_GetMissing(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Sessions().GetByID("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	first := testSession()
	second := testSession()
	second.ID = "sess-2"

	if err := repo.Create(first); err != nil {
		t.Fatal(err)
	}
	if err := repo.Create(second); err != nil {
		t.Fatal(err)
	}

	sessions, err := repo.List()
	if err != nil {
		t.Fatalf("failed to list sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(sessions))
	}
}

func TestSessionRepository_Delete(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	if err := repo.Create(testSession()); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete("sess-1"); err != nil {
		t.Fatalf("failed to delete session: %v", err)
	}
	if _, err := repo.GetByID("sess-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete("sess-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestSessionRepository_JointResults(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	if err := repo.Create(testSession()); err != nil {
		t.Fatal(err)
	}

	results := []JointResult{
		{SessionID: "sess-1", Joint: "left_elbow", DTWScore: 83, DTWCost: 360, FrameScore: 5, Severity: "bad"},
		{SessionID: "sess-1", Joint: "left_knee", DTWScore: 95, DTWCost: 40, FrameScore: 88, Severity: "good"},
	}
	if err := repo.SaveJointResults("sess-1", results); err != nil {
		t.Fatalf("failed to save joint results: %v", err)
	}

	got, err := repo.JointResults("sess-1")
	if err != nil {
		t.Fatalf("failed to load joint results: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 joint results, got %d", len(got))
	}
	if got[0].Joint != "left_elbow" || got[0].DTWCost != 360 {
		t.Errorf("unexpected first result: %+v", got[0])
	}
}

func TestSessionRepository_AngleSamples(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	if err := repo.Create(testSession()); err != nil {
		t.Fatal(err)
	}

	samples := []AngleSample{
		{SessionID: "sess-1", Stream: StreamUser, Joint: "left_knee", Sequence: 0, Angle: 120, Elapsed: "00:00.000"},
		{SessionID: "sess-1", Stream: StreamUser, Joint: "left_knee", Sequence: 1, Angle: 125, Elapsed: "00:00.100"},
		{SessionID: "sess-1", Stream: StreamInstructor, Joint: "left_knee", Sequence: 0, Angle: 118, Elapsed: "00:00.000"},
	}
	if err := repo.SaveAngleSamples("sess-1", samples); err != nil {
		t.Fatalf("failed to save angle samples: %v", err)
	}

	user, err := repo.AngleSamples("sess-1", StreamUser)
	if err != nil {
		t.Fatalf("failed to load angle samples: %v", err)
	}
	if len(user) != 2 {
		t.Fatalf("expected 2 user samples, got %d", len(user))
	}
	if user[1].Angle != 125 || user[1].Elapsed != "00:00.100" {
		t.Errorf("unexpected second sample: %+v", user[1])
	}

	instructor, err := repo.AngleSamples("sess-1", StreamInstructor)
	if err != nil {
		t.Fatal(err)
	}
	if len(instructor) != 1 {
		t.Errorf("expected 1 instructor sample, got %d", len(instructor))
	}
}

func TestSessionRepository_CascadeDelete(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	if err := repo.Create(testSession()); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveJointResults("sess-1", []JointResult{
		{SessionID: "sess-1", Joint: "left_elbow", DTWScore: 80},
	}); err != nil {
		t.Fatal(err)
	}

	if err := repo.Delete("sess-1"); err != nil {
		t.Fatal(err)
	}

	results, err := repo.JointResults("sess-1")
	if err != nil {
		t.Fatalf("failed to query joint results: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected joint results cascaded away, got %d", len(results))
	}
}

func TestSignatureRepository_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	repo := s.Signatures()

	sig := library.Signature{
		Values:     map[string]float64{library.LeftKneeAngle: 120, library.StanceWidth: 90},
		Tolerances: library.Tolerances{Angle: 25, Height: 30, Stance: 40},
	}
	if err := repo.Put("wide_stance", sig); err != nil {
		t.Fatalf("failed to put signature: %v", err)
	}

	got, err := repo.Get("wide_stance")
	if err != nil {
		t.Fatalf("failed to get signature: %v", err)
	}
	if got.Values[library.LeftKneeAngle] != 120 || got.Tolerances.Stance != 40 {
		t.Errorf("unexpected signature: %+v", got)
	}

	// Replacing updates in place.
	sig.Values[library.LeftKneeAngle] = 110
	if err := repo.Put("wide_stance", sig); err != nil {
		t.Fatal(err)
	}
	got, err = repo.Get("wide_stance")
	if err != nil {
		t.Fatal(err)
	}
	if got.Values[library.LeftKneeAngle] != 110 {
		t.Errorf("expected updated value 110, got %v", got.Values[library.LeftKneeAngle])
	}
}

func TestSignatureRepository_GetMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Signatures().Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSignatureRepository_LoadInto(t *testing.T) {
	s := newTestStore(t)
	repo := s.Signatures()

	custom := library.Signature{
		Values:     map[string]float64{library.LeftElbowAngle: 45},
		Tolerances: library.Tolerances{Angle: 15, Height: 20, Stance: 20},
	}
	if err := repo.Put("crane_guard", custom); err != nil {
		t.Fatal(err)
	}

	lib := library.Default()
	builtins := len(lib.Names())

	if err := repo.LoadInto(lib); err != nil {
		t.Fatalf("failed to load signatures: %v", err)
	}

	if len(lib.Names()) != builtins+1 {
		t.Errorf("expected %d signatures after load, got %d", builtins+1, len(lib.Names()))
	}
	if _, ok := lib.Signature("crane_guard"); !ok {
		t.Error("expected stored signature present in library")
	}
}

func TestSettingsRepository_SetAndGet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	if err := repo.Set("reference_path", "/media/front_kick.mp4"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := repo.Get("reference_path")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "/media/front_kick.mp4" {
		t.Errorf("Get() = %q, want /media/front_kick.mp4", got)
	}

	// Setting the same key overwrites
	if err := repo.Set("reference_path", "/media/kata.mp4"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	got, _ = repo.Get("reference_path")
	if got != "/media/kata.mp4" {
		t.Errorf("Get() after overwrite = %q, want /media/kata.mp4", got)
	}
}

func TestSettingsRepository_GetMissing(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Settings().Get("nonexistent"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSettingsRepository_Delete(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	if err := repo.Set("camera_id", "1"); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete("camera_id"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.Get("camera_id"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting a missing key is not an error
	if err := repo.Delete("camera_id"); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
}
