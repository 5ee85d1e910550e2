package session

import (
	"math"
	"testing"

	"github.com/ayusman/coacht/internal/pose"
)

// armPose builds a pose containing a left arm whose elbow forms the given
// interior angle.
func armPose(elbowAngle float64) pose.Pose {
	rad := elbowAngle * math.Pi / 180
	return pose.Pose{
		Keypoints: []pose.Keypoint{
			{Name: pose.LeftShoulder, X: 0.5, Y: 0.2, Score: 0.9},
			{Name: pose.LeftElbow, X: 0.5, Y: 0.4, Score: 0.9},
			{Name: pose.LeftWrist, X: 0.5 + 0.2*math.Sin(rad), Y: 0.4 - 0.2*math.Cos(rad), Score: 0.9},
		},
	}
}

// newTestSession returns a session whose clock always reads base.
func newTestSession(base int64) *Session {
	cfg := DefaultConfig()
	cfg.Now = func() int64 { return base }
	return New(cfg)
}

func TestSession_Lifecycle(t *testing.T) {
	s := newTestSession(10_000)

	if s.State() != StateIdle {
		t.Fatalf("expected idle state, got %s", s.State())
	}

	if err := s.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if s.State() != StateRunning {
		t.Errorf("expected running state, got %s", s.State())
	}
	if s.ID() == "" {
		t.Error("expected a session id after start")
	}
	if err := s.Start(); err == nil {
		t.Error("expected error starting an already running test")
	}

	if _, err := s.Stop(); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
	if s.State() != StateComplete {
		t.Errorf("expected complete state, got %s", s.State())
	}

	// A new start discards the old result.
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected restart error: %v", err)
	}
	if _, ok := s.Result(); ok {
		t.Error("expected previous result discarded on restart")
	}
}

func TestSession_StopIdle(t *testing.T) {
	s := newTestSession(10_000)
	if _, err := s.Stop(); err == nil {
		t.Error("expected error stopping an idle session")
	}
}

func TestSession_StopIsIdempotent(t *testing.T) {
	s := newTestSession(10_000)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}

	first, err := s.Stop()
	if err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
	second, err := s.Stop()
	if err != nil {
		t.Fatalf("unexpected second stop error: %v", err)
	}
	if first != second {
		t.Error("expected the second stop to return the same result")
	}
}

func TestSession_GracePeriod(t *testing.T) {
	const base = 10_000
	s := newTestSession(base)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}

	p := armPose(90)

	// Inside the grace period: logged but not scored.
	if _, ok := s.RecordFrame(p, p, base+500); ok {
		t.Error("expected no scoring inside the grace period")
	}

	// Past the grace period: scored.
	c, ok := s.RecordFrame(p, p, base+1000)
	if !ok {
		t.Fatal("expected scoring after the grace period")
	}
	if len(c.JointScores) == 0 {
		t.Error("expected joint scores after the grace period")
	}
}

func TestSession_RecordFrameWhileIdle(t *testing.T) {
	s := newTestSession(10_000)
	p := armPose(90)

	if _, ok := s.RecordFrame(p, p, 10_500); ok {
		t.Error("expected no scoring while idle")
	}
}

func TestSession_NotEnoughData(t *testing.T) {
	const base = 10_000
	s := newTestSession(base)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}

	p := armPose(90)
	for i := 0; i < 3; i++ {
		s.RecordFrame(p, p, base+1000+int64(i)*100)
	}

	r, err := s.Stop()
	if err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
	if r.OverallScore != 0 {
		t.Errorf("expected score 0, got %d", r.OverallScore)
	}
	if r.Feedback != "Not enough pose data. Please try again." {
		t.Errorf("unexpected feedback: %q", r.Feedback)
	}
}

func TestSession_PerfectRun(t *testing.T) {
	// Identical user and reference streams: DTW 100, frame 100, overall
	// 100.
	const base = 10_000
	s := newTestSession(base)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 20; i++ {
		p := armPose(90 + float64(i))
		s.RecordFrame(p, p, base+1000+int64(i)*100)
	}

	r, err := s.Stop()
	if err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}

	if r.OverallScore != 100 {
		t.Errorf("expected overall score 100, got %d", r.OverallScore)
	}
	elbow, ok := r.DTWResults[pose.LeftElbow]
	if !ok {
		t.Fatal("expected a left elbow DTW result")
	}
	if elbow.Score != 100 || elbow.Cost != 0 {
		t.Errorf("expected DTW score 100 cost 0, got score %d cost %v", elbow.Score, elbow.Cost)
	}
	if r.Feedback != "Test completed. Overall Score: 100%. DTW Score: 100%. Frame Score: 100%." {
		t.Errorf("unexpected feedback: %q", r.Feedback)
	}
}

func TestSession_ConstantOffsetRun(t *testing.T) {
	// The user holds 90 degrees against a 120 degree reference. Every
	// aligned step costs 30 degrees, so the elbow DTW score is 83; the
	// final frame averages to 5. Overall: round(0.7*83 + 0.3*5) = 60.
	const base = 10_000
	s := newTestSession(base)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}

	user := armPose(90)
	ref := armPose(120)
	for i := 0; i < 12; i++ {
		c, ok := s.RecordFrame(user, ref, base+1000+int64(i)*100)
		if !ok {
			t.Fatalf("frame %d: expected scoring", i)
		}
		if len(c.JointScores) != 1 || c.JointScores[0].Score != 5 {
			t.Fatalf("frame %d: expected elbow score 5, got %+v", i, c.JointScores)
		}
	}

	r, err := s.Stop()
	if err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}

	if r.DTWScore != 83 {
		t.Errorf("expected DTW score 83, got %d", r.DTWScore)
	}
	if r.FrameScore != 5 {
		t.Errorf("expected frame score 5, got %d", r.FrameScore)
	}
	if r.OverallScore != 60 {
		t.Errorf("expected overall score 60, got %d", r.OverallScore)
	}
}

func TestSession_AngleTablesAligned(t *testing.T) {
	const base = 10_000
	s := newTestSession(base)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 20; i++ {
		s.RecordFrame(armPose(90+float64(i)), armPose(95+float64(i)), base+1000+int64(i)*100)
	}

	r, err := s.Stop()
	if err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}

	if r.UserAngles.Len() == 0 {
		t.Fatal("expected non-empty angle tables")
	}
	if r.UserAngles.Len() != r.InstructorAngles.Len() {
		t.Errorf("table lengths differ: user %d, instructor %d",
			r.UserAngles.Len(), r.InstructorAngles.Len())
	}

	if r.UserAngles.Timestamps[0] != "00:00.000" {
		t.Errorf("expected first timestamp 00:00.000, got %q", r.UserAngles.Timestamps[0])
	}

	for joint, series := range r.UserAngles.Angles {
		if len(series) != r.UserAngles.Len() {
			t.Errorf("user %s series length %d != %d rows", joint, len(series), r.UserAngles.Len())
		}
		other, ok := r.InstructorAngles.Angles[joint]
		if !ok {
			t.Errorf("instructor table missing joint %s", joint)
			continue
		}
		if len(other) != len(series) {
			t.Errorf("%s: instructor series length %d != user %d", joint, len(other), len(series))
		}
	}
}
