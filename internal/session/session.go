// Package session orchestrates one training test: it accumulates pose and
// angle samples while running, then synthesizes the final result from the
// sequence and frame analyzers when stopped.
package session

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ayusman/coacht/internal/dtw"
	"github.com/ayusman/coacht/internal/history"
	"github.com/ayusman/coacht/internal/pose"
	"github.com/ayusman/coacht/internal/score"
	"github.com/ayusman/coacht/internal/timing"
)

// State is the lifecycle state of a test session.
type State string

const (
	StateIdle       State = "idle"
	StateRunning    State = "running"
	StateProcessing State = "processing"
	StateComplete   State = "complete"
)

// DefaultGracePeriodMs suppresses frame scoring for this long after start,
// so the setup and countdown do not drag the score down. Poses are still
// logged.
const DefaultGracePeriodMs = 1000

// MinFinalizeEntries is the minimum pose-history length on both streams
// required to attempt scoring at finalization.
const MinFinalizeEntries = 5

// feedbackNotEnoughData is the user-facing text for a short session.
const feedbackNotEnoughData = "Not enough pose data. Please try again."

// Weights of the final score blend. The sequence-shape match dominates over
// the ending-pose snapshot.
const (
	dtwWeight   = 0.7
	frameWeight = 0.3
)

// Config holds configuration for a test session.
type Config struct {
	// GracePeriodMs overrides the scoring grace period after start.
	GracePeriodMs int64

	// PoseLogCapacity bounds the sliding pose histories.
	PoseLogCapacity int

	// Now supplies the current time in epoch milliseconds. Defaults to the
	// wall clock; tests inject a fake.
	Now func() int64

	Logger *zap.Logger
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		GracePeriodMs:   DefaultGracePeriodMs,
		PoseLogCapacity: history.DefaultPoseCapacity,
	}
}

// Session is the aggregate for one test run. Only one test is live at a
// time; Start discards the previous result. All methods are safe for
// concurrent use: appends and the stop transition are serialized so the
// finalization truncation never races an in-flight append.
type Session struct {
	cfg Config
	log *zap.Logger

	mu         sync.Mutex
	id         string
	state      State
	startTime  int64
	stopTime   int64
	userPoses  *history.PoseLog
	refPoses   *history.PoseLog
	userAngles *history.AngleLog
	refAngles  *history.AngleLog
	result     *Result
}

// New creates an idle Session.
func New(cfg Config) *Session {
	if cfg.GracePeriodMs <= 0 {
		cfg.GracePeriodMs = DefaultGracePeriodMs
	}
	if cfg.PoseLogCapacity <= 0 {
		cfg.PoseLogCapacity = history.DefaultPoseCapacity
	}
	if cfg.Now == nil {
		cfg.Now = func() int64 { return time.Now().UnixMilli() }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Session{
		cfg:        cfg,
		log:        logger,
		state:      StateIdle,
		userPoses:  history.NewPoseLog(cfg.PoseLogCapacity),
		refPoses:   history.NewPoseLog(cfg.PoseLogCapacity),
		userAngles: history.NewAngleLog(),
		refAngles:  history.NewAngleLog(),
	}
}

// ID returns the identifier of the current or most recent test run.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StartTime returns the epoch milliseconds of the last start, or 0.
func (s *Session) StartTime() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startTime
}

// Start transitions to running: clears all histories, discards the previous
// result and records the start time. Returns an error if a test is already
// in progress.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning || s.state == StateProcessing {
		return fmt.Errorf("session: test already in progress")
	}

	s.id = uuid.New().String()
	s.userPoses.Clear()
	s.refPoses.Clear()
	s.userAngles.Clear()
	s.refAngles.Clear()
	s.result = nil
	s.startTime = s.cfg.Now()
	s.stopTime = 0
	s.state = StateRunning

	s.log.Info("test started", zap.String("session", s.id))
	return nil
}

// RecordFrame logs one matched pair of user and reference poses at the
// given timestamp and returns the live frame comparison. The comparison is
// empty with ok=false while the session is not running or the timestamp
// falls inside the grace period; poses are still logged during the grace
// period so the timing analyzers see the full motion.
func (s *Session) RecordFrame(user, ref pose.Pose, timestamp int64) (score.Comparison, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return score.Comparison{}, false
	}

	s.userPoses.Append(user, timestamp)
	s.refPoses.Append(ref, timestamp)

	if timestamp < s.startTime+s.cfg.GracePeriodMs {
		return score.Comparison{}, false
	}

	for joint, angle := range pose.JointAngles(user, pose.MinConfidence) {
		s.userAngles.Append(joint, angle, timestamp)
	}
	for joint, angle := range pose.JointAngles(ref, pose.MinConfidence) {
		s.refAngles.Append(joint, angle, timestamp)
	}

	return score.ScoreFrame(user, ref), true
}

// Stop freezes accumulation and synthesizes the final result. Calling Stop
// on an already finished session returns the existing result unchanged;
// stopping an idle session is an error.
func (s *Session) Stop() (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateComplete:
		return s.result, nil
	case StateIdle:
		return nil, fmt.Errorf("session: no test in progress")
	}

	s.state = StateProcessing
	s.stopTime = s.cfg.Now()

	s.result = s.finalize()
	s.state = StateComplete

	s.log.Info("test completed",
		zap.String("session", s.id),
		zap.Int("overallScore", s.result.OverallScore))

	return s.result, nil
}

// Result returns the finished result, or false when no test has completed
// since the last start.
func (s *Session) Result() (*Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateComplete {
		return nil, false
	}
	return s.result, true
}

// finalize runs the final synthesis over the frozen histories. Caller holds
// the lock.
func (s *Session) finalize() *Result {
	r := &Result{
		ID:        s.id,
		StartedAt: s.startTime,
		StoppedAt: s.stopTime,
	}

	if s.userPoses.Len() < MinFinalizeEntries || s.refPoses.Len() < MinFinalizeEntries {
		s.log.Warn("not enough pose data",
			zap.String("session", s.id),
			zap.Int("userEntries", s.userPoses.Len()),
			zap.Int("refEntries", s.refPoses.Len()))
		r.Feedback = feedbackNotEnoughData
		r.DTWResults = map[pose.Joint]dtw.Result{}
		return r
	}

	// Both angle logs must end at the same length per joint before any
	// series comparison or table construction.
	history.TruncateAngleLogs(s.userAngles, s.refAngles)

	r.DTWResults = make(map[pose.Joint]dtw.Result)
	dtwSum := 0
	dtwCount := 0
	for _, joint := range s.userAngles.Joints() {
		userSeries := s.userAngles.Angles(joint)
		refSeries := s.refAngles.Angles(joint)

		res, err := dtw.Compare(userSeries, refSeries)
		if err != nil {
			// Joints with too few samples are skipped, not zero-scored.
			continue
		}
		r.DTWResults[joint] = res
		dtwSum += res.Score
		dtwCount++
	}
	if dtwCount > 0 {
		r.DTWScore = int(math.Round(float64(dtwSum) / float64(dtwCount)))
	}

	r.FrameScore, r.JointScores = s.lastFrameAverage()

	final := math.Round(dtwWeight*float64(r.DTWScore) + frameWeight*float64(r.FrameScore))
	r.OverallScore = clampScore(int(final))

	r.Feedback = fmt.Sprintf("Test completed. Overall Score: %d%%. DTW Score: %d%%. Frame Score: %d%%.",
		r.OverallScore, r.DTWScore, r.FrameScore)

	r.Timing = timing.Analyze(s.userPoses, s.refPoses)
	r.UserAngles, r.InstructorAngles = s.buildAngleTables()

	return r
}

// lastFrameAverage scores the last recorded pose pair and normalizes the
// comparator's sum to an average over the joints that scored above zero.
func (s *Session) lastFrameAverage() (int, []score.JointScore) {
	userLast, okU := s.userPoses.Last()
	refLast, okR := s.refPoses.Last()
	if !okU || !okR {
		return 0, nil
	}

	c := score.ScoreFrame(userLast.Pose, refLast.Pose)

	scored := 0
	for _, js := range c.JointScores {
		if js.Score > 0 {
			scored++
		}
	}
	if scored == 0 {
		return 0, c.JointScores
	}
	return int(math.Round(float64(c.TotalScore) / float64(scored))), c.JointScores
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
