// Package app wires the capture sources, pose detector, test session and
// result exporters into the running CoachT application.
package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ayusman/coacht/internal/capture"
	"github.com/ayusman/coacht/internal/detector"
	"github.com/ayusman/coacht/internal/exporter"
	"github.com/ayusman/coacht/internal/library"
	"github.com/ayusman/coacht/internal/score"
	"github.com/ayusman/coacht/internal/session"
	"github.com/ayusman/coacht/internal/store"
)

// ErrNoReference is returned when a test is started without reference media.
var ErrNoReference = errors.New("no reference media loaded")

// Config holds configuration options for the application.
type Config struct {
	Store       *store.Store
	ExporterDir string
	CameraID    int
	// ActivityThresh is the percent of changed pixels that counts as
	// activity. Zero uses capture.DefaultActivityThreshold.
	ActivityThresh float64
	Logger         *zap.Logger
}

// FrameUpdate is one live pipeline update for a running test: the frame
// comparison and the camera-framing check for the same pose pair.
type FrameUpdate struct {
	Score    score.Comparison   `json:"score"`
	Distance score.DistanceInfo `json:"distance"`
}

// Status is a snapshot of the application state for the API and tray.
type Status struct {
	State         session.State `json:"state"`
	SessionID     string        `json:"sessionId,omitempty"`
	ReferenceName string        `json:"referenceName,omitempty"`
	CameraOpen    bool          `json:"cameraOpen"`
}

// App owns the frame pipeline: the trainee camera, the instructor
// reference source, the pose detector and the live test session.
type App struct {
	config  Config
	log     *zap.Logger
	camera  capture.Camera
	gate    *capture.ActivityGate
	session *session.Session
	library *library.Library
	expMgr  *exporter.Manager
	expExec *exporter.Executor

	mu      sync.RWMutex
	det     detector.Detector
	ref     capture.Source
	refName string
	onFrame func(FrameUpdate)
	stopCh  chan struct{}
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		config:  config,
		log:     logger,
		camera:  capture.NewCamera(config.CameraID),
		gate:    capture.NewActivityGate(config.ActivityThresh),
		library: library.Default(),
		expMgr:  exporter.NewManager(config.ExporterDir),
		expExec: exporter.NewExecutor(5000),
	}
	a.session = session.New(session.Config{Logger: logger.Named("session")})

	// Try the MoveNet subprocess first, fall back to the mock detector
	if mn, err := detector.NewMoveNetDetector(detector.DefaultConfig()); err == nil {
		a.det = mn
		logger.Info("using MoveNet pose detection")
	} else {
		logger.Warn("MoveNet not available, using mock detector", zap.Error(err))
		a.det = detector.NewMockDetector()
	}

	return a
}

// SetDetector replaces the pose detector implementation.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.det = d
}

// Detector returns the pose detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.det
}

// SetReference installs the instructor reference source for the next test.
// A previously installed source is closed.
func (a *App) SetReference(src capture.Source, name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ref != nil {
		if err := a.ref.Close(); err != nil {
			a.log.Warn("failed to close previous reference", zap.Error(err))
		}
	}
	a.ref = src
	a.refName = name
}

// Reference returns the current instructor reference source, or nil.
func (a *App) Reference() capture.Source {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ref
}

// OnFrame registers a callback invoked with every live update produced
// while a test is running.
func (a *App) OnFrame(fn func(FrameUpdate)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onFrame = fn
}

// Camera returns the trainee camera.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// ActivityGate returns the idle/active gate.
func (a *App) ActivityGate() *capture.ActivityGate {
	return a.gate
}

// Library returns the pose signature library.
func (a *App) Library() *library.Library {
	return a.library
}

// Session returns the test session.
func (a *App) Session() *session.Session {
	return a.session
}

// ExporterManager returns the result exporter manager.
func (a *App) ExporterManager() *exporter.Manager {
	return a.expMgr
}

// Store returns the backing store, which may be nil in tests.
func (a *App) Store() *store.Store {
	return a.config.Store
}

// LoadSignatures merges trained pose signatures from the database into
// the library.
func (a *App) LoadSignatures() error {
	if a.config.Store == nil {
		return nil
	}

	if err := a.config.Store.Signatures().LoadInto(a.library); err != nil {
		return fmt.Errorf("failed to load signatures: %w", err)
	}
	a.log.Info("loaded pose signatures", zap.Int("count", len(a.library.Names())))
	return nil
}

// DiscoverExporters scans the exporter directory.
func (a *App) DiscoverExporters() error {
	if err := a.expMgr.Discover(); err != nil {
		return err
	}
	a.log.Info("discovered exporters", zap.Int("count", len(a.expMgr.List())))
	return nil
}

// Start opens the camera and begins the frame pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(IdleFPS)

	a.stopCh = make(chan struct{})
	go a.runPipeline(a.stopCh)

	a.log.Info("frame pipeline started")
	return nil
}

// Stop halts the pipeline and releases capture and detector resources.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		close(a.stopCh)
		a.stopCh = nil
	}

	if err := a.camera.Close(); err != nil {
		a.log.Warn("error closing camera", zap.Error(err))
	}
	if a.ref != nil {
		if err := a.ref.Close(); err != nil {
			a.log.Warn("error closing reference", zap.Error(err))
		}
	}
	a.gate.Close()

	if a.det != nil {
		if err := a.det.Close(); err != nil {
			a.log.Warn("error closing detector", zap.Error(err))
		}
	}

	a.log.Info("frame pipeline stopped")
}

// StartTest opens the reference media and starts a new scoring session.
func (a *App) StartTest() (string, error) {
	a.mu.RLock()
	ref := a.ref
	a.mu.RUnlock()

	if ref == nil {
		return "", ErrNoReference
	}
	if !ref.IsOpen() {
		if err := ref.Open(); err != nil {
			return "", fmt.Errorf("failed to open reference: %w", err)
		}
	}

	if err := a.session.Start(); err != nil {
		return "", err
	}
	return a.session.ID(), nil
}

// StopTest finalizes the running session, persists the result and runs
// the discovered exporters. Stopping an already completed test returns
// the cached result.
func (a *App) StopTest() (*session.Result, error) {
	res, err := a.session.Stop()
	if err != nil {
		return nil, err
	}

	if err := a.persistResult(res); err != nil {
		a.log.Error("failed to persist test result", zap.Error(err))
	}
	a.runExporters(res)

	return res, nil
}

// Status reports the current application state.
func (a *App) Status() Status {
	a.mu.RLock()
	refName := a.refName
	a.mu.RUnlock()

	st := Status{
		State:         a.session.State(),
		ReferenceName: refName,
		CameraOpen:    a.camera.IsOpen(),
	}
	if id := a.session.ID(); id != "" {
		st.SessionID = id
	}
	return st
}

// persistResult writes a completed result and its per-joint and angle
// table rows to the store.
func (a *App) persistResult(res *session.Result) error {
	if a.config.Store == nil {
		return nil
	}

	a.mu.RLock()
	refName := a.refName
	a.mu.RUnlock()

	repo := a.config.Store.Sessions()
	if err := repo.Create(&store.Session{
		ID:            res.ID,
		ReferenceName: refName,
		StartedAt:     res.StartedAt,
		StoppedAt:     res.StoppedAt,
		OverallScore:  res.OverallScore,
		DTWScore:      res.DTWScore,
		FrameScore:    res.FrameScore,
		Feedback:      res.Feedback,
	}); err != nil {
		return err
	}

	if err := repo.SaveJointResults(res.ID, jointResultRows(res)); err != nil {
		return err
	}
	return repo.SaveAngleSamples(res.ID, angleSampleRows(res))
}

// jointResultRows flattens the per-joint DTW and frame scores into rows.
func jointResultRows(res *session.Result) []store.JointResult {
	frameScores := make(map[string]score.JointScore, len(res.JointScores))
	for _, js := range res.JointScores {
		frameScores[string(js.Joint)] = js
	}

	var rows []store.JointResult
	for joint, dr := range res.DTWResults {
		row := store.JointResult{
			SessionID: res.ID,
			Joint:     string(joint),
			DTWScore:  dr.Score,
			DTWCost:   dr.Cost,
		}
		if js, ok := frameScores[string(joint)]; ok {
			row.FrameScore = js.Score
			row.Severity = string(js.Severity)
		}
		rows = append(rows, row)
	}
	return rows
}

// angleSampleRows flattens both angle tables into rows.
func angleSampleRows(res *session.Result) []store.AngleSample {
	var rows []store.AngleSample
	appendTable := func(stream string, table session.AngleTable) {
		for joint, angles := range table.Angles {
			for i, angle := range angles {
				rows = append(rows, store.AngleSample{
					SessionID: res.ID,
					Stream:    stream,
					Joint:     string(joint),
					Sequence:  i,
					Angle:     angle,
					Elapsed:   table.Timestamps[i],
				})
			}
		}
	}
	appendTable(store.StreamUser, res.UserAngles)
	appendTable(store.StreamInstructor, res.InstructorAngles)
	return rows
}

// runExporters sends the completed result to every discovered exporter.
// Exporter failures are logged, never fatal.
func (a *App) runExporters(res *session.Result) {
	exporters := a.expMgr.List()
	if len(exporters) == 0 {
		return
	}

	payload, err := json.Marshal(res)
	if err != nil {
		a.log.Error("failed to marshal result for export", zap.Error(err))
		return
	}

	req := &exporter.Request{
		Event:     exporter.EventTestCompleted,
		SessionID: res.ID,
		Result:    payload,
	}

	for _, exp := range exporters {
		resp, err := a.expExec.Execute(exp, req)
		if err != nil {
			a.log.Warn("exporter failed",
				zap.String("exporter", exp.Manifest.Name), zap.Error(err))
			continue
		}
		if !resp.Success {
			a.log.Warn("exporter reported failure",
				zap.String("exporter", exp.Manifest.Name), zap.String("error", resp.Error))
		}
	}
}
