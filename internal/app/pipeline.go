package app

import (
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/coacht/internal/detector"
	"github.com/ayusman/coacht/internal/history"
	"github.com/ayusman/coacht/internal/pose"
	"github.com/ayusman/coacht/internal/score"
	"github.com/ayusman/coacht/internal/session"
)

// Pipeline timing constants.
const (
	// IdleFPS is the frame rate when no motion is detected.
	IdleFPS = 5
	// ActiveFPS is the frame rate while someone is moving in view.
	ActiveFPS = 15
	// IdleTimeoutMs is how long without motion before dropping back to idle.
	IdleTimeoutMs = 2000
)

// Detection stride constants. Pose detection is expensive relative to the
// frame budget, so only every Nth processed frame goes through the
// detector; the reference stream tolerates a larger stride since
// instructor movement is smoother than live camera input.
const (
	UserStride      = 3
	ReferenceStride = 6
	MinStride       = 2
	MaxStride       = 6

	fpsWindowSize = 10
	fpsLowWater   = 15.0
	fpsHighWater  = 25.0
)

// strideController adapts a detection stride from measured FPS: raise the
// stride when the pipeline falls below 15 FPS over the last 10 samples,
// lower it when it runs above 25.
type strideController struct {
	stride  int
	samples [fpsWindowSize]float64
	n       int
	idx     int
}

func newStrideController(initial int) *strideController {
	return &strideController{stride: initial}
}

func (c *strideController) current() int {
	return c.stride
}

// observe records one measured FPS sample and adjusts the stride once a
// full window has accumulated. The window restarts after every
// adjustment so a single adaptation settles before the next.
func (c *strideController) observe(fps float64) {
	c.samples[c.idx] = fps
	c.idx = (c.idx + 1) % fpsWindowSize
	if c.n < fpsWindowSize {
		c.n++
	}
	if c.n < fpsWindowSize {
		return
	}

	var sum float64
	for i := 0; i < fpsWindowSize; i++ {
		sum += c.samples[i]
	}
	avg := sum / fpsWindowSize

	switch {
	case avg < fpsLowWater && c.stride < MaxStride:
		c.stride++
		c.restart()
	case avg > fpsHighWater && c.stride > MinStride:
		c.stride--
		c.restart()
	}
}

func (c *strideController) restart() {
	c.n = 0
	c.idx = 0
}

// pipelineState is the per-run mutable state of the frame loop.
type pipelineState struct {
	active     bool
	lastMotion time.Time
	lastTick   time.Time
	frameCount int
	userStride *strideController
	refStride  *strideController

	// Reference poses at their detection timestamps. Each user frame
	// is paired with the entry closest in time, so the two streams
	// stay reconciled even though they are sampled on different
	// strides.
	refLog *history.PoseLog
}

func newPipelineState() *pipelineState {
	return &pipelineState{
		lastMotion: time.Now(),
		userStride: newStrideController(UserStride),
		refStride:  newStrideController(ReferenceStride),
		refLog:     history.NewPoseLog(history.DefaultPoseCapacity),
	}
}

// endedSource is implemented by finite reference sources.
type endedSource interface {
	Ended() bool
}

// pausedSource is implemented by sources whose playback can be paused.
type pausedSource interface {
	Paused() bool
}

// runPipeline is the frame loop. It manages idle/active FPS switching
// from the motion gate and, while a test is running, feeds detected
// user and reference poses into the session.
func (a *App) runPipeline(stopCh chan struct{}) {
	ps := newPipelineState()

	interval := time.Second / time.Duration(IdleFPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if next := a.step(ps); next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

// step processes one frame tick and returns the desired tick interval.
func (a *App) step(ps *pipelineState) time.Duration {
	interval := time.Second / time.Duration(IdleFPS)
	if ps.active {
		interval = time.Second / time.Duration(ActiveFPS)
	}

	frame, err := a.camera.ReadFrame()
	if err != nil {
		a.log.Debug("error reading frame", zap.Error(err))
		return interval
	}

	now := time.Now()
	if !ps.lastTick.IsZero() {
		if dt := now.Sub(ps.lastTick).Seconds(); dt > 0 {
			fps := 1 / dt
			ps.userStride.observe(fps)
			ps.refStride.observe(fps)
		}
	}
	ps.lastTick = now

	sceneActive, _ := a.gate.Sample(frame)
	testRunning := a.session.State() == session.StateRunning

	// A running test forces active mode regardless of motion so the
	// countdown stillness does not throttle sampling.
	if sceneActive || testRunning {
		ps.lastMotion = now
		if !ps.active {
			ps.active = true
			a.camera.SetFPS(ActiveFPS)
			interval = time.Second / time.Duration(ActiveFPS)
			a.log.Info("switched to active mode")
		}
	} else if ps.active && now.Sub(ps.lastMotion) > IdleTimeoutMs*time.Millisecond {
		ps.active = false
		a.camera.SetFPS(IdleFPS)
		interval = time.Second / time.Duration(IdleFPS)
		ps.refLog.Clear()
		a.log.Info("switched to idle mode")
	}

	if !ps.active {
		frame.Close()
		return interval
	}

	ps.frameCount++
	if ps.frameCount%ps.userStride.current() != 0 {
		frame.Close()
		return interval
	}

	det := a.Detector()
	if det == nil {
		frame.Close()
		return interval
	}

	cfg := detector.DefaultConfig()
	poses, err := det.Detect(frame, cfg.MaxPoses, cfg.MinConfidence)
	frame.Close()
	if err != nil {
		// Dropped frame, keep going
		a.log.Warn("pose detection failed", zap.Error(err))
		return interval
	}
	if len(poses) == 0 {
		return interval
	}
	userPose := poses[0]

	if testRunning {
		a.scoreTick(ps, userPose, det, now)
	} else if d := a.library.Detect(userPose); d.Name != "" {
		a.log.Debug("pose detected",
			zap.String("pose", d.Name), zap.Float64("confidence", d.Confidence))
	}

	return interval
}

// scoreTick advances a running test by one frame: refresh the reference
// pose log on its stride, pair the user frame with the reference pose
// closest in time and publish the live update.
func (a *App) scoreTick(ps *pipelineState, userPose pose.Pose, det detector.Detector, now time.Time) {
	a.mu.RLock()
	ref := a.ref
	onFrame := a.onFrame
	a.mu.RUnlock()

	if ref == nil {
		return
	}

	if es, ok := ref.(endedSource); ok && es.Ended() {
		a.log.Info("reference media ended, stopping test")
		if _, err := a.StopTest(); err != nil {
			a.log.Error("failed to stop test", zap.Error(err))
		}
		return
	}

	paused := false
	if p, ok := ref.(pausedSource); ok {
		paused = p.Paused()
	}

	// While paused, playback must not advance: no new reference frames
	// are read and pairing continues against the poses already logged.
	if !paused && (ps.refLog.Len() == 0 || ps.frameCount%ps.refStride.current() == 0) {
		refFrame, err := ref.ReadFrame()
		if err != nil {
			a.log.Debug("error reading reference frame", zap.Error(err))
		} else {
			cfg := detector.DefaultConfig()
			refPoses, err := det.Detect(refFrame, cfg.MaxPoses, cfg.MinConfidence)
			refFrame.Close()
			if err != nil {
				a.log.Warn("reference pose detection failed", zap.Error(err))
			} else if len(refPoses) > 0 {
				ps.refLog.Append(refPoses[0], now.UnixMilli())
			}
		}
	}

	entry, ok := ps.refLog.Nearest(now.UnixMilli(), history.DefaultMatchWindowMs)
	if !ok {
		return
	}

	comparison, scored := a.session.RecordFrame(userPose, entry.Pose, now.UnixMilli())
	if scored && onFrame != nil {
		dist, _ := score.DistanceCheck(userPose, entry.Pose)
		onFrame(FrameUpdate{Score: comparison, Distance: dist})
	}
}
