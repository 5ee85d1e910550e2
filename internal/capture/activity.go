package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Activity gate tuning. Frames are downscaled before differencing so the
// per-tick cost stays flat regardless of camera resolution.
const (
	// DefaultActivityThreshold is the percent of pixels that must change
	// between samples to count as activity. Full-body framing needs a
	// higher floor than a desk camera: breathing and sensor noise alone
	// approach one percent.
	DefaultActivityThreshold = 2.0

	activityAnalysisWidth = 320
	activityBlurKernel    = 15
	activityDiffThreshold = 30
)

// ActivityGate decides whether anyone is moving in front of the camera by
// differencing consecutive downscaled grayscale frames. It drives the
// pipeline's idle/active switching, not pose detection, so it favors
// recall: a false positive only burns CPU, a false negative costs latency.
type ActivityGate struct {
	threshold float64
	prev      gocv.Mat
	primed    bool
	mu        sync.Mutex
}

// NewActivityGate creates a gate with the given change threshold in
// percent. Thresholds <= 0 fall back to DefaultActivityThreshold.
func NewActivityGate(threshold float64) *ActivityGate {
	if threshold <= 0 {
		threshold = DefaultActivityThreshold
	}
	return &ActivityGate{
		threshold: threshold,
		prev:      gocv.NewMat(),
	}
}

// Sample compares the frame against the previous sample and reports
// whether the scene is active, along with the percent of analysis pixels
// that changed. The first frame primes the baseline and reads as
// inactive, as does any frame whose size differs from the baseline.
func (g *ActivityGate) Sample(frame *gocv.Mat) (bool, float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	small := gocv.NewMat()
	defer small.Close()

	work := gray
	if gray.Cols() > activityAnalysisWidth {
		h := gray.Rows() * activityAnalysisWidth / gray.Cols()
		gocv.Resize(gray, &small, image.Pt(activityAnalysisWidth, h), 0, 0, gocv.InterpolationArea)
		work = small
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(work, &blurred, image.Pt(activityBlurKernel, activityBlurKernel), 0, 0, gocv.BorderDefault)

	if !g.primed || g.prev.Rows() != blurred.Rows() || g.prev.Cols() != blurred.Cols() {
		blurred.CopyTo(&g.prev)
		g.primed = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, g.prev, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, activityDiffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols()) * 100.0

	blurred.CopyTo(&g.prev)

	return changed > g.threshold, changed
}

// Reset clears the baseline so the next sample primes a fresh one.
func (g *ActivityGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.prev.Empty() {
		g.prev.Close()
		g.prev = gocv.NewMat()
	}
	g.primed = false
}

// Close releases the baseline frame.
func (g *ActivityGate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.prev.Empty() {
		g.prev.Close()
		g.prev = gocv.NewMat()
	}
	g.primed = false
}

// SetThreshold updates the change threshold in percent. Values less than
// or equal to 0 are ignored.
func (g *ActivityGate) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.threshold = threshold
}
