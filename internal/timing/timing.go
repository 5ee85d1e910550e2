// Package timing compares the temporal structure of two pose streams. It
// detects movement events and stillness gaps in each stream independently,
// then cross-references them to flag delayed reactions, missing movement,
// and overall pacing differences.
package timing

import (
	"math"

	"github.com/ayusman/coacht/internal/history"
	"github.com/ayusman/coacht/internal/pose"
)

// MinHistoryEntries is the number of entries both histories must exceed for
// the analysis to run. Below that the heuristics are noise.
const MinHistoryEntries = 10

// Cross-stream comparison thresholds.
const (
	delayMatchWindowMs = 300
	delayThresholdMs   = 300
	delaySignConsensus = 0.7
	speedSlowRatio     = 1.25
	speedFastRatio     = 0.75
)

// Speed classifies the user's overall pacing against the reference.
type Speed string

const (
	SpeedSlow Speed = "slow"
	SpeedGood Speed = "good"
	SpeedFast Speed = "fast"
)

// MovementConfig parameterizes movement-event detection. The same algorithm
// serves both detection passes; only the constants differ between call
// sites.
type MovementConfig struct {
	// Stride is how many frames back the comparison reaches. A stride above
	// one smooths out single-frame jitter.
	Stride int
	// DisplacementThreshold is the mean per-keypoint displacement, in
	// normalized coordinates, above which a frame counts as movement.
	DisplacementThreshold float64
	// ConfidenceFloor excludes keypoints below this score from the
	// displacement signal.
	ConfidenceFloor float64
	// AngleChangeThreshold marks a movement event when any tracked limb
	// angle changed by more than this many degrees. Zero disables the
	// angle signal.
	AngleChangeThreshold int
}

// DefaultMovementConfig returns the tuning used for live analysis.
func DefaultMovementConfig() MovementConfig {
	return MovementConfig{
		Stride:                2,
		DisplacementThreshold: 0.08,
		ConfidenceFloor:       0.4,
		AngleChangeThreshold:  15,
	}
}

// GapConfig parameterizes stillness-gap detection.
type GapConfig struct {
	Stride                int
	DisplacementThreshold float64
	ConfidenceFloor       float64
	// MinDurationMs discards gaps shorter than this.
	MinDurationMs int64
}

// DefaultGapConfig returns the tuning used for live analysis. The gap pass
// uses a stricter confidence floor and a lower displacement threshold than
// movement detection.
func DefaultGapConfig() GapConfig {
	return GapConfig{
		Stride:                2,
		DisplacementThreshold: 0.05,
		ConfidenceFloor:       0.5,
		MinDurationMs:         500,
	}
}

// Gap is a sustained interval of near-zero movement, in epoch milliseconds.
type Gap struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Duration returns the gap length in milliseconds.
func (g Gap) Duration() int64 {
	return g.End - g.Start
}

// Analysis is the outcome of one temporal comparison pass over the full
// histories.
type Analysis struct {
	// Delays is set when the user's movement events consistently lag or
	// lead the reference's.
	Delays bool `json:"delays"`
	// Gaps is set when the user paused noticeably more often than the
	// reference.
	Gaps bool `json:"gaps"`
	// Speed classifies overall pacing from the elapsed durations.
	Speed Speed `json:"speed"`

	AvgDelayMs    float64 `json:"avgDelayMs"`
	UserMovements []int64 `json:"-"`
	RefMovements  []int64 `json:"-"`
	UserGaps      []Gap   `json:"-"`
	RefGaps       []Gap   `json:"-"`
}

// limbTriangles are the angle signals tracked for movement detection, one
// arm and one leg chain per side.
var limbTriangles = [][3]pose.Joint{
	{pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist},
	{pose.RightShoulder, pose.RightElbow, pose.RightWrist},
	{pose.LeftHip, pose.LeftKnee, pose.LeftAnkle},
	{pose.RightHip, pose.RightKnee, pose.RightAnkle},
}

// Analyze cross-references the movement structure of the two histories.
// Returns nil when either history holds too few entries to analyze.
func Analyze(user, ref *history.PoseLog) *Analysis {
	if user.Len() <= MinHistoryEntries || ref.Len() <= MinHistoryEntries {
		return nil
	}

	moveCfg := DefaultMovementConfig()
	gapCfg := DefaultGapConfig()

	a := &Analysis{
		UserMovements: DetectMovements(user.Entries(), moveCfg),
		RefMovements:  DetectMovements(ref.Entries(), moveCfg),
		UserGaps:      DetectGaps(user.Entries(), gapCfg),
		RefGaps:       DetectGaps(ref.Entries(), gapCfg),
	}

	a.Delays, a.AvgDelayMs = detectDelays(a.UserMovements, a.RefMovements)
	a.Gaps = len(a.UserGaps) > len(a.RefGaps)+1
	a.Speed = classifySpeed(user.Duration(), ref.Duration())

	return a
}

// DetectMovements scans the history for frames with significant inter-frame
// displacement or limb-angle change and returns their timestamps.
func DetectMovements(entries []history.Entry, cfg MovementConfig) []int64 {
	var events []int64
	if cfg.Stride < 1 {
		cfg.Stride = 1
	}

	for i := cfg.Stride; i < len(entries); i++ {
		prev := entries[i-cfg.Stride]
		cur := entries[i]

		disp, ok := meanDisplacement(prev.Pose, cur.Pose, cfg.ConfidenceFloor)
		moved := ok && disp > cfg.DisplacementThreshold

		if !moved && cfg.AngleChangeThreshold > 0 {
			moved = limbAngleChanged(prev.Pose, cur.Pose, cfg.ConfidenceFloor, cfg.AngleChangeThreshold)
		}

		if moved {
			events = append(events, cur.Timestamp)
		}
	}
	return events
}

// DetectGaps finds contiguous runs of low-displacement frames and returns
// them as intervals, dropping runs shorter than the configured minimum.
func DetectGaps(entries []history.Entry, cfg GapConfig) []Gap {
	var gaps []Gap
	if cfg.Stride < 1 {
		cfg.Stride = 1
	}

	runStart := int64(-1)
	var runEnd int64

	flush := func() {
		if runStart >= 0 && runEnd-runStart >= cfg.MinDurationMs {
			gaps = append(gaps, Gap{Start: runStart, End: runEnd})
		}
		runStart = -1
	}

	for i := cfg.Stride; i < len(entries); i++ {
		prev := entries[i-cfg.Stride]
		cur := entries[i]

		disp, ok := meanDisplacement(prev.Pose, cur.Pose, cfg.ConfidenceFloor)
		if ok && disp < cfg.DisplacementThreshold {
			if runStart < 0 {
				runStart = prev.Timestamp
			}
			runEnd = cur.Timestamp
		} else {
			flush()
		}
	}
	flush()

	return gaps
}

// meanDisplacement returns the mean Euclidean displacement across keypoints
// confidently detected in both poses. Returns false when no keypoint
// qualifies.
func meanDisplacement(prev, cur pose.Pose, confidenceFloor float64) (float64, bool) {
	prevByName := prev.KeypointMap(confidenceFloor)

	var sum float64
	var count int
	for _, kp := range cur.Keypoints {
		if kp.Score < confidenceFloor {
			continue
		}
		pkp, ok := prevByName[kp.Name]
		if !ok {
			continue
		}
		dx := kp.X - pkp.X
		dy := kp.Y - pkp.Y
		sum += math.Sqrt(dx*dx + dy*dy)
		count++
	}

	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

// limbAngleChanged reports whether any tracked limb-triangle angle moved by
// more than threshold degrees between the two poses.
func limbAngleChanged(prev, cur pose.Pose, confidenceFloor float64, threshold int) bool {
	for _, tri := range limbTriangles {
		prevAngle, okP := triangleAngle(prev, tri, confidenceFloor)
		curAngle, okC := triangleAngle(cur, tri, confidenceFloor)
		if !okP || !okC {
			continue
		}
		diff := prevAngle - curAngle
		if diff < 0 {
			diff = -diff
		}
		if diff > threshold {
			return true
		}
	}
	return false
}

func triangleAngle(p pose.Pose, tri [3]pose.Joint, confidenceFloor float64) (int, bool) {
	a, okA := p.Keypoint(tri[0])
	b, okB := p.Keypoint(tri[1])
	c, okC := p.Keypoint(tri[2])
	if !okA || !okB || !okC ||
		a.Score < confidenceFloor || b.Score < confidenceFloor || c.Score < confidenceFloor {
		return 0, false
	}
	return pose.Angle(a.Point(), b.Point(), c.Point()), true
}

// detectDelays matches each user movement event to the closest reference
// event within the matching window and averages the signed delays. The flag
// fires only when the average exceeds the threshold and most delays share a
// sign, so scattered noise does not count as a consistent lag.
func detectDelays(userEvents, refEvents []int64) (bool, float64) {
	if len(userEvents) == 0 || len(refEvents) == 0 {
		return false, 0
	}

	var delays []int64
	for _, ut := range userEvents {
		var best int64
		bestDiff := int64(-1)
		for _, rt := range refEvents {
			diff := ut - rt
			if diff < 0 {
				diff = -diff
			}
			if bestDiff < 0 || diff < bestDiff {
				best, bestDiff = rt, diff
			}
		}
		if bestDiff >= 0 && bestDiff <= delayMatchWindowMs {
			delays = append(delays, ut-best)
		}
	}

	if len(delays) == 0 {
		return false, 0
	}

	var sum int64
	var positive, negative int
	for _, d := range delays {
		sum += d
		switch {
		case d > 0:
			positive++
		case d < 0:
			negative++
		}
	}

	avg := float64(sum) / float64(len(delays))

	dominant := positive
	if negative > dominant {
		dominant = negative
	}
	consistent := float64(dominant)/float64(len(delays)) >= delaySignConsensus

	return math.Abs(avg) > delayThresholdMs && consistent, avg
}

func classifySpeed(userDuration, refDuration int64) Speed {
	if refDuration <= 0 {
		return SpeedGood
	}
	ratio := float64(userDuration) / float64(refDuration)
	switch {
	case ratio > speedSlowRatio:
		return SpeedSlow
	case ratio < speedFastRatio:
		return SpeedFast
	default:
		return SpeedGood
	}
}
