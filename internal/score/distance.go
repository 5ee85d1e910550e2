package score

import (
	"math"

	"github.com/ayusman/coacht/internal/pose"
)

// Shoulder-width ratio bands for the framing check.
const (
	distanceTooClose   = 1.3
	distanceTooFar     = 0.7
	distancePerfectLow = 0.9
	distancePerfectHi  = 1.1

	shoulderConfidence = 0.5
)

// DistanceInfo tells the practitioner whether they are standing at a
// comparable distance from the camera as the reference performer.
type DistanceInfo struct {
	Scale   float64 `json:"scale"`
	Correct bool    `json:"correct"`
	Message string  `json:"message"`
}

// DistanceCheck compares the apparent shoulder width of the two poses and
// classifies the user's framing. Returns false when either pose is missing a
// confidently detected shoulder pair.
func DistanceCheck(user, ref pose.Pose) (DistanceInfo, bool) {
	userWidth, okU := shoulderWidth(user)
	refWidth, okR := shoulderWidth(ref)
	if !okU || !okR || refWidth == 0 {
		return DistanceInfo{Scale: 1, Message: "Position yourself clearly in view"}, false
	}

	scale := userWidth / refWidth

	info := DistanceInfo{Scale: scale}
	switch {
	case scale > distanceTooClose:
		info.Message = "Step back"
	case scale < distanceTooFar:
		info.Message = "Step closer"
	case scale > distancePerfectLow && scale < distancePerfectHi:
		info.Message = "Perfect distance"
		info.Correct = true
	default:
		info.Message = "Good distance"
		info.Correct = true
	}

	return info, true
}

func shoulderWidth(p pose.Pose) (float64, bool) {
	left, okL := p.Keypoint(pose.LeftShoulder)
	right, okR := p.Keypoint(pose.RightShoulder)
	if !okL || !okR || left.Score < shoulderConfidence || right.Score < shoulderConfidence {
		return 0, false
	}
	return math.Abs(left.X - right.X), true
}
