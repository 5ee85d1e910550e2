// Package score compares a practitioner pose against a reference pose and
// produces per-joint and overall similarity scores.
package score

import (
	"math"

	"github.com/ayusman/coacht/internal/pose"
)

// Severity buckets a joint score for display purposes.
type Severity string

const (
	SeverityGood Severity = "good"
	SeverityFair Severity = "fair"
	SeverityPoor Severity = "poor"
	SeverityBad  Severity = "bad"
)

// Direction describes the rotational sense and size of a joint's deviation,
// used by the rendering layer to draw correction hints.
type Direction struct {
	X          string `json:"x"` // "left" or "right"
	Y          string `json:"y"` // "minor" or "major"
	XMagnitude int    `json:"xMagnitude"`
	YMagnitude int    `json:"yMagnitude"`
}

// JointScore is the similarity result for a single angle joint.
type JointScore struct {
	Joint     pose.Joint `json:"joint"`
	Score     int        `json:"score"`
	Severity  Severity   `json:"severity"`
	Direction Direction  `json:"direction"`
}

// Comparison is the result of scoring one user frame against one reference
// frame.
//
// TotalScore is the raw SUM of the per-joint scores, not an average. Callers
// that need a per-joint average divide by ValidJoints; the session
// finalization does exactly that.
type Comparison struct {
	JointScores []JointScore `json:"jointScores"`
	TotalScore  int          `json:"overallScore"`
	ValidJoints int          `json:"validJoints"`
}

// ScoreFrame scores the user pose against the reference pose, joint by
// joint. A joint contributes only when it and both of its neighbors are
// present with confidence above pose.CompareConfidence in BOTH poses, and
// the geometry on both sides is non-degenerate.
//
// ScoreFrame is pure: it never touches history buffers. Recording frames
// for the sequence analyzers is the session orchestrator's job.
func ScoreFrame(user, ref pose.Pose) Comparison {
	userKeypoints := user.KeypointMap(pose.CompareConfidence)
	refKeypoints := ref.KeypointMap(pose.CompareConfidence)

	var result Comparison

	for _, jointName := range pose.AngleJoints {
		userJoint, okU := userKeypoints[jointName]
		refJoint, okR := refKeypoints[jointName]
		if !okU || !okR {
			continue
		}

		startName, endName, _ := pose.ConnectedJoints(jointName)

		userStart, okUS := userKeypoints[startName]
		userEnd, okUE := userKeypoints[endName]
		refStart, okRS := refKeypoints[startName]
		refEnd, okRE := refKeypoints[endName]
		if !okUS || !okUE || !okRS || !okRE {
			continue
		}

		// Degenerate geometry would coerce to a 0-degree angle and
		// silently count as "perfectly bent"; skip the joint instead.
		if pose.Degenerate(userStart.Point(), userJoint.Point(), userEnd.Point()) ||
			pose.Degenerate(refStart.Point(), refJoint.Point(), refEnd.Point()) {
			continue
		}

		userAngle := pose.Angle(userStart.Point(), userJoint.Point(), userEnd.Point())
		refAngle := pose.Angle(refStart.Point(), refJoint.Point(), refEnd.Point())

		result.JointScores = append(result.JointScores, scoreJoint(jointName, userAngle, refAngle))
		result.TotalScore += result.JointScores[len(result.JointScores)-1].Score
		result.ValidJoints++
	}

	return result
}

// scoreJoint converts an angle pair into a JointScore using the exponential
// decay curve: 100 at 0 degrees difference, ~37 at 10, ~14 at 20.
func scoreJoint(joint pose.Joint, userAngle, refAngle int) JointScore {
	angleDiff := refAngle - userAngle
	if angleDiff < 0 {
		angleDiff = -angleDiff
	}
	if angleDiff > 180 {
		angleDiff = 360 - angleDiff
	}

	s := int(math.Round(100 * math.Exp(-float64(angleDiff)/10)))

	var severity Severity
	switch {
	case s >= 85:
		severity = SeverityGood
	case s >= 70:
		severity = SeverityFair
	case s >= 50:
		severity = SeverityPoor
	default:
		severity = SeverityBad
	}

	clockwise := ((userAngle-refAngle)+360)%360 < 180
	directionX := "right"
	if clockwise {
		directionX = "left"
	}
	directionY := "minor"
	if angleDiff > 45 {
		directionY = "major"
	}
	magnitude := angleDiff / 30
	if magnitude > 3 {
		magnitude = 3
	}

	return JointScore{
		Joint:    joint,
		Score:    s,
		Severity: severity,
		Direction: Direction{
			X:          directionX,
			Y:          directionY,
			XMagnitude: magnitude,
			YMagnitude: magnitude,
		},
	}
}
