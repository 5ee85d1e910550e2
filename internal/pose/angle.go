package pose

import "math"

// Confidence floors used when extracting joint angles. MinConfidence is the
// minimum viable floor for raw angle logging; CompareConfidence is the
// stricter floor applied when two poses are scored against each other.
const (
	MinConfidence     = 0.1
	CompareConfidence = 0.3
)

// Angle computes the interior angle in degrees at vertex b between the rays
// b→a and b→c, rounded to the nearest integer. Degenerate geometry (a zero
// length ray) yields 0.
func Angle(a, b, c Point) int {
	bax := a.X - b.X
	bay := a.Y - b.Y
	bcx := c.X - b.X
	bcy := c.Y - b.Y

	magBA := math.Sqrt(bax*bax + bay*bay)
	magBC := math.Sqrt(bcx*bcx + bcy*bcy)
	if magBA == 0 || magBC == 0 {
		return 0
	}

	cos := (bax*bcx + bay*bcy) / (magBA * magBC)
	// Clamp against floating point drift so acos stays defined.
	cos = math.Max(-1, math.Min(1, cos))

	deg := math.Acos(cos) * 180 / math.Pi
	if math.IsNaN(deg) {
		return 0
	}
	return int(math.Round(deg))
}

// Degenerate reports whether the angle at vertex b is geometrically
// undefined, i.e. one of the rays has zero length. Callers scoring poses
// should exclude such joints rather than treat the coerced 0 as a real
// angle.
func Degenerate(a, b, c Point) bool {
	return (a.X == b.X && a.Y == b.Y) || (c.X == b.X && c.Y == b.Y)
}

// JointAngles computes the interior angle at each of the 12 angle joints of
// the pose. A joint is included only when the joint itself and both of its
// neighbors are present with confidence above minConfidence; otherwise the
// joint is omitted entirely. Downstream consumers must treat a missing key
// as "no data this frame", never as an angle of zero.
func JointAngles(p Pose, minConfidence float64) map[Joint]int {
	keypoints := p.KeypointMap(minConfidence)
	angles := make(map[Joint]int)

	for _, jointName := range AngleJoints {
		joint, ok := keypoints[jointName]
		if !ok {
			continue
		}

		startName, endName, ok := ConnectedJoints(jointName)
		if !ok {
			continue
		}

		start, haveStart := keypoints[startName]
		end, haveEnd := keypoints[endName]
		if !haveStart || !haveEnd {
			continue
		}

		angles[jointName] = Angle(start.Point(), joint.Point(), end.Point())
	}

	return angles
}
