// Package pose defines body keypoints, joint vocabulary and angle math for
// the CoachT pose comparison engine.
package pose

// Joint identifies a named anatomical landmark.
type Joint string

// Body landmark vocabulary following the MoveNet/BlazePose naming convention.
// The first 17 are always reported by the detector; the index and foot_index
// landmarks are only present when a full-body model is in use.
const (
	Nose          Joint = "nose"
	LeftEye       Joint = "left_eye"
	RightEye      Joint = "right_eye"
	LeftEar       Joint = "left_ear"
	RightEar      Joint = "right_ear"
	LeftShoulder  Joint = "left_shoulder"
	RightShoulder Joint = "right_shoulder"
	LeftElbow     Joint = "left_elbow"
	RightElbow    Joint = "right_elbow"
	LeftWrist     Joint = "left_wrist"
	RightWrist    Joint = "right_wrist"
	LeftHip       Joint = "left_hip"
	RightHip      Joint = "right_hip"
	LeftKnee      Joint = "left_knee"
	RightKnee     Joint = "right_knee"
	LeftAnkle     Joint = "left_ankle"
	RightAnkle    Joint = "right_ankle"

	LeftIndex      Joint = "left_index"
	RightIndex     Joint = "right_index"
	LeftFootIndex  Joint = "left_foot_index"
	RightFootIndex Joint = "right_foot_index"
)

// AngleJoints lists the 12 joints for which an interior angle is computed.
// Facial landmarks never appear here.
var AngleJoints = []Joint{
	LeftElbow, RightElbow,
	LeftShoulder, RightShoulder,
	LeftWrist, RightWrist,
	LeftHip, RightHip,
	LeftKnee, RightKnee,
	LeftAnkle, RightAnkle,
}

// neighbors maps each angle joint to the two connected joints that form its
// interior angle. This table is fixed anatomy, not per-pose state.
var neighbors = map[Joint][2]Joint{
	LeftElbow:     {LeftShoulder, LeftWrist},
	RightElbow:    {RightShoulder, RightWrist},
	LeftShoulder:  {LeftHip, LeftElbow},
	RightShoulder: {RightHip, RightElbow},
	LeftWrist:     {LeftElbow, LeftIndex},
	RightWrist:    {RightElbow, RightIndex},
	LeftKnee:      {LeftHip, LeftAnkle},
	RightKnee:     {RightHip, RightAnkle},
	LeftAnkle:     {LeftKnee, LeftFootIndex},
	RightAnkle:    {RightKnee, RightFootIndex},
	LeftHip:       {LeftKnee, LeftShoulder},
	RightHip:      {RightKnee, RightShoulder},
}

// ConnectedJoints returns the two neighbor joints used to compute the
// interior angle at the given joint. ok is false for non-angle joints.
func ConnectedJoints(j Joint) (start, end Joint, ok bool) {
	n, ok := neighbors[j]
	if !ok {
		return "", "", false
	}
	return n[0], n[1], true
}

// Point is a 2D position in normalized keypoint coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Keypoint is a single detected landmark with its detection confidence.
// Keypoints are created by the detector and never mutated afterwards.
type Keypoint struct {
	Name  Joint   `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score float64 `json:"score"`
}

// Point returns the keypoint position.
func (k Keypoint) Point() Point {
	return Point{X: k.X, Y: k.Y}
}

// Pose is the full set of keypoints detected for one body in one frame.
// A pose is replaced wholesale each detection cycle.
type Pose struct {
	Keypoints []Keypoint `json:"keypoints"`
	Score     float64    `json:"score"`
}

// Keypoint returns the named keypoint, or false if the pose does not
// contain it.
func (p Pose) Keypoint(name Joint) (Keypoint, bool) {
	for _, kp := range p.Keypoints {
		if kp.Name == name {
			return kp, true
		}
	}
	return Keypoint{}, false
}

// KeypointMap indexes the pose's keypoints by name, keeping only those whose
// confidence exceeds minConfidence.
func (p Pose) KeypointMap(minConfidence float64) map[Joint]Keypoint {
	m := make(map[Joint]Keypoint, len(p.Keypoints))
	for _, kp := range p.Keypoints {
		if kp.Score > minConfidence {
			m[kp.Name] = kp
		}
	}
	return m
}
