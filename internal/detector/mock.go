package detector

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/coacht/internal/pose"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	poses []pose.Pose
	err   error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetPoses sets the poses that will be returned by Detect.
func (m *MockDetector) SetPoses(poses []pose.Pose) {
	m.poses = poses
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured poses or error, applying the maxPoses
// cap and minConfidence filter the way a real detector would.
func (m *MockDetector) Detect(frame *gocv.Mat, maxPoses int, minConfidence float64) ([]pose.Pose, error) {
	if m.err != nil {
		return nil, m.err
	}

	var poses []pose.Pose
	for _, p := range m.poses {
		if p.Score >= minConfidence {
			poses = append(poses, p)
		}
	}
	if maxPoses > 0 && len(poses) > maxPoses {
		poses = poses[:maxPoses]
	}
	return poses, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// FightingStancePose returns a preset pose of a fighter in a guard stance:
// knees slightly bent, fists up at right-angle elbows. Coordinates are
// normalized with Y growing downward.
func FightingStancePose() pose.Pose {
	return pose.Pose{
		Score: 0.95,
		Keypoints: []pose.Keypoint{
			{Name: pose.Nose, X: 0.50, Y: 0.18, Score: 0.95},
			{Name: pose.LeftEye, X: 0.48, Y: 0.17, Score: 0.9},
			{Name: pose.RightEye, X: 0.52, Y: 0.17, Score: 0.9},
			{Name: pose.LeftEar, X: 0.46, Y: 0.18, Score: 0.85},
			{Name: pose.RightEar, X: 0.54, Y: 0.18, Score: 0.85},
			{Name: pose.LeftShoulder, X: 0.44, Y: 0.30, Score: 0.95},
			{Name: pose.RightShoulder, X: 0.56, Y: 0.30, Score: 0.95},
			{Name: pose.LeftElbow, X: 0.44, Y: 0.42, Score: 0.9},
			{Name: pose.RightElbow, X: 0.56, Y: 0.42, Score: 0.9},
			{Name: pose.LeftWrist, X: 0.34, Y: 0.42, Score: 0.9},
			{Name: pose.RightWrist, X: 0.66, Y: 0.42, Score: 0.9},
			{Name: pose.LeftHip, X: 0.46, Y: 0.52, Score: 0.95},
			{Name: pose.RightHip, X: 0.54, Y: 0.52, Score: 0.95},
			{Name: pose.LeftKnee, X: 0.44, Y: 0.68, Score: 0.9},
			{Name: pose.RightKnee, X: 0.58, Y: 0.68, Score: 0.9},
			{Name: pose.LeftAnkle, X: 0.46, Y: 0.84, Score: 0.9},
			{Name: pose.RightAnkle, X: 0.60, Y: 0.84, Score: 0.9},
		},
	}
}

// FrontKickPose returns a preset pose mid front kick: left leg raised with
// the ankle above hip level, right leg planted.
func FrontKickPose() pose.Pose {
	return pose.Pose{
		Score: 0.93,
		Keypoints: []pose.Keypoint{
			{Name: pose.Nose, X: 0.52, Y: 0.16, Score: 0.95},
			{Name: pose.LeftEye, X: 0.50, Y: 0.15, Score: 0.9},
			{Name: pose.RightEye, X: 0.54, Y: 0.15, Score: 0.9},
			{Name: pose.LeftEar, X: 0.48, Y: 0.16, Score: 0.85},
			{Name: pose.RightEar, X: 0.56, Y: 0.16, Score: 0.85},
			{Name: pose.LeftShoulder, X: 0.46, Y: 0.28, Score: 0.95},
			{Name: pose.RightShoulder, X: 0.58, Y: 0.28, Score: 0.95},
			{Name: pose.LeftElbow, X: 0.42, Y: 0.38, Score: 0.9},
			{Name: pose.RightElbow, X: 0.62, Y: 0.38, Score: 0.9},
			{Name: pose.LeftWrist, X: 0.38, Y: 0.46, Score: 0.9},
			{Name: pose.RightWrist, X: 0.66, Y: 0.46, Score: 0.9},
			{Name: pose.LeftHip, X: 0.46, Y: 0.50, Score: 0.95},
			{Name: pose.RightHip, X: 0.54, Y: 0.50, Score: 0.95},
			{Name: pose.LeftKnee, X: 0.38, Y: 0.48, Score: 0.9},
			{Name: pose.RightKnee, X: 0.55, Y: 0.70, Score: 0.9},
			{Name: pose.LeftAnkle, X: 0.30, Y: 0.40, Score: 0.9},
			{Name: pose.RightAnkle, X: 0.56, Y: 0.88, Score: 0.9},
		},
	}
}
