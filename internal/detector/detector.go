// Package detector provides body pose estimation interfaces for the
// training pipeline.
package detector

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/coacht/internal/pose"
)

// Detector defines the interface for pose estimation implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected poses sorted by
	// descending detection confidence. Keypoints below minConfidence are
	// still included with their scores; filtering is the caller's choice.
	// Returns an empty slice if no person is visible. Errors indicate hard
	// I/O failures only; callers treat them as a dropped frame.
	Detect(frame *gocv.Mat, maxPoses int, minConfidence float64) ([]pose.Pose, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for pose detection.
type Config struct {
	// MaxPoses is the maximum number of bodies to detect (default: 1).
	MaxPoses int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxPoses:        1,
		MinConfidence:   0.3,
		MinTrackingConf: 0.5,
	}
}
