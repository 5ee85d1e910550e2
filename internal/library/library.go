// Package library holds named reference pose signatures and matches live
// poses against them. A signature is a small set of scalar measurements
// (limb angles, relative heights, stance width) with per-kind tolerances,
// which makes matching robust to body proportions and camera placement in a
// way raw keypoint comparison is not.
package library

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ayusman/coacht/internal/pose"
)

// minKeypointConfidence is the floor for a keypoint to participate in
// signature matching.
const minKeypointConfidence = 0.6

// matchConfidence is the fraction of signature checks that must pass for a
// pose to count as matched.
const matchConfidence = 0.7

// Measurement keys. Suffix selects the tolerance kind: Angle, Height or
// Width.
const (
	LeftKneeAngle    = "leftKneeAngle"
	RightKneeAngle   = "rightKneeAngle"
	LeftElbowAngle   = "leftElbowAngle"
	RightElbowAngle  = "rightElbowAngle"
	LeftAnkleHeight  = "leftAnkleHeight"
	RightAnkleHeight = "rightAnkleHeight"
	LeftWristHeight  = "leftWristHeight"
	RightWristHeight = "rightWristHeight"
	StanceWidth      = "stanceWidth"
)

// Tolerances are the allowed deviations per measurement kind. Heights and
// widths are in source pixel units, angles in degrees.
type Tolerances struct {
	Angle  float64 `json:"angle"`
	Height float64 `json:"height"`
	Stance float64 `json:"stance"`
}

// Signature describes one named pose as expected measurement values plus
// tolerances.
type Signature struct {
	Values     map[string]float64 `json:"values"`
	Tolerances Tolerances         `json:"tolerances"`
}

// Check records one measurement comparison inside a match attempt.
type Check struct {
	Expected        float64 `json:"expected"`
	Actual          float64 `json:"actual"`
	WithinTolerance bool    `json:"withinTolerance"`
}

// Match is the result of comparing a pose against one signature.
type Match struct {
	Matched    bool             `json:"matched"`
	Confidence float64          `json:"confidence"`
	Details    map[string]Check `json:"details"`
}

// Candidate pairs a pose name with its match confidence.
type Candidate struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Detection is the outcome of testing a pose against every signature.
type Detection struct {
	// Name is the best matching pose, or empty when nothing cleared the
	// match threshold.
	Name       string      `json:"name"`
	Confidence float64     `json:"confidence"`
	Candidates []Candidate `json:"candidates"`
}

// Library is a concurrency-safe store of pose signatures.
type Library struct {
	mu         sync.RWMutex
	signatures map[string]Signature
}

// New creates an empty Library.
func New() *Library {
	return &Library{signatures: make(map[string]Signature)}
}

// Default returns a Library seeded with the built-in martial arts poses.
func Default() *Library {
	l := New()
	for name, sig := range defaultSignatures() {
		l.signatures[name] = sig
	}
	return l
}

// Names returns the signature names in sorted order.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.signatures))
	for name := range l.signatures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Signature returns the named signature, or false when it does not exist.
func (l *Library) Signature(name string) (Signature, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	sig, ok := l.signatures[name]
	return sig, ok
}

// Put stores or replaces a signature.
func (l *Library) Put(name string, sig Signature) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.signatures[name] = sig
}

// Compare matches a pose against the named signature. Each defined
// measurement is checked against the pose's measured value with the
// tolerance for its kind; the confidence is the fraction of checks passed.
func (l *Library) Compare(p pose.Pose, name string) (Match, error) {
	l.mu.RLock()
	sig, ok := l.signatures[name]
	l.mu.RUnlock()
	if !ok {
		return Match{}, fmt.Errorf("library: unknown pose %q", name)
	}

	confident := 0
	for _, kp := range p.Keypoints {
		if kp.Score >= minKeypointConfidence {
			confident++
		}
	}
	if confident < 3 {
		return Match{Details: map[string]Check{}}, nil
	}

	profile := Analyze(p)

	details := make(map[string]Check, len(sig.Values))
	total := 0
	passed := 0

	for key, expected := range sig.Values {
		total++

		actual, measured := profile[key]
		if !measured {
			details[key] = Check{Expected: expected}
			continue
		}

		diff := actual - expected
		if diff < 0 {
			diff = -diff
		}
		within := diff <= sig.tolerance(key)

		details[key] = Check{Expected: expected, Actual: actual, WithinTolerance: within}
		if within {
			passed++
		}
	}

	m := Match{Details: details}
	if total > 0 {
		m.Confidence = float64(passed) / float64(total)
	}
	m.Matched = m.Confidence >= matchConfidence
	return m, nil
}

// Detect tests the pose against every signature and returns the candidates
// ordered by descending confidence. Name is set only when the best
// candidate clears the match threshold.
func (l *Library) Detect(p pose.Pose) Detection {
	var d Detection
	for _, name := range l.Names() {
		m, err := l.Compare(p, name)
		if err != nil {
			continue
		}
		d.Candidates = append(d.Candidates, Candidate{Name: name, Confidence: m.Confidence})
	}

	sort.SliceStable(d.Candidates, func(i, j int) bool {
		return d.Candidates[i].Confidence > d.Candidates[j].Confidence
	})

	if len(d.Candidates) > 0 {
		d.Confidence = d.Candidates[0].Confidence
		if d.Confidence >= matchConfidence {
			d.Name = d.Candidates[0].Name
		}
	}
	return d
}

// Train averages measurement profiles from several captures of the same
// pose into a signature. Existing tolerances are kept when the pose is
// already known; otherwise defaults apply.
func (l *Library) Train(name string, profiles []map[string]float64) error {
	if len(profiles) == 0 {
		return fmt.Errorf("library: no profiles provided for %q", name)
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, profile := range profiles {
		for key, value := range profile {
			sums[key] += value
			counts[key]++
		}
	}

	values := make(map[string]float64, len(sums))
	for key, sum := range sums {
		// A measurement must be present in every capture to make it into
		// the signature; partial visibility is not a stable expectation.
		if counts[key] == len(profiles) {
			values[key] = sum / float64(len(profiles))
		}
	}
	if len(values) == 0 {
		return fmt.Errorf("library: no measurement present in all %d profiles for %q", len(profiles), name)
	}

	tol := Tolerances{Angle: 30, Height: 40, Stance: 30}
	if existing, ok := l.Signature(name); ok {
		tol = existing.Tolerances
	}

	l.Put(name, Signature{Values: values, Tolerances: tol})
	return nil
}

// Analyze extracts the signature measurements from a pose: knee and elbow
// angles, ankle heights relative to hip level, wrist heights relative to
// shoulder level, and stance width. Measurements whose keypoints are
// missing are omitted from the map.
func Analyze(p pose.Pose) map[string]float64 {
	profile := make(map[string]float64)

	kp := func(j pose.Joint) (pose.Keypoint, bool) {
		return p.Keypoint(j)
	}

	angle := func(key string, a, b, c pose.Joint) {
		pa, okA := kp(a)
		pb, okB := kp(b)
		pc, okC := kp(c)
		if okA && okB && okC {
			profile[key] = float64(pose.Angle(pa.Point(), pb.Point(), pc.Point()))
		}
	}

	angle(LeftKneeAngle, pose.LeftHip, pose.LeftKnee, pose.LeftAnkle)
	angle(RightKneeAngle, pose.RightHip, pose.RightKnee, pose.RightAnkle)
	angle(LeftElbowAngle, pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist)
	angle(RightElbowAngle, pose.RightShoulder, pose.RightElbow, pose.RightWrist)

	leftHip, okLH := kp(pose.LeftHip)
	rightHip, okRH := kp(pose.RightHip)
	if okLH && okRH {
		hipLevel := (leftHip.Y + rightHip.Y) / 2
		if ankle, ok := kp(pose.LeftAnkle); ok {
			profile[LeftAnkleHeight] = hipLevel - ankle.Y
		}
		if ankle, ok := kp(pose.RightAnkle); ok {
			profile[RightAnkleHeight] = hipLevel - ankle.Y
		}
	}

	leftShoulder, okLS := kp(pose.LeftShoulder)
	rightShoulder, okRS := kp(pose.RightShoulder)
	if okLS && okRS {
		shoulderLevel := (leftShoulder.Y + rightShoulder.Y) / 2
		if wrist, ok := kp(pose.LeftWrist); ok {
			profile[LeftWristHeight] = shoulderLevel - wrist.Y
		}
		if wrist, ok := kp(pose.RightWrist); ok {
			profile[RightWristHeight] = shoulderLevel - wrist.Y
		}
	}

	leftAnkle, okLA := kp(pose.LeftAnkle)
	rightAnkle, okRA := kp(pose.RightAnkle)
	if okLA && okRA {
		width := leftAnkle.X - rightAnkle.X
		if width < 0 {
			width = -width
		}
		profile[StanceWidth] = width
	}

	return profile
}

// tolerance picks the tolerance for a measurement key by its suffix.
func (s Signature) tolerance(key string) float64 {
	switch {
	case strings.HasSuffix(key, "Angle"):
		return s.Tolerances.Angle
	case strings.HasSuffix(key, "Height"):
		return s.Tolerances.Height
	default:
		return s.Tolerances.Stance
	}
}
