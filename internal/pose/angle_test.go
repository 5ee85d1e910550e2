package pose

import "testing"

func TestAngle_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		a, b, c  Point
		expected int
	}{
		{"right angle", Point{X: 1, Y: 0}, Point{X: 0, Y: 0}, Point{X: 0, Y: 1}, 90},
		{"straight line", Point{X: -1, Y: 0}, Point{X: 0, Y: 0}, Point{X: 1, Y: 0}, 180},
		{"collinear same direction", Point{X: 1, Y: 0}, Point{X: 0, Y: 0}, Point{X: 2, Y: 0}, 0},
		{"45 degrees", Point{X: 1, Y: 0}, Point{X: 0, Y: 0}, Point{X: 1, Y: 1}, 45},
		{"60 degrees", Point{X: 1, Y: 0}, Point{X: 0, Y: 0}, Point{X: 0.5, Y: 0.8660254}, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Angle(tt.a, tt.b, tt.c)
			if got != tt.expected {
				t.Errorf("Angle(%v, %v, %v) = %d, expected %d", tt.a, tt.b, tt.c, got, tt.expected)
			}
		})
	}
}

func TestAngle_Bounds(t *testing.T) {
	// Sweep a fan of points around the vertex; every result must stay in
	// the closed interval [0, 180].
	vertex := Point{X: 0.5, Y: 0.5}
	fixed := Point{X: 0.9, Y: 0.5}

	points := []Point{
		{X: 0.1, Y: 0.1}, {X: 0.5, Y: 0.1}, {X: 0.9, Y: 0.1},
		{X: 0.1, Y: 0.5}, {X: 0.9, Y: 0.50001},
		{X: 0.1, Y: 0.9}, {X: 0.5, Y: 0.9}, {X: 0.9, Y: 0.9},
	}

	for _, p := range points {
		got := Angle(fixed, vertex, p)
		if got < 0 || got > 180 {
			t.Errorf("Angle(%v, %v, %v) = %d, out of [0, 180]", fixed, vertex, p, got)
		}
	}
}

func TestAngle_Symmetry(t *testing.T) {
	// The interior angle has no direction: swapping the rays must not
	// change the result.
	tests := []struct {
		a, b, c Point
	}{
		{Point{X: 1, Y: 0}, Point{X: 0, Y: 0}, Point{X: 0, Y: 1}},
		{Point{X: 0.2, Y: 0.7}, Point{X: 0.5, Y: 0.5}, Point{X: 0.9, Y: 0.1}},
		{Point{X: -3, Y: 2}, Point{X: 1, Y: 1}, Point{X: 4, Y: -2}},
	}

	for _, tt := range tests {
		forward := Angle(tt.a, tt.b, tt.c)
		reversed := Angle(tt.c, tt.b, tt.a)
		if forward != reversed {
			t.Errorf("Angle(%v, %v, %v) = %d but reversed = %d", tt.a, tt.b, tt.c, forward, reversed)
		}
	}
}

func TestAngle_Degenerate(t *testing.T) {
	b := Point{X: 0.5, Y: 0.5}
	other := Point{X: 0.7, Y: 0.3}

	if got := Angle(b, b, other); got != 0 {
		t.Errorf("expected 0 for a == b, got %d", got)
	}
	if got := Angle(other, b, b); got != 0 {
		t.Errorf("expected 0 for c == b, got %d", got)
	}
	if got := Angle(b, b, b); got != 0 {
		t.Errorf("expected 0 for fully degenerate input, got %d", got)
	}
}

func TestDegenerate(t *testing.T) {
	b := Point{X: 0.5, Y: 0.5}
	other := Point{X: 0.7, Y: 0.3}

	if !Degenerate(b, b, other) {
		t.Error("expected a == b to be degenerate")
	}
	if !Degenerate(other, b, b) {
		t.Error("expected c == b to be degenerate")
	}
	if Degenerate(other, b, Point{X: 0.1, Y: 0.9}) {
		t.Error("expected distinct points to be non-degenerate")
	}
}

func TestJointAngles_SparseMap(t *testing.T) {
	// A pose missing the elbow keypoint must not produce a left_elbow
	// entry, even though shoulder and wrist are visible.
	p := Pose{
		Keypoints: []Keypoint{
			{Name: LeftShoulder, X: 0.4, Y: 0.3, Score: 0.9},
			{Name: LeftWrist, X: 0.4, Y: 0.6, Score: 0.9},
		},
	}

	angles := JointAngles(p, MinConfidence)
	if _, ok := angles[LeftElbow]; ok {
		t.Error("expected no left_elbow entry when the elbow keypoint is missing")
	}
	if len(angles) != 0 {
		t.Errorf("expected empty angle map, got %v", angles)
	}
}

func TestJointAngles_LowConfidenceOmitted(t *testing.T) {
	p := Pose{
		Keypoints: []Keypoint{
			{Name: LeftShoulder, X: 0.4, Y: 0.3, Score: 0.9},
			{Name: LeftElbow, X: 0.45, Y: 0.45, Score: 0.05}, // below floor
			{Name: LeftWrist, X: 0.4, Y: 0.6, Score: 0.9},
		},
	}

	angles := JointAngles(p, MinConfidence)
	if _, ok := angles[LeftElbow]; ok {
		t.Error("expected left_elbow omitted when its confidence is below the floor")
	}
}

func TestJointAngles_ComputesElbowAndKnee(t *testing.T) {
	p := Pose{
		Keypoints: []Keypoint{
			{Name: LeftShoulder, X: 0.5, Y: 0.2, Score: 0.9},
			{Name: LeftElbow, X: 0.5, Y: 0.4, Score: 0.9},
			{Name: LeftWrist, X: 0.7, Y: 0.4, Score: 0.9},
			{Name: LeftHip, X: 0.5, Y: 0.5, Score: 0.9},
			{Name: LeftKnee, X: 0.5, Y: 0.7, Score: 0.9},
			{Name: LeftAnkle, X: 0.5, Y: 0.9, Score: 0.9},
		},
	}

	angles := JointAngles(p, MinConfidence)

	if got, ok := angles[LeftElbow]; !ok || got != 90 {
		t.Errorf("expected left_elbow angle 90, got %d (present=%v)", got, ok)
	}
	if got, ok := angles[LeftKnee]; !ok || got != 180 {
		t.Errorf("expected left_knee angle 180, got %d (present=%v)", got, ok)
	}
	// Hip needs knee and shoulder, both present: straight torso-to-thigh.
	if got, ok := angles[LeftHip]; !ok || got != 180 {
		t.Errorf("expected left_hip angle 180, got %d (present=%v)", got, ok)
	}
}
