// Package history holds the time-ordered pose and joint-angle logs that a
// test session accumulates, and the temporal lookups the analyzers need.
package history

import (
	"github.com/ayusman/coacht/internal/pose"
)

// DefaultPoseCapacity is the sliding-window size of a pose log. Movement and
// gap analysis only needs the recent past; the per-joint angle logs keep the
// full series for DTW.
const DefaultPoseCapacity = 50

// DefaultMatchWindowMs is the default window for nearest-timestamp lookups.
const DefaultMatchWindowMs = 300

// Entry is one recorded pose with its capture timestamp in epoch
// milliseconds.
type Entry struct {
	Pose      pose.Pose
	Timestamp int64
}

// AngleSample is one recorded joint angle with its capture timestamp.
type AngleSample struct {
	Angle     int
	Timestamp int64
}

// PoseLog is a bounded, append-only log of poses ordered by timestamp.
// When the capacity is exceeded the oldest entry is dropped.
type PoseLog struct {
	entries  []Entry
	capacity int

	// offsets records the time difference of fallback lookups, for
	// diagnostics only.
	offsets []int64
}

// NewPoseLog creates a PoseLog with the given capacity. Capacities <= 0 fall
// back to DefaultPoseCapacity.
func NewPoseLog(capacity int) *PoseLog {
	if capacity <= 0 {
		capacity = DefaultPoseCapacity
	}
	return &PoseLog{capacity: capacity}
}

// Append adds a pose to the log, evicting the oldest entry when full.
func (l *PoseLog) Append(p pose.Pose, timestamp int64) {
	if len(l.entries) >= l.capacity {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:len(l.entries)-1]
	}
	l.entries = append(l.entries, Entry{Pose: p, Timestamp: timestamp})
}

// Len returns the number of entries currently held.
func (l *PoseLog) Len() int {
	return len(l.entries)
}

// Entries returns the underlying entries, oldest first. The returned slice
// is shared with the log and must not be mutated.
func (l *PoseLog) Entries() []Entry {
	return l.entries
}

// Last returns the most recent entry, or false when the log is empty.
func (l *PoseLog) Last() (Entry, bool) {
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// Duration returns the elapsed milliseconds between the first and last
// entry, or 0 with fewer than two entries.
func (l *PoseLog) Duration() int64 {
	if len(l.entries) < 2 {
		return 0
	}
	return l.entries[len(l.entries)-1].Timestamp - l.entries[0].Timestamp
}

// Clear discards all entries and recorded offsets.
func (l *PoseLog) Clear() {
	l.entries = nil
	l.offsets = nil
}

// Nearest returns the entry closest in time to the given timestamp,
// preferring entries within windowMs. When no entry falls inside the window
// the globally closest entry is returned and the resulting time offset is
// recorded for diagnostics. Returns false only when the log is empty.
func (l *PoseLog) Nearest(timestamp int64, windowMs int64) (Entry, bool) {
	if len(l.entries) == 0 {
		return Entry{}, false
	}

	var best Entry
	var bestDiff int64 = -1
	inWindow := false

	for _, e := range l.entries {
		diff := e.Timestamp - timestamp
		if diff < 0 {
			diff = -diff
		}
		within := diff <= windowMs
		switch {
		case within && !inWindow:
			// First candidate inside the window beats anything outside.
			best, bestDiff, inWindow = e, diff, true
		case within == inWindow && (bestDiff < 0 || diff < bestDiff):
			best, bestDiff = e, diff
		}
	}

	if !inWindow {
		l.offsets = append(l.offsets, best.Timestamp-timestamp)
	}
	return best, true
}

// Offsets returns the diagnostic time offsets recorded by out-of-window
// lookups.
func (l *PoseLog) Offsets() []int64 {
	return l.offsets
}

// AngleLog keeps the full angle-vs-time series per joint for one stream.
// Unlike PoseLog it is unbounded: DTW needs the complete series.
type AngleLog struct {
	samples map[pose.Joint][]AngleSample
}

// NewAngleLog creates an empty AngleLog.
func NewAngleLog() *AngleLog {
	return &AngleLog{samples: make(map[pose.Joint][]AngleSample)}
}

// Append records one angle sample for the joint.
func (l *AngleLog) Append(joint pose.Joint, angle int, timestamp int64) {
	l.samples[joint] = append(l.samples[joint], AngleSample{Angle: angle, Timestamp: timestamp})
}

// Samples returns the recorded series for the joint, oldest first.
func (l *AngleLog) Samples(joint pose.Joint) []AngleSample {
	return l.samples[joint]
}

// Angles returns just the angle values for the joint, oldest first.
func (l *AngleLog) Angles(joint pose.Joint) []int {
	s := l.samples[joint]
	angles := make([]int, len(s))
	for i, sample := range s {
		angles[i] = sample.Angle
	}
	return angles
}

// Joints returns the joints that have at least one sample.
func (l *AngleLog) Joints() []pose.Joint {
	joints := make([]pose.Joint, 0, len(l.samples))
	for j := range l.samples {
		joints = append(joints, j)
	}
	return joints
}

// Clear discards all samples.
func (l *AngleLog) Clear() {
	l.samples = make(map[pose.Joint][]AngleSample)
}

// TruncateAngleLogs cuts each joint's user and reference series to their
// common length. Called once at session stop so the two streams hand equal
// length series to DTW and the result tables; the stop flag guarantees no
// append is in flight.
func TruncateAngleLogs(user, ref *AngleLog) {
	for joint, userSamples := range user.samples {
		refSamples, ok := ref.samples[joint]
		if !ok {
			continue
		}
		n := len(userSamples)
		if len(refSamples) < n {
			n = len(refSamples)
		}
		user.samples[joint] = userSamples[:n]
		ref.samples[joint] = refSamples[:n]
	}
}
