package session

import (
	"fmt"
	"math"

	"github.com/ayusman/coacht/internal/dtw"
	"github.com/ayusman/coacht/internal/history"
	"github.com/ayusman/coacht/internal/pose"
	"github.com/ayusman/coacht/internal/score"
	"github.com/ayusman/coacht/internal/timing"
)

// angleTableStepMs is the resolution of the result angle tables. Both
// streams are resampled onto this shared timeline so their columns line up
// regardless of capture jitter.
const angleTableStepMs = 100

// AngleTable presents one stream's joint angles on a regular timeline.
// Timestamps and every angle series are parallel arrays of equal length.
type AngleTable struct {
	// Timestamps are elapsed times since test start, formatted MM:SS.mmm.
	Timestamps []string             `json:"timestamps"`
	Angles     map[pose.Joint][]int `json:"angles"`
}

// Len returns the number of rows in the table.
func (t AngleTable) Len() int {
	return len(t.Timestamps)
}

// Result is the immutable outcome of a finished test.
type Result struct {
	ID           string `json:"id"`
	OverallScore int    `json:"overallScore"`
	DTWScore     int    `json:"dtwScore"`
	FrameScore   int    `json:"frameScore"`
	Feedback     string `json:"feedback"`

	JointScores []score.JointScore        `json:"jointScores"`
	DTWResults  map[pose.Joint]dtw.Result `json:"dtwResults"`
	Timing      *timing.Analysis          `json:"timing,omitempty"`

	UserAngles       AngleTable `json:"userAngleTable"`
	InstructorAngles AngleTable `json:"instructorAngleTable"`

	StartedAt int64 `json:"startedAt"`
	StoppedAt int64 `json:"stoppedAt"`
}

// buildAngleTables resamples both angle logs onto a shared 100ms timeline
// spanning from test start to the earlier of the two logs' last samples,
// which keeps the two tables the same length by construction. Caller holds
// the lock.
func (s *Session) buildAngleTables() (AngleTable, AngleTable) {
	userEnd, okU := lastSampleTime(s.userAngles)
	refEnd, okR := lastSampleTime(s.refAngles)
	if !okU || !okR {
		return emptyTable(), emptyTable()
	}

	end := userEnd
	if refEnd < end {
		end = refEnd
	}

	var timeline []int64
	for ts := s.startTime; ts <= end; ts += angleTableStepMs {
		timeline = append(timeline, ts)
	}

	timestamps := make([]string, len(timeline))
	for i, ts := range timeline {
		timestamps[i] = formatElapsed(ts - s.startTime)
	}

	user := AngleTable{Timestamps: timestamps, Angles: make(map[pose.Joint][]int)}
	instructor := AngleTable{Timestamps: timestamps, Angles: make(map[pose.Joint][]int)}

	for _, joint := range s.userAngles.Joints() {
		userSamples := s.userAngles.Samples(joint)
		refSamples := s.refAngles.Samples(joint)
		if len(userSamples) == 0 || len(refSamples) == 0 {
			continue
		}
		user.Angles[joint] = resampleAngles(userSamples, timeline)
		instructor.Angles[joint] = resampleAngles(refSamples, timeline)
	}

	return user, instructor
}

func emptyTable() AngleTable {
	return AngleTable{Angles: make(map[pose.Joint][]int)}
}

func lastSampleTime(log *history.AngleLog) (int64, bool) {
	var last int64
	found := false
	for _, joint := range log.Joints() {
		samples := log.Samples(joint)
		if len(samples) == 0 {
			continue
		}
		if ts := samples[len(samples)-1].Timestamp; !found || ts > last {
			last = ts
			found = true
		}
	}
	return last, found
}

// resampleAngles evaluates the angle series at each timeline point by
// linear interpolation, holding the first and last values beyond the
// sampled range.
func resampleAngles(samples []history.AngleSample, timeline []int64) []int {
	out := make([]int, len(timeline))
	for i, ts := range timeline {
		out[i] = interpolateAngle(samples, ts)
	}
	return out
}

func interpolateAngle(samples []history.AngleSample, ts int64) int {
	if ts <= samples[0].Timestamp {
		return samples[0].Angle
	}
	last := samples[len(samples)-1]
	if ts >= last.Timestamp {
		return last.Angle
	}

	for i := 1; i < len(samples); i++ {
		if samples[i].Timestamp < ts {
			continue
		}
		prev := samples[i-1]
		next := samples[i]
		if next.Timestamp == prev.Timestamp {
			return next.Angle
		}
		frac := float64(ts-prev.Timestamp) / float64(next.Timestamp-prev.Timestamp)
		return int(math.Round(float64(prev.Angle) + frac*float64(next.Angle-prev.Angle)))
	}
	return last.Angle
}

// formatElapsed renders milliseconds since test start as MM:SS.mmm.
func formatElapsed(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	return fmt.Sprintf("%02d:%02d.%03d", ms/60000, (ms/1000)%60, ms%1000)
}
