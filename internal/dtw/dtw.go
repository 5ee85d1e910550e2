// Package dtw implements dynamic time warping over joint-angle sequences.
// DTW finds the minimum-cost elastic alignment between two series, which
// makes the comparison tolerant of the two performers moving at different
// speeds or with phase offsets.
package dtw

import (
	"errors"
	"math"
)

// MinSamples is the minimum series length required on both sides. Shorter
// series carry too little shape to align meaningfully and are skipped from
// aggregate scoring.
const MinSamples = 5

// errWindowThreshold is the per-step angular error (degrees) above which a
// stretch of the warping path counts toward an error window.
const errWindowThreshold = 20

// ErrTooFewSamples is returned when either series is shorter than
// MinSamples.
var ErrTooFewSamples = errors.New("dtw: too few samples")

// Step is one element of the warping path, pairing a user index with a
// reference index.
type Step struct {
	UserIndex int `json:"userIndex"`
	RefIndex  int `json:"refIndex"`
}

// ErrorWindow marks a contiguous run of the warping path where the angular
// error stayed above the highlight threshold. Start and End are user-series
// indices; AvgError is the mean per-step error inside the run.
type ErrorWindow struct {
	Start    int     `json:"start"`
	End      int     `json:"end"`
	AvgError float64 `json:"avgError"`
}

// Result is the outcome of comparing one joint's angle series.
type Result struct {
	Score        int           `json:"score"`
	Cost         float64       `json:"cost"`
	Path         []Step        `json:"path"`
	ErrorWindows []ErrorWindow `json:"errorWindows"`
}

// Compare computes the DTW alignment between the user and reference angle
// series for one joint.
//
// The score normalizes the cumulative alignment cost by the worst case
// total angular error (180 degrees per frame of the longer series):
//
//	score = max(0, 100 - cost/(max(n,m)*180)*100)
//
// Identical series therefore score exactly 100 with cost 0.
func Compare(user, ref []int) (Result, error) {
	n := len(user)
	m := len(ref)
	if n < MinSamples || m < MinSamples {
		return Result{}, ErrTooFewSamples
	}

	// Cumulative cost matrix, (n+1) x (m+1), seeded with +Inf except the
	// origin. Local cost is the absolute angle difference; transitions are
	// the standard insertion/deletion/match neighbors.
	cost := make([][]float64, n+1)
	for i := range cost {
		cost[i] = make([]float64, m+1)
		for j := range cost[i] {
			cost[i][j] = math.Inf(1)
		}
	}
	cost[0][0] = 0

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			d := math.Abs(float64(user[i-1] - ref[j-1]))
			cost[i][j] = d + min3(cost[i-1][j], cost[i][j-1], cost[i-1][j-1])
		}
	}

	total := cost[n][m]
	path := backtrack(cost, n, m)

	longest := n
	if m > longest {
		longest = m
	}
	score := 100 - total/(float64(longest)*180)*100
	if score < 0 {
		score = 0
	}

	return Result{
		Score:        int(math.Round(score)),
		Cost:         total,
		Path:         path,
		ErrorWindows: errorWindows(path, user, ref),
	}, nil
}

// backtrack reconstructs the optimal warping path from the filled cost
// matrix, walking from (n,m) back to (1,1) through the cheapest
// predecessor.
func backtrack(cost [][]float64, n, m int) []Step {
	var reversed []Step
	i, j := n, m

	for i > 0 && j > 0 {
		reversed = append(reversed, Step{UserIndex: i - 1, RefIndex: j - 1})
		if i == 1 && j == 1 {
			break
		}

		diag := cost[i-1][j-1]
		up := cost[i-1][j]
		left := cost[i][j-1]

		switch {
		case diag <= up && diag <= left:
			i--
			j--
		case up <= left:
			i--
		default:
			j--
		}
	}

	// Reverse into chronological order.
	path := make([]Step, len(reversed))
	for k, s := range reversed {
		path[len(reversed)-1-k] = s
	}
	return path
}

// errorWindows scans the warping path for contiguous runs whose per-step
// angular error exceeds the highlight threshold and coalesces them into
// intervals over the user series.
func errorWindows(path []Step, user, ref []int) []ErrorWindow {
	var windows []ErrorWindow

	runStart := -1
	var runSum float64
	var runLen int

	flush := func(endIdx int) {
		if runStart < 0 {
			return
		}
		windows = append(windows, ErrorWindow{
			Start:    runStart,
			End:      endIdx,
			AvgError: runSum / float64(runLen),
		})
		runStart, runSum, runLen = -1, 0, 0
	}

	prevEnd := 0
	for _, step := range path {
		err := math.Abs(float64(user[step.UserIndex] - ref[step.RefIndex]))
		if err > errWindowThreshold {
			if runStart < 0 {
				runStart = step.UserIndex
			}
			runSum += err
			runLen++
			prevEnd = step.UserIndex
		} else {
			flush(prevEnd)
		}
	}
	flush(prevEnd)

	return windows
}

func min3(a, b, c float64) float64 {
	if a <= b && a <= c {
		return a
	}
	if b <= c {
		return b
	}
	return c
}
