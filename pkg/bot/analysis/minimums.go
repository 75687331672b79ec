// Package analysis computes minimum-value statistics over historical
// match data. The methodology works on minimums achieved at a given
// confidence level, never on averages: the 90% minimum is the value the
// team met or exceeded in at least 90% of historical matches.
package analysis

import (
	"errors"
	"math"
	"sort"
)

// ErrInsufficientData is returned when a computation is attempted over
// an empty observation window.
var ErrInsufficientData = errors.New("analysis: insufficient historical data")

// Confidence is one of the three supported confidence levels. The set
// is closed; no other levels are computed or stored.
type Confidence float64

const (
	Confidence70 Confidence = 0.70
	Confidence80 Confidence = 0.80
	Confidence90 Confidence = 0.90
)

// Confidences lists the closed set in decreasing-strictness order.
var Confidences = []Confidence{Confidence90, Confidence80, Confidence70}

// MinimumSet holds the minimum value achieved at each confidence level
// for one statistic. Values are monotonic: Min90 <= Min80 <= Min70.
// A set is computed fresh from the current window and replaced, never
// mutated in place.
type MinimumSet struct {
	Min70 int `json:"min_70"`
	Min80 int `json:"min_80"`
	Min90 int `json:"min_90"`

	// SampleSize is the number of observations the set was computed
	// from.
	SampleSize int `json:"sample_size"`

	// Degenerate marks samples too thin to distinguish the confidence
	// levels: a single observation, or all three levels collapsed to
	// the same value.
	Degenerate bool `json:"degenerate,omitempty"`
}

// At returns the minimum for a confidence level.
func (m MinimumSet) At(c Confidence) int {
	switch c {
	case Confidence80:
		return m.Min80
	case Confidence90:
		return m.Min90
	default:
		return m.Min70
	}
}

// ComputeMinimums computes the minimum value achieved at 70%, 80% and
// 90% confidence over a window of per-match observations.
//
// Nearest-rank method: with the observations sorted ascending, the
// minimum at confidence c is the value at rank ceil((1-c)*N), clamped
// to [1, N]. At least fraction c of matches met or exceeded it.
func ComputeMinimums(observations []int) (MinimumSet, error) {
	n := len(observations)
	if n == 0 {
		return MinimumSet{}, ErrInsufficientData
	}

	sorted := make([]int, n)
	copy(sorted, observations)
	sort.Ints(sorted)

	at := func(c Confidence) int {
		rank := int(math.Ceil((1 - float64(c)) * float64(n)))
		if rank < 1 {
			rank = 1
		}
		if rank > n {
			rank = n
		}
		return sorted[rank-1]
	}

	set := MinimumSet{
		Min70:      at(Confidence70),
		Min80:      at(Confidence80),
		Min90:      at(Confidence90),
		SampleSize: n,
	}
	set.Degenerate = n == 1 || set.Min90 == set.Min70

	return set, nil
}
