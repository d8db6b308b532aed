package rules

import "math"

// LevelRange is a half-open win-ratio bucket [Min, Max) in percent.
type LevelRange struct {
	Min float64
	Max float64
}

// LevelThresholds maps a 1-10 level to its win-ratio bucket. This table is
// the single source of truth for level assignment: the migration sweep and
// the percentile search filters both read it, never a copy.
var LevelThresholds = map[int]LevelRange{
	10: {Min: 99.99, Max: math.Inf(1)},
	9:  {Min: 99.97, Max: 99.99},
	8:  {Min: 99.37, Max: 99.97},
	7:  {Min: 93.31, Max: 99.37},
	6:  {Min: 69.14, Max: 93.31},
	5:  {Min: 30.85, Max: 69.14},
	4:  {Min: 6.68, Max: 30.85},
	3:  {Min: 0.62, Max: 6.68},
	2:  {Min: 0.02, Max: 0.62},
	1:  {Min: math.Inf(-1), Max: 0.02},
}

const (
	MinLevel = 1
	MaxLevel = 10
)

// WinRatioPercent is the share of interacted votes the upload currently
// wins, in percent. Zero until the upload has at least one interaction.
func WinRatioPercent(bestCount, interactedCount int) float64 {
	if interactedCount <= 0 {
		return 0
	}
	return float64(bestCount) / float64(interactedCount) * 100
}

// ComputeLevel buckets an upload's win ratio into a 1-10 level. The second
// return is false while the upload has no interactions: its rank is
// undefined, not level 1.
func ComputeLevel(bestCount, interactedCount int) (int, bool) {
	if interactedCount <= 0 {
		return 0, false
	}

	ratio := WinRatioPercent(bestCount, interactedCount)
	for lvl := MaxLevel; lvl >= MinLevel; lvl-- {
		r := LevelThresholds[lvl]
		if ratio >= r.Min && ratio < r.Max {
			return lvl, true
		}
	}
	return 0, false
}

// RangeForLevel looks up the ratio bucket behind a level, for search filters
// that accept a level key instead of an explicit percentage range.
func RangeForLevel(level int) (LevelRange, bool) {
	r, ok := LevelThresholds[level]
	return r, ok
}
