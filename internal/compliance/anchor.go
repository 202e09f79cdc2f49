package compliance

import "sort"

// AnchorConfig tunes detection of the first sustained high-intensity run.
// The threshold is relative to each sequence's own 90th-percentile power, so
// the same constants work for planned targets and recorded watts.
type AnchorConfig struct {
	// HighRatio scales the sequence's p90 power into the run threshold.
	HighRatio float64 `json:"high_ratio"`
	// MinRunSeconds is the shortest run that counts as a real effort.
	MinRunSeconds int `json:"min_run_seconds"`
	// SearchWindowSeconds bounds how deep into the sequence to look.
	SearchWindowSeconds int `json:"search_window_seconds"`
}

// DefaultAnchorConfig returns the empirically tuned detection constants.
func DefaultAnchorConfig() AnchorConfig {
	return AnchorConfig{
		HighRatio:           0.9,
		MinRunSeconds:       45,
		SearchWindowSeconds: 600,
	}
}

// NoAnchor marks a sequence in which no qualifying effort run was found.
const NoAnchor = -1

// FindIntervalAnchors locates, independently in the planned and actual
// sequences, the index where the primary structured effort begins. Either
// side may come back NoAnchor; the aligner then falls back to an unanchored
// band for that pairing.
func (a Analyzer) FindIntervalAnchors(planned, actual []float64) (plannedAnchor, actualAnchor int) {
	return detectAnchor(planned, a.Anchor), detectAnchor(actual, a.Anchor)
}

// detectAnchor scans the first SearchWindowSeconds samples for the earliest
// run of at least MinRunSeconds consecutive samples at or above
// HighRatio * p90 of the whole sequence.
func detectAnchor(power []float64, cfg AnchorConfig) int {
	if len(power) == 0 {
		return NoAnchor
	}
	threshold := cfg.HighRatio * percentile(power, 0.9)
	if threshold <= 0 {
		return NoAnchor
	}

	limit := cfg.SearchWindowSeconds
	if limit > len(power) {
		limit = len(power)
	}

	runStart := NoAnchor
	runLen := 0
	for i := 0; i < limit; i++ {
		if power[i] >= threshold {
			if runLen == 0 {
				runStart = i
			}
			runLen++
			if runLen >= cfg.MinRunSeconds {
				return runStart
			}
		} else {
			runLen = 0
		}
	}
	// A run that starts inside the window may qualify by extending past it.
	if runLen > 0 {
		for i := limit; i < len(power) && runLen < cfg.MinRunSeconds; i++ {
			if power[i] < threshold {
				return NoAnchor
			}
			runLen++
		}
		if runLen >= cfg.MinRunSeconds {
			return runStart
		}
	}
	return NoAnchor
}

// percentile returns the q-quantile (0..1) of values by nearest-rank on a
// sorted copy.
func percentile(values []float64, q float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := int(q * float64(len(sorted)-1))
	return sorted[idx]
}
