package compliance

import (
	"fmt"
	"math"
)

// MaxStreamSamples caps the actual stream at 48 hours of 1Hz data. Longer
// streams fail fast instead of growing the cost table without bound.
const MaxStreamSamples = 172800

// DTWConfig tunes the banded dynamic time warping alignment.
type DTWConfig struct {
	// Downsample block-averages both sequences by this factor before the
	// DP pass; the recovered mapping is upsampled back afterward.
	Downsample int `json:"downsample"`
	// Window is the Sakoe-Chiba band half-width, in downsampled units,
	// bounding |planned - actual - offset|.
	Window int `json:"window"`
	// Penalty is added per unit of offset from the band center,
	// discouraging large warps even inside the window.
	Penalty float64 `json:"penalty"`
	// Psi is how many leading/trailing samples on either sequence may be
	// skipped for free, tolerating early device starts and late stops.
	Psi int `json:"psi"`
	// Anchor recenters the band on the detected anchor pair instead of the
	// zero-offset diagonal. It only shifts where the band is searched.
	Anchor bool `json:"anchor"`
}

// DefaultDTWConfig returns the alignment defaults used by Analyze.
func DefaultDTWConfig() DTWConfig {
	return DTWConfig{
		Downsample: 5,
		Window:     120,
		Penalty:    0.05,
		Psi:        12,
		Anchor:     true,
	}
}

// IndexPair maps one planned index to one actual index.
type IndexPair struct {
	Planned int `json:"planned_index"`
	Actual  int `json:"actual_index"`
}

// SampleRange is a half-open [Start,End) range of actual-stream indices.
type SampleRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Empty reports whether the range contains no samples.
func (r SampleRange) Empty() bool { return r.End <= r.Start }

// AlignmentDiagnostics describes how an alignment was produced, for report
// annotation.
type AlignmentDiagnostics struct {
	Algorithm     string    `json:"algorithm"`
	Config        DTWConfig `json:"config"`
	PlannedAnchor int       `json:"planned_anchor"`
	ActualAnchor  int       `json:"actual_anchor"`
}

// AlignedSeries is the aligner output: per planned second, the actual-stream
// sub-range it corresponds to. It carries the stream so a report can be
// regenerated from one alignment.
type AlignedSeries struct {
	Stream      []PowerSample
	Pairs       []IndexPair
	Ranges      []SampleRange // one per planned second
	Diagnostics AlignmentDiagnostics
}

// Align computes a monotonic mapping from the expanded plan onto the recorded
// stream, minimizing cumulative absolute power difference under the banded
// warp. Pass NoAnchor for either anchor to fall back to a diagonal band.
func (a Analyzer) Align(planned []float64, stream []PowerSample, plannedAnchor, actualAnchor int) (*AlignedSeries, error) {
	if len(stream) > MaxStreamSamples {
		return nil, fmt.Errorf("%w: %d samples exceeds the %d sample bound", ErrStreamTooLarge, len(stream), MaxStreamSamples)
	}
	actual := make([]float64, len(stream))
	for i, s := range stream {
		actual[i] = s.Watts
	}

	pairs, err := alignPower(planned, actual, plannedAnchor, actualAnchor, a.DTW)
	if err != nil {
		return nil, err
	}

	ranges := make([]SampleRange, len(planned))
	for _, p := range pairs {
		r := &ranges[p.Planned]
		if r.Empty() {
			*r = SampleRange{Start: p.Actual, End: p.Actual + 1}
			continue
		}
		if p.Actual < r.Start {
			r.Start = p.Actual
		}
		if p.Actual+1 > r.End {
			r.End = p.Actual + 1
		}
	}

	return &AlignedSeries{
		Stream: stream,
		Pairs:  pairs,
		Ranges: ranges,
		Diagnostics: AlignmentDiagnostics{
			Algorithm:     AlgorithmVersion,
			Config:        a.DTW,
			PlannedAnchor: plannedAnchor,
			ActualAnchor:  actualAnchor,
		},
	}, nil
}

// alignPower runs the downsampled banded DP and upsamples the warp path back
// to original resolution.
func alignPower(planned, actual []float64, plannedAnchor, actualAnchor int, cfg DTWConfig) ([]IndexPair, error) {
	ds := cfg.Downsample
	if ds < 1 {
		ds = 1
	}
	dp := blockAverage(planned, ds)
	da := blockAverage(actual, ds)
	if len(dp) < 2 || len(da) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 downsampled samples per side, got %d planned and %d actual", ErrInsufficientData, len(dp), len(da))
	}

	offset := 0
	if cfg.Anchor && plannedAnchor != NoAnchor && actualAnchor != NoAnchor {
		offset = actualAnchor/ds - plannedAnchor/ds
	}

	path := bandedWarpPath(dp, da, offset, cfg)
	return upsamplePath(path, ds, len(planned), len(actual)), nil
}

// bandedWarpPath fills the Sakoe-Chiba-banded cost table and backtracks the
// minimum-cost warp path. Rows hold only the band, keeping memory at
// O(n*window) rather than O(n*m).
func bandedWarpPath(dp, da []float64, offset int, cfg DTWConfig) []IndexPair {
	n, m := len(dp), len(da)
	window := cfg.Window
	if window < 1 {
		window = 1
	}
	psi := cfg.Psi

	width := 2*window + 1
	cost := make([][]float64, n)
	jLo := make([]int, n)

	inBand := func(i, j int) bool {
		return j >= jLo[i] && j < jLo[i]+width && j >= 0 && j < m
	}
	at := func(i, j int) float64 {
		if i < 0 || i >= n || !inBand(i, j) {
			return math.Inf(1)
		}
		return cost[i][j-jLo[i]]
	}

	for i := 0; i < n; i++ {
		center := i + offset
		lo := center - window
		jLo[i] = lo
		cost[i] = make([]float64, width)
		for k := range cost[i] {
			cost[i][k] = math.Inf(1)
		}

		for j := lo; j < lo+width; j++ {
			if j < 0 || j >= m {
				continue
			}
			local := math.Abs(dp[i]-da[j]) + cfg.Penalty*math.Abs(float64(j-i-offset))

			best := math.Min(at(i-1, j), math.Min(at(i, j-1), at(i-1, j-1)))
			switch {
			case i == 0 && j <= psi:
				// free skip of leading actual samples
				best = 0
			case j == 0 && i <= psi:
				// free skip of leading planned samples
				best = 0
			case i == 0:
				best = at(0, j-1)
			case j == 0:
				best = at(i-1, 0)
			}
			if !math.IsInf(best, 1) {
				cost[i][j-jLo[i]] = local + best
			}
		}
	}

	// psi-relaxed terminal: end anywhere in the last psi samples of either
	// sequence.
	endI, endJ := n-1, m-1
	bestEnd := math.Inf(1)
	for j := m - 1 - psi; j <= m-1; j++ {
		if c := at(n-1, j); c < bestEnd {
			bestEnd, endI, endJ = c, n-1, j
		}
	}
	for i := n - 1 - psi; i <= n-1; i++ {
		if c := at(i, m-1); c < bestEnd {
			bestEnd, endI, endJ = c, i, m-1
		}
	}
	if math.IsInf(bestEnd, 1) {
		// the band never reached a terminal cell; fall back to the last
		// in-band cell of the final row
		endI = n - 1
		for j := jLo[endI] + width - 1; j >= jLo[endI]; j-- {
			if !math.IsInf(at(endI, j), 1) {
				endJ = j
				break
			}
		}
	}

	var rev []IndexPair
	i, j := endI, endJ
	for {
		rev = append(rev, IndexPair{Planned: i, Actual: j})
		if i == 0 && j <= psi {
			break
		}
		if j == 0 && i <= psi {
			break
		}
		if i == 0 {
			j--
			continue
		}
		if j == 0 {
			i--
			continue
		}
		diag, up, left := at(i-1, j-1), at(i-1, j), at(i, j-1)
		if diag <= up && diag <= left {
			i, j = i-1, j-1
		} else if up <= left {
			i--
		} else {
			j--
		}
	}

	path := make([]IndexPair, len(rev))
	for k := range rev {
		path[k] = rev[len(rev)-1-k]
	}
	return path
}

// upsamplePath scales a downsampled warp path back to original-resolution
// index pairs by linear scaling within each block. Non-diagonal path moves
// repeat a block index, so each emitted index is clamped to never step
// backwards past the previous pair; the mapping stays monotonic in both
// coordinates.
func upsamplePath(path []IndexPair, ds, plannedLen, actualLen int) []IndexPair {
	if ds == 1 {
		return path
	}
	out := make([]IndexPair, 0, len(path)*ds)
	lastP, lastA := -1, -1
	for _, p := range path {
		for k := 0; k < ds; k++ {
			pi := p.Planned*ds + k
			ai := p.Actual*ds + k
			if pi >= plannedLen {
				pi = plannedLen - 1
			}
			if ai >= actualLen {
				ai = actualLen - 1
			}
			if pi < lastP {
				pi = lastP
			}
			if ai < lastA {
				ai = lastA
			}
			out = append(out, IndexPair{Planned: pi, Actual: ai})
			lastP, lastA = pi, ai
		}
	}
	return out
}

// blockAverage averages consecutive blocks of size factor. A short trailing
// block is averaged over its actual length.
func blockAverage(seq []float64, factor int) []float64 {
	if factor <= 1 {
		out := make([]float64, len(seq))
		copy(out, seq)
		return out
	}
	out := make([]float64, 0, (len(seq)+factor-1)/factor)
	for start := 0; start < len(seq); start += factor {
		end := start + factor
		if end > len(seq) {
			end = len(seq)
		}
		var sum float64
		for _, v := range seq[start:end] {
			sum += v
		}
		out = append(out, sum/float64(end-start))
	}
	return out
}
