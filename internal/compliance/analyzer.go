package compliance

import (
	"fmt"
	"time"
)

// AlgorithmVersion identifies the alignment and scoring algorithm in report
// metadata, so cached reports from older versions can be told apart.
const AlgorithmVersion = "dtw-compliance/1.2"

// Weights blends the three sub-scores into a segment score. Power is weighted
// highest; it is the primary training stimulus.
type Weights struct {
	Power    float64 `json:"power"`
	Zone     float64 `json:"zone"`
	Duration float64 `json:"duration"`
}

// DefaultWeights returns the default 50/30/20 blend.
func DefaultWeights() Weights {
	return Weights{Power: 0.5, Zone: 0.3, Duration: 0.2}
}

// Analyzer scores a completed ride against a planned workout. It is a pure
// value type: construct one per call, share nothing.
type Analyzer struct {
	FTP     float64
	Weights Weights
	Anchor  AnchorConfig
	DTW     DTWConfig
}

// NewAnalyzer returns an Analyzer with default tuning for the given FTP.
func NewAnalyzer(ftp float64) Analyzer {
	return Analyzer{
		FTP:     ftp,
		Weights: DefaultWeights(),
		Anchor:  DefaultAnchorConfig(),
		DTW:     DefaultDTWConfig(),
	}
}

// TimeInZone is the fractional per-zone histogram for one segment. Fractions
// sum to 1.0 whenever the segment has aligned data.
type TimeInZone struct {
	Z1 float64 `json:"z1"`
	Z2 float64 `json:"z2"`
	Z3 float64 `json:"z3"`
	Z4 float64 `json:"z4"`
	Z5 float64 `json:"z5"`
	Z6 float64 `json:"z6"`
}

// Match quality labels.
const (
	QualityExcellent = "excellent"
	QualityGood      = "good"
	QualityFair      = "fair"
	QualityPoor      = "poor"
	QualitySkipped   = "skipped"
)

// SegmentAnalysis is the per-segment execution verdict.
type SegmentAnalysis struct {
	SegmentIndex int      `json:"segment_index"`
	Type         StepType `json:"type"`
	Description  string   `json:"description,omitempty"`

	PlannedDurationSeconds int     `json:"planned_duration_seconds"`
	PlannedPowerLowWatts   float64 `json:"planned_power_low_watts"`
	PlannedPowerHighWatts  float64 `json:"planned_power_high_watts"`
	PlannedZone            Zone    `json:"planned_zone"`

	ActualDurationSeconds int     `json:"actual_duration_seconds"`
	ActualAvgPowerWatts   float64 `json:"actual_avg_power_watts"`
	ActualMaxPowerWatts   float64 `json:"actual_max_power_watts"`
	ActualMinPowerWatts   float64 `json:"actual_min_power_watts"`
	ActualDominantZone    Zone    `json:"actual_dominant_zone"`

	TimeInZone TimeInZone `json:"time_in_zone"`

	PowerCompliance     float64 `json:"power_compliance"`
	ZoneCompliance      float64 `json:"zone_compliance"`
	DurationCompliance  float64 `json:"duration_compliance"`
	OverallSegmentScore float64 `json:"overall_segment_score"`
	MatchQuality        string  `json:"match_quality"`
	Assessment          string  `json:"assessment"`
}

// OverallCompliance aggregates segment scores for the whole workout.
type OverallCompliance struct {
	Score             float64 `json:"score"`
	Grade             string  `json:"grade"`
	SegmentsCompleted int     `json:"segments_completed"`
	SegmentsSkipped   int     `json:"segments_skipped"`
}

// Metadata describes how a report was produced.
type Metadata struct {
	AlgorithmVersion   string `json:"algorithm_version"`
	DataQuality        string `json:"data_quality"`
	AnalysisDurationMS int64  `json:"analysis_duration_ms"`
}

// ComplianceReport is the engine's output contract.
type ComplianceReport struct {
	Segments  []SegmentAnalysis    `json:"segments"`
	Overall   OverallCompliance    `json:"overall"`
	Metadata  Metadata             `json:"metadata"`
	Alignment AlignmentDiagnostics `json:"alignment"`
}

// Analyze expands the plan, detects anchors, aligns the stream with default
// configuration, and scores each original (non-expanded) step.
func (a Analyzer) Analyze(steps []PlannedStep, stream []PowerSample) ([]SegmentAnalysis, error) {
	aligned, err := a.AlignSteps(steps, stream)
	if err != nil {
		return nil, err
	}
	report, err := a.AnalyzeWithAlignedSeries(steps, aligned)
	if err != nil {
		return nil, err
	}
	return report.Segments, nil
}

// AlignSteps runs the expand/anchor/align pipeline and returns the alignment
// so that repeated report generation can reuse it.
func (a Analyzer) AlignSteps(steps []PlannedStep, stream []PowerSample) (*AlignedSeries, error) {
	if err := a.validate(steps, stream); err != nil {
		return nil, err
	}
	expanded, err := a.ExpandStepsToSeconds(steps)
	if err != nil {
		return nil, err
	}
	actual := make([]float64, len(stream))
	for i, s := range stream {
		actual[i] = s.Watts
	}
	plannedAnchor, actualAnchor := a.FindIntervalAnchors(expanded, actual)
	return a.Align(expanded, stream, plannedAnchor, actualAnchor)
}

// AnalyzeWithAlignedSeries scores each step against an externally-computed
// alignment and assembles the full report.
func (a Analyzer) AnalyzeWithAlignedSeries(steps []PlannedStep, aligned *AlignedSeries) (*ComplianceReport, error) {
	started := time.Now()
	if a.FTP <= 0 {
		return nil, fmt.Errorf("%w: FTP must be positive, got %.1f", ErrInvalidInput, a.FTP)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: no planned steps", ErrInvalidInput)
	}
	if aligned == nil || len(aligned.Ranges) == 0 {
		return nil, fmt.Errorf("%w: no alignment", ErrInvalidInput)
	}

	segments := make([]SegmentAnalysis, 0, len(steps))
	cursor := 0
	for i, step := range steps {
		length := step.TotalSeconds()
		seg := a.scoreSegment(i, step, cursor, cursor+length, aligned)
		segments = append(segments, seg)
		cursor += length
	}

	report := &ComplianceReport{
		Segments:  segments,
		Overall:   aggregate(segments),
		Alignment: aligned.Diagnostics,
		Metadata: Metadata{
			AlgorithmVersion:   AlgorithmVersion,
			DataQuality:        dataQuality(aligned.Stream),
			AnalysisDurationMS: time.Since(started).Milliseconds(),
		},
	}
	return report, nil
}

func (a Analyzer) validate(steps []PlannedStep, stream []PowerSample) error {
	if a.FTP <= 0 {
		return fmt.Errorf("%w: FTP must be positive, got %.1f", ErrInvalidInput, a.FTP)
	}
	if len(steps) == 0 {
		return fmt.Errorf("%w: no planned steps", ErrInvalidInput)
	}
	if len(stream) == 0 {
		return fmt.Errorf("%w: empty power stream", ErrInvalidInput)
	}
	if len(stream) > MaxStreamSamples {
		return fmt.Errorf("%w: %d samples exceeds the %d sample bound", ErrStreamTooLarge, len(stream), MaxStreamSamples)
	}
	return nil
}

// scoreSegment resolves a step's expanded-second range [startSec,endSec) to
// its aligned actual sub-range and scores execution.
func (a Analyzer) scoreSegment(index int, step PlannedStep, startSec, endSec int, aligned *AlignedSeries) SegmentAnalysis {
	lowPct, highPct := step.targetBandPct()
	seg := SegmentAnalysis{
		SegmentIndex:           index,
		Type:                   step.Type,
		Description:            step.Description,
		PlannedDurationSeconds: endSec - startSec,
		PlannedPowerLowWatts:   lowPct / 100 * a.FTP,
		PlannedPowerHighWatts:  highPct / 100 * a.FTP,
		PlannedZone:            ZoneForPercent(step.plannedZonePct()),
	}

	sub := aligned.subRange(startSec, endSec)
	if sub.Empty() {
		seg.MatchQuality = QualitySkipped
		seg.Assessment = "no aligned ride data for this segment"
		return seg
	}
	samples := aligned.Stream[sub.Start:sub.End]

	seg.ActualDurationSeconds = samples[len(samples)-1].TimeOffset - samples[0].TimeOffset + 1
	seg.ActualMinPowerWatts = samples[0].Watts
	var sum float64
	var zoneCounts [6]int
	for _, s := range samples {
		sum += s.Watts
		if s.Watts > seg.ActualMaxPowerWatts {
			seg.ActualMaxPowerWatts = s.Watts
		}
		if s.Watts < seg.ActualMinPowerWatts {
			seg.ActualMinPowerWatts = s.Watts
		}
		z, _ := ZoneForPower(s.Watts, a.FTP)
		zoneCounts[z-1]++
	}
	seg.ActualAvgPowerWatts = sum / float64(len(samples))
	seg.ActualDominantZone = dominantZone(zoneCounts)
	seg.TimeInZone = zoneFractions(zoneCounts, len(samples))

	seg.PowerCompliance = powerCompliance(seg.ActualAvgPowerWatts, seg.PlannedPowerLowWatts, seg.PlannedPowerHighWatts)
	seg.ZoneCompliance = zoneCompliance(seg.ActualDominantZone, seg.PlannedZone)
	seg.DurationCompliance = durationCompliance(seg.ActualDurationSeconds, seg.PlannedDurationSeconds)
	seg.OverallSegmentScore = clampScore(
		a.Weights.Power*seg.PowerCompliance +
			a.Weights.Zone*seg.ZoneCompliance +
			a.Weights.Duration*seg.DurationCompliance)
	seg.MatchQuality = qualityLabel(seg.OverallSegmentScore)
	seg.Assessment = buildAssessment(seg)
	return seg
}

// targetBandPct returns the step's scoring band. Interval steps span from
// their recovery floor to their work ceiling.
func (s PlannedStep) targetBandPct() (low, high float64) {
	if s.Type == StepInterval && s.Work != nil && s.Recovery != nil {
		wLow, wHigh := s.Work.targetBandPct()
		rLow, rHigh := s.Recovery.targetBandPct()
		return min(wLow, rLow), max(wHigh, rHigh)
	}
	low, high = s.PowerLowPct, s.PowerHighPct
	if high <= 0 {
		high = low
	}
	return low, high
}

// plannedZonePct is the percent-of-FTP value the planned zone is classified
// from. Interval steps classify by their work effort's midpoint; a correctly
// ridden interval is dominated by work seconds, and the recovery valleys are
// not the zone the step trains.
func (s PlannedStep) plannedZonePct() float64 {
	if s.Type == StepInterval && s.Work != nil {
		return s.Work.plannedZonePct()
	}
	low, high := s.targetBandPct()
	return (low + high) / 2
}

// subRange unions the aligned ranges of the planned seconds in [startSec,endSec).
func (as *AlignedSeries) subRange(startSec, endSec int) SampleRange {
	out := SampleRange{}
	if startSec < 0 {
		startSec = 0
	}
	if endSec > len(as.Ranges) {
		endSec = len(as.Ranges)
	}
	for sec := startSec; sec < endSec; sec++ {
		r := as.Ranges[sec]
		if r.Empty() {
			continue
		}
		if out.Empty() {
			out = r
			continue
		}
		if r.Start < out.Start {
			out.Start = r.Start
		}
		if r.End > out.End {
			out.End = r.End
		}
	}
	return out
}

// powerCompliance is 100 inside the target band, degrading in proportion to
// the over/undershoot relative to the band width.
func powerCompliance(avg, lowW, highW float64) float64 {
	width := highW - lowW
	if width <= 0 {
		// single-valued target: tolerate 5% of the target as the band
		width = 0.05 * highW
		if width <= 0 {
			width = 1
		}
	}
	var outside float64
	switch {
	case avg < lowW:
		outside = lowW - avg
	case avg > highW:
		outside = avg - highW
	default:
		return 100
	}
	return clampScore(100 - 100*outside/width)
}

// zoneCompliance gives full credit for the planned zone and partial credit
// falling off with zone distance, reaching 0 at three zones away.
func zoneCompliance(actual, planned Zone) float64 {
	dist := int(actual) - int(planned)
	if dist < 0 {
		dist = -dist
	}
	return clampScore(100 - 40*float64(dist))
}

// durationCompliance is the symmetric closeness of the actual and planned
// durations: 100 at parity, scaling with the smaller/larger ratio.
func durationCompliance(actual, planned int) float64 {
	if actual <= 0 || planned <= 0 {
		return 0
	}
	lo, hi := float64(actual), float64(planned)
	if lo > hi {
		lo, hi = hi, lo
	}
	return clampScore(100 * lo / hi)
}

func qualityLabel(score float64) string {
	switch {
	case score >= 90:
		return QualityExcellent
	case score >= 75:
		return QualityGood
	case score >= 60:
		return QualityFair
	default:
		return QualityPoor
	}
}

// aggregate averages non-skipped segment scores; skipped segments are counted
// separately, not zero-filled into the mean.
func aggregate(segments []SegmentAnalysis) OverallCompliance {
	overall := OverallCompliance{}
	var sum float64
	for _, s := range segments {
		if s.MatchQuality == QualitySkipped {
			overall.SegmentsSkipped++
			continue
		}
		overall.SegmentsCompleted++
		sum += s.OverallSegmentScore
	}
	if overall.SegmentsCompleted > 0 {
		overall.Score = sum / float64(overall.SegmentsCompleted)
	}
	overall.Grade = gradeFor(overall.Score)
	return overall
}

// gradeFor is a deterministic step function of the overall score.
func gradeFor(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// dataQuality labels stream coverage: the fraction of the recorded span that
// actually has samples (dropouts lower it).
func dataQuality(stream []PowerSample) string {
	if len(stream) == 0 {
		return "empty"
	}
	span := stream[len(stream)-1].TimeOffset - stream[0].TimeOffset + 1
	if span <= 0 {
		return "sparse"
	}
	coverage := float64(len(stream)) / float64(span)
	switch {
	case coverage >= 0.95:
		return "complete"
	case coverage >= 0.80:
		return "good"
	default:
		return "sparse"
	}
}

func dominantZone(counts [6]int) Zone {
	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return Zone(best + 1)
}

func zoneFractions(counts [6]int, total int) TimeInZone {
	if total == 0 {
		return TimeInZone{}
	}
	f := func(i int) float64 { return float64(counts[i]) / float64(total) }
	return TimeInZone{Z1: f(0), Z2: f(1), Z3: f(2), Z4: f(3), Z5: f(4), Z6: f(5)}
}

func buildAssessment(seg SegmentAnalysis) string {
	target := fmt.Sprintf("%.0f-%.0fW", seg.PlannedPowerLowWatts, seg.PlannedPowerHighWatts)
	switch seg.MatchQuality {
	case QualityExcellent:
		return fmt.Sprintf("executed as planned: avg %.0fW against %s", seg.ActualAvgPowerWatts, target)
	case QualityGood:
		return fmt.Sprintf("close to plan: avg %.0fW against %s", seg.ActualAvgPowerWatts, target)
	case QualityFair:
		return fmt.Sprintf("partial execution: avg %.0fW against %s", seg.ActualAvgPowerWatts, target)
	default:
		if seg.ActualAvgPowerWatts > seg.PlannedPowerHighWatts {
			return fmt.Sprintf("well above target: avg %.0fW against %s", seg.ActualAvgPowerWatts, target)
		}
		return fmt.Sprintf("well below target: avg %.0fW against %s", seg.ActualAvgPowerWatts, target)
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
