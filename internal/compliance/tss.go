package compliance

import "math"

const secondsPerHour = 3600.0

// SegmentTSS calculates the Training Stress Score contributed by one planned
// segment. The intensity factor is the midpoint of the target band expressed
// as a fraction of FTP; highPct <= 0 means a single-valued target.
// Segment values are not rounded so that workout and weekly sums round once.
func SegmentTSS(durationSeconds, lowPct, highPct float64) float64 {
	if durationSeconds <= 0 {
		return 0
	}
	if highPct <= 0 {
		highPct = lowPct
	}
	intensity := (lowPct + highPct) / 2 / 100
	return durationSeconds / secondsPerHour * intensity * intensity * 100
}

// WorkoutTSS sums segment TSS values and rounds to one decimal.
// An empty segment list yields 0.
func WorkoutTSS(segments []PlannedStep) float64 {
	var total float64
	for _, s := range segments {
		total += stepTSS(s)
	}
	return roundTenth(total)
}

// WeeklyTSS sums workout TSS values over a week and rounds to one decimal.
func WeeklyTSS(workouts [][]PlannedStep) float64 {
	var total float64
	for _, w := range workouts {
		total += WorkoutTSS(w)
	}
	return roundTenth(total)
}

// stepTSS handles interval steps by expanding repeats over their sub-steps.
func stepTSS(s PlannedStep) float64 {
	if s.Type == StepInterval && s.Work != nil && s.Recovery != nil {
		per := stepTSS(*s.Work) + stepTSS(*s.Recovery)
		return per * float64(s.RepeatCount)
	}
	return SegmentTSS(float64(s.DurationSeconds), s.PowerLowPct, s.PowerHighPct)
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
