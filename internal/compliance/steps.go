package compliance

import "fmt"

// StepType tags a planned step variant.
type StepType string

const (
	StepWarmup   StepType = "warmup"
	StepInterval StepType = "interval"
	StepRecovery StepType = "recovery"
	StepCooldown StepType = "cooldown"
	StepSteady   StepType = "steady"
)

// PlannedStep is one portion of a structured workout. A simple step has a
// duration and a target power band in percent of FTP. An interval step
// instead carries a repeat count with work and recovery sub-step templates.
type PlannedStep struct {
	Type            StepType `json:"type"`
	DurationSeconds int      `json:"duration_seconds"`
	PowerLowPct     float64  `json:"power_low_pct"`
	PowerHighPct    float64  `json:"power_high_pct"`
	Description     string   `json:"description,omitempty"`

	RepeatCount int          `json:"repeat_count,omitempty"`
	Work        *PlannedStep `json:"work_substep,omitempty"`
	Recovery    *PlannedStep `json:"recovery_substep,omitempty"`
}

// PowerSample is one point of the recorded power stream. TimeOffset is
// seconds since recording start; sensor dropouts appear as missing offsets,
// never as re-timestamped samples.
type PowerSample struct {
	TimeOffset int     `json:"time_offset_seconds"`
	Watts      float64 `json:"power_watts"`
}

// TargetMidPct returns the midpoint of the step's target band.
func (s PlannedStep) TargetMidPct() float64 {
	high := s.PowerHighPct
	if high <= 0 {
		high = s.PowerLowPct
	}
	return (s.PowerLowPct + high) / 2
}

// TotalSeconds returns the step's expanded duration, with interval repeats
// multiplied out.
func (s PlannedStep) TotalSeconds() int {
	if s.Type == StepInterval && s.Work != nil && s.Recovery != nil {
		return s.RepeatCount * (s.Work.TotalSeconds() + s.Recovery.TotalSeconds())
	}
	return s.DurationSeconds
}

// Validate checks a step's structure without expanding it.
func (s PlannedStep) Validate() error {
	if s.Type == StepInterval {
		if s.RepeatCount <= 0 {
			return fmt.Errorf("%w: interval step needs a positive repeat count, got %d", ErrMalformedPlan, s.RepeatCount)
		}
		if s.Work == nil || s.Recovery == nil {
			return fmt.Errorf("%w: interval step needs work and recovery sub-steps", ErrMalformedPlan)
		}
		if err := s.Work.Validate(); err != nil {
			return err
		}
		return s.Recovery.Validate()
	}
	if s.DurationSeconds <= 0 {
		return fmt.Errorf("%w: step %q has non-positive duration %d", ErrMalformedPlan, s.Type, s.DurationSeconds)
	}
	return nil
}

// ExpandStepsToSeconds flattens an ordered step list into a dense per-second
// target power sequence in watts. Each interval repeat emits its work seconds
// followed by its recovery seconds, in document order. The result length is
// the sum of all repeat-expanded step durations.
func (a Analyzer) ExpandStepsToSeconds(steps []PlannedStep) ([]float64, error) {
	if a.FTP <= 0 {
		return nil, fmt.Errorf("%w: FTP must be positive, got %.1f", ErrInvalidInput, a.FTP)
	}
	total := 0
	for _, s := range steps {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		total += s.TotalSeconds()
	}
	expanded := make([]float64, 0, total)
	for _, s := range steps {
		expanded = a.appendStepSeconds(expanded, s)
	}
	return expanded, nil
}

func (a Analyzer) appendStepSeconds(dst []float64, s PlannedStep) []float64 {
	if s.Type == StepInterval && s.Work != nil && s.Recovery != nil {
		for r := 0; r < s.RepeatCount; r++ {
			dst = a.appendStepSeconds(dst, *s.Work)
			dst = a.appendStepSeconds(dst, *s.Recovery)
		}
		return dst
	}
	target := s.TargetMidPct() / 100 * a.FTP
	for i := 0; i < s.DurationSeconds; i++ {
		dst = append(dst, target)
	}
	return dst
}
