package workout

import (
	"encoding/xml"
	"fmt"

	"veloscore/internal/compliance"
)

// zwoFile is the Zwift workout XML document. Power attributes are fractions
// of FTP (0.75 == 75%).
type zwoFile struct {
	XMLName     xml.Name   `xml:"workout_file"`
	Name        string     `xml:"name"`
	Description string     `xml:"description"`
	Workout     zwoWorkout `xml:"workout"`
}

type zwoWorkout struct {
	// any child tag is a step; the tag name carries the step type
	Steps []zwoStep `xml:",any"`
}

type zwoStep struct {
	XMLName     xml.Name
	Duration    int      `xml:"Duration,attr"`
	Power       float64  `xml:"Power,attr"`
	PowerLow    float64  `xml:"PowerLow,attr"`
	PowerHigh   float64  `xml:"PowerHigh,attr"`
	Repeat      int      `xml:"Repeat,attr"`
	OnDuration  int      `xml:"OnDuration,attr"`
	OnPower     float64  `xml:"OnPower,attr"`
	OffDuration int      `xml:"OffDuration,attr"`
	OffPower    float64  `xml:"OffPower,attr"`
}

// ParseZWO parses a Zwift ZWO workout file.
func ParseZWO(data []byte) (*Workout, error) {
	var doc zwoFile
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing zwo file: %w", err)
	}

	steps := make([]compliance.PlannedStep, 0, len(doc.Workout.Steps))
	for _, zs := range doc.Workout.Steps {
		step, ok := zs.toStep()
		if !ok {
			continue // unknown tags (textevent etc.) are skipped
		}
		steps = append(steps, step)
	}
	if err := validateSteps(steps); err != nil {
		return nil, err
	}

	return &Workout{
		Name:        doc.Name,
		Description: doc.Description,
		Steps:       steps,
	}, nil
}

func (zs zwoStep) toStep() (compliance.PlannedStep, bool) {
	switch zs.XMLName.Local {
	case "Warmup", "Ramp":
		low, high := zs.band()
		return compliance.PlannedStep{
			Type:            compliance.StepWarmup,
			DurationSeconds: zs.Duration,
			PowerLowPct:     low,
			PowerHighPct:    high,
		}, true
	case "Cooldown":
		low, high := zs.band()
		return compliance.PlannedStep{
			Type:            compliance.StepCooldown,
			DurationSeconds: zs.Duration,
			PowerLowPct:     low,
			PowerHighPct:    high,
		}, true
	case "SteadyState":
		low, high := zs.band()
		return compliance.PlannedStep{
			Type:            compliance.StepSteady,
			DurationSeconds: zs.Duration,
			PowerLowPct:     low,
			PowerHighPct:    high,
		}, true
	case "IntervalsT":
		work := compliance.PlannedStep{
			Type:            compliance.StepSteady,
			DurationSeconds: zs.OnDuration,
			PowerLowPct:     zs.OnPower * 100,
			PowerHighPct:    zs.OnPower * 100,
		}
		rec := compliance.PlannedStep{
			Type:            compliance.StepRecovery,
			DurationSeconds: zs.OffDuration,
			PowerLowPct:     zs.OffPower * 100,
			PowerHighPct:    zs.OffPower * 100,
		}
		return compliance.PlannedStep{
			Type:        compliance.StepInterval,
			RepeatCount: zs.Repeat,
			Work:        &work,
			Recovery:    &rec,
		}, true
	case "FreeRide", "Rest":
		return compliance.PlannedStep{
			Type:            compliance.StepRecovery,
			DurationSeconds: zs.Duration,
			PowerLowPct:     zs.Power * 100,
			PowerHighPct:    zs.Power * 100,
		}, true
	}
	return compliance.PlannedStep{}, false
}

// band normalizes the three ways ZWO encodes a target: a single Power, a
// PowerLow/PowerHigh ramp, or nothing.
func (zs zwoStep) band() (low, high float64) {
	if zs.PowerLow > 0 || zs.PowerHigh > 0 {
		low, high = zs.PowerLow*100, zs.PowerHigh*100
		if low > high {
			low, high = high, low // cooldown ramps run high-to-low
		}
		return low, high
	}
	return zs.Power * 100, zs.Power * 100
}
