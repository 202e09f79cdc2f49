package workout

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"veloscore/internal/compliance"
)

// yamlWorkout is the on-disk YAML document shape.
type yamlWorkout struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Steps       []yamlStep `yaml:"steps"`
}

type yamlStep struct {
	Type      string    `yaml:"type"`
	Duration  int       `yaml:"duration"` // seconds
	PowerLow  float64   `yaml:"power_low"`
	PowerHigh float64   `yaml:"power_high"`
	Text      string    `yaml:"text"`
	Repeat    int       `yaml:"repeat"`
	Work      *yamlStep `yaml:"work"`
	Recovery  *yamlStep `yaml:"recovery"`
}

// ParseYAML parses a YAML workout document. Power targets are percent of FTP.
func ParseYAML(data []byte) (*Workout, error) {
	var doc yamlWorkout
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing workout yaml: %w", err)
	}

	steps := make([]compliance.PlannedStep, 0, len(doc.Steps))
	for _, ys := range doc.Steps {
		steps = append(steps, ys.toStep())
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

func (ys yamlStep) toStep() compliance.PlannedStep {
	step := compliance.PlannedStep{
		Type:            compliance.StepType(ys.Type),
		DurationSeconds: ys.Duration,
		PowerLowPct:     ys.PowerLow,
		PowerHighPct:    ys.PowerHigh,
		Description:     ys.Text,
		RepeatCount:     ys.Repeat,
	}
	if ys.Work != nil {
		work := ys.Work.toStep()
		step.Work = &work
	}
	if ys.Recovery != nil {
		rec := ys.Recovery.toStep()
		step.Recovery = &rec
	}
	return step
}
