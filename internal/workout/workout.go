// Package workout loads planned structured workouts from YAML and Zwift ZWO
// files into the compliance engine's step model.
package workout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"veloscore/internal/compliance"
)

// ErrUnsupportedFormat is returned for files that are neither YAML nor ZWO.
var ErrUnsupportedFormat = errors.New("unsupported workout format")

// Workout is a named planned workout from the library.
type Workout struct {
	Name        string
	Description string
	Source      string // file path the workout was loaded from
	Steps       []compliance.PlannedStep
}

// TotalSeconds returns the planned duration with repeats expanded.
func (w *Workout) TotalSeconds() int {
	total := 0
	for _, s := range w.Steps {
		total += s.TotalSeconds()
	}
	return total
}

// TSS returns the planned training stress of the workout.
func (w *Workout) TSS() float64 {
	return compliance.WorkoutTSS(w.Steps)
}

// LoadFile parses a workout file, dispatching on extension
// (.yaml/.yml or .zwo).
func LoadFile(path string) (*Workout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workout file: %w", err)
	}

	var w *Workout
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		w, err = ParseYAML(data)
	case ".zwo":
		w, err = ParseZWO(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	w.Source = path
	if w.Name == "" {
		w.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return w, nil
}

// validateSteps runs the engine's structural validation over every step so
// malformed plans are rejected at load time, not analysis time.
func validateSteps(steps []compliance.PlannedStep) error {
	if len(steps) == 0 {
		return fmt.Errorf("%w: workout has no steps", compliance.ErrMalformedPlan)
	}
	for i, s := range steps {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}
