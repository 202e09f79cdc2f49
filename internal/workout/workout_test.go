package workout

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"veloscore/internal/compliance"
)

const yamlDoc = `
name: 3x8 Threshold
description: Classic threshold session
steps:
  - type: warmup
    duration: 600
    power_low: 56
    power_high: 66
  - type: interval
    repeat: 3
    work:
      type: steady
      duration: 480
      power_low: 95
      power_high: 105
    recovery:
      type: recovery
      duration: 300
      power_low: 56
      power_high: 66
  - type: cooldown
    duration: 600
    power_low: 56
    power_high: 66
`

const zwoDoc = `<workout_file>
  <name>Over-Unders</name>
  <description>2x(4x2min)</description>
  <workout>
    <Warmup Duration="600" PowerLow="0.45" PowerHigh="0.70"/>
    <IntervalsT Repeat="4" OnDuration="120" OnPower="1.05" OffDuration="120" OffPower="0.90"/>
    <SteadyState Duration="300" Power="0.55"/>
    <textevent timeoffset="10" message="get ready"/>
    <Cooldown Duration="600" PowerLow="0.70" PowerHigh="0.45"/>
  </workout>
</workout_file>`

func TestParseYAML(t *testing.T) {
	w, err := ParseYAML([]byte(yamlDoc))
	if err != nil {
		t.Fatalf("ParseYAML error: %v", err)
	}

	if w.Name != "3x8 Threshold" {
		t.Errorf("Name = %q, want %q", w.Name, "3x8 Threshold")
	}
	if len(w.Steps) != 3 {
		t.Fatalf("got %d steps, want 3", len(w.Steps))
	}

	interval := w.Steps[1]
	if interval.Type != compliance.StepInterval {
		t.Errorf("step 1 type = %q, want interval", interval.Type)
	}
	if interval.RepeatCount != 3 {
		t.Errorf("repeat = %d, want 3", interval.RepeatCount)
	}
	if interval.Work == nil || interval.Work.DurationSeconds != 480 {
		t.Errorf("work substep = %+v, want 480s", interval.Work)
	}

	wantTotal := 600 + 3*(480+300) + 600
	if got := w.TotalSeconds(); got != wantTotal {
		t.Errorf("TotalSeconds = %d, want %d", got, wantTotal)
	}
}

func TestParseYAMLMalformed(t *testing.T) {
	doc := `
name: broken
steps:
  - type: steady
    duration: 0
    power_low: 100
`
	if _, err := ParseYAML([]byte(doc)); !errors.Is(err, compliance.ErrMalformedPlan) {
		t.Errorf("ParseYAML error = %v, want ErrMalformedPlan", err)
	}
}

func TestParseZWO(t *testing.T) {
	w, err := ParseZWO([]byte(zwoDoc))
	if err != nil {
		t.Fatalf("ParseZWO error: %v", err)
	}

	if w.Name != "Over-Unders" {
		t.Errorf("Name = %q, want Over-Unders", w.Name)
	}
	// textevent is not a step
	if len(w.Steps) != 4 {
		t.Fatalf("got %d steps, want 4", len(w.Steps))
	}

	warmup := w.Steps[0]
	if warmup.Type != compliance.StepWarmup || warmup.PowerLowPct != 45 || warmup.PowerHighPct != 70 {
		t.Errorf("warmup = %+v, want 45-70%% band", warmup)
	}

	interval := w.Steps[1]
	if interval.Type != compliance.StepInterval || interval.RepeatCount != 4 {
		t.Fatalf("interval = %+v, want 4 repeats", interval)
	}
	if math.Abs(interval.Work.PowerLowPct-105) > 0.001 {
		t.Errorf("work power = %v, want 105", interval.Work.PowerLowPct)
	}
	if interval.Work.DurationSeconds != 120 || interval.Recovery.DurationSeconds != 120 {
		t.Errorf("interval durations = %d/%d, want 120/120", interval.Work.DurationSeconds, interval.Recovery.DurationSeconds)
	}

	// cooldown ramp is given high-to-low and normalized
	cooldown := w.Steps[3]
	if cooldown.PowerLowPct != 45 || cooldown.PowerHighPct != 70 {
		t.Errorf("cooldown band = %v-%v, want 45-70", cooldown.PowerLowPct, cooldown.PowerHighPct)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "threshold.yaml")
	if err := os.WriteFile(yamlPath, []byte(yamlDoc), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := LoadFile(yamlPath)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if w.Source != yamlPath {
		t.Errorf("Source = %q, want %q", w.Source, yamlPath)
	}

	t.Run("unsupported extension", func(t *testing.T) {
		otherPath := filepath.Join(dir, "plan.txt")
		if err := os.WriteFile(otherPath, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFile(otherPath); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("LoadFile error = %v, want ErrUnsupportedFormat", err)
		}
	})

	t.Run("name falls back to file name", func(t *testing.T) {
		unnamed := filepath.Join(dir, "sweetspot.yaml")
		doc := "steps:\n  - type: steady\n    duration: 1200\n    power_low: 88\n    power_high: 93\n"
		if err := os.WriteFile(unnamed, []byte(doc), 0644); err != nil {
			t.Fatal(err)
		}
		w, err := LoadFile(unnamed)
		if err != nil {
			t.Fatalf("LoadFile error: %v", err)
		}
		if w.Name != "sweetspot" {
			t.Errorf("Name = %q, want sweetspot", w.Name)
		}
	})
}
