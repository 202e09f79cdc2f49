package service

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"veloscore/internal/compliance"
	"veloscore/internal/config"
	"veloscore/internal/store"
)

// openTestStore creates an in-memory SQLite store with migrations applied
func openTestStore(t *testing.T) *store.Store {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}
	for _, m := range store.Migrations {
		if _, err := db.Exec(m); err != nil {
			db.Close()
			t.Fatalf("failed to run migration: %v", err)
		}
	}
	t.Cleanup(func() { db.Close() })
	return store.NewTestStore(db)
}

func newTestService(t *testing.T) (*AnalysisService, *store.Store) {
	t.Helper()
	st := openTestStore(t)
	svc := NewAnalysisService(st, config.AthleteConfig{FTPWatts: 250}, config.AnalysisConfig{})
	return svc, st
}

const sweetSpotYAML = `name: Sweet Spot 2x10
description: Two ten-minute sweet spot blocks
steps:
  - type: warmup
    duration: 300
    power_low: 50
    power_high: 60
  - type: interval
    repeat: 2
    work:
      type: steady
      duration: 600
      power_low: 88
      power_high: 94
    recovery:
      type: recovery
      duration: 180
      power_low: 50
      power_high: 55
  - type: cooldown
    duration: 300
    power_low: 50
    power_high: 60
`

func writeWorkoutFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing workout file: %v", err)
	}
	return path
}

// rideForSteps synthesizes a 1Hz stream that rides each step at its target
// midpoint, stored directly against a new ride.
func rideForSteps(t *testing.T, st *store.Store, steps []compliance.PlannedStep, ftp float64) int64 {
	t.Helper()

	a := compliance.NewAnalyzer(ftp)
	watts, err := a.ExpandStepsToSeconds(steps)
	if err != nil {
		t.Fatalf("expanding steps: %v", err)
	}
	samples := make([]compliance.PowerSample, len(watts))
	for i, w := range watts {
		samples[i] = compliance.PowerSample{TimeOffset: i, Watts: w}
	}

	rideID, err := st.SaveRide(&store.Ride{
		Name:            "Trainer Session",
		Sport:           "cycling",
		StartTime:       time.Date(2025, 4, 2, 18, 0, 0, 0, time.UTC),
		DurationSeconds: len(samples),
	})
	if err != nil {
		t.Fatalf("saving ride: %v", err)
	}
	if err := st.SavePowerSamples(rideID, samples); err != nil {
		t.Fatalf("saving samples: %v", err)
	}
	return rideID
}

func TestImportWorkout(t *testing.T) {
	svc, st := newTestService(t)

	path := writeWorkoutFile(t, "sweetspot.yaml", sweetSpotYAML)
	w, err := svc.ImportWorkout(path)
	if err != nil {
		t.Fatalf("ImportWorkout failed: %v", err)
	}

	if w.Name != "Sweet Spot 2x10" {
		t.Errorf("name = %q, want Sweet Spot 2x10", w.Name)
	}
	// 300 + 2*(600+180) + 300
	if w.TotalSeconds != 2160 {
		t.Errorf("total seconds = %d, want 2160", w.TotalSeconds)
	}
	if w.PlannedTSS <= 0 {
		t.Errorf("expected positive planned TSS, got %v", w.PlannedTSS)
	}

	stored, err := st.GetWorkoutByName("Sweet Spot 2x10")
	if err != nil {
		t.Fatalf("stored workout not found: %v", err)
	}
	var steps []compliance.PlannedStep
	if err := json.Unmarshal([]byte(stored.StepsJSON), &steps); err != nil {
		t.Fatalf("stored steps don't decode: %v", err)
	}
	if len(steps) != 3 {
		t.Errorf("expected 3 steps, got %d", len(steps))
	}

	// Re-import updates rather than duplicating
	if _, err := svc.ImportWorkout(path); err != nil {
		t.Fatalf("re-import failed: %v", err)
	}
	all, err := st.ListWorkouts()
	if err != nil {
		t.Fatalf("ListWorkouts failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 workout after re-import, got %d", len(all))
	}
}

func TestImportWorkout_Malformed(t *testing.T) {
	svc, _ := newTestService(t)

	path := writeWorkoutFile(t, "broken.yaml", "name: Broken\nsteps:\n  - type: interval\n    duration: -5\n")
	if _, err := svc.ImportWorkout(path); err == nil {
		t.Fatal("expected error for malformed workout")
	}
}

func TestAnalyzeRide_EndToEnd(t *testing.T) {
	svc, st := newTestService(t)

	path := writeWorkoutFile(t, "sweetspot.yaml", sweetSpotYAML)
	w, err := svc.ImportWorkout(path)
	if err != nil {
		t.Fatalf("ImportWorkout failed: %v", err)
	}
	steps, err := svc.WorkoutSteps(w.ID)
	if err != nil {
		t.Fatalf("WorkoutSteps failed: %v", err)
	}
	rideID := rideForSteps(t, st, steps, 250)

	report, err := svc.AnalyzeRide(w.ID, rideID)
	if err != nil {
		t.Fatalf("AnalyzeRide failed: %v", err)
	}

	if len(report.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(report.Segments))
	}
	// A ride executed exactly on target should score near-perfect
	if report.Overall.Score < 95 {
		t.Errorf("expected near-perfect score, got %v", report.Overall.Score)
	}
	if report.Overall.Grade != "A" {
		t.Errorf("expected grade A, got %s", report.Overall.Grade)
	}
	if report.Metadata.AlgorithmVersion != compliance.AlgorithmVersion {
		t.Errorf("unexpected algorithm version %q", report.Metadata.AlgorithmVersion)
	}

	// The report should now be cached
	cached, err := st.GetReport(w.ID, rideID)
	if err != nil {
		t.Fatalf("expected cached report: %v", err)
	}
	if cached.Grade != "A" {
		t.Errorf("cached grade = %s, want A", cached.Grade)
	}
}

func TestAnalyzeRide_UsesCacheUntilVersionChanges(t *testing.T) {
	svc, st := newTestService(t)

	path := writeWorkoutFile(t, "sweetspot.yaml", sweetSpotYAML)
	w, err := svc.ImportWorkout(path)
	if err != nil {
		t.Fatalf("ImportWorkout failed: %v", err)
	}
	steps, err := svc.WorkoutSteps(w.ID)
	if err != nil {
		t.Fatalf("WorkoutSteps failed: %v", err)
	}
	rideID := rideForSteps(t, st, steps, 250)

	if _, err := svc.AnalyzeRide(w.ID, rideID); err != nil {
		t.Fatalf("AnalyzeRide failed: %v", err)
	}

	// Poison the cached JSON; a cache hit will surface the marker
	cached, err := st.GetReport(w.ID, rideID)
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	marker := *cached
	marker.ReportJSON = `{"overall":{"score":1,"grade":"F"}}`
	if err := st.SaveReport(&marker); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}

	report, err := svc.AnalyzeRide(w.ID, rideID)
	if err != nil {
		t.Fatalf("AnalyzeRide failed: %v", err)
	}
	if report.Overall.Grade != "F" {
		t.Errorf("expected cached report to be served, got grade %s", report.Overall.Grade)
	}

	// An outdated algorithm version forces recomputation
	marker.AlgorithmVersion = "dtw-compliance/0.0"
	if err := st.SaveReport(&marker); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}
	report, err = svc.AnalyzeRide(w.ID, rideID)
	if err != nil {
		t.Fatalf("AnalyzeRide failed: %v", err)
	}
	if report.Overall.Grade != "A" {
		t.Errorf("expected fresh report after version change, got grade %s", report.Overall.Grade)
	}

	// Reanalyze always recomputes
	marker.AlgorithmVersion = compliance.AlgorithmVersion
	if err := st.SaveReport(&marker); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}
	report, err = svc.Reanalyze(w.ID, rideID)
	if err != nil {
		t.Fatalf("Reanalyze failed: %v", err)
	}
	if report.Overall.Grade != "A" {
		t.Errorf("expected Reanalyze to recompute, got grade %s", report.Overall.Grade)
	}
}

func TestAnalyzerAppliesTuningOverrides(t *testing.T) {
	st := openTestStore(t)
	svc := NewAnalysisService(st, config.AthleteConfig{FTPWatts: 300}, config.AnalysisConfig{
		AlignmentWindow:  60,
		DownsampleFactor: 10,
		DriftPenalty:     0.2,
		DisableAnchors:   true,
	})

	a := svc.Analyzer()
	if a.FTP != 300 {
		t.Errorf("FTP = %v, want 300", a.FTP)
	}
	if a.DTW.Window != 60 {
		t.Errorf("Window = %d, want 60", a.DTW.Window)
	}
	if a.DTW.Downsample != 10 {
		t.Errorf("Downsample = %d, want 10", a.DTW.Downsample)
	}
	if a.DTW.Penalty != 0.2 {
		t.Errorf("Penalty = %v, want 0.2", a.DTW.Penalty)
	}
	if a.DTW.Anchor {
		t.Error("expected anchors disabled")
	}

	// Zero-value config keeps engine defaults
	defaults := NewAnalysisService(st, config.AthleteConfig{FTPWatts: 300}, config.AnalysisConfig{}).Analyzer()
	want := compliance.DefaultDTWConfig()
	if defaults.DTW != want {
		t.Errorf("expected default DTW config %+v, got %+v", want, defaults.DTW)
	}
}
