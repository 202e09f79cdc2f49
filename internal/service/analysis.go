// Package service orchestrates the stores, the Strava client, and the
// compliance engine on behalf of the CLI and TUI.
package service

import (
	"encoding/json"
	"fmt"

	"veloscore/internal/compliance"
	"veloscore/internal/config"
	"veloscore/internal/fitfile"
	"veloscore/internal/store"
	"veloscore/internal/workout"
)

// AnalysisService imports workouts and rides and produces compliance reports,
// caching them per (workout, ride) pair.
type AnalysisService struct {
	store    *store.Store
	ftp      float64
	analysis config.AnalysisConfig
}

// NewAnalysisService creates an analysis service for the configured athlete.
func NewAnalysisService(s *store.Store, athlete config.AthleteConfig, analysis config.AnalysisConfig) *AnalysisService {
	return &AnalysisService{store: s, ftp: athlete.FTPWatts, analysis: analysis}
}

// Analyzer returns the engine configured with the athlete's FTP and any
// tuning overrides from the config file.
func (s *AnalysisService) Analyzer() compliance.Analyzer {
	a := compliance.NewAnalyzer(s.ftp)
	if s.analysis.AlignmentWindow > 0 {
		a.DTW.Window = s.analysis.AlignmentWindow
	}
	if s.analysis.DownsampleFactor > 0 {
		a.DTW.Downsample = s.analysis.DownsampleFactor
	}
	if s.analysis.DriftPenalty > 0 {
		a.DTW.Penalty = s.analysis.DriftPenalty
	}
	if s.analysis.DisableAnchors {
		a.DTW.Anchor = false
	}
	return a
}

// ImportWorkout loads a workout file into the library. Re-importing a file
// with the same workout name updates it in place.
func (s *AnalysisService) ImportWorkout(path string) (*store.Workout, error) {
	w, err := workout.LoadFile(path)
	if err != nil {
		return nil, err
	}

	stepsJSON, err := json.Marshal(w.Steps)
	if err != nil {
		return nil, fmt.Errorf("encoding steps: %w", err)
	}

	rec := &store.Workout{
		Name:         w.Name,
		Description:  w.Description,
		Source:       w.Source,
		TotalSeconds: w.TotalSeconds(),
		PlannedTSS:   w.TSS(),
		StepsJSON:    string(stepsJSON),
	}
	if _, err := s.store.SaveWorkout(rec); err != nil {
		return nil, fmt.Errorf("saving workout: %w", err)
	}
	return rec, nil
}

// ImportRide decodes a FIT activity file and stores the ride with its power
// stream.
func (s *AnalysisService) ImportRide(path string) (*store.Ride, error) {
	ride, err := fitfile.DecodeFile(path)
	if err != nil {
		return nil, err
	}

	rec := &store.Ride{
		Name:            ride.Name,
		Sport:           ride.Sport,
		StartTime:       ride.StartTime,
		DurationSeconds: ride.DurationSeconds,
		AvgPower:        &ride.AvgPowerWatts,
		MaxPower:        &ride.MaxPowerWatts,
		NormalizedPower: &ride.NormalizedPower,
	}
	rideID, err := s.store.SaveRide(rec)
	if err != nil {
		return nil, fmt.Errorf("saving ride: %w", err)
	}
	if err := s.store.SavePowerSamples(rideID, ride.Samples); err != nil {
		return nil, fmt.Errorf("saving power stream: %w", err)
	}
	rec.SamplesSynced = true
	return rec, nil
}

// AnalyzeRide scores a ride against a workout. Reports are cached; a cached
// report is reused unless it was produced by an older algorithm version.
func (s *AnalysisService) AnalyzeRide(workoutID, rideID int64) (*compliance.ComplianceReport, error) {
	if cached, err := s.store.GetReport(workoutID, rideID); err == nil {
		if cached.AlgorithmVersion == compliance.AlgorithmVersion {
			var report compliance.ComplianceReport
			if err := json.Unmarshal([]byte(cached.ReportJSON), &report); err == nil {
				return &report, nil
			}
		}
	}
	return s.Reanalyze(workoutID, rideID)
}

// Reanalyze scores a ride against a workout, replacing any cached report.
func (s *AnalysisService) Reanalyze(workoutID, rideID int64) (*compliance.ComplianceReport, error) {
	w, err := s.store.GetWorkout(workoutID)
	if err != nil {
		return nil, err
	}
	var steps []compliance.PlannedStep
	if err := json.Unmarshal([]byte(w.StepsJSON), &steps); err != nil {
		return nil, fmt.Errorf("decoding workout steps: %w", err)
	}

	stream, err := s.store.GetPowerSamples(rideID)
	if err != nil {
		return nil, fmt.Errorf("loading power stream: %w", err)
	}

	analyzer := s.Analyzer()
	aligned, err := analyzer.AlignSteps(steps, stream)
	if err != nil {
		return nil, err
	}
	report, err := analyzer.AnalyzeWithAlignedSeries(steps, aligned)
	if err != nil {
		return nil, err
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	err = s.store.SaveReport(&store.Report{
		WorkoutID:         workoutID,
		RideID:            rideID,
		AlgorithmVersion:  report.Metadata.AlgorithmVersion,
		Score:             report.Overall.Score,
		Grade:             report.Overall.Grade,
		SegmentsCompleted: report.Overall.SegmentsCompleted,
		SegmentsSkipped:   report.Overall.SegmentsSkipped,
		ReportJSON:        string(reportJSON),
	})
	if err != nil {
		return nil, fmt.Errorf("caching report: %w", err)
	}

	return report, nil
}

// WorkoutSteps decodes a stored workout's step list.
func (s *AnalysisService) WorkoutSteps(workoutID int64) ([]compliance.PlannedStep, error) {
	w, err := s.store.GetWorkout(workoutID)
	if err != nil {
		return nil, err
	}
	var steps []compliance.PlannedStep
	if err := json.Unmarshal([]byte(w.StepsJSON), &steps); err != nil {
		return nil, fmt.Errorf("decoding workout steps: %w", err)
	}
	return steps, nil
}
