package store

import "time"

// Auth represents OAuth tokens for Strava API access
type Auth struct {
	AthleteID    int64
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Workout is a stored planned workout. Steps are kept as the engine's JSON
// encoding; the summary columns exist for list views.
type Workout struct {
	ID           int64
	Name         string
	Description  string
	Source       string
	TotalSeconds int
	PlannedTSS   float64
	StepsJSON    string
}

// Ride is a completed activity with power data.
type Ride struct {
	ID              int64
	StravaID        *int64 // nil for local FIT imports
	Name            string
	Sport           string
	StartTime       time.Time
	DurationSeconds int
	AvgPower        *float64
	MaxPower        *float64
	NormalizedPower *float64
	SamplesSynced   bool
}

// Report is a cached compliance report summary; the full report lives in
// ReportJSON.
type Report struct {
	WorkoutID         int64
	RideID            int64
	AlgorithmVersion  string
	Score             float64
	Grade             string
	SegmentsCompleted int
	SegmentsSkipped   int
	ReportJSON        string
	CreatedAt         time.Time
}
