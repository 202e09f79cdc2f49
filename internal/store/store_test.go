package store

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"veloscore/internal/compliance"
)

// setupTestStore creates an in-memory database for testing
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		sqlDB.Close()
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	if err := migrate(sqlDB); err != nil {
		sqlDB.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})

	return NewTestStore(sqlDB)
}

func testWorkout() *Workout {
	return &Workout{
		Name:         "Threshold 2x8",
		Description:  "Two 8-minute threshold efforts",
		Source:       "yaml",
		TotalSeconds: 3600,
		PlannedTSS:   75.3,
		StepsJSON:    `[{"type":"steady","duration_seconds":3600,"power_low_pct":70}]`,
	}
}

func testRide(stravaID *int64) *Ride {
	avg := 185.0
	np := 201.0
	return &Ride{
		StravaID:        stravaID,
		Name:            "Morning Ride",
		Sport:           "cycling",
		StartTime:       time.Date(2025, 3, 10, 7, 30, 0, 0, time.UTC),
		DurationSeconds: 3615,
		AvgPower:        &avg,
		NormalizedPower: &np,
	}
}

func TestSaveWorkout_UpsertOnName(t *testing.T) {
	s := setupTestStore(t)

	w := testWorkout()
	id, err := s.SaveWorkout(w)
	if err != nil {
		t.Fatalf("SaveWorkout failed: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero workout ID")
	}

	// Same name should update in place, not create a duplicate
	w2 := testWorkout()
	w2.Description = "updated"
	w2.PlannedTSS = 80.0
	id2, err := s.SaveWorkout(w2)
	if err != nil {
		t.Fatalf("SaveWorkout upsert failed: %v", err)
	}
	if id2 != id {
		t.Errorf("expected upsert to keep ID %d, got %d", id, id2)
	}

	all, err := s.ListWorkouts()
	if err != nil {
		t.Fatalf("ListWorkouts failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 workout, got %d", len(all))
	}
	if all[0].Description != "updated" {
		t.Errorf("expected updated description, got %q", all[0].Description)
	}
}

func TestGetWorkoutByName(t *testing.T) {
	s := setupTestStore(t)

	if _, err := s.SaveWorkout(testWorkout()); err != nil {
		t.Fatalf("SaveWorkout failed: %v", err)
	}

	w, err := s.GetWorkoutByName("Threshold 2x8")
	if err != nil {
		t.Fatalf("GetWorkoutByName failed: %v", err)
	}
	if w.TotalSeconds != 3600 {
		t.Errorf("expected 3600 total seconds, got %d", w.TotalSeconds)
	}

	if _, err := s.GetWorkoutByName("nope"); !errors.Is(err, ErrWorkoutNotFound) {
		t.Errorf("expected ErrWorkoutNotFound, got %v", err)
	}
}

func TestSaveRide_DedupeOnStravaID(t *testing.T) {
	s := setupTestStore(t)

	stravaID := int64(987654)
	id, err := s.SaveRide(testRide(&stravaID))
	if err != nil {
		t.Fatalf("SaveRide failed: %v", err)
	}

	updated := testRide(&stravaID)
	updated.Name = "Renamed Ride"
	updated.SamplesSynced = true
	id2, err := s.SaveRide(updated)
	if err != nil {
		t.Fatalf("SaveRide dedupe failed: %v", err)
	}
	if id2 != id {
		t.Errorf("expected dedupe to reuse ID %d, got %d", id, id2)
	}

	got, err := s.GetRide(id)
	if err != nil {
		t.Fatalf("GetRide failed: %v", err)
	}
	if got.Name != "Renamed Ride" {
		t.Errorf("expected updated name, got %q", got.Name)
	}
	if !got.SamplesSynced {
		t.Error("expected samples_synced to be set")
	}
	if !got.StartTime.Equal(time.Date(2025, 3, 10, 7, 30, 0, 0, time.UTC)) {
		t.Errorf("unexpected start time %v", got.StartTime)
	}
}

func TestSaveRide_LocalImportsAlwaysInsert(t *testing.T) {
	s := setupTestStore(t)

	id1, err := s.SaveRide(testRide(nil))
	if err != nil {
		t.Fatalf("SaveRide failed: %v", err)
	}
	id2, err := s.SaveRide(testRide(nil))
	if err != nil {
		t.Fatalf("SaveRide failed: %v", err)
	}
	if id1 == id2 {
		t.Error("expected local imports to insert separate rides")
	}
}

func TestRidesNeedingSamples(t *testing.T) {
	s := setupTestStore(t)

	synced := int64(1)
	unsynced := int64(2)
	r1 := testRide(&synced)
	r1.SamplesSynced = true
	if _, err := s.SaveRide(r1); err != nil {
		t.Fatalf("SaveRide failed: %v", err)
	}
	if _, err := s.SaveRide(testRide(&unsynced)); err != nil {
		t.Fatalf("SaveRide failed: %v", err)
	}
	// Local imports never need stream sync
	if _, err := s.SaveRide(testRide(nil)); err != nil {
		t.Fatalf("SaveRide failed: %v", err)
	}

	pending, err := s.RidesNeedingSamples()
	if err != nil {
		t.Fatalf("RidesNeedingSamples failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending ride, got %d", len(pending))
	}
	if pending[0].StravaID == nil || *pending[0].StravaID != unsynced {
		t.Errorf("expected pending ride %d, got %+v", unsynced, pending[0])
	}
}

func TestPowerSamples_RoundTrip(t *testing.T) {
	s := setupTestStore(t)

	rideID, err := s.SaveRide(testRide(nil))
	if err != nil {
		t.Fatalf("SaveRide failed: %v", err)
	}

	samples := []compliance.PowerSample{
		{TimeOffset: 0, Watts: 150},
		{TimeOffset: 1, Watts: 152},
		{TimeOffset: 2, Watts: 250},
	}
	if err := s.SavePowerSamples(rideID, samples); err != nil {
		t.Fatalf("SavePowerSamples failed: %v", err)
	}

	got, err := s.GetPowerSamples(rideID)
	if err != nil {
		t.Fatalf("GetPowerSamples failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(got))
	}
	if got[2].TimeOffset != 2 || got[2].Watts != 250 {
		t.Errorf("unexpected sample %+v", got[2])
	}

	// Re-saving replaces the stream
	if err := s.SavePowerSamples(rideID, samples[:1]); err != nil {
		t.Fatalf("SavePowerSamples replace failed: %v", err)
	}
	count, err := s.GetPowerSampleCount(rideID)
	if err != nil {
		t.Fatalf("GetPowerSampleCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 sample after replace, got %d", count)
	}

	ride, err := s.GetRide(rideID)
	if err != nil {
		t.Fatalf("GetRide failed: %v", err)
	}
	if !ride.SamplesSynced {
		t.Error("expected ride to be marked samples_synced")
	}
}

func TestDeleteRide_CascadesSamplesAndReports(t *testing.T) {
	s := setupTestStore(t)

	workoutID, err := s.SaveWorkout(testWorkout())
	if err != nil {
		t.Fatalf("SaveWorkout failed: %v", err)
	}
	rideID, err := s.SaveRide(testRide(nil))
	if err != nil {
		t.Fatalf("SaveRide failed: %v", err)
	}
	if err := s.SavePowerSamples(rideID, []compliance.PowerSample{{TimeOffset: 0, Watts: 100}}); err != nil {
		t.Fatalf("SavePowerSamples failed: %v", err)
	}
	if err := s.SaveReport(&Report{
		WorkoutID:        workoutID,
		RideID:           rideID,
		AlgorithmVersion: "dtw-compliance/1.2",
		Score:            88.5,
		Grade:            "B",
		ReportJSON:       "{}",
	}); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}

	if err := s.DeleteRide(rideID); err != nil {
		t.Fatalf("DeleteRide failed: %v", err)
	}

	count, err := s.GetPowerSampleCount(rideID)
	if err != nil {
		t.Fatalf("GetPowerSampleCount failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected samples to cascade, got %d", count)
	}
	if _, err := s.GetReport(workoutID, rideID); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("expected ErrReportNotFound after cascade, got %v", err)
	}
}

func TestReports_UpsertAndList(t *testing.T) {
	s := setupTestStore(t)

	workoutID, err := s.SaveWorkout(testWorkout())
	if err != nil {
		t.Fatalf("SaveWorkout failed: %v", err)
	}
	rideID, err := s.SaveRide(testRide(nil))
	if err != nil {
		t.Fatalf("SaveRide failed: %v", err)
	}

	r := &Report{
		WorkoutID:         workoutID,
		RideID:            rideID,
		AlgorithmVersion:  "dtw-compliance/1.2",
		Score:             72.0,
		Grade:             "C",
		SegmentsCompleted: 6,
		SegmentsSkipped:   1,
		ReportJSON:        `{"overall_compliance":{"score":72}}`,
	}
	if err := s.SaveReport(r); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}

	r.Score = 91.0
	r.Grade = "A"
	if err := s.SaveReport(r); err != nil {
		t.Fatalf("SaveReport upsert failed: %v", err)
	}

	got, err := s.GetReport(workoutID, rideID)
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if got.Grade != "A" || got.Score != 91.0 {
		t.Errorf("expected upserted report, got grade=%s score=%v", got.Grade, got.Score)
	}

	list, err := s.ListReportsForRide(rideID)
	if err != nil {
		t.Fatalf("ListReportsForRide failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 report, got %d", len(list))
	}
}

func TestAuth_RoundTrip(t *testing.T) {
	s := setupTestStore(t)

	if _, err := s.GetAuth(); !errors.Is(err, ErrNoAuth) {
		t.Fatalf("expected ErrNoAuth on empty store, got %v", err)
	}

	expires := time.Now().Add(6 * time.Hour).Truncate(time.Second)
	if err := s.SaveAuth(&Auth{
		AthleteID:    424242,
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    expires,
	}); err != nil {
		t.Fatalf("SaveAuth failed: %v", err)
	}

	a, err := s.GetAuth()
	if err != nil {
		t.Fatalf("GetAuth failed: %v", err)
	}
	if a.AthleteID != 424242 || a.AccessToken != "access" {
		t.Errorf("unexpected auth %+v", a)
	}
	if !a.ExpiresAt.Equal(expires) {
		t.Errorf("expected expiry %v, got %v", expires, a.ExpiresAt)
	}

	newExpires := expires.Add(6 * time.Hour)
	if err := s.UpdateTokens("access2", "refresh2", newExpires); err != nil {
		t.Fatalf("UpdateTokens failed: %v", err)
	}
	a, err = s.GetAuth()
	if err != nil {
		t.Fatalf("GetAuth failed: %v", err)
	}
	if a.AccessToken != "access2" || a.RefreshToken != "refresh2" {
		t.Errorf("expected refreshed tokens, got %+v", a)
	}
}

func TestUpdateTokens_NoAuthRow(t *testing.T) {
	s := setupTestStore(t)

	err := s.UpdateTokens("a", "r", time.Now())
	if !errors.Is(err, ErrNoAuth) {
		t.Errorf("expected ErrNoAuth, got %v", err)
	}
}

func TestSyncState(t *testing.T) {
	s := setupTestStore(t)

	v, err := s.GetSyncState("last_sync")
	if err != nil {
		t.Fatalf("GetSyncState failed: %v", err)
	}
	if v != "" {
		t.Errorf("expected empty value for missing key, got %q", v)
	}

	if err := s.SetSyncState("last_sync", "2025-03-10T00:00:00Z"); err != nil {
		t.Fatalf("SetSyncState failed: %v", err)
	}
	if err := s.SetSyncState("last_sync", "2025-03-11T00:00:00Z"); err != nil {
		t.Fatalf("SetSyncState upsert failed: %v", err)
	}

	v, err = s.GetSyncState("last_sync")
	if err != nil {
		t.Fatalf("GetSyncState failed: %v", err)
	}
	if v != "2025-03-11T00:00:00Z" {
		t.Errorf("expected latest value, got %q", v)
	}
}
