package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveReport caches a compliance report for a (workout, ride) pair,
// replacing any previous version.
func (s *Store) SaveReport(r *Report) error {
	_, err := s.db.Exec(`
		INSERT INTO reports (workout_id, ride_id, algorithm_version, score, grade,
			segments_completed, segments_skipped, report_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(workout_id, ride_id) DO UPDATE SET
			algorithm_version = excluded.algorithm_version,
			score = excluded.score,
			grade = excluded.grade,
			segments_completed = excluded.segments_completed,
			segments_skipped = excluded.segments_skipped,
			report_json = excluded.report_json,
			created_at = CURRENT_TIMESTAMP
	`, r.WorkoutID, r.RideID, r.AlgorithmVersion, r.Score, r.Grade,
		r.SegmentsCompleted, r.SegmentsSkipped, r.ReportJSON)
	if err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	return nil
}

// GetReport retrieves a cached report for a (workout, ride) pair.
func (s *Store) GetReport(workoutID, rideID int64) (*Report, error) {
	row := s.db.QueryRow(`
		SELECT workout_id, ride_id, algorithm_version, score, grade,
			segments_completed, segments_skipped, report_json, created_at
		FROM reports WHERE workout_id = ? AND ride_id = ?
	`, workoutID, rideID)

	var r Report
	var createdAt string
	err := row.Scan(&r.WorkoutID, &r.RideID, &r.AlgorithmVersion, &r.Score, &r.Grade,
		&r.SegmentsCompleted, &r.SegmentsSkipped, &r.ReportJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	if t, perr := time.Parse("2006-01-02 15:04:05", createdAt); perr == nil {
		r.CreatedAt = t
	}
	return &r, nil
}

// ListReportsForRide returns cached report summaries for a ride.
func (s *Store) ListReportsForRide(rideID int64) ([]Report, error) {
	rows, err := s.db.Query(`
		SELECT workout_id, ride_id, algorithm_version, score, grade,
			segments_completed, segments_skipped, report_json, created_at
		FROM reports WHERE ride_id = ? ORDER BY created_at DESC
	`, rideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var r Report
		var createdAt string
		if err := rows.Scan(&r.WorkoutID, &r.RideID, &r.AlgorithmVersion, &r.Score, &r.Grade,
			&r.SegmentsCompleted, &r.SegmentsSkipped, &r.ReportJSON, &createdAt); err != nil {
			return nil, err
		}
		if t, perr := time.Parse("2006-01-02 15:04:05", createdAt); perr == nil {
			r.CreatedAt = t
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// DeleteReport removes a cached report.
func (s *Store) DeleteReport(workoutID, rideID int64) error {
	_, err := s.db.Exec("DELETE FROM reports WHERE workout_id = ? AND ride_id = ?", workoutID, rideID)
	return err
}
