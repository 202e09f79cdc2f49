package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// SaveWorkout inserts or updates a workout by name and returns its ID.
func (s *Store) SaveWorkout(w *Workout) (int64, error) {
	_, err := s.db.Exec(`
		INSERT INTO workouts (name, description, source, total_seconds, planned_tss, steps_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			source = excluded.source,
			total_seconds = excluded.total_seconds,
			planned_tss = excluded.planned_tss,
			steps_json = excluded.steps_json,
			updated_at = CURRENT_TIMESTAMP
	`, w.Name, w.Description, w.Source, w.TotalSeconds, w.PlannedTSS, w.StepsJSON)
	if err != nil {
		return 0, fmt.Errorf("saving workout: %w", err)
	}

	var id int64
	if err := s.db.QueryRow("SELECT id FROM workouts WHERE name = ?", w.Name).Scan(&id); err != nil {
		return 0, fmt.Errorf("fetching workout id: %w", err)
	}
	w.ID = id
	return id, nil
}

// GetWorkout retrieves a workout by ID.
func (s *Store) GetWorkout(id int64) (*Workout, error) {
	row := s.db.QueryRow(`
		SELECT id, name, description, source, total_seconds, planned_tss, steps_json
		FROM workouts WHERE id = ?
	`, id)
	return scanWorkout(row)
}

// GetWorkoutByName retrieves a workout by its unique name.
func (s *Store) GetWorkoutByName(name string) (*Workout, error) {
	row := s.db.QueryRow(`
		SELECT id, name, description, source, total_seconds, planned_tss, steps_json
		FROM workouts WHERE name = ?
	`, name)
	return scanWorkout(row)
}

// ListWorkouts returns all workouts ordered by name.
func (s *Store) ListWorkouts() ([]Workout, error) {
	rows, err := s.db.Query(`
		SELECT id, name, description, source, total_seconds, planned_tss, steps_json
		FROM workouts ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workouts []Workout
	for rows.Next() {
		var w Workout
		var desc, source sql.NullString
		if err := rows.Scan(&w.ID, &w.Name, &desc, &source, &w.TotalSeconds, &w.PlannedTSS, &w.StepsJSON); err != nil {
			return nil, err
		}
		w.Description = desc.String
		w.Source = source.String
		workouts = append(workouts, w)
	}
	return workouts, rows.Err()
}

// DeleteWorkout removes a workout and its cached reports.
func (s *Store) DeleteWorkout(id int64) error {
	_, err := s.db.Exec("DELETE FROM workouts WHERE id = ?", id)
	return err
}

func scanWorkout(row *sql.Row) (*Workout, error) {
	var w Workout
	var desc, source sql.NullString
	err := row.Scan(&w.ID, &w.Name, &desc, &source, &w.TotalSeconds, &w.PlannedTSS, &w.StepsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWorkoutNotFound
	}
	if err != nil {
		return nil, err
	}
	w.Description = desc.String
	w.Source = source.String
	return &w, nil
}
