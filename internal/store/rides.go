package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveRide inserts a ride and returns its ID. Rides synced from Strava are
// deduplicated on strava_id; local FIT imports always insert.
func (s *Store) SaveRide(r *Ride) (int64, error) {
	if r.StravaID != nil {
		existing, err := s.GetRideByStravaID(*r.StravaID)
		if err == nil {
			r.ID = existing.ID
			return existing.ID, s.updateRide(r)
		}
		if !errors.Is(err, ErrRideNotFound) {
			return 0, err
		}
	}

	res, err := s.db.Exec(`
		INSERT INTO rides (strava_id, name, sport, start_time, duration_seconds,
			avg_power, max_power, normalized_power, samples_synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.StravaID, r.Name, r.Sport, r.StartTime.Format(time.RFC3339), r.DurationSeconds,
		r.AvgPower, r.MaxPower, r.NormalizedPower, boolToInt(r.SamplesSynced))
	if err != nil {
		return 0, fmt.Errorf("saving ride: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	r.ID = id
	return id, nil
}

func (s *Store) updateRide(r *Ride) error {
	_, err := s.db.Exec(`
		UPDATE rides SET name = ?, sport = ?, start_time = ?, duration_seconds = ?,
			avg_power = ?, max_power = ?, normalized_power = ?, samples_synced = ?
		WHERE id = ?
	`, r.Name, r.Sport, r.StartTime.Format(time.RFC3339), r.DurationSeconds,
		r.AvgPower, r.MaxPower, r.NormalizedPower, boolToInt(r.SamplesSynced), r.ID)
	return err
}

// GetRide retrieves a ride by ID.
func (s *Store) GetRide(id int64) (*Ride, error) {
	return scanRide(s.db.QueryRow(rideSelect+" WHERE id = ?", id))
}

// GetRideByStravaID retrieves a ride by its Strava activity ID.
func (s *Store) GetRideByStravaID(stravaID int64) (*Ride, error) {
	return scanRide(s.db.QueryRow(rideSelect+" WHERE strava_id = ?", stravaID))
}

// ListRides returns rides ordered by start time descending.
func (s *Store) ListRides(limit int) ([]Ride, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(rideSelect+" ORDER BY start_time DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []Ride
	for rows.Next() {
		r, err := scanRideRow(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, *r)
	}
	return rides, rows.Err()
}

// RidesNeedingSamples returns synced rides whose power streams have not been
// fetched yet.
func (s *Store) RidesNeedingSamples() ([]Ride, error) {
	rows, err := s.db.Query(rideSelect + " WHERE samples_synced = 0 AND strava_id IS NOT NULL ORDER BY start_time DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []Ride
	for rows.Next() {
		r, err := scanRideRow(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, *r)
	}
	return rides, rows.Err()
}

// DeleteRide removes a ride, its samples, and its cached reports.
func (s *Store) DeleteRide(id int64) error {
	_, err := s.db.Exec("DELETE FROM rides WHERE id = ?", id)
	return err
}

const rideSelect = `
	SELECT id, strava_id, name, sport, start_time, duration_seconds,
		avg_power, max_power, normalized_power, samples_synced
	FROM rides`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row *sql.Row) (*Ride, error) {
	r, err := scanRideRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRideNotFound
	}
	return r, err
}

func scanRideRow(row rowScanner) (*Ride, error) {
	var r Ride
	var sport sql.NullString
	var startTime string
	var synced int
	err := row.Scan(&r.ID, &r.StravaID, &r.Name, &sport, &startTime, &r.DurationSeconds,
		&r.AvgPower, &r.MaxPower, &r.NormalizedPower, &synced)
	if err != nil {
		return nil, err
	}
	r.Sport = sport.String
	r.SamplesSynced = synced != 0
	if t, perr := time.Parse(time.RFC3339, startTime); perr == nil {
		r.StartTime = t
	}
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
