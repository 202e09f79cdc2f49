package store

import (
	"fmt"

	"veloscore/internal/compliance"
)

// SavePowerSamples replaces the power stream for a ride and marks it synced.
func (s *Store) SavePowerSamples(rideID int64, samples []compliance.PowerSample) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM power_samples WHERE ride_id = ?", rideID); err != nil {
		return fmt.Errorf("deleting existing samples: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO power_samples (ride_id, time_offset, watts) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range samples {
		if _, err := stmt.Exec(rideID, p.TimeOffset, p.Watts); err != nil {
			return fmt.Errorf("inserting sample: %w", err)
		}
	}

	if _, err := tx.Exec("UPDATE rides SET samples_synced = 1 WHERE id = ?", rideID); err != nil {
		return fmt.Errorf("marking ride synced: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetPowerSamples retrieves the ordered power stream for a ride.
func (s *Store) GetPowerSamples(rideID int64) ([]compliance.PowerSample, error) {
	rows, err := s.db.Query(`
		SELECT time_offset, watts FROM power_samples
		WHERE ride_id = ? ORDER BY time_offset
	`, rideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []compliance.PowerSample
	for rows.Next() {
		var p compliance.PowerSample
		if err := rows.Scan(&p.TimeOffset, &p.Watts); err != nil {
			return nil, err
		}
		samples = append(samples, p)
	}
	return samples, rows.Err()
}

// GetPowerSampleCount returns the number of stored samples for a ride.
func (s *Store) GetPowerSampleCount(rideID int64) (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM power_samples WHERE ride_id = ?", rideID).Scan(&count)
	return count, err
}
