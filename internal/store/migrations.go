package store

import "database/sql"

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	for _, m := range Migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Migrations is the idempotent schema DDL, exported so tests can apply it to
// in-memory databases.
var Migrations = []string{
	// Strava authentication (singleton row)
	`CREATE TABLE IF NOT EXISTS auth (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		athlete_id INTEGER NOT NULL,
		access_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		expires_at INTEGER NOT NULL,
		created_at TEXT DEFAULT CURRENT_TIMESTAMP,
		updated_at TEXT DEFAULT CURRENT_TIMESTAMP
	)`,

	// Planned workout library (steps kept as the engine's JSON shape)
	`CREATE TABLE IF NOT EXISTS workouts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		description TEXT,
		source TEXT,
		total_seconds INTEGER NOT NULL,
		planned_tss REAL NOT NULL,
		steps_json TEXT NOT NULL,
		created_at TEXT DEFAULT CURRENT_TIMESTAMP,
		updated_at TEXT DEFAULT CURRENT_TIMESTAMP
	)`,

	// Completed rides (imported from FIT files or synced from Strava)
	`CREATE TABLE IF NOT EXISTS rides (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		strava_id INTEGER UNIQUE,
		name TEXT NOT NULL,
		sport TEXT,
		start_time TEXT NOT NULL,
		duration_seconds INTEGER NOT NULL,
		avg_power REAL,
		max_power REAL,
		normalized_power REAL,
		samples_synced INTEGER DEFAULT 0,
		created_at TEXT DEFAULT CURRENT_TIMESTAMP
	)`,

	// 1Hz power samples per ride
	`CREATE TABLE IF NOT EXISTS power_samples (
		ride_id INTEGER NOT NULL,
		time_offset INTEGER NOT NULL,
		watts REAL NOT NULL,
		PRIMARY KEY (ride_id, time_offset),
		FOREIGN KEY (ride_id) REFERENCES rides(id) ON DELETE CASCADE
	)`,

	// Cached compliance reports, one per (workout, ride) pair
	`CREATE TABLE IF NOT EXISTS reports (
		workout_id INTEGER NOT NULL,
		ride_id INTEGER NOT NULL,
		algorithm_version TEXT NOT NULL,
		score REAL NOT NULL,
		grade TEXT NOT NULL,
		segments_completed INTEGER NOT NULL,
		segments_skipped INTEGER NOT NULL,
		report_json TEXT NOT NULL,
		created_at TEXT DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (workout_id, ride_id),
		FOREIGN KEY (workout_id) REFERENCES workouts(id) ON DELETE CASCADE,
		FOREIGN KEY (ride_id) REFERENCES rides(id) ON DELETE CASCADE
	)`,

	// Sync bookkeeping
	`CREATE TABLE IF NOT EXISTS sync_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS idx_rides_start_time ON rides(start_time DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_power_samples_ride ON power_samples(ride_id)`,
}
