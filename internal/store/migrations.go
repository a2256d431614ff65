package store

import "fmt"

// migrations are applied in order. PRAGMA user_version records how many
// have run, so append new steps and never edit old ones.
var migrations = [][]string{
	{
		`CREATE TABLE runs (
			id TEXT PRIMARY KEY,
			input TEXT NOT NULL,
			mode TEXT NOT NULL CHECK(mode IN ('webcam', 'video', 'image')),
			detector TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			finished_at DATETIME,
			frames INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'running'
				CHECK(status IN ('running', 'completed', 'failed', 'cancelled')),
			error TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE detections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			frame_index INTEGER NOT NULL,
			label TEXT NOT NULL,
			score REAL NOT NULL,
			x0 REAL NOT NULL,
			y0 REAL NOT NULL,
			x1 REAL NOT NULL,
			y1 REAL NOT NULL,
			center_x REAL NOT NULL DEFAULT 0,
			center_y REAL NOT NULL DEFAULT 0,
			scale_x REAL NOT NULL DEFAULT 0,
			scale_y REAL NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE keypoints (
			detection_id INTEGER NOT NULL REFERENCES detections(id) ON DELETE CASCADE,
			keypoint_index INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			score REAL NOT NULL,
			PRIMARY KEY (detection_id, keypoint_index)
		)`,
	},
	{
		`CREATE INDEX idx_detections_run_id ON detections(run_id, frame_index)`,
		`CREATE INDEX idx_runs_started_at ON runs(started_at)`,
	},
}

// migrate applies every step past the recorded schema version, each in
// its own transaction.
func (s *Store) migrate() error {
	current, err := s.SchemaVersion()
	if err != nil {
		return err
	}
	if current > len(migrations) {
		return fmt.Errorf("schema version %d is newer than this build (%d)", current, len(migrations))
	}

	for v := current; v < len(migrations); v++ {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		for _, stmt := range migrations[v] {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("step %d: %w", v+1, err)
			}
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("step %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("step %d: %w", v+1, err)
		}
	}
	return nil
}
