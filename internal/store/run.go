package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run is one pipeline invocation over a single input.
type Run struct {
	ID         string     `json:"id"`
	Input      string     `json:"input"`
	Mode       string     `json:"mode"`
	Detector   string     `json:"detector"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Frames     int        `json:"frames"`
	Status     RunStatus  `json:"status"`
	Error      string     `json:"error,omitempty"`
}

// RunRepository provides CRUD operations for runs.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

// Create inserts a new running run. An empty ID is filled with a fresh UUID.
func (r *RunRepository) Create(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.Status = RunStatusRunning

	_, err := r.db.Exec(
		`INSERT INTO runs (id, input, mode, detector, started_at, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Input, run.Mode, run.Detector, run.StartedAt, string(run.Status),
	)
	return err
}

// Finish records the outcome of a run.
func (r *RunRepository) Finish(id string, status RunStatus, frames int, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}

	result, err := r.db.Exec(
		`UPDATE runs SET finished_at = ?, status = ?, frames = ?, error = ? WHERE id = ?`,
		time.Now(), string(status), frames, msg, id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

const runColumns = `id, input, mode, detector, started_at, finished_at, frames, status, error`

// GetByID retrieves a run by its ID.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	run, err := scanRun(r.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

// List retrieves the most recent runs first. A limit of 0 or less returns all.
func (r *RunRepository) List(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	run := &Run{}
	var status string
	var finished sql.NullTime

	err := row.Scan(&run.ID, &run.Input, &run.Mode, &run.Detector, &run.StartedAt,
		&finished, &run.Frames, &status, &run.Error)
	if err != nil {
		return nil, err
	}

	run.Status = RunStatus(status)
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return run, nil
}
