// Package runstore keeps the history of DAG runs and task attempts in SQLite.
package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"ali-crawler/models"
)

// ErrRunNotFound is returned by GetRun for an unknown run id.
var ErrRunNotFound = errors.New("runstore: run not found")

// Store records DAG runs and task instances.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and creates the tables.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("runstore: open %s: %w", path, err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("runstore: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	runTable := `
	CREATE TABLE IF NOT EXISTS dag_runs (
		id TEXT PRIMARY KEY,
		dag_id TEXT NOT NULL,
		logical_date DATETIME NOT NULL,
		state TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME
	);
	`
	taskTable := `
	CREATE TABLE IF NOT EXISTS task_instances (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		task_id TEXT NOT NULL,
		attempt INTEGER NOT NULL,
		state TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		started_at DATETIME NOT NULL,
		ended_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_task_instances_run ON task_instances(run_id);
	`

	if _, err := s.db.ExecContext(ctx, runTable); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, taskTable); err != nil {
		return err
	}
	return nil
}

// StartRun stores a new run.
func (s *Store) StartRun(ctx context.Context, run *models.DAGRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dag_runs (id, dag_id, logical_date, state, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.DAGID, run.LogicalDate.UTC(), string(run.State), run.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("runstore: start run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun sets the final state of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, state models.RunState, endedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE dag_runs SET state = ?, ended_at = ? WHERE id = ?`, string(state), endedAt.UTC(), runID)
	if err != nil {
		return fmt.Errorf("runstore: finish run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// GetRun returns a stored run.
func (s *Store) GetRun(ctx context.Context, runID string) (*models.DAGRun, error) {
	var (
		run     models.DAGRun
		state   string
		endedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, dag_id, logical_date, state, started_at, ended_at FROM dag_runs WHERE id = ?`, runID).
		Scan(&run.ID, &run.DAGID, &run.LogicalDate, &state, &run.StartedAt, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("runstore: get run %s: %w", runID, err)
	}
	run.State = models.RunState(state)
	if endedAt.Valid {
		t := endedAt.Time
		run.EndedAt = &t
	}
	return &run, nil
}

// RecordTask appends one task attempt.
func (s *Store) RecordTask(ctx context.Context, ti models.TaskInstance) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_instances (run_id, task_id, attempt, state, error, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ti.RunID, ti.TaskID, ti.Attempt, string(ti.State), ti.Error, ti.StartedAt.UTC(), ti.EndedAt.UTC())
	if err != nil {
		return fmt.Errorf("runstore: record task %s/%s: %w", ti.RunID, ti.TaskID, err)
	}
	return nil
}

// ListTasks returns the task attempts of a run in recording order.
func (s *Store) ListTasks(ctx context.Context, runID string) ([]models.TaskInstance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, task_id, attempt, state, error, started_at, ended_at
		 FROM task_instances WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("runstore: list tasks %s: %w", runID, err)
	}
	defer rows.Close()

	var tasks []models.TaskInstance
	for rows.Next() {
		var (
			ti    models.TaskInstance
			state string
		)
		if err := rows.Scan(&ti.RunID, &ti.TaskID, &ti.Attempt, &state, &ti.Error, &ti.StartedAt, &ti.EndedAt); err != nil {
			return nil, fmt.Errorf("runstore: scan task: %w", err)
		}
		ti.State = models.RunState(state)
		tasks = append(tasks, ti)
	}
	return tasks, rows.Err()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
