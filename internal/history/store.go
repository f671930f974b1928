// Package history provides SQLite-backed run history for the pipeline.
// Every run and every stage outcome is recorded, so operators can
// answer "what happened on this work id last week" without digging
// through artifact directories.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store wraps an SQLite database holding pipeline run history.
type Store struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// DefaultPath returns the default history database path inside the
// results tree: <resultsDir>/../history.db.
func DefaultPath(resultsDir string) string {
	return filepath.Join(filepath.Dir(resultsDir), "history.db")
}

// Open opens (and migrates) the history database at the given path,
// creating parent directories as needed. WAL mode is enabled for
// concurrent reads.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{conn: conn, path: path}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := s.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Runs},
		{2, migrationV2Stages},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}
	return nil
}

// Migration SQL statements
const migrationV1Runs = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
	id TEXT PRIMARY KEY,
	work_id TEXT NOT NULL,
	task_path TEXT NOT NULL,
	mode TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	finished_at DATETIME,
	exit_code INTEGER
);

CREATE INDEX IF NOT EXISTS idx_pipeline_runs_work_id ON pipeline_runs(work_id);
`

const migrationV2Stages = `
CREATE TABLE IF NOT EXISTS stage_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES pipeline_runs(id),
	stage TEXT NOT NULL,
	exit_code INTEGER NOT NULL,
	artifact TEXT,
	recorded_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stage_results_run_id ON stage_results(run_id);
`

// StartRun opens a history record for a pipeline run.
func (s *Store) StartRun(workID, taskPath, mode string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	_, err := s.conn.Exec(
		"INSERT INTO pipeline_runs (id, work_id, task_path, mode, started_at) VALUES (?, ?, ?, ?, ?)",
		id, workID, taskPath, mode, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert pipeline run: %w", err)
	}
	return id, nil
}

// RecordStage appends one stage outcome to a run.
func (s *Store) RecordStage(runID, stageName string, exitCode int, artifact string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(
		"INSERT INTO stage_results (run_id, stage, exit_code, artifact, recorded_at) VALUES (?, ?, ?, ?, ?)",
		runID, stageName, exitCode, artifact, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert stage result: %w", err)
	}
	return nil
}

// FinishRun closes a run record with its final exit code.
func (s *Store) FinishRun(runID string, exitCode int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(
		"UPDATE pipeline_runs SET finished_at = ?, exit_code = ? WHERE id = ?",
		time.Now().UTC(), exitCode, runID,
	)
	if err != nil {
		return fmt.Errorf("finish pipeline run: %w", err)
	}
	return nil
}

// Run is one recorded pipeline run.
type Run struct {
	// ID is the run's unique identifier.
	ID string
	// WorkID is the pipeline work id.
	WorkID string
	// TaskPath is the task file the run processed.
	TaskPath string
	// Mode is the pipeline mode.
	Mode string
	// StartedAt is when the run began.
	StartedAt time.Time
	// FinishedAt is when the run ended; zero while running.
	FinishedAt time.Time
	// ExitCode is the final exit code; -1 while running.
	ExitCode int
}

// StageRecord is one recorded stage outcome.
type StageRecord struct {
	// Stage is the stage name.
	Stage string
	// ExitCode is the stage's exit code.
	ExitCode int
	// Artifact is the artifact path the stage wrote.
	Artifact string
	// RecordedAt is when the outcome was recorded.
	RecordedAt time.Time
}

// ListRuns returns the most recent runs, newest first. A non-empty
// workID filters to that work id.
func (s *Store) ListRuns(workID string, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	query := "SELECT id, work_id, task_path, mode, started_at, finished_at, exit_code FROM pipeline_runs"
	args := []any{}
	if workID != "" {
		query += " WHERE work_id = ?"
		args = append(args, workID)
	}
	query += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pipeline runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finishedAt sql.NullTime
		var exitCode sql.NullInt64
		if err := rows.Scan(&r.ID, &r.WorkID, &r.TaskPath, &r.Mode, &r.StartedAt, &finishedAt, &exitCode); err != nil {
			return nil, fmt.Errorf("scan pipeline run: %w", err)
		}
		if finishedAt.Valid {
			r.FinishedAt = finishedAt.Time
		}
		r.ExitCode = -1
		if exitCode.Valid {
			r.ExitCode = int(exitCode.Int64)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListStages returns the stage outcomes for a run in recorded order.
func (s *Store) ListStages(runID string) ([]StageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query(
		"SELECT stage, exit_code, artifact, recorded_at FROM stage_results WHERE run_id = ? ORDER BY id",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query stage results: %w", err)
	}
	defer rows.Close()

	var records []StageRecord
	for rows.Next() {
		var rec StageRecord
		var artifact sql.NullString
		if err := rows.Scan(&rec.Stage, &rec.ExitCode, &artifact, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan stage result: %w", err)
		}
		rec.Artifact = artifact.String
		records = append(records, rec)
	}
	return records, rows.Err()
}
