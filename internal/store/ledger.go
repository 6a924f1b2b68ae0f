// Package store persists the run ledger: one row per pipeline run plus
// one row per scene result, backed by a local sqlite database. The
// ledger is an audit trail; the pipeline itself never reads from it.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"storyboard/internal/logging"
	"storyboard/internal/pipeline"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	started_at      INTEGER NOT NULL,
	finished_at     INTEGER NOT NULL,
	scenes_total    INTEGER NOT NULL,
	scenes_failed   INTEGER NOT NULL,
	panels_reversed INTEGER NOT NULL,
	panels_failed   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS scene_results (
	run_id   TEXT NOT NULL REFERENCES runs(id),
	scene_id INTEGER NOT NULL,
	status   TEXT NOT NULL,
	error    TEXT NOT NULL DEFAULT '',
	panels   TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (run_id, scene_id)
);

CREATE INDEX IF NOT EXISTS idx_scene_results_run ON scene_results(run_id);
`

// Ledger is a handle to the run ledger database.
type Ledger struct {
	db *sql.DB
}

// RunRecord is a persisted run summary.
type RunRecord struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     time.Time
	ScenesTotal    int
	ScenesFailed   int
	PanelsReversed int
	PanelsFailed   int
}

// SceneRecord is a persisted per-scene outcome.
type SceneRecord struct {
	RunID   string
	SceneID int
	Status  string // "emitted" or "failed"
	Error   string
	Panels  json.RawMessage
}

// Open opens (creating if needed) the ledger database at path.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.Get(logging.CategoryStore).Debug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.Get(logging.CategoryStore).Debug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply ledger schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// RecordRun writes a completed run and all its scene results in one
// transaction.
func (l *Ledger) RecordRun(run *pipeline.Run) error {
	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin ledger transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, started_at, finished_at, scenes_total, scenes_failed, panels_reversed, panels_failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UnixMilli(),
		run.FinishedAt.UnixMilli(),
		len(run.Results),
		run.ScenesFailed(),
		run.PanelsReversed(),
		run.PanelsFailed(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	for _, res := range run.Results {
		status := "emitted"
		errMsg := ""
		panels := []byte("[]")
		if res.Err != nil {
			status = "failed"
			errMsg = res.Err.Error()
		} else {
			panels, err = json.Marshal(res.Emitted.Panels)
			if err != nil {
				return fmt.Errorf("failed to encode panels for scene %d: %w", res.SceneID, err)
			}
		}
		_, err = tx.Exec(
			`INSERT INTO scene_results (run_id, scene_id, status, error, panels) VALUES (?, ?, ?, ?, ?)`,
			run.ID, res.SceneID, status, errMsg, string(panels),
		)
		if err != nil {
			return fmt.Errorf("failed to insert scene %d result: %w", res.SceneID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger transaction: %w", err)
	}

	logging.Get(logging.CategoryStore).Info("Recorded run %s: %d scene(s)", run.ID, len(run.Results))
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (l *Ledger) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.Query(
		`SELECT id, started_at, finished_at, scenes_total, scenes_failed, panels_reversed, panels_failed
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		var started, finished int64
		if err := rows.Scan(&r.ID, &started, &finished, &r.ScenesTotal, &r.ScenesFailed, &r.PanelsReversed, &r.PanelsFailed); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		r.FinishedAt = time.UnixMilli(finished)
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetRun returns one run and its scene results.
func (l *Ledger) GetRun(id string) (*RunRecord, []SceneRecord, error) {
	var r RunRecord
	var started, finished int64
	err := l.db.QueryRow(
		`SELECT id, started_at, finished_at, scenes_total, scenes_failed, panels_reversed, panels_failed
		 FROM runs WHERE id = ?`, id).
		Scan(&r.ID, &started, &finished, &r.ScenesTotal, &r.ScenesFailed, &r.PanelsReversed, &r.PanelsFailed)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query run %s: %w", id, err)
	}
	r.StartedAt = time.UnixMilli(started)
	r.FinishedAt = time.UnixMilli(finished)

	rows, err := l.db.Query(
		`SELECT run_id, scene_id, status, error, panels FROM scene_results WHERE run_id = ? ORDER BY scene_id`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query scene results for run %s: %w", id, err)
	}
	defer rows.Close()

	var scenes []SceneRecord
	for rows.Next() {
		var s SceneRecord
		var panels string
		if err := rows.Scan(&s.RunID, &s.SceneID, &s.Status, &s.Error, &panels); err != nil {
			return nil, nil, fmt.Errorf("failed to scan scene result row: %w", err)
		}
		s.Panels = json.RawMessage(panels)
		scenes = append(scenes, s)
	}
	return &r, scenes, rows.Err()
}
