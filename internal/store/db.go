// Package store records pipeline runs, their stage progress and their
// errors in a SQLite tracking database. Tracking is best-effort: callers
// that never call InitDB (library use, tests) get no-ops instead of
// failures.
package store

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"go-survey-pipeline/internal/model"
)

var db *sql.DB

// InitDB opens the tracking database and creates its tables.
func InitDB(dbPath string) error {
	var err error
	db, err = sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}

	runsTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		input_path TEXT,
		status TEXT,
		manifest TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);
	`
	errorsTable := `
	CREATE TABLE IF NOT EXISTS run_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		error_message TEXT,
		created_at DATETIME
	);
	`
	progressTable := `
	CREATE TABLE IF NOT EXISTS stage_progress (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		stage TEXT,
		rows_in INTEGER,
		rows_out INTEGER,
		started_at DATETIME,
		completed_at DATETIME
	);
	`

	for _, stmt := range []string{runsTable, errorsTable, progressTable} {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the tracking database.
func Close() error {
	if db == nil {
		return nil
	}
	err := db.Close()
	db = nil
	return err
}

// SaveRun registers a new pipeline run.
func SaveRun(jobID, inputPath string) error {
	if db == nil {
		return nil
	}
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO runs (id, input_path, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		jobID, inputPath, "pending", now, now)
	return err
}

// UpdateRunStatus updates a run's status.
func UpdateRunStatus(jobID string, status string) error {
	if db == nil {
		return nil
	}
	now := time.Now().UTC()
	_, err := db.Exec(`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`, status, now, jobID)
	return err
}

// SaveRunError records an error for a run.
func SaveRunError(jobID string, runErr error) error {
	if db == nil || runErr == nil {
		return nil
	}
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO run_errors (run_id, error_message, created_at) VALUES (?, ?, ?)`,
		jobID, runErr.Error(), now)
	return err
}

// SaveStageProgress records a completed stage's row counts and timing.
func SaveStageProgress(jobID, stage string, rowsIn, rowsOut int, startedAt time.Time) error {
	if db == nil {
		return nil
	}
	_, err := db.Exec(`INSERT INTO stage_progress (run_id, stage, rows_in, rows_out, started_at, completed_at) VALUES (?, ?, ?, ?, ?, ?)`,
		jobID, stage, rowsIn, rowsOut, startedAt.UTC(), time.Now().UTC())
	return err
}

// SaveRunManifest attaches the run manifest JSON to the run row.
func SaveRunManifest(jobID string, manifest *model.RunManifest) error {
	if db == nil {
		return nil
	}
	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = db.Exec(`UPDATE runs SET manifest = ?, updated_at = ? WHERE id = ?`, string(manifestJSON), now, jobID)
	return err
}

// ListRuns returns all runs with basic info, newest first.
func ListRuns() ([]map[string]interface{}, error) {
	if db == nil {
		return nil, nil
	}
	rows, err := db.Query(`SELECT id, input_path, status, created_at, updated_at FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []map[string]interface{}
	for rows.Next() {
		var id, inputPath, status string
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&id, &inputPath, &status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, map[string]interface{}{
			"id":        id,
			"inputPath": inputPath,
			"status":    status,
			"createdAt": createdAt,
			"updatedAt": updatedAt,
		})
	}
	return runs, rows.Err()
}

// GetRun fetches one run's status and timestamps.
func GetRun(jobID string) (map[string]interface{}, error) {
	if db == nil {
		return nil, sql.ErrNoRows
	}
	var inputPath, status string
	var createdAt, updatedAt time.Time

	err := db.QueryRow(`SELECT input_path, status, created_at, updated_at FROM runs WHERE id = ?`, jobID).
		Scan(&inputPath, &status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"id":        jobID,
		"inputPath": inputPath,
		"status":    status,
		"createdAt": createdAt,
		"updatedAt": updatedAt,
	}, nil
}

// GetRunManifest fetches a run's manifest, or nil when the run has not
// produced one yet.
func GetRunManifest(jobID string) (*model.RunManifest, error) {
	if db == nil {
		return nil, sql.ErrNoRows
	}
	var manifestJSON sql.NullString
	err := db.QueryRow(`SELECT manifest FROM runs WHERE id = ?`, jobID).Scan(&manifestJSON)
	if err != nil {
		return nil, err
	}
	if !manifestJSON.Valid || manifestJSON.String == "" {
		return nil, nil
	}
	var m model.RunManifest
	if err := json.Unmarshal([]byte(manifestJSON.String), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetRunErrors returns all recorded errors for a run.
func GetRunErrors(jobID string) ([]map[string]interface{}, error) {
	if db == nil {
		return nil, nil
	}
	rows, err := db.Query(`SELECT error_message, created_at FROM run_errors WHERE run_id = ? ORDER BY created_at`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		var msg string
		var createdAt time.Time
		if err := rows.Scan(&msg, &createdAt); err != nil {
			return nil, err
		}
		out = append(out, map[string]interface{}{
			"error":     msg,
			"createdAt": createdAt,
		})
	}
	return out, rows.Err()
}

// GetStageProgress returns the per-stage progress rows for a run in
// execution order.
func GetStageProgress(jobID string) ([]map[string]interface{}, error) {
	if db == nil {
		return nil, nil
	}
	rows, err := db.Query(`SELECT stage, rows_in, rows_out, started_at, completed_at FROM stage_progress WHERE run_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		var stage string
		var rowsIn, rowsOut int
		var startedAt, completedAt time.Time
		if err := rows.Scan(&stage, &rowsIn, &rowsOut, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		out = append(out, map[string]interface{}{
			"stage":       stage,
			"rowsIn":      rowsIn,
			"rowsOut":     rowsOut,
			"startedAt":   startedAt,
			"completedAt": completedAt,
		})
	}
	return out, rows.Err()
}
