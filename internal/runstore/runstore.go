// Package runstore persists run outcomes: one row per pipeline pass plus
// the per-frame processing times behind the timings chart.
package runstore

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"
)

type DB struct {
	*sql.DB
	path string
}

// NewDB opens (creating if needed) the run database at path.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			engine TEXT NOT NULL,
			frames INTEGER NOT NULL,
			total_ms DOUBLE NOT NULL,
			max_frame_ms DOUBLE NOT NULL,
			started TIMESTAMP,
			finished TIMESTAMP,
			error TEXT,
			created TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS frame_times (
			run_id TEXT NOT NULL,
			frame INTEGER NOT NULL,
			duration_ms DOUBLE NOT NULL,
			PRIMARY KEY (run_id, frame),
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		);
	`)
	if err != nil {
		return nil, err
	}

	return &DB{DB: db, path: path}, nil
}

// Run is one persisted pipeline pass.
type Run struct {
	RunID    string
	Engine   string
	Frames   int
	TotalMS  float64
	MaxMS    float64
	Started  time.Time
	Finished time.Time
	Error    string
}

// RecordRun stores one pipeline pass with its per-frame times and returns
// the generated run id.
func (db *DB) RecordRun(engine string, frameMS []float64, totalMS, maxMS float64, started, finished time.Time, runErr error) (string, error) {
	runID := uuid.NewString()
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}

	tx, err := db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO runs (run_id, engine, frames, total_ms, max_frame_ms, started, finished, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		runID, engine, len(frameMS), totalMS, maxMS, started, finished, errText,
	)
	if err != nil {
		return "", err
	}

	stmt, err := tx.Prepare("INSERT INTO frame_times (run_id, frame, duration_ms) VALUES (?, ?, ?)")
	if err != nil {
		return "", err
	}
	defer stmt.Close()
	for i, ms := range frameMS {
		if _, err := stmt.Exec(runID, i+1, ms); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return runID, nil
}

// Runs returns the most recent runs, newest first.
func (db *DB) Runs(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(
		"SELECT run_id, engine, frames, total_ms, max_frame_ms, started, finished, error FROM runs ORDER BY created DESC, rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.Engine, &r.Frames, &r.TotalMS, &r.MaxMS, &r.Started, &r.Finished, &r.Error); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// FrameTimes returns the per-frame milliseconds of a run in frame order.
func (db *DB) FrameTimes(runID string) ([]float64, error) {
	rows, err := db.Query(
		"SELECT duration_ms FROM frame_times WHERE run_id = ? ORDER BY frame",
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var times []float64
	for rows.Next() {
		var ms float64
		if err := rows.Scan(&ms); err != nil {
			return nil, err
		}
		times = append(times, ms)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return times, nil
}

// LatestRunByEngine returns the newest run for the given engine, or nil.
func (db *DB) LatestRunByEngine(engine string) (*Run, error) {
	row := db.QueryRow(
		"SELECT run_id, engine, frames, total_ms, max_frame_ms, started, finished, error FROM runs WHERE engine = ? ORDER BY created DESC, rowid DESC LIMIT 1",
		engine,
	)
	var r Run
	err := row.Scan(&r.RunID, &r.Engine, &r.Frames, &r.TotalMS, &r.MaxMS, &r.Started, &r.Finished, &r.Error)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// AttachAdminRoutes mounts a tailSQL instance over the run database for
// live SQL debugging. Accessible only through the debug handler.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB(fmt.Sprintf("sqlite://%s", db.path), db.DB, &tailsql.DBOptions{
		Label: "Run DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
}
