package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cptspacemanspiff/power-probe/internal/probe"
)

const schema = `
CREATE TABLE IF NOT EXISTS probe_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_ts ON probe_runs(timestamp);

CREATE TABLE IF NOT EXISTS probe_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL REFERENCES probe_runs(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	step TEXT NOT NULL,
	header TEXT NOT NULL DEFAULT '',
	output TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	ok INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_results_run ON probe_results(run_id, seq);
`

// DB wraps a SQLite database of probe reports.
type DB struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at the given path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// InsertReport stores a report and its results in a single transaction and
// returns the new run id.
func (d *DB) InsertReport(r *probe.Report) (int64, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, err
	}
	res, err := tx.Exec("INSERT INTO probe_runs (timestamp) VALUES (?)", r.Timestamp)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	runID, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, err
	}

	stmt, err := tx.Prepare("INSERT INTO probe_results (run_id, seq, step, header, output, error, ok, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()
	for i, s := range r.Results {
		ok := 0
		if s.OK {
			ok = 1
		}
		if _, err := stmt.Exec(runID, i, s.Step, s.Header, s.Output, s.Error, ok, s.DurationMS); err != nil {
			tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// LatestReport returns the most recent report, or nil if none is stored.
func (d *DB) LatestReport() (*probe.Report, error) {
	row := d.db.QueryRow("SELECT id, timestamp FROM probe_runs ORDER BY timestamp DESC, id DESC LIMIT 1")
	var r probe.Report
	err := row.Scan(&r.ID, &r.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if r.Results, err = d.results(r.ID); err != nil {
		return nil, err
	}
	return &r, nil
}

// RecentReports returns up to n reports, newest first.
func (d *DB) RecentReports(n int) ([]probe.Report, error) {
	return d.queryReports("SELECT id, timestamp FROM probe_runs ORDER BY timestamp DESC, id DESC LIMIT ?", n)
}

// ReportsInRange returns reports within the given time range, oldest first.
func (d *DB) ReportsInRange(from, to int64) ([]probe.Report, error) {
	return d.queryReports("SELECT id, timestamp FROM probe_runs WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp, id", from, to)
}

func (d *DB) queryReports(query string, args ...any) ([]probe.Report, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	var reports []probe.Report
	for rows.Next() {
		var r probe.Report
		if err := rows.Scan(&r.ID, &r.Timestamp); err != nil {
			rows.Close()
			return nil, err
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range reports {
		if reports[i].Results, err = d.results(reports[i].ID); err != nil {
			return nil, err
		}
	}
	return reports, nil
}

func (d *DB) results(runID int64) ([]probe.Result, error) {
	rows, err := d.db.Query(
		"SELECT step, header, output, error, ok, duration_ms FROM probe_results WHERE run_id = ? ORDER BY seq",
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []probe.Result
	for rows.Next() {
		var r probe.Result
		var ok int
		if err := rows.Scan(&r.Step, &r.Header, &r.Output, &r.Error, &ok, &r.DurationMS); err != nil {
			return nil, err
		}
		r.OK = ok != 0
		results = append(results, r)
	}
	return results, rows.Err()
}
