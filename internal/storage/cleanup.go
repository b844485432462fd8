package storage

import "fmt"

// DeleteOlderThan deletes reports taken before the given unix epoch along
// with their results. Returns the number of deleted reports.
func (d *DB) DeleteOlderThan(before int64) (int64, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}

	if _, err := tx.Exec(
		"DELETE FROM probe_results WHERE run_id IN (SELECT id FROM probe_runs WHERE timestamp < ?)",
		before,
	); err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("delete from probe_results: %w", err)
	}

	res, err := tx.Exec("DELETE FROM probe_runs WHERE timestamp < ?", before)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("delete from probe_runs: %w", err)
	}
	n, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}
