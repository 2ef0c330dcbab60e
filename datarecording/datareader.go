package datarecording

import (
	"database/sql"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
)

// A Reader reads run results back from a recorded database. It is the
// counterpart of Recorder, used by reporting tools.
type Reader struct {
	db *sql.DB
}

// NewReader opens a recorded database file.
func NewReader(dbFilename string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbFilename)
	if err != nil {
		return nil, err
	}

	return &Reader{db: db}, nil
}

// NewReaderWithDB creates a reader on an existing database connection.
func NewReaderWithDB(db *sql.DB) *Reader {
	return &Reader{db: db}
}

// Close closes the underlying connection.
func (r *Reader) Close() error {
	return r.db.Close()
}

// Runs returns all recorded run summaries.
func (r *Reader) Runs() ([]RunRecord, error) {
	rows, err := r.db.Query(`SELECT
		RunID, Policy, Workload, Seed, NumSets, NumWays,
		Accesses, Hits, Misses, Evictions, Bypasses,
		Loads, RFOs, Prefetches, Writebacks, HitRate
		FROM runs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var rec RunRecord

		err := rows.Scan(
			&rec.RunID, &rec.Policy, &rec.Workload, &rec.Seed,
			&rec.NumSets, &rec.NumWays,
			&rec.Accesses, &rec.Hits, &rec.Misses,
			&rec.Evictions, &rec.Bypasses,
			&rec.Loads, &rec.RFOs, &rec.Prefetches, &rec.Writebacks,
			&rec.HitRate)
		if err != nil {
			return nil, err
		}

		runs = append(runs, rec)
	}

	return runs, rows.Err()
}

// Intervals returns the heartbeat snapshots of one run in order.
func (r *Reader) Intervals(runID string) ([]IntervalRecord, error) {
	rows, err := r.db.Query(`SELECT
		RunID, Interval, Accesses, Hits, Misses, Evictions, Bypasses,
		Loads, RFOs, Prefetches, Writebacks
		FROM intervals WHERE RunID = ? ORDER BY Interval`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intervals []IntervalRecord
	for rows.Next() {
		var rec IntervalRecord

		err := rows.Scan(
			&rec.RunID, &rec.Interval, &rec.Accesses, &rec.Hits,
			&rec.Misses, &rec.Evictions, &rec.Bypasses,
			&rec.Loads, &rec.RFOs, &rec.Prefetches, &rec.Writebacks)
		if err != nil {
			return nil, err
		}

		intervals = append(intervals, rec)
	}

	return intervals, rows.Err()
}
