package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 500
)

// SQLiteRecorder persists runs to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create recorder dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while the engine writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			ticker      TEXT NOT NULL,
			seed        INTEGER NOT NULL,
			tier        TEXT NOT NULL,
			anchor      TEXT NOT NULL,
			raw_count   INTEGER NOT NULL,
			valid_count INTEGER NOT NULL,
			dropped     INTEGER NOT NULL,
			violations  TEXT NOT NULL DEFAULT '',
			error       TEXT NOT NULL DEFAULT '',
			duration_us INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ticker ON runs(ticker)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun inserts a run and fills in its assigned ID and timestamp.
func (r *SQLiteRecorder) RecordRun(run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	res, err := r.db.Exec(`INSERT INTO runs
		(timestamp, ticker, seed, tier, anchor, raw_count, valid_count, dropped, violations, error, duration_us)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		run.CreatedAt.Unix(), run.Ticker, run.Seed, run.Tier, run.Anchor,
		run.RawCount, run.ValidCount, run.Dropped,
		run.Violations, run.Error, run.DurationUS,
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		run.ID = id
	}
	return nil
}

// RecentRuns returns the newest runs, most recent first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]Run, error) {
	rows, err := r.db.Query(`SELECT id, timestamp, ticker, seed, tier, anchor,
		raw_count, valid_count, dropped, violations, error, duration_us
		FROM runs ORDER BY id DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

// RunsForTicker returns the newest runs for one ticker, most recent first.
func (r *SQLiteRecorder) RunsForTicker(ticker string, limit int) ([]Run, error) {
	rows, err := r.db.Query(`SELECT id, timestamp, ticker, seed, tier, anchor,
		raw_count, valid_count, dropped, violations, error, duration_us
		FROM runs WHERE ticker = ? ORDER BY id DESC LIMIT ?`, ticker, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		var run Run
		var ts int64
		if err := rows.Scan(&run.ID, &ts, &run.Ticker, &run.Seed, &run.Tier, &run.Anchor,
			&run.RawCount, &run.ValidCount, &run.Dropped,
			&run.Violations, &run.Error, &run.DurationUS); err != nil {
			return nil, err
		}
		run.CreatedAt = time.Unix(ts, 0)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultRunLimit
	}
	if limit > maxRunLimit {
		return maxRunLimit
	}
	return limit
}
