// Package store persists benchmark runs to a local SQLite catalog so runs
// on different machines and days stay comparable.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/planbench/planbench/internal/bench"
)

// Store manages the results catalog in SQLite.
type Store struct {
	DBPath string
	db     *sql.DB
}

// Run is one persisted benchmark run.
type Run struct {
	ID           int64
	Engine       string
	InstanceType string
	USDPerHour   float64
	Iterations   int
	StartedAt    time.Time
	QueryCount   int
}

// Open opens or creates the catalog database.
func Open(path string) (*Store, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("store: resolve catalog path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("store: ensure catalog dir: %w", err)
	}

	db, err := sql.Open("sqlite", absPath)
	if err != nil {
		return nil, fmt.Errorf("store: open catalog: %w", err)
	}

	s := &Store{DBPath: absPath, db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) ensureSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	engine TEXT NOT NULL,
	instance_type TEXT,
	usd_per_hour REAL,
	iterations INTEGER,
	started_at TEXT NOT NULL,
	settings_json TEXT
);
CREATE TABLE IF NOT EXISTS query_timings (
	run_id INTEGER NOT NULL REFERENCES runs(id),
	query_number INTEGER NOT NULL,
	iteration INTEGER NOT NULL,
	seconds REAL NOT NULL,
	PRIMARY KEY (run_id, query_number, iteration)
);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("store: ensure schema: %w", err)
	}
	return nil
}

// SaveRun inserts a run document and its per-iteration timings.
func (s *Store) SaveRun(result *bench.Result) (int64, error) {
	if result == nil {
		return 0, fmt.Errorf("store: nil result")
	}

	settings, err := json.Marshal(map[string]any{
		"memory_limit_mb": result.MemoryLimit,
		"threads":         result.Threads,
	})
	if err != nil {
		return 0, fmt.Errorf("store: marshal settings: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(
		`INSERT INTO runs (engine, instance_type, usd_per_hour, iterations, started_at, settings_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		result.Engine, result.InstanceType, result.USDPerHour, result.Iterations,
		result.Timestamp, string(settings),
	)
	if err != nil {
		return 0, fmt.Errorf("store: insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: run id: %w", err)
	}

	for queryKey, timings := range result.QueryTimings {
		var queryNumber int
		if _, err := fmt.Sscanf(queryKey, "%d", &queryNumber); err != nil {
			continue
		}
		for i, seconds := range timings {
			if _, err := tx.Exec(
				`INSERT INTO query_timings (run_id, query_number, iteration, seconds) VALUES (?, ?, ?, ?)`,
				runID, queryNumber, i+1, seconds,
			); err != nil {
				return 0, fmt.Errorf("store: insert timing q%d: %w", queryNumber, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return runID, nil
}

// ListRuns returns the catalog's runs, newest first.
func (s *Store) ListRuns() ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT r.id, r.engine, COALESCE(r.instance_type, ''), COALESCE(r.usd_per_hour, 0),
		       COALESCE(r.iterations, 0), r.started_at,
		       (SELECT COUNT(DISTINCT query_number) FROM query_timings t WHERE t.run_id = r.id)
		FROM runs r
		ORDER BY r.started_at DESC, r.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run       Run
			startedAt string
		)
		if err := rows.Scan(&run.ID, &run.Engine, &run.InstanceType, &run.USDPerHour,
			&run.Iterations, &startedAt, &run.QueryCount); err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339, startedAt); err == nil {
			run.StartedAt = ts
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate runs: %w", err)
	}
	return runs, nil
}

// QueryAverages returns per-query mean seconds for one run.
func (s *Store) QueryAverages(runID int64) (map[int]float64, error) {
	rows, err := s.db.Query(
		`SELECT query_number, AVG(seconds) FROM query_timings WHERE run_id = ? GROUP BY query_number`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("store: query averages: %w", err)
	}
	defer rows.Close()

	out := map[int]float64{}
	for rows.Next() {
		var (
			num int
			avg float64
		)
		if err := rows.Scan(&num, &avg); err != nil {
			return nil, fmt.Errorf("store: scan average: %w", err)
		}
		out[num] = avg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate averages: %w", err)
	}
	return out, nil
}
