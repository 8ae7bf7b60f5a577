// Package duckdb records the history of filter runs in a DuckDB database:
// one row per run with its totals, and the per-filter counts of each run.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding run history.
type Store struct {
	db *sql.DB
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS filter_runs (
		run_id VARCHAR PRIMARY KEY,
		started_at TIMESTAMP,
		duration_ms BIGINT,
		input_path VARCHAR,
		input_size BIGINT,
		input_mtime TIMESTAMP,
		config_path VARCHAR,
		records BIGINT,
		passed BIGINT,
		failed BIGINT,
		written BIGINT,
		record_errors BIGINT,
		status VARCHAR
	)`); err != nil {
		return err
	}

	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS filter_counts (
		run_id VARCHAR,
		position INTEGER,
		filter_name VARCHAR,
		fail_count BIGINT,
		pass_count BIGINT,
		PRIMARY KEY (run_id, position)
	)`)
	return err
}
