package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	goduckdb "github.com/marcboeker/go-duckdb"
)

// Run statuses.
const (
	StatusComplete    = "complete"
	StatusInterrupted = "interrupted"
	StatusFailed      = "failed"
)

// RunRecord is one filter run.
type RunRecord struct {
	ID         uuid.UUID
	StartedAt  time.Time
	Duration   time.Duration
	Input      FileFingerprint
	ConfigPath string
	Status     string

	Records      int
	Passed       int
	Failed       int
	Written      int
	RecordErrors int

	Filters []FilterCount
}

// FilterCount holds the counters of one filter in a run.
type FilterCount struct {
	Name   string
	Failed int
	Passed int
}

// NewRunID returns a fresh random run identifier.
func NewRunID() uuid.UUID {
	return uuid.New()
}

// SaveRun writes a run and its per-filter counts in one transaction. A
// zero ID is replaced by a new one, which is returned.
func (s *Store) SaveRun(r RunRecord) (uuid.UUID, error) {
	if r.ID == uuid.Nil {
		r.ID = NewRunID()
	}
	id := r.ID.String()

	var mtime any
	if !r.Input.ModTime.IsZero() {
		mtime = r.Input.ModTime.UTC()
	}

	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO filter_runs VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, r.StartedAt.UTC(), r.Duration.Milliseconds(),
		r.Input.Path, r.Input.Size, mtime, r.ConfigPath,
		int64(r.Records), int64(r.Passed), int64(r.Failed), int64(r.Written), int64(r.RecordErrors),
		r.Status,
	); err != nil {
		return uuid.Nil, fmt.Errorf("insert run: %w", err)
	}

	if err := appendCounts(conn, id, r.Filters); err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("commit run: %w", err)
	}
	return r.ID, nil
}

// appendCounts batch-inserts the per-filter counts using the Appender API.
// The appender runs on conn, inside its open transaction.
func appendCounts(conn *sql.Conn, runID string, counts []FilterCount) error {
	if len(counts) == 0 {
		return nil
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "filter_counts")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}

	for i, c := range counts {
		if err := appender.AppendRow(runID, int32(i), c.Name, int64(c.Failed), int64(c.Passed)); err != nil {
			appender.Close()
			return fmt.Errorf("append filter count: %w", err)
		}
	}

	if err := appender.Close(); err != nil {
		return fmt.Errorf("flush filter counts: %w", err)
	}
	return nil
}

// Runs returns the most recent runs first, at most limit of them
// (all when limit <= 0), with their filter counts.
func (s *Store) Runs(limit int) ([]RunRecord, error) {
	query := `SELECT run_id, started_at, duration_ms, input_path, input_size, input_mtime,
		config_path, records, passed, failed, written, record_errors, status
		FROM filter_runs ORDER BY started_at DESC, run_id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var (
			r          RunRecord
			id         string
			durationMS int64
			mtime      sql.NullTime
		)
		if err := rows.Scan(
			&id, &r.StartedAt, &durationMS, &r.Input.Path, &r.Input.Size, &mtime,
			&r.ConfigPath, &r.Records, &r.Passed, &r.Failed, &r.Written, &r.RecordErrors, &r.Status,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse run id %q: %w", id, err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		if mtime.Valid {
			r.Input.ModTime = mtime.Time
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range runs {
		counts, err := s.FilterCounts(runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Filters = counts
	}
	return runs, nil
}

// FilterCounts returns the per-filter counts of a run in chain order.
func (s *Store) FilterCounts(runID uuid.UUID) ([]FilterCount, error) {
	rows, err := s.db.Query(`SELECT filter_name, fail_count, pass_count
		FROM filter_counts WHERE run_id = ? ORDER BY position`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("query filter counts: %w", err)
	}
	defer rows.Close()

	var counts []FilterCount
	for rows.Next() {
		var c FilterCount
		if err := rows.Scan(&c.Name, &c.Failed, &c.Passed); err != nil {
			return nil, fmt.Errorf("scan filter count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate filter counts: %w", err)
	}
	return counts, nil
}

// ClearRuns removes the whole run history.
func (s *Store) ClearRuns() error {
	if _, err := s.db.Exec("DELETE FROM filter_counts"); err != nil {
		return err
	}
	_, err := s.db.Exec("DELETE FROM filter_runs")
	return err
}
