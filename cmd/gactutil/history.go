package main

import (
	"errors"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/inodb/gactutil/internal/duckdb"
	"github.com/inodb/gactutil/internal/tabular"
)

// HistoryColumns are the columns of the history table.
var HistoryColumns = tabular.Row{
	"run_id", "started_at", "duration_ms", "status", "input", "config",
	"records", "passed", "failed", "written", "record_errors", "input_state",
}

// Input states reported by history.
const (
	inputUnchanged = "unchanged"
	inputChanged   = "changed"
	inputMissing   = "missing"
)

func (a *app) newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded filter runs",
		Long:  "Show the filter runs recorded in the history database, most recent first.",
		Example: `  gactutil history --history-db runs.duckdb
  gactutil history --limit 5
  gactutil history clear`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Runs(limit)
			if err != nil {
				return err
			}

			d, err := a.tableDialect()
			if err != nil {
				return err
			}
			tw, err := tabular.NewWriter(cmd.OutOrStdout(), d)
			if err != nil {
				return err
			}
			if err := tw.WriteHeader(HistoryColumns); err != nil {
				return err
			}
			for _, r := range runs {
				if err := tw.Write(historyRow(r)); err != nil {
					return err
				}
			}
			return tw.Flush()
		},
	}

	cmd.PersistentFlags().String("history-db", "", "DuckDB database holding the run history")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "show at most this many runs (0 for all)")

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()
			return store.ClearRuns()
		},
	})

	return cmd
}

func (a *app) openHistory() (*duckdb.Store, error) {
	path := a.v.GetString(keyHistoryDB)
	if path == "" {
		return nil, usageError(errors.New("no history database configured (--history-db or filter.history-db)"))
	}
	return duckdb.Open(path)
}

func historyRow(r duckdb.RunRecord) tabular.Row {
	return tabular.Row{
		r.ID.String(),
		r.StartedAt.UTC().Format(time.RFC3339),
		strconv.FormatInt(r.Duration.Milliseconds(), 10),
		r.Status,
		r.Input.Path,
		r.ConfigPath,
		strconv.Itoa(r.Records),
		strconv.Itoa(r.Passed),
		strconv.Itoa(r.Failed),
		strconv.Itoa(r.Written),
		strconv.Itoa(r.RecordErrors),
		inputState(r.Input),
	}
}

// inputState compares a recorded input with the file on disk now.
// Standard input has no state.
func inputState(recorded duckdb.FileFingerprint) string {
	if recorded.Path == "-" {
		return "-"
	}
	now, err := duckdb.StatFile(recorded.Path)
	if err != nil {
		return inputMissing
	}
	if recorded.Matches(now) {
		return inputUnchanged
	}
	return inputChanged
}
