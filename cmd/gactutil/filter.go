package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/gactutil/internal/duckdb"
	"github.com/inodb/gactutil/internal/filter"
	"github.com/inodb/gactutil/internal/output"
	"github.com/inodb/gactutil/internal/runner"
	"github.com/inodb/gactutil/internal/tabular"
	"github.com/inodb/gactutil/internal/vcf"
)

// errorFilterDescription is the ##FILTER description of records that
// could not be evaluated.
const errorFilterDescription = "A filter could not evaluate this record"

type filterOptions struct {
	configPath     string
	outputPath     string
	reportPath     string
	overrides      []string
	noShortCircuit bool
	passedOnly     bool
}

func (a *app) newFilterCmd() *cobra.Command {
	var opts filterOptions

	cmd := &cobra.Command{
		Use:   "filter -c <filters.yaml> [flags] <input.vcf>",
		Short: "Run VCF records through a filter chain",
		Long: `Run every record of a VCF file through the filters declared in a YAML
configuration file. Each record is written with its FILTER column set to PASS
or to the names of the filters it failed. Records a filter cannot evaluate are
tagged FILTER_ERROR.`,
		Example: `  gactutil filter -c filters.yaml input.vcf
  gactutil filter -c filters.yaml -o out.vcf --report report.tsv input.vcf.gz
  gactutil filter -c filters.yaml --set min_depth.threshold=20 input.vcf
  cat input.vcf | gactutil filter -c filters.yaml -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.configPath == "" {
				return usageError(errors.New("a filter configuration file is required (-c)"))
			}
			return a.runFilter(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config-file", "c", "", "filter configuration file (required)")
	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "output VCF file (default: stdout)")
	cmd.Flags().StringVar(&opts.reportPath, "report", "", "write per-filter counts to this file")
	cmd.Flags().StringArrayVar(&opts.overrides, "set", nil, "override a filter parameter (filter.param=value, repeatable)")
	cmd.Flags().BoolVar(&opts.noShortCircuit, "no-short-circuit", false, "evaluate every filter even after a short-circuit failure")
	cmd.Flags().BoolVar(&opts.passedOnly, "no-filtered", false, "only write records that passed every filter")
	cmd.Flags().String("history-db", "", "record the run in this DuckDB database")
	cmd.Flags().String("report-delimiter", "tab", "report field delimiter (tab, comma or a single character)")

	return cmd
}

// buildChain loads the filter configuration and builds the chain. Every
// error it returns is a configuration error.
func buildChain(opts filterOptions, reg *filter.Registry) (*filter.Chain, error) {
	specs, err := filter.LoadSpecs(opts.configPath)
	if err != nil {
		return nil, err
	}

	overrides := make([]filter.Override, 0, len(opts.overrides))
	for _, s := range opts.overrides {
		o, err := filter.ParseOverride(s)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	if specs, err = filter.ApplyOverrides(specs, overrides); err != nil {
		return nil, err
	}

	var chainOpts []filter.Option
	if opts.noShortCircuit {
		chainOpts = append(chainOpts, filter.NoShortCircuit())
	}
	return filter.Build(specs, reg, chainOpts...)
}

// filterHeaders returns the ##FILTER definitions of the chain followed by
// the error token.
func filterHeaders(chain *filter.Chain, reg *filter.Registry) []output.FilterHeader {
	headers := make([]output.FilterHeader, 0, chain.Len()+1)
	for _, s := range chain.Specs() {
		desc := s.Description
		if desc == "" {
			if def, ok := reg.Lookup(s.Name); ok {
				desc = def.Description
			}
		}
		headers = append(headers, output.FilterHeader{ID: s.Name, Description: desc})
	}
	return append(headers, output.FilterHeader{ID: filter.TokenError, Description: errorFilterDescription})
}

func (a *app) runFilter(cmd *cobra.Command, opts filterOptions, inputPath string) error {
	reg := filter.DefaultRegistry()
	chain, err := buildChain(opts, reg)
	if err != nil {
		return usageError(err)
	}
	delim, err := tabular.ParseDelimiter(a.v.GetString(keyReportDelimiter))
	if err != nil {
		return usageError(fmt.Errorf("report delimiter: %w", err))
	}

	parser, err := vcf.NewParser(inputPath)
	if err != nil {
		return fmt.Errorf("%s: %w", inputPath, err)
	}
	defer parser.Close()

	var out io.Writer = cmd.OutOrStdout()
	var outFile *os.File
	if opts.outputPath != "" {
		outFile, err = os.Create(opts.outputPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer outFile.Close()
		out = outFile
	}

	w := output.NewVCFWriter(out, parser.Header())
	w.AddFilters(filterHeaders(chain, reg)...)
	if err := w.WriteHeader(); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	r := runner.New(chain, runner.WithLogger(a.logger), runner.WithPassedOnly(opts.passedOnly))
	summary, runErr := r.Run(ctx, parser, w)
	elapsed := time.Since(started)

	if outFile != nil {
		if err := outFile.Close(); err != nil && runErr == nil {
			runErr = fmt.Errorf("closing %s: %w", opts.outputPath, err)
		}
	}

	if runErr == nil && opts.reportPath != "" {
		runErr = writeReport(opts.reportPath, delim, summary)
	}

	if summary != nil {
		reportRecordErrors(cmd.ErrOrStderr(), summary)
		a.recordRun(inputPath, opts.configPath, started, elapsed, summary, runErr)
	}

	if runErr != nil && errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("interrupted after %d records: %w", summary.Records, runErr)
	}
	return runErr
}

func writeReport(path string, delim rune, s *runner.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	tw, err := tabular.NewWriter(f, tabular.Dialect{Delimiter: delim, Header: true})
	if err != nil {
		f.Close()
		return err
	}
	if err := s.WriteReport(tw); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

// reportRecordErrors prints the records tagged FILTER_ERROR.
func reportRecordErrors(w io.Writer, s *runner.Summary) {
	if s.RecordErrors == 0 {
		return
	}
	fmt.Fprintf(w, "Warning: %d of %d records tagged %s\n", s.RecordErrors, s.Records, filter.TokenError)
	for _, e := range s.ErrorSamples {
		fmt.Fprintf(w, "  %v\n", e)
	}
	if more := s.RecordErrors - len(s.ErrorSamples); more > 0 {
		fmt.Fprintf(w, "  ... and %d more\n", more)
	}
}

// recordRun saves the run to the history database when one is configured.
// Failures are logged and do not affect the exit status.
func (a *app) recordRun(inputPath, configPath string, started time.Time, elapsed time.Duration, s *runner.Summary, runErr error) {
	dbPath := a.v.GetString(keyHistoryDB)
	if dbPath == "" {
		return
	}

	status := duckdb.StatusComplete
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled):
		status = duckdb.StatusInterrupted
	default:
		status = duckdb.StatusFailed
	}

	input, err := duckdb.StatFile(inputPath)
	if err != nil {
		input = duckdb.FileFingerprint{Path: inputPath}
	}

	rec := duckdb.RunRecord{
		StartedAt:    started,
		Duration:     elapsed,
		Input:        input,
		ConfigPath:   configPath,
		Status:       status,
		Records:      s.Records,
		Passed:       s.Passed,
		Failed:       s.Failed,
		Written:      s.Written,
		RecordErrors: s.RecordErrors,
	}
	for _, fc := range s.Filters {
		rec.Filters = append(rec.Filters, duckdb.FilterCount{Name: fc.Name, Failed: fc.Failed, Passed: fc.Passed})
	}

	store, err := duckdb.Open(dbPath)
	if err != nil {
		a.logger.Warn("could not open run history", zap.String("path", dbPath), zap.Error(err))
		return
	}
	defer store.Close()

	id, err := store.SaveRun(rec)
	if err != nil {
		a.logger.Warn("could not record run", zap.String("path", dbPath), zap.Error(err))
		return
	}
	a.logger.Debug("run recorded", zap.String("run_id", id.String()), zap.String("status", status))
}
