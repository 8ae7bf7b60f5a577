package runner

import (
	"fmt"
	"strconv"

	"github.com/inodb/gactutil/internal/filter"
	"github.com/inodb/gactutil/internal/tabular"
)

// maxErrorSamples bounds the record errors kept for the end-of-run report.
const maxErrorSamples = 10

// ReportHeader is the header row of the summary report.
var ReportHeader = tabular.Row{"filter_name", "fail_count", "pass_contribution"}

// Summary holds the counters of one run.
type Summary struct {
	Records      int // records read
	Passed       int // records that failed no filter
	Failed       int // records that failed at least one filter
	Written      int // records written to the output
	RecordErrors int // records tagged FILTER_ERROR
	Filters      []FilterCount

	// ErrorSamples holds the first record errors of the run.
	ErrorSamples []*filter.RecordError
}

// FilterCount holds the per-filter counters. A record skipped by a
// short-circuit failure counts as neither.
type FilterCount struct {
	Name   string
	Failed int
	Passed int
}

func newSummary(names []string) *Summary {
	s := &Summary{Filters: make([]FilterCount, len(names))}
	for i, n := range names {
		s.Filters[i].Name = n
	}
	return s
}

func (s *Summary) add(res filter.Result) {
	s.Records++
	if res.Err != nil {
		s.RecordErrors++
		if len(s.ErrorSamples) < maxErrorSamples {
			s.ErrorSamples = append(s.ErrorSamples, res.Err)
		}
		return
	}

	failed := false
	for i, o := range res.Outcomes {
		switch {
		case !o.Evaluated:
		case o.Failed:
			s.Filters[i].Failed++
			failed = true
		default:
			s.Filters[i].Passed++
		}
	}
	if failed {
		s.Failed++
	} else {
		s.Passed++
	}
}

// WriteReport writes one row per filter, in chain order, after the report
// header. The writer is flushed.
func (s *Summary) WriteReport(w *tabular.Writer) error {
	if err := w.WriteHeader(ReportHeader); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}
	for _, fc := range s.Filters {
		row := tabular.Row{fc.Name, strconv.Itoa(fc.Failed), strconv.Itoa(fc.Passed)}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write report row: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
