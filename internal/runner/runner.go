// Package runner streams variant records through a filter chain and keeps
// the per-run counters.
package runner

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/inodb/gactutil/internal/filter"
	"github.com/inodb/gactutil/internal/vcf"
)

// Runner applies a filter chain to a stream of records, one at a time and
// in input order.
type Runner struct {
	chain      *filter.Chain
	logger     *zap.Logger
	passedOnly bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger for record errors and progress messages.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithPassedOnly writes only records whose FILTER is PASS after the chain ran.
func WithPassedOnly(passedOnly bool) Option {
	return func(r *Runner) { r.passedOnly = passedOnly }
}

// New creates a runner for chain.
func New(chain *filter.Chain, opts ...Option) *Runner {
	r := &Runner{
		chain:  chain,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reads every record from parser, applies the chain and writes the
// record to w as soon as it is filtered.
//
// The context is checked once per record. On cancellation w is flushed and
// the context error is returned with the partial summary. Read and write
// errors abort the run; records written so far are flushed on a best-effort
// basis. Record errors are counted and logged.
func (r *Runner) Run(ctx context.Context, parser vcf.VariantParser, w vcf.VariantWriter) (*Summary, error) {
	r.chain.Reset()
	s := newSummary(r.chain.Names())

	for {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("filtering interrupted", zap.Int("records", s.Records), zap.Error(err))
			if ferr := w.Flush(); ferr != nil {
				return s, fmt.Errorf("flush output: %w", ferr)
			}
			return s, err
		}

		v, err := parser.Next()
		if err != nil {
			_ = w.Flush()
			return s, fmt.Errorf("read variant: %w", err)
		}
		if v == nil {
			break
		}

		res := r.chain.Apply(v)
		s.add(res)
		if res.Err != nil {
			r.logger.Warn("failed to filter variant",
				zap.String("chrom", v.Chrom),
				zap.Int64("pos", v.Pos),
				zap.String("filter", res.Err.Filter),
				zap.Int("line", parser.LineNumber()),
				zap.Error(res.Err.Err))
		}

		if r.passedOnly && !slices.Equal(v.Filter, []string{filter.TokenPass}) {
			continue
		}
		if err := w.Write(v); err != nil {
			_ = w.Flush()
			return s, fmt.Errorf("write variant %s:%d: %w", v.Chrom, v.Pos, err)
		}
		s.Written++
	}

	if err := w.Flush(); err != nil {
		return s, fmt.Errorf("flush output: %w", err)
	}

	if s.Records == 0 {
		r.logger.Info("0 variants processed")
	} else {
		r.logger.Info("filtering complete",
			zap.Int("records", s.Records),
			zap.Int("passed", s.Passed),
			zap.Int("failed", s.Failed),
			zap.Int("record_errors", s.RecordErrors),
			zap.Int("written", s.Written))
	}

	return s, nil
}
