package filter

import (
	"errors"
	"fmt"
	"slices"

	"github.com/inodb/gactutil/internal/vcf"
)

// Chain runs filters in declaration order. It is immutable once built and
// is reused for every record of a run. A Chain is not safe for concurrent
// use: accumulating filters own unsynchronized state.
type Chain struct {
	links        []link
	shortCircuit bool
}

type link struct {
	spec   Spec
	filter Filter
}

// Option configures a Chain.
type Option func(*Chain)

// NoShortCircuit evaluates every filter on every record, ignoring the
// short_circuit setting of the specs.
func NoShortCircuit() Option {
	return func(c *Chain) { c.shortCircuit = false }
}

// Build validates specs and instantiates their filters with reg. Every
// configuration problem is reported, joined; no chain is returned unless
// all specs are valid.
func Build(specs []Spec, reg *Registry, opts ...Option) (*Chain, error) {
	c := &Chain{shortCircuit: true}
	for _, opt := range opts {
		opt(c)
	}

	var errs []error
	seen := make(map[string]bool, len(specs))

	for _, spec := range specs {
		at := func(err error) *ConfigError {
			return &ConfigError{Filter: spec.Name, Line: spec.Line, Column: spec.Column, Err: err}
		}

		switch {
		case IsReserved(spec.Name):
			errs = append(errs, at(ErrReservedName))
			continue
		case !validToken(spec.Name):
			errs = append(errs, at(ErrInvalidName))
			continue
		case seen[spec.Name]:
			errs = append(errs, at(ErrDuplicateName))
			continue
		}
		seen[spec.Name] = true

		f, err := reg.Build(spec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.links = append(c.links, link{spec: spec, filter: f})
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

// Len returns the number of filters.
func (c *Chain) Len() int { return len(c.links) }

// Names returns the filter names in chain order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.links))
	for i, l := range c.links {
		names[i] = l.spec.Name
	}
	return names
}

// Specs returns the specs the chain was built from.
func (c *Chain) Specs() []Spec {
	specs := make([]Spec, len(c.links))
	for i, l := range c.links {
		specs[i] = l.spec
	}
	return specs
}

// Reset clears the state of accumulating filters. Call it once before
// each run.
func (c *Chain) Reset() {
	for _, l := range c.links {
		if r, ok := l.filter.(Resetter); ok {
			r.Reset()
		}
	}
}

// Outcome is the result of one filter on one record.
type Outcome struct {
	Name      string
	Evaluated bool // false when skipped by a short-circuit failure
	Failed    bool
}

// Result describes one application of the chain.
type Result struct {
	// Outcomes has one entry per filter, in chain order. Nil when Err is set.
	Outcomes []Outcome
	Err      *RecordError
}

// Passed reports whether the record failed no filter.
func (r Result) Passed() bool {
	if r.Err != nil {
		return false
	}
	for _, o := range r.Outcomes {
		if o.Failed {
			return false
		}
	}
	return true
}

// Apply evaluates the chain on v and rewrites v.Filter.
//
// Failed filter names are added after the record's existing non-PASS
// tokens, in chain order and without duplicates. A record that fails
// nothing and carries no other token becomes PASS. When a filter returns
// an error the names collected for this record are dropped and
// FILTER_ERROR is added instead.
func (c *Chain) Apply(v *vcf.Variant) Result {
	outcomes := make([]Outcome, len(c.links))
	for i, l := range c.links {
		outcomes[i].Name = l.spec.Name
	}
	var failed []string

	for i, l := range c.links {
		d, err := l.filter.Evaluate(v)
		if err == nil && d.Failed() && d.Reason() != l.spec.Name {
			err = fmt.Errorf("%w: %q", ErrForeignReason, d.Reason())
		}
		if err != nil {
			v.Filter = mergeFilter(v.Filter, []string{TokenError})
			return Result{Err: &RecordError{Filter: l.spec.Name, Chrom: v.Chrom, Pos: v.Pos, Err: err}}
		}

		outcomes[i].Evaluated = true
		if !d.Failed() {
			continue
		}
		outcomes[i].Failed = true
		failed = append(failed, l.spec.Name)

		if c.shortCircuit && l.spec.ShortCircuit {
			break
		}
	}

	v.Filter = mergeFilter(v.Filter, failed)
	return Result{Outcomes: outcomes}
}

// mergeFilter unions added into the non-PASS tokens of existing. PASS is
// returned only when nothing else remains.
func mergeFilter(existing, added []string) []string {
	out := make([]string, 0, len(existing)+len(added))
	for _, tokens := range [][]string{existing, added} {
		for _, t := range tokens {
			if t != TokenPass && !slices.Contains(out, t) {
				out = append(out, t)
			}
		}
	}
	if len(out) == 0 {
		return []string{TokenPass}
	}
	return out
}
