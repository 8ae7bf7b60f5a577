// Package filter applies named pass/fail filters to variant records and
// rewrites their FILTER column.
//
// Filters are built from configuration Specs through a Registry and run in
// declaration order by a Chain. A filter may only fail a record under its
// own name; the chain owns the working set of failed names for each record.
package filter

import (
	"strings"
	"unicode"

	"github.com/inodb/gactutil/internal/vcf"
)

// Reserved FILTER tokens. Neither may be used as a filter name.
const (
	TokenPass  = vcf.FilterPass
	TokenError = "FILTER_ERROR"
)

// Filter evaluates one record. A non-nil error marks the record as
// malformed for this filter; the chain tags it with TokenError.
type Filter interface {
	Name() string
	Evaluate(v *vcf.Variant) (Decision, error)
}

// Resetter is implemented by filters that accumulate state across records.
// Chain.Reset calls it at the start of every run.
type Resetter interface {
	Reset()
}

// Decision is the outcome of evaluating one filter on one record.
type Decision struct {
	failed bool
	reason string
}

// Pass returns a passing decision.
func Pass() Decision { return Decision{} }

// Fail returns a failing decision tagged with reason, which must be the
// name of the failing filter.
func Fail(reason string) Decision { return Decision{failed: true, reason: reason} }

// Failed reports whether the record failed.
func (d Decision) Failed() bool { return d.failed }

// Reason returns the FILTER token of a failing decision.
func (d Decision) Reason() string { return d.reason }

func (d Decision) String() string {
	if d.failed {
		return "FAIL(" + d.reason + ")"
	}
	return TokenPass
}

// IsReserved reports whether name is one of the reserved FILTER tokens.
func IsReserved(name string) bool {
	return name == TokenPass || name == TokenError
}

// validToken reports whether name can be written to a VCF FILTER column.
func validToken(name string) bool {
	if name == "" || name == "." || name == "0" {
		return false
	}
	return !strings.ContainsFunc(name, func(r rune) bool {
		return r == ';' || r == ',' || unicode.IsSpace(r)
	})
}
