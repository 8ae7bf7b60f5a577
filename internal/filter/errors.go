package filter

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel causes wrapped by ConfigError and RecordError.
var (
	ErrUnknownFilter = errors.New("unknown filter")
	ErrDuplicateName = errors.New("duplicate filter name")
	ErrReservedName  = errors.New("reserved filter name")
	ErrInvalidName   = errors.New("invalid filter name")
	ErrMissingParam  = errors.New("missing required parameter")
	ErrUnknownParam  = errors.New("unknown parameter")
	ErrForeignReason = errors.New("filter failed with another filter's name")
)

// ConfigError reports a problem in the filter configuration. It is always
// fatal and raised before any record is processed.
type ConfigError struct {
	Filter string // filter name, empty when the entry has none
	Param  string // parameter name, empty for entry-level problems
	Line   int    // 1-based source position, 0 when unknown
	Column int
	Err    error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("filter config")
	if e.Line > 0 {
		fmt.Fprintf(&b, " line %d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&b, ", column %d", e.Column)
		}
	}
	b.WriteString(": ")
	if e.Filter != "" {
		fmt.Fprintf(&b, "filter %q: ", e.Filter)
	}
	if e.Param != "" {
		fmt.Fprintf(&b, "parameter %q: ", e.Param)
	}
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }

func paramError(param string, err error) *ConfigError {
	return &ConfigError{Param: param, Err: err}
}

// RecordError reports a record a filter could not evaluate. The record is
// tagged with TokenError and processing continues.
type RecordError struct {
	Filter string
	Chrom  string
	Pos    int64
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("filter %s at %s:%d: %v", e.Filter, e.Chrom, e.Pos, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// ConfigErrors flattens err into its ConfigError parts, in order.
func ConfigErrors(err error) []*ConfigError {
	var out []*ConfigError
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				walk(e)
			}
			return
		}
		var ce *ConfigError
		if errors.As(err, &ce) {
			out = append(out, ce)
		}
	}
	walk(err)
	return out
}
