// Package output provides writers for filtered records and filter tables.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/inodb/gactutil/internal/filter"
	"github.com/inodb/gactutil/internal/tabular"
	"github.com/inodb/gactutil/internal/yamldoc"
)

// Columns of the filter tables.
var (
	DefinitionColumns = []string{"name", "params", "description"}
	SpecColumns       = []string{"name", "short_circuit", "params", "description"}
)

// TabWriter writes fixed-column tables in a tabular dialect.
type TabWriter struct {
	w       *tabular.Writer
	columns []string
}

// NewTabWriter creates a table writer with the given columns.
func NewTabWriter(w io.Writer, d tabular.Dialect, columns []string) (*TabWriter, error) {
	tw, err := tabular.NewWriter(w, d)
	if err != nil {
		return nil, err
	}
	return &TabWriter{w: tw, columns: columns}, nil
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	return tw.w.WriteHeader(tw.columns)
}

// Write writes a single row. The number of values must match the columns.
func (tw *TabWriter) Write(values ...string) error {
	if len(values) != len(tw.columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(tw.columns))
	}
	return tw.w.Write(values)
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// WriteDefinitions writes one row per registered filter. Required
// parameters are marked with a trailing '!'.
func WriteDefinitions(tw *TabWriter, defs []filter.Definition) error {
	for _, d := range defs {
		params := "-"
		if len(d.Params) > 0 {
			parts := make([]string, len(d.Params))
			for i, p := range d.Params {
				parts[i] = p.Name + ":" + p.Type
				if p.Required {
					parts[i] += "!"
				}
			}
			params = strings.Join(parts, " ")
		}
		if err := tw.Write(d.Name, params, d.Description); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteSpecs writes one row per configured filter, with parameter values
// in single-line YAML form.
func WriteSpecs(tw *TabWriter, specs []filter.Spec) error {
	for _, s := range specs {
		params, err := formatParams(s.Params)
		if err != nil {
			return fmt.Errorf("filter %s: %w", s.Name, err)
		}
		desc := s.Description
		if desc == "" {
			desc = "-"
		}
		if err := tw.Write(s.Name, fmt.Sprintf("%t", s.ShortCircuit), params, desc); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func formatParams(params []filter.Param) (string, error) {
	if len(params) == 0 {
		return "-", nil
	}
	parts := make([]string, len(params))
	for i, p := range params {
		v, err := yamldoc.FormatScalar(p.Value)
		if err != nil {
			return "", fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		parts[i] = p.Name + "=" + v
	}
	return strings.Join(parts, " "), nil
}
