package tabular

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrCarriageReturn is returned for fields that would not read back
// unchanged: "\r\n" inside a field is read as "\n", and with CRLF line
// endings a bare '\r' is dropped.
var ErrCarriageReturn = errors.New("field contains a carriage return that would not round-trip")

// Writer writes rows in a Dialect.
type Writer struct {
	bw   *bufio.Writer
	cw   *csv.Writer
	d    Dialect
	rows int
}

// NewWriter creates a new writer. The dialect is validated up front so
// that Write only fails on I/O errors and unrepresentable fields.
func NewWriter(w io.Writer, d Dialect) (*Writer, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	// csv.Writer reuses bw as its buffer, so rows written directly to bw
	// stay in order.
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)
	cw.Comma = d.Delimiter
	cw.UseCRLF = d.CRLF
	return &Writer{bw: bw, cw: cw, d: d}, nil
}

// WriteHeader writes the header row. It must be called before any data row.
func (tw *Writer) WriteHeader(header Row) error {
	if tw.rows > 0 {
		return fmt.Errorf("header must precede data rows")
	}
	return tw.Write(header)
}

// Write writes a single row.
func (tw *Writer) Write(row Row) error {
	for i, f := range row {
		if strings.Contains(f, "\r\n") || (tw.d.CRLF && strings.ContainsRune(f, '\r')) {
			return fmt.Errorf("write row %d, field %d: %w", tw.rows, i, ErrCarriageReturn)
		}
	}

	var err error
	if tw.quoteAll(row) {
		err = tw.writeQuoted(row)
	} else {
		err = tw.cw.Write(row)
	}
	if err != nil {
		return fmt.Errorf("write row %d: %w", tw.rows, err)
	}
	tw.rows++
	return nil
}

// quoteAll reports whether row would be misread unless quoted: a lone
// empty field is written as a blank line, which readers skip, and a first
// field starting with the comment character turns the row into a comment.
func (tw *Writer) quoteAll(row Row) bool {
	if len(row) == 1 && row[0] == "" {
		return true
	}
	return tw.d.Comment != 0 && len(row) > 0 && strings.HasPrefix(row[0], string(tw.d.Comment))
}

func (tw *Writer) writeQuoted(row Row) error {
	for i, f := range row {
		if i > 0 {
			tw.bw.WriteRune(tw.d.Delimiter)
		}
		tw.bw.WriteByte('"')
		tw.bw.WriteString(strings.ReplaceAll(f, `"`, `""`))
		tw.bw.WriteByte('"')
	}
	if tw.d.CRLF {
		tw.bw.WriteString("\r\n")
	} else {
		tw.bw.WriteByte('\n')
	}
	// bufio.Writer keeps the first write error and returns it here.
	_, err := tw.bw.Write(nil)
	return err
}

// WriteAll writes rows and flushes.
func (tw *Writer) WriteAll(rows []Row) error {
	for _, r := range rows {
		if err := tw.Write(r); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// Flush flushes any buffered data to the underlying writer.
func (tw *Writer) Flush() error {
	tw.cw.Flush()
	if err := tw.cw.Error(); err != nil {
		return err
	}
	return tw.bw.Flush()
}
