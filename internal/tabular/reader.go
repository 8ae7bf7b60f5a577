package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodeError reports input that is not valid Unicode text.
type DecodeError struct {
	Row int // index of the data row being read
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("tabular decode error at row %d: %v", e.Row, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// RowWarning records a data row whose field count differs from the header
// (or, without a header, from the first data row).
type RowWarning struct {
	Row  int // 0-based data row index
	Line int // 1-based input line where the row starts
	Got  int
	Want int
}

func (w RowWarning) String() string {
	return fmt.Sprintf("row %d (line %d): %d fields, expected %d", w.Row, w.Line, w.Got, w.Want)
}

// Reader reads rows in a single forward pass.
type Reader struct {
	cr       *csv.Reader
	header   Row
	want     int
	row      int
	err      error
	warnings []RowWarning
	logger   *zap.Logger
}

// NewReader creates a reader over r. If the dialect has a header, the first
// row is consumed here and exposed by Header.
func NewReader(r io.Reader, d Dialect) (*Reader, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	// A BOM switches to the matching Unicode decoding; everything else must
	// already be UTF-8.
	decoded := transform.NewReader(r, transform.Chain(
		unicode.BOMOverride(transform.Nop),
		encoding.UTF8Validator,
	))

	cr := csv.NewReader(decoded)
	cr.Comma = d.Delimiter
	cr.Comment = d.Comment
	cr.TrimLeadingSpace = d.TrimLeadingSpace
	cr.FieldsPerRecord = -1

	tr := &Reader{cr: cr, logger: zap.NewNop()}

	if d.Header {
		rec, err := cr.Read()
		switch {
		case err == io.EOF:
			tr.err = io.EOF
		case err != nil:
			return nil, tr.wrap(err)
		default:
			tr.header = rec
			tr.want = len(rec)
		}
	}

	return tr, nil
}

// SetLogger sets the logger used to report inconsistent rows.
func (r *Reader) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Header returns the header row, or nil if the dialect has none.
func (r *Reader) Header() Row {
	return r.header
}

// Warnings returns the field-count warnings seen so far.
func (r *Reader) Warnings() []RowWarning {
	return r.warnings
}

// Next returns the next data row, or io.EOF when the input is exhausted.
// Once Next has returned an error it keeps returning it.
func (r *Reader) Next() (Row, error) {
	if r.err != nil {
		return nil, r.err
	}

	rec, err := r.cr.Read()
	if err != nil {
		if err != io.EOF {
			err = r.wrap(err)
		}
		r.err = err
		return nil, err
	}

	idx := r.row
	r.row++

	if r.want == 0 && r.header == nil {
		r.want = len(rec)
	} else if len(rec) != r.want {
		line, _ := r.cr.FieldPos(0)
		w := RowWarning{Row: idx, Line: line, Got: len(rec), Want: r.want}
		r.warnings = append(r.warnings, w)
		r.logger.Warn("inconsistent field count",
			zap.Int("row", idx),
			zap.Int("line", line),
			zap.Int("fields", len(rec)),
			zap.Int("expected", r.want))
	}

	return Row(rec), nil
}

// Rows returns the remaining rows as a sequence. Iteration stops after the
// first error, which is yielded with a nil row.
func (r *Reader) Rows() iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for {
			row, err := r.Next()
			if err == io.EOF {
				return
			}
			if !yield(row, err) || err != nil {
				return
			}
		}
	}
}

// ReadAll reads every remaining row.
func (r *Reader) ReadAll() ([]Row, error) {
	var rows []Row
	for row, err := range r.Rows() {
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (r *Reader) wrap(err error) error {
	if errors.Is(err, encoding.ErrInvalidUTF8) {
		return &DecodeError{Row: r.row, Err: err}
	}
	return fmt.Errorf("read row %d: %w", r.row, err)
}
