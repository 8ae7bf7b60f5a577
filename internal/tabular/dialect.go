// Package tabular reads and writes delimiter-separated text whose fields may
// hold arbitrary Unicode.
//
// Quoting follows RFC 4180: a field is quoted when it contains the
// delimiter, a double quote or a line break, and embedded quotes are
// doubled. Input is decoded as UTF-8 unless a byte order mark selects
// another Unicode encoding; malformed byte sequences are fatal.
package tabular

import (
	"fmt"
	"unicode/utf8"
)

// Row is one record of positional fields.
type Row []string

// Dialect controls how rows are delimited.
type Dialect struct {
	Delimiter rune // field separator

	// Header marks the first row of the input as a header, exposed by
	// Reader.Header rather than returned as data.
	Header bool

	CRLF             bool // terminate written rows with \r\n
	TrimLeadingSpace bool // ignore leading white space in read fields
	Comment          rune // lines starting with Comment are skipped when reading; 0 disables
}

// DefaultDialect returns a comma-separated dialect with a header row.
func DefaultDialect() Dialect {
	return Dialect{Delimiter: ',', Header: true}
}

// TabDialect returns a tab-separated dialect with a header row.
func TabDialect() Dialect {
	return Dialect{Delimiter: '\t', Header: true}
}

// Validate checks that the delimiter and comment characters are usable.
func (d Dialect) Validate() error {
	if !validDelim(d.Delimiter) {
		return fmt.Errorf("invalid delimiter %q", d.Delimiter)
	}
	if d.Comment != 0 && (!validDelim(d.Comment) || d.Comment == d.Delimiter) {
		return fmt.Errorf("invalid comment character %q", d.Comment)
	}
	return nil
}

func validDelim(r rune) bool {
	return r != 0 && r != '"' && r != '\r' && r != '\n' && utf8.ValidRune(r) && r != utf8.RuneError
}

// ParseDelimiter converts a user-supplied delimiter name or single
// character into a rune. Recognised names are "tab", "comma" and "\t".
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "tab", `\t`, "\t":
		return '\t', nil
	case "comma":
		return ',', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter %q must be a single character", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if !validDelim(r) {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r, nil
}
