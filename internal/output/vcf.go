package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/gactutil/internal/vcf"
)

// FilterHeader describes a ##FILTER meta-information line.
type FilterHeader struct {
	ID          string
	Description string
}

// VCFWriter writes filtered variant records in VCF format.
// Records are written as they arrive; only the bufio buffer is held back.
type VCFWriter struct {
	w           *bufio.Writer
	headerLines []string // input header lines (## and #CHROM)
	filters     []FilterHeader
}

// NewVCFWriter creates a new VCF output writer.
func NewVCFWriter(w io.Writer, headerLines []string) *VCFWriter {
	return &VCFWriter{
		w:           bufio.NewWriter(w),
		headerLines: headerLines,
	}
}

// AddFilters registers FILTER definitions to declare in the header.
// Definitions whose ID is already declared by the input header are skipped.
func (vw *VCFWriter) AddFilters(filters ...FilterHeader) {
	for _, f := range filters {
		if vw.declares(f.ID) {
			continue
		}
		vw.filters = append(vw.filters, f)
	}
}

func (vw *VCFWriter) declares(id string) bool {
	prefix := "##FILTER=<ID=" + id + ","
	for _, line := range vw.headerLines {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	for _, f := range vw.filters {
		if f.ID == id {
			return true
		}
	}
	return false
}

// WriteHeader writes the input header lines with the registered
// ##FILTER lines inserted before #CHROM.
func (vw *VCFWriter) WriteHeader() error {
	for _, line := range vw.headerLines {
		if strings.HasPrefix(line, "#CHROM") {
			for _, f := range vw.filters {
				if _, err := vw.w.WriteString(formatFilterHeader(f) + "\n"); err != nil {
					return err
				}
			}
		}
		if _, err := vw.w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return nil
}

func formatFilterHeader(f FilterHeader) string {
	desc := strings.ReplaceAll(f.Description, `"`, `\"`)
	return fmt.Sprintf("##FILTER=<ID=%s,Description=\"%s\">", f.ID, desc)
}

// Write writes a single record.
func (vw *VCFWriter) Write(v *vcf.Variant) error {
	var lb strings.Builder
	lb.Grow(256)

	lb.WriteString(v.Chrom)
	lb.WriteByte('\t')
	lb.WriteString(strconv.FormatInt(v.Pos, 10))
	lb.WriteByte('\t')
	lb.WriteString(orMissing(v.ID))
	lb.WriteByte('\t')
	lb.WriteString(v.Ref)
	lb.WriteByte('\t')
	lb.WriteString(v.AltString())
	lb.WriteByte('\t')
	switch {
	case !v.HasQual():
		lb.WriteByte('.')
	case v.RawQual != "":
		lb.WriteString(v.RawQual)
	default:
		lb.WriteString(strconv.FormatFloat(v.Qual, 'g', -1, 64))
	}
	lb.WriteByte('\t')
	lb.WriteString(v.FilterString())
	lb.WriteByte('\t')
	lb.WriteString(orMissing(v.RawInfo))

	// Append FORMAT + sample columns if present
	if len(v.Format) > 0 {
		lb.WriteByte('\t')
		lb.WriteString(strings.Join(v.Format, ":"))
		for _, col := range v.SampleColumns {
			lb.WriteByte('\t')
			lb.WriteString(col)
		}
	}

	lb.WriteByte('\n')
	_, err := vw.w.WriteString(lb.String())
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (vw *VCFWriter) Flush() error {
	return vw.w.Flush()
}

func orMissing(s string) string {
	if s == "" {
		return "."
	}
	return s
}
