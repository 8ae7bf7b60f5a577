// Package vcf provides VCF file parsing functionality.
package vcf

import (
	"fmt"
	"math"
	"strings"
)

// FilterPass is the FILTER value of a record that passed all applied filters.
const FilterPass = "PASS"

const missingValue = "."

// Variant represents a single genomic variant from a VCF file.
type Variant struct {
	Chrom   string                 // Chromosome name (e.g., "XII", "chrXII")
	Pos     int64                  // 1-based genomic position
	ID      string                 // Variant identifier
	Ref     string                 // Reference allele
	Alt     []string               // Alternate alleles, nil when ALT is "."
	Qual    float64                // Quality score, NaN when missing
	RawQual string                 // QUAL column as read
	Filter  []string               // FILTER tokens in order, nil when unset
	Info    map[string]interface{} // INFO field key-value pairs
	RawInfo string                 // INFO column as read

	// Genotype data. Sample columns are kept raw and decoded on demand so
	// that records which no filter inspects are written back untouched.
	Format        []string
	SampleNames   []string // shared with the parser, do not modify
	SampleColumns []string
}

// HasQual reports whether the record carries a QUAL value.
func (v *Variant) HasQual() bool {
	return !math.IsNaN(v.Qual)
}

// IsMonomorphic returns true if the record has no alternate allele.
func (v *Variant) IsMonomorphic() bool {
	return len(v.Alt) == 0
}

// IsSNV returns true if the variant is a single nucleotide variant.
func (v *Variant) IsSNV() bool {
	if len(v.Ref) != 1 || v.IsMonomorphic() {
		return false
	}
	for _, a := range v.Alt {
		if len(a) != 1 {
			return false
		}
	}
	return true
}

// IsSV returns true if the variant is a structural variant: it either
// declares an SVTYPE or carries a symbolic or breakend allele. Monomorphic
// records are never structural variants.
func (v *Variant) IsSV() bool {
	if v.IsMonomorphic() {
		return false
	}
	if _, ok := v.Info["SVTYPE"]; ok {
		return true
	}
	for _, a := range v.Alt {
		if strings.HasPrefix(a, "<") || strings.ContainsAny(a, "[]") {
			return true
		}
	}
	return false
}

// IsMNP returns true if the variant is a multi-nucleotide polymorphism:
// a multi-base reference replaced by alternates of the same length.
func (v *Variant) IsMNP() bool {
	if v.IsMonomorphic() || v.IsSV() || len(v.Ref) < 2 {
		return false
	}
	if !isNucleotides(v.Ref) {
		return false
	}
	for _, a := range v.Alt {
		if len(a) != len(v.Ref) || !isNucleotides(a) {
			return false
		}
	}
	return true
}

// IsIndel returns true if any alternate allele changes the allele length.
func (v *Variant) IsIndel() bool {
	if v.IsSV() {
		return false
	}
	for _, a := range v.Alt {
		if len(a) != len(v.Ref) {
			return true
		}
	}
	return false
}

func isNucleotides(allele string) bool {
	for _, c := range strings.ToUpper(allele) {
		switch c {
		case 'A', 'C', 'G', 'T', 'N', '*':
		default:
			return false
		}
	}
	return true
}

// AltString returns the ALT column as written in VCF.
func (v *Variant) AltString() string {
	if len(v.Alt) == 0 {
		return missingValue
	}
	return strings.Join(v.Alt, ",")
}

// SiteKey identifies the site and alleles of the record.
func (v *Variant) SiteKey() string {
	return fmt.Sprintf("%s:%d:%s:%s", v.Chrom, v.Pos, v.Ref, v.AltString())
}

// FilterString returns the FILTER column as written in VCF.
func (v *Variant) FilterString() string {
	return FormatFilter(v.Filter)
}

// Sample decodes the genotype fields of the named sample.
// Returns an error if the sample is unknown or its column does not match FORMAT.
func (v *Variant) Sample(name string) (map[string]string, error) {
	for i, n := range v.SampleNames {
		if n == name {
			return v.sampleAt(i)
		}
	}
	return nil, fmt.Errorf("unknown sample %q", name)
}

// Samples decodes the genotype fields of every sample in header order.
func (v *Variant) Samples() ([]map[string]string, error) {
	out := make([]map[string]string, 0, len(v.SampleNames))
	for i := range v.SampleNames {
		s, err := v.sampleAt(i)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (v *Variant) sampleAt(i int) (map[string]string, error) {
	if i >= len(v.SampleColumns) {
		return nil, fmt.Errorf("sample %q: missing genotype column", v.SampleNames[i])
	}
	values := strings.Split(v.SampleColumns[i], ":")
	if len(values) > len(v.Format) {
		return nil, fmt.Errorf("sample %q: %d genotype fields but FORMAT declares %d",
			v.SampleNames[i], len(values), len(v.Format))
	}
	// Trailing fields may be dropped per VCF.
	out := make(map[string]string, len(v.Format))
	for j, key := range v.Format {
		if j < len(values) {
			out[key] = values[j]
		} else {
			out[key] = missingValue
		}
	}
	return out, nil
}

// IsCalled reports whether a GT value has at least one non-missing allele.
func IsCalled(gt string) bool {
	if gt == "" {
		return false
	}
	for _, allele := range strings.FieldsFunc(gt, func(r rune) bool { return r == '/' || r == '|' }) {
		if allele != missingValue {
			return true
		}
	}
	return false
}

// ParseFilter splits a FILTER column into tokens. "." yields nil.
func ParseFilter(s string) []string {
	if s == "" || s == missingValue {
		return nil
	}
	return strings.Split(s, ";")
}

// FormatFilter joins FILTER tokens. An empty set is written as ".".
func FormatFilter(tokens []string) string {
	if len(tokens) == 0 {
		return missingValue
	}
	return strings.Join(tokens, ";")
}
