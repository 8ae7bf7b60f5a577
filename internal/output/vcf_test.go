package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/inodb/gactutil/internal/vcf"
)

func TestVCFWriter_Header(t *testing.T) {
	headers := []string{
		"##fileformat=VCFv4.2",
		"##reference=sacCer3",
		"##FILTER=<ID=LowQual,Description=\"Low quality\">",
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO",
	}

	var buf bytes.Buffer
	w := NewVCFWriter(&buf, headers)
	w.AddFilters(
		FilterHeader{ID: "min_depth", Description: "Minimum read depth"},
		FilterHeader{ID: "LowQual", Description: "redeclared"},
		FilterHeader{ID: "FILTER_ERROR", Description: `Record could not be "filtered"`},
		FilterHeader{ID: "min_depth", Description: "twice"},
	)
	if err := w.WriteHeader(); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"##fileformat=VCFv4.2",
		"##reference=sacCer3",
		"##FILTER=<ID=LowQual,Description=\"Low quality\">",
		"##FILTER=<ID=min_depth,Description=\"Minimum read depth\">",
		"##FILTER=<ID=FILTER_ERROR,Description=\"Record could not be \\\"filtered\\\"\">",
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO",
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != len(want) {
		t.Fatalf("got %d header lines, want %d:\n%s", len(lines), len(want), buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestVCFWriter_Write(t *testing.T) {
	input := "##fileformat=VCFv4.2\n" +
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tBY4741\tBY4742\n" +
		"XII\t1042\trs1\tAC\tGT,G\t35.50\t.\tDP=12;SVLEN=.\tGT:DP\t0/1:7\t./.\n" +
		"XII\t2048\t.\tA\t.\t.\tPASS\t.\tGT\t0/0\t0/0\n"

	p, err := vcf.NewParserFromReader(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	w := NewVCFWriter(&buf, p.Header())
	if err := w.WriteHeader(); err != nil {
		t.Fatal(err)
	}

	first, err := p.Next()
	if err != nil {
		t.Fatal(err)
	}
	first.Filter = []string{"min_depth", "has_call"}
	if err := w.Write(first); err != nil {
		t.Fatal(err)
	}

	second, err := p.Next()
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(second); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), buf.String())
	}
	if want := "XII\t1042\trs1\tAC\tGT,G\t35.50\tmin_depth;has_call\tDP=12;SVLEN=.\tGT:DP\t0/1:7\t./."; lines[2] != want {
		t.Errorf("record 1 = %q, want %q", lines[2], want)
	}
	if want := "XII\t2048\t.\tA\t.\t.\tPASS\t.\tGT\t0/0\t0/0"; lines[3] != want {
		t.Errorf("record 2 = %q, want %q", lines[3], want)
	}
}

func TestVCFWriter_SitesOnly(t *testing.T) {
	var buf bytes.Buffer
	w := NewVCFWriter(&buf, nil)

	v := &vcf.Variant{Chrom: "I", Pos: 5, Ref: "A", Alt: []string{"<DEL>"}, Qual: 60}
	if err := w.Write(v); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	if want := "I\t5\t.\tA\t<DEL>\t60\t.\t.\n"; buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}
