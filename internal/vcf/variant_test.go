package vcf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariant_Classes(t *testing.T) {
	tests := []struct {
		name  string
		ref   string
		alt   []string
		info  map[string]interface{}
		snv   bool
		mnp   bool
		indel bool
		sv    bool
	}{
		{"SNV", "A", []string{"G"}, nil, true, false, false, false},
		{"multi-allelic SNV", "A", []string{"G", "T"}, nil, true, false, false, false},
		{"MNP", "AC", []string{"GT"}, nil, false, true, false, false},
		{"MNP with spanning deletion", "AC", []string{"GT", "**"}, nil, false, true, false, false},
		{"insertion", "A", []string{"ATTG"}, nil, false, false, true, false},
		{"deletion", "ACG", []string{"A"}, nil, false, false, true, false},
		{"symbolic deletion", "A", []string{"<DEL>"}, nil, false, false, false, true},
		{"breakend", "T", []string{"T[II:3000["}, nil, false, false, false, true},
		{"SVTYPE", "ACGT", []string{"TGCA"}, map[string]interface{}{"SVTYPE": "INV"}, false, false, false, true},
		{"non-nucleotide MNP", "AC", []string{"XY"}, nil, false, false, false, false},
		{"monomorphic", "A", nil, nil, false, false, false, false},
		{"monomorphic with SVTYPE", "A", nil, map[string]interface{}{"SVTYPE": "DEL"}, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &Variant{Chrom: "IV", Pos: 1, Ref: tt.ref, Alt: tt.alt, Info: tt.info}
			assert.Equal(t, tt.snv, v.IsSNV(), "IsSNV")
			assert.Equal(t, tt.mnp, v.IsMNP(), "IsMNP")
			assert.Equal(t, tt.indel, v.IsIndel(), "IsIndel")
			assert.Equal(t, tt.sv, v.IsSV(), "IsSV")
		})
	}
}

func TestVariant_Samples(t *testing.T) {
	v := &Variant{
		Format:        []string{"GT", "DP", "GQ"},
		SampleNames:   []string{"BY4741", "BY4742", "S288C"},
		SampleColumns: []string{"0/1:12:99", "./.", "1|1:3:20:7"},
	}

	s, err := v.Sample("BY4741")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"GT": "0/1", "DP": "12", "GQ": "99"}, s)

	// Trailing fields may be dropped.
	s, err = v.Sample("BY4742")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"GT": "./.", "DP": ".", "GQ": "."}, s)

	_, err = v.Sample("S288C")
	assert.ErrorContains(t, err, "4 genotype fields but FORMAT declares 3")

	_, err = v.Sample("W303")
	assert.ErrorContains(t, err, "unknown sample")

	_, err = v.Samples()
	assert.Error(t, err)

	v.SampleColumns = v.SampleColumns[:1]
	_, err = v.Sample("BY4742")
	assert.ErrorContains(t, err, "missing genotype column")
}

func TestIsCalled(t *testing.T) {
	for gt, want := range map[string]bool{
		"0/1": true, "1|1": true, "0/0": true, "./1": true, "1": true,
		"./.": false, ".|.": false, ".": false, "": false,
	} {
		assert.Equal(t, want, IsCalled(gt), gt)
	}
}

func TestFilterColumn(t *testing.T) {
	assert.Nil(t, ParseFilter("."))
	assert.Nil(t, ParseFilter(""))
	assert.Equal(t, []string{"PASS"}, ParseFilter("PASS"))
	assert.Equal(t, []string{"LowQual", "min_depth"}, ParseFilter("LowQual;min_depth"))

	assert.Equal(t, ".", FormatFilter(nil))
	assert.Equal(t, "LowQual;min_depth", FormatFilter([]string{"LowQual", "min_depth"}))

	v := &Variant{Chrom: "IV", Pos: 1510, Ref: "A", Alt: []string{"G", "T"}, Qual: math.NaN()}
	assert.Equal(t, "IV:1510:A:G,T", v.SiteKey())
	assert.Equal(t, ".", v.FilterString())
	assert.False(t, v.HasQual())
}
