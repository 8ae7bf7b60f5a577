package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evaluate(t *testing.T, s Spec, fields ...string) (Decision, error) {
	t.Helper()
	f, err := DefaultRegistry().Build(s)
	require.NoError(t, err)
	return f.Evaluate(parseVariant(t, fields...))
}

func TestMinDepth(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		info    string
		s1      string
		fail    bool
		wantErr bool
	}{
		{"info above", spec(MinDepth, "threshold", 10), "DP=11", "0/1:3", false, false},
		{"info equal", spec(MinDepth, "threshold", 10.5), "DP=10.5", "0/1:3", false, false},
		{"info below", spec(MinDepth, "threshold", 10), "DP=9", "0/1:30", true, false},
		{"info missing", spec(MinDepth, "threshold", 0), "AC=1", "0/1:30", true, false},
		{"info flag", spec(MinDepth, "threshold", 1), "DP", "0/1:30", false, true},
		{"sample above", spec(MinDepth, "threshold", 10, "sample", "S1"), "DP=1", "0/1:30", false, false},
		{"sample below", spec(MinDepth, "threshold", 10, "sample", "S1"), "DP=100", "0/1:3", true, false},
		{"sample missing DP", spec(MinDepth, "threshold", 10, "sample", "S1"), "DP=100", "0/1:.", true, false},
		{"sample malformed DP", spec(MinDepth, "threshold", 10, "sample", "S1"), "DP=100", "0/1:3x", false, true},
		{"sample too many fields", spec(MinDepth, "threshold", 10, "sample", "S1"), "DP=100", "0/1:3:9", false, true},
		{"unknown sample", spec(MinDepth, "threshold", 10, "sample", "S9"), "DP=100", "0/1:3", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := evaluate(t, tt.spec, "I", "10", ".", "A", "C", "40", ".", tt.info, "GT:DP", tt.s1, "0/0:20")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.fail, d.Failed())
			if tt.fail {
				assert.Equal(t, MinDepth, d.Reason())
			}
		})
	}
}

func TestMinQual(t *testing.T) {
	s := spec(MinQual, "threshold", 20)
	for qual, fail := range map[string]bool{"20": false, "19.99": true, "100": false, ".": true} {
		d, err := evaluate(t, s, "I", "10", ".", "A", "C", qual, ".", ".", "GT", "0/1", "0/0")
		require.NoError(t, err)
		assert.Equal(t, fail, d.Failed(), "QUAL=%s", qual)
	}
}

func TestHasCall(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		s1, s2  string
		fail    bool
		wantErr bool
	}{
		{"any sample called", spec(HasCall), "./.", "0|1", false, false},
		{"half call", spec(HasCall), "./1", ".", false, false},
		{"no calls", spec(HasCall), "./.", ".", true, false},
		{"named sample called", spec(HasCall, "sample", "S2"), "./.", "1/1", false, false},
		{"named sample missing", spec(HasCall, "sample", "S1"), "./.", "1/1", true, false},
		{"unknown sample", spec(HasCall, "sample", "S3"), "0/1", "1/1", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := evaluate(t, tt.spec, "I", "10", ".", "A", "C", "40", ".", ".", "GT", tt.s1, tt.s2)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.fail, d.Failed())
		})
	}
}

func TestHasCall_SitesOnly(t *testing.T) {
	f, err := DefaultRegistry().Build(spec(HasCall))
	require.NoError(t, err)

	v := parseVariant(t, "I", "10", ".", "A", "C", "40", ".", ".", "GT", "0/1", "0/1")
	v.SampleNames, v.Format, v.SampleColumns = nil, nil, nil
	d, err := f.Evaluate(v)
	require.NoError(t, err)
	assert.False(t, d.Failed())

	v.Alt = nil
	d, err = f.Evaluate(v)
	require.NoError(t, err)
	assert.True(t, d.Failed())
}

func TestMaxMissing(t *testing.T) {
	tests := []struct {
		rate   float64
		s1, s2 string
		fail   bool
	}{
		{0, "0/1", "1/1", false},
		{0, "0/1", "./.", true},
		{0.5, "0/1", "./.", false},
		{0.49, "./.", "0/0", true},
		{1, "./.", ".", false},
	}

	for _, tt := range tests {
		d, err := evaluate(t, spec(MaxMissing, "rate", tt.rate), "I", "10", ".", "A", "C", "40", ".", ".", "GT", tt.s1, tt.s2)
		require.NoError(t, err)
		assert.Equal(t, tt.fail, d.Failed(), "rate=%g %s %s", tt.rate, tt.s1, tt.s2)
	}

	f, err := DefaultRegistry().Build(spec(MaxMissing, "rate", 1))
	require.NoError(t, err)
	v := parseVariant(t, "I", "10", ".", "A", "C", "40", ".", ".", "GT", "0/1", "0/1")
	v.SampleNames = nil
	d, err := f.Evaluate(v)
	require.NoError(t, err)
	assert.True(t, d.Failed())
}

func TestCategoryFilters(t *testing.T) {
	tests := []struct {
		name                string
		ref, alt            string
		info                string
		snv, mnp, indel, sv bool
	}{
		{"snv", "A", "G", ".", true, false, false, false},
		{"mnp", "AC", "GT", ".", false, true, false, false},
		{"multi-allelic mnp", "ACG", "TTT,GGG", ".", false, true, false, false},
		{"deletion", "AC", "A", ".", false, false, true, false},
		{"insertion", "A", "ATT", ".", false, false, true, false},
		{"symbolic sv", "A", "<DEL>", "SVTYPE=DEL;END=500", false, false, false, true},
		{"breakend", "G", "G]XII:1000]", ".", false, false, false, true},
		{"svtype on sequence alleles", "ACGT", "TGCA", "SVTYPE=INV", false, false, false, true},
		{"no alt", "AC", ".", ".", false, false, false, false},
		{"no alt with svtype", "A", ".", "SVTYPE=DEL;END=500", false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := []string{"XII", "100", ".", tt.ref, tt.alt, "40", ".", tt.info, "GT", "0/1", "0/0"}

			for _, c := range []struct {
				name string
				want bool
			}{
				{SNVOnly, tt.snv},
				{MNPOnly, tt.mnp},
				{IndelOnly, tt.indel},
				{SVOnly, tt.sv},
			} {
				d, err := evaluate(t, spec(c.name), fields...)
				require.NoError(t, err)
				assert.Equal(t, !c.want, d.Failed(), c.name)
				if d.Failed() {
					assert.Equal(t, c.name, d.Reason())
				}
			}
		})
	}
}

func TestDuplicateSite(t *testing.T) {
	f, err := DefaultRegistry().Build(spec(DuplicateSite))
	require.NoError(t, err)

	line := []string{"I", "10", ".", "A", "C", "40", ".", ".", "GT", "0/1", "0/0"}
	other := []string{"I", "10", ".", "A", "T", "40", ".", ".", "GT", "0/1", "0/0"}

	d, _ := f.Evaluate(parseVariant(t, line...))
	assert.False(t, d.Failed())
	d, _ = f.Evaluate(parseVariant(t, other...))
	assert.False(t, d.Failed())
	d, _ = f.Evaluate(parseVariant(t, line...))
	assert.True(t, d.Failed())
	assert.Equal(t, DuplicateSite, d.Reason())

	f.(Resetter).Reset()
	d, _ = f.Evaluate(parseVariant(t, line...))
	assert.False(t, d.Failed())
}

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry()
	assert.Equal(t, []string{DuplicateSite, HasCall, IndelOnly, MaxMissing, MinDepth, MinQual, MNPOnly, SNVOnly, SVOnly}, reg.Names())

	def, ok := reg.Lookup(MinDepth)
	require.True(t, ok)
	require.Len(t, def.Params, 2)
	assert.True(t, def.Params[0].Required)
	assert.False(t, def.Params[1].Required)

	_, ok = reg.Lookup("nope")
	assert.False(t, ok)

	defs := reg.Definitions()
	require.Len(t, defs, 7)
	for _, d := range defs {
		assert.NotEmpty(t, d.Description, d.Name)
	}
}

func TestDecodeParams(t *testing.T) {
	var p struct {
		Threshold *float64 `mapstructure:"threshold"`
		Sample    string   `mapstructure:"sample"`
		Skip      string   `mapstructure:"-"`
	}

	err := DecodeParams(map[string]any{"threshold": int64(7), "sample": "S1"}, &p)
	require.NoError(t, err)
	require.NotNil(t, p.Threshold)
	assert.Equal(t, 7.0, *p.Threshold)
	assert.Equal(t, "S1", p.Sample)

	err = DecodeParams(map[string]any{"threshold": nil}, &p)
	require.NoError(t, err)

	err = DecodeParams(map[string]any{"Skip": "x", "sample": true, "threshold": "high"}, &p)
	errs := ConfigErrors(err)
	require.Len(t, errs, 3)
	assert.Equal(t, []string{"Skip", "sample", "threshold"}, []string{errs[0].Param, errs[1].Param, errs[2].Param})
	assert.ErrorIs(t, errs[0], ErrUnknownParam)
	assert.Contains(t, errs[2].Error(), "expected a number")
}
