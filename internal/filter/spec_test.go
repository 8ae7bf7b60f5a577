package filter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/gactutil/internal/yamldoc"
)

const byConfig = `# BY4741 resequencing
- name: has_call
  description: Require a genotype call
  short_circuit: true
- name: min_depth
  params:
    threshold: 10
    sample: BY4741
- name: min_qual
  params: {threshold: 30.5}
`

func TestParseSpecs(t *testing.T) {
	specs, err := ParseSpecs([]byte(byConfig))
	require.NoError(t, err)
	require.Len(t, specs, 3)

	assert.Equal(t, HasCall, specs[0].Name)
	assert.Equal(t, "Require a genotype call", specs[0].Description)
	assert.True(t, specs[0].ShortCircuit)
	assert.Empty(t, specs[0].Params)
	assert.Equal(t, 2, specs[0].Line)
	assert.Equal(t, 3, specs[0].Column)

	md := specs[1]
	assert.False(t, md.ShortCircuit)
	require.Len(t, md.Params, 2)
	assert.Equal(t, "threshold", md.Params[0].Name)
	assert.Equal(t, "sample", md.Params[1].Name)
	assert.Equal(t, map[string]any{"threshold": int64(10), "sample": "BY4741"}, md.Values())

	th, ok := specs[2].Param("threshold")
	require.True(t, ok)
	assert.Equal(t, 30.5, th.Float)

	_, err = Build(specs, DefaultRegistry())
	assert.NoError(t, err)
}

func TestParseSpecs_Errors(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		contains string
		line     int
	}{
		{"empty document", "", "no filters configured", 0},
		{"empty sequence", "[]\n", "no filters configured", 1},
		{"not a sequence", "name: min_depth\n", "expected a sequence", 1},
		{"entry not a mapping", "- min_depth\n", "expected a filter mapping", 1},
		{"missing name", "- params: {threshold: 1}\n", `missing "name"`, 1},
		{"numeric name", "- name: 5\n", "must be a string", 1},
		{"unknown key", "- name: min_qual\n  treshold: 5\n", `unknown key "treshold"`, 2},
		{"bad short_circuit", "- name: has_call\n  short_circuit: sometimes\n", "must be a bool", 2},
		{"params not a mapping", "- name: min_qual\n  params: [1]\n", "must be a mapping", 2},
		{"nested param", "- name: min_qual\n  params:\n    threshold: [1, 2]\n", "expected a scalar or tuple", 3},
		{"syntax error", "- name: a\n- name: b: c\n", "mapping values are not allowed", 2},
		{"unknown tag", "- name: !regex min.*\n", "unknown tag !regex", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			specs, err := ParseSpecs([]byte(tt.in))
			assert.Nil(t, specs)

			errs := ConfigErrors(err)
			require.NotEmpty(t, errs, "%v", err)
			assert.Contains(t, errs[0].Error(), tt.contains)
			assert.Equal(t, tt.line, errs[0].Line)
		})
	}
}

func TestParseSpecs_ReportsEveryEntry(t *testing.T) {
	_, err := ParseSpecs([]byte(`- name: min_qual
  colour: red
- threshold: 3
- name: has_call
  short_circuit: 1
`))
	errs := ConfigErrors(err)
	require.Len(t, errs, 3, "%v", err)
	assert.Equal(t, []int{2, 3, 5}, []int{errs[0].Line, errs[1].Line, errs[2].Line})
	assert.Equal(t, MinQual, errs[0].Filter)
	assert.Equal(t, HasCall, errs[2].Filter)
}

func TestLoadSpecs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filters.yaml")
	require.NoError(t, os.WriteFile(path, []byte(byConfig), 0o644))

	specs, err := LoadSpecs(path)
	require.NoError(t, err)
	assert.Len(t, specs, 3)

	_, err = LoadSpecs(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Empty(t, ConfigErrors(err))
	assert.Contains(t, err.Error(), "missing.yaml")
}

func TestSpec_DocumentRoundTrip(t *testing.T) {
	specs, err := ParseSpecs([]byte(byConfig))
	require.NoError(t, err)

	doc := yamldoc.Sequence()
	for _, s := range specs {
		doc.Items = append(doc.Items, s.Document())
	}
	data, err := yamldoc.Encode(doc)
	require.NoError(t, err)

	again, err := ParseSpecs(data)
	require.NoError(t, err)
	require.Len(t, again, len(specs))
	for i := range specs {
		assert.Equal(t, specs[i].Name, again[i].Name)
		assert.Equal(t, specs[i].Description, again[i].Description)
		assert.Equal(t, specs[i].ShortCircuit, again[i].ShortCircuit)
		assert.Equal(t, specs[i].Values(), again[i].Values())
	}
}

func TestParseOverride(t *testing.T) {
	tests := []struct {
		in     string
		filter string
		param  string
		want   *yamldoc.Node
	}{
		{"min_depth.threshold=20", MinDepth, "threshold", yamldoc.Int(20)},
		{"min_qual.threshold=12.5", MinQual, "threshold", yamldoc.Float(12.5)},
		{"has_call.sample=BY4742", HasCall, "sample", yamldoc.String("BY4742")},
		{"has_call.sample='10'", HasCall, "sample", yamldoc.String("10")},
		{"x.window=!tuple [1, 5]", "x", "window", yamldoc.Tuple(yamldoc.Int(1), yamldoc.Int(5))},
		{"x.flag=", "x", "flag", yamldoc.Null()},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			o, err := ParseOverride(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.filter, o.Filter)
			assert.Equal(t, tt.param, o.Param)
			assert.True(t, yamldoc.Equal(tt.want, o.Value), "got %+v", o.Value)
			assert.Zero(t, o.Value.Line)
		})
	}

	for _, bad := range []string{"threshold=20", "min_depth=20", ".threshold=1", "min_depth.threshold", "a.b=[1, 2]"} {
		_, err := ParseOverride(bad)
		assert.Error(t, err, bad)
	}
}

func TestApplyOverrides(t *testing.T) {
	specs, err := ParseSpecs([]byte(byConfig))
	require.NoError(t, err)

	raise, err := ParseOverride("min_depth.threshold=25")
	require.NoError(t, err)
	pick, err := ParseOverride("has_call.sample=BY4742")
	require.NoError(t, err)

	out, err := ApplyOverrides(specs, []Override{raise, pick})
	require.NoError(t, err)

	assert.Equal(t, int64(25), out[1].Values()["threshold"])
	assert.Equal(t, []string{"threshold", "sample"}, []string{out[1].Params[0].Name, out[1].Params[1].Name})
	assert.Equal(t, "BY4742", out[0].Values()["sample"])

	// The input specs are unchanged.
	assert.Equal(t, int64(10), specs[1].Values()["threshold"])
	assert.Empty(t, specs[0].Params)

	_, err = ApplyOverrides(specs, []Override{{Filter: "min_dp", Param: "threshold", Value: yamldoc.Int(1)}})
	errs := ConfigErrors(err)
	require.Len(t, errs, 1)
	assert.Equal(t, "min_dp", errs[0].Filter)
}
