package filter

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/inodb/gactutil/internal/vcf"
)

// Built-in filter names.
const (
	MinDepth      = "min_depth"
	MinQual       = "min_qual"
	HasCall       = "has_call"
	MaxMissing    = "max_missing"
	SNVOnly       = "snv_only"
	MNPOnly       = "mnp_only"
	IndelOnly     = "indel_only"
	SVOnly        = "sv_only"
	DuplicateSite = "duplicate_site"
)

// DefaultRegistry returns a registry holding the built-in filters.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

// RegisterDefaults registers the built-in filters with r.
func RegisterDefaults(r *Registry) {
	r.Register(Definition{
		Name:        MinDepth,
		Description: "Fail records whose read depth is below threshold",
		Params: []ParamDef{
			{Name: "threshold", Type: "number", Required: true, Description: "minimum DP, inclusive"},
			{Name: "sample", Type: "string", Description: "read FORMAT DP of this sample instead of INFO DP"},
		},
		New: newMinDepth,
	})
	r.Register(Definition{
		Name:        MinQual,
		Description: "Fail records whose QUAL is below threshold",
		Params: []ParamDef{
			{Name: "threshold", Type: "number", Required: true, Description: "minimum QUAL, inclusive"},
		},
		New: newMinQual,
	})
	r.Register(Definition{
		Name:        HasCall,
		Description: "Fail records without a called genotype",
		Params: []ParamDef{
			{Name: "sample", Type: "string", Description: "only consider this sample"},
		},
		New: newHasCall,
	})
	r.Register(Definition{
		Name:        MaxMissing,
		Description: "Fail records where too many samples have a missing genotype",
		Params: []ParamDef{
			{Name: "rate", Type: "number", Required: true, Description: "maximum fraction of missing genotypes, 0 to 1"},
		},
		New: newMaxMissing,
	})
	r.Register(Definition{
		Name:        SNVOnly,
		Description: "Fail records that are not single nucleotide variants",
		New:         newCategory(SNVOnly, (*vcf.Variant).IsSNV),
	})
	r.Register(Definition{
		Name:        MNPOnly,
		Description: "Fail records that are not multi-nucleotide polymorphisms",
		New:         newCategory(MNPOnly, (*vcf.Variant).IsMNP),
	})
	r.Register(Definition{
		Name:        IndelOnly,
		Description: "Fail records that are not insertions or deletions",
		New:         newCategory(IndelOnly, (*vcf.Variant).IsIndel),
	})
	r.Register(Definition{
		Name:        SVOnly,
		Description: "Fail records that are not structural variants",
		New:         newCategory(SVOnly, (*vcf.Variant).IsSV),
	})
	r.Register(Definition{
		Name:        DuplicateSite,
		Description: "Fail repeated CHROM/POS/REF/ALT sites within a run",
		New:         newDuplicateSite,
	})
}

func requireThreshold(name string, v *float64, lo, hi float64) error {
	switch {
	case v == nil:
		return paramError(name, ErrMissingParam)
	case math.IsNaN(*v) || *v < lo || *v > hi:
		if math.IsInf(hi, 1) {
			return paramError(name, fmt.Errorf("must be >= %g, got %g", lo, *v))
		}
		return paramError(name, fmt.Errorf("must be between %g and %g, got %g", lo, hi, *v))
	}
	return nil
}

type minDepthParams struct {
	Threshold *float64 `mapstructure:"threshold"`
	Sample    string   `mapstructure:"sample"`
}

type minDepth struct {
	threshold float64
	sample    string
}

func newMinDepth(params map[string]any) (Filter, error) {
	var p minDepthParams
	if err := DecodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := requireThreshold("threshold", p.Threshold, 0, math.Inf(1)); err != nil {
		return nil, err
	}
	return &minDepth{threshold: *p.Threshold, sample: p.Sample}, nil
}

func (f *minDepth) Name() string { return MinDepth }

func (f *minDepth) Evaluate(v *vcf.Variant) (Decision, error) {
	var raw string
	if f.sample != "" {
		s, err := v.Sample(f.sample)
		if err != nil {
			return Decision{}, err
		}
		raw = s["DP"]
	} else {
		switch dp := v.Info["DP"].(type) {
		case nil:
		case string:
			raw = dp
		default:
			return Decision{}, errors.New("INFO DP has no value")
		}
	}

	if raw == "" || raw == "." {
		return Fail(MinDepth), nil
	}
	depth, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Decision{}, fmt.Errorf("malformed DP %q", raw)
	}
	if depth >= f.threshold {
		return Pass(), nil
	}
	return Fail(MinDepth), nil
}

type minQualParams struct {
	Threshold *float64 `mapstructure:"threshold"`
}

type minQual struct {
	threshold float64
}

func newMinQual(params map[string]any) (Filter, error) {
	var p minQualParams
	if err := DecodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := requireThreshold("threshold", p.Threshold, 0, math.Inf(1)); err != nil {
		return nil, err
	}
	return &minQual{threshold: *p.Threshold}, nil
}

func (f *minQual) Name() string { return MinQual }

func (f *minQual) Evaluate(v *vcf.Variant) (Decision, error) {
	if v.HasQual() && v.Qual >= f.threshold {
		return Pass(), nil
	}
	return Fail(MinQual), nil
}

type hasCallParams struct {
	Sample string `mapstructure:"sample"`
}

type hasCall struct {
	sample string
}

func newHasCall(params map[string]any) (Filter, error) {
	var p hasCallParams
	if err := DecodeParams(params, &p); err != nil {
		return nil, err
	}
	return &hasCall{sample: p.Sample}, nil
}

func (f *hasCall) Name() string { return HasCall }

// Evaluate passes records with at least one called genotype. Sites-only
// records pass when they carry an alternate allele.
func (f *hasCall) Evaluate(v *vcf.Variant) (Decision, error) {
	if f.sample != "" {
		s, err := v.Sample(f.sample)
		if err != nil {
			return Decision{}, err
		}
		if vcf.IsCalled(s["GT"]) {
			return Pass(), nil
		}
		return Fail(HasCall), nil
	}

	if len(v.SampleNames) == 0 {
		if v.IsMonomorphic() {
			return Fail(HasCall), nil
		}
		return Pass(), nil
	}

	samples, err := v.Samples()
	if err != nil {
		return Decision{}, err
	}
	for _, s := range samples {
		if vcf.IsCalled(s["GT"]) {
			return Pass(), nil
		}
	}
	return Fail(HasCall), nil
}

type maxMissingParams struct {
	Rate *float64 `mapstructure:"rate"`
}

type maxMissing struct {
	rate float64
}

func newMaxMissing(params map[string]any) (Filter, error) {
	var p maxMissingParams
	if err := DecodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := requireThreshold("rate", p.Rate, 0, 1); err != nil {
		return nil, err
	}
	return &maxMissing{rate: *p.Rate}, nil
}

func (f *maxMissing) Name() string { return MaxMissing }

// Evaluate fails records without samples: the missing rate is undefined.
func (f *maxMissing) Evaluate(v *vcf.Variant) (Decision, error) {
	if len(v.SampleNames) == 0 {
		return Fail(MaxMissing), nil
	}
	samples, err := v.Samples()
	if err != nil {
		return Decision{}, err
	}
	missing := 0
	for _, s := range samples {
		if !vcf.IsCalled(s["GT"]) {
			missing++
		}
	}
	if float64(missing)/float64(len(samples)) <= f.rate {
		return Pass(), nil
	}
	return Fail(MaxMissing), nil
}

// category passes records of one variant class.
type category struct {
	name string
	is   func(*vcf.Variant) bool
}

func newCategory(name string, is func(*vcf.Variant) bool) Factory {
	return func(params map[string]any) (Filter, error) {
		if err := DecodeParams(params, &struct{}{}); err != nil {
			return nil, err
		}
		return &category{name: name, is: is}, nil
	}
}

func (f *category) Name() string { return f.name }

func (f *category) Evaluate(v *vcf.Variant) (Decision, error) {
	if f.is(v) {
		return Pass(), nil
	}
	return Fail(f.name), nil
}

// duplicateSite remembers every site it has passed. It is not safe for
// concurrent use.
type duplicateSite struct {
	seen map[string]struct{}
}

func newDuplicateSite(params map[string]any) (Filter, error) {
	if err := DecodeParams(params, &struct{}{}); err != nil {
		return nil, err
	}
	return &duplicateSite{seen: make(map[string]struct{})}, nil
}

func (f *duplicateSite) Name() string { return DuplicateSite }

func (f *duplicateSite) Evaluate(v *vcf.Variant) (Decision, error) {
	key := v.SiteKey()
	if _, dup := f.seen[key]; dup {
		return Fail(DuplicateSite), nil
	}
	f.seen[key] = struct{}{}
	return Pass(), nil
}

func (f *duplicateSite) Reset() {
	clear(f.seen)
}
