package filter

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/inodb/gactutil/internal/yamldoc"
)

// Spec is one configured filter: the entry of the configuration document
// that names it. Specs are values; use WithParam to derive a modified copy.
type Spec struct {
	Name         string
	Description  string
	Params       []Param // in document order
	ShortCircuit bool

	// Source position of the entry, 1-based. Zero when built in code.
	Line   int
	Column int
}

// Param is one named filter parameter. Value is a scalar or tuple node.
type Param struct {
	Name  string
	Value *yamldoc.Node
}

// Param returns the value of the named parameter.
func (s Spec) Param(name string) (*yamldoc.Node, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

// Values returns the parameters as plain Go values for decoding.
func (s Spec) Values() map[string]any {
	out := make(map[string]any, len(s.Params))
	for _, p := range s.Params {
		out[p.Name] = p.Value.Interface()
	}
	return out
}

// WithParam returns a copy of s with the parameter set, replacing an
// existing value in place.
func (s Spec) WithParam(name string, value *yamldoc.Node) Spec {
	params := make([]Param, 0, len(s.Params)+1)
	replaced := false
	for _, p := range s.Params {
		if p.Name == name {
			p.Value = value
			replaced = true
		}
		params = append(params, p)
	}
	if !replaced {
		params = append(params, Param{Name: name, Value: value})
	}
	s.Params = params
	return s
}

// position returns the source position of a parameter, falling back to the
// position of the entry.
func (s Spec) position(param string) (int, int) {
	if v, ok := s.Param(param); ok && v.Line > 0 {
		return v.Line, v.Column
	}
	return s.Line, s.Column
}

// Document returns the configuration entry for s.
func (s Spec) Document() *yamldoc.Node {
	entry := yamldoc.Mapping(yamldoc.Pair{Key: keyName, Value: yamldoc.String(s.Name)})
	if s.Description != "" {
		entry.Set(keyDescription, yamldoc.String(s.Description))
	}
	if len(s.Params) > 0 {
		params := yamldoc.Mapping()
		for _, p := range s.Params {
			params.Set(p.Name, p.Value)
		}
		entry.Set(keyParams, params)
	}
	if s.ShortCircuit {
		entry.Set(keyShortCircuit, yamldoc.Bool(true))
	}
	return entry
}

// Keys of a filter entry.
const (
	keyName         = "name"
	keyDescription  = "description"
	keyParams       = "params"
	keyShortCircuit = "short_circuit"
)

// LoadSpecs reads a filter configuration file. Malformed documents are
// reported as ConfigErrors carrying the parser's position.
func LoadSpecs(path string) ([]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read filter config %s: %w", path, err)
	}
	return ParseSpecs(data)
}

// ParseSpecs decodes a filter configuration document.
func ParseSpecs(data []byte) ([]Spec, error) {
	doc, err := yamldoc.Decode(data)
	if err != nil {
		var decErr *yamldoc.DecodeError
		if errors.As(err, &decErr) {
			return nil, &ConfigError{Line: decErr.Line, Column: decErr.Column, Err: errors.New(decErr.Message)}
		}
		return nil, &ConfigError{Err: err}
	}
	return SpecsFromDocument(doc)
}

// SpecsFromDocument converts a decoded configuration document into Specs.
// The document must be a non-empty sequence of filter entries. Every
// problem found is reported; the errors are joined.
func SpecsFromDocument(doc *yamldoc.Node) ([]Spec, error) {
	if doc == nil || doc.Kind == yamldoc.NullNode {
		return nil, &ConfigError{Err: errors.New("no filters configured")}
	}
	if doc.Kind != yamldoc.SequenceNode {
		return nil, &ConfigError{Line: doc.Line, Column: doc.Column,
			Err: fmt.Errorf("expected a sequence of filters, found %s", doc.Kind)}
	}
	if len(doc.Items) == 0 {
		return nil, &ConfigError{Line: doc.Line, Column: doc.Column, Err: errors.New("no filters configured")}
	}

	var (
		specs []Spec
		errs  []error
	)
	for _, item := range doc.Items {
		spec, err := specFromEntry(item)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		specs = append(specs, spec)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return specs, nil
}

func specFromEntry(entry *yamldoc.Node) (Spec, error) {
	at := func(n *yamldoc.Node, filter, param string, err error) *ConfigError {
		return &ConfigError{Filter: filter, Param: param, Line: n.Line, Column: n.Column, Err: err}
	}

	if entry.Kind != yamldoc.MappingNode {
		return Spec{}, at(entry, "", "", fmt.Errorf("expected a filter mapping, found %s", entry.Kind))
	}

	spec := Spec{Line: entry.Line, Column: entry.Column}

	nameNode, ok := entry.Get(keyName)
	switch {
	case !ok:
		return Spec{}, at(entry, "", "", fmt.Errorf("missing %q", keyName))
	case nameNode.Kind != yamldoc.StringNode:
		return Spec{}, at(nameNode, "", "", fmt.Errorf("%q must be a string, found %s", keyName, nameNode.Kind))
	}
	spec.Name = nameNode.Str

	var errs []error
	for _, p := range entry.Pairs {
		v := p.Value
		switch p.Key {
		case keyName:
		case keyDescription:
			switch v.Kind {
			case yamldoc.StringNode:
				spec.Description = v.Str
			case yamldoc.NullNode:
			default:
				errs = append(errs, at(v, spec.Name, "", fmt.Errorf("%q must be a string, found %s", p.Key, v.Kind)))
			}
		case keyShortCircuit:
			switch v.Kind {
			case yamldoc.BoolNode:
				spec.ShortCircuit = v.Bool
			case yamldoc.NullNode:
			default:
				errs = append(errs, at(v, spec.Name, "", fmt.Errorf("%q must be a bool, found %s", p.Key, v.Kind)))
			}
		case keyParams:
			params, err := paramsFromNode(spec.Name, v)
			if err != nil {
				errs = append(errs, err)
			}
			spec.Params = params
		default:
			errs = append(errs, at(v, spec.Name, "", fmt.Errorf("unknown key %q", p.Key)))
		}
	}

	if len(errs) > 0 {
		return Spec{}, errors.Join(errs...)
	}
	return spec, nil
}

func paramsFromNode(filter string, n *yamldoc.Node) ([]Param, error) {
	switch n.Kind {
	case yamldoc.NullNode:
		return nil, nil
	case yamldoc.MappingNode:
	default:
		return nil, &ConfigError{Filter: filter, Line: n.Line, Column: n.Column,
			Err: fmt.Errorf("%q must be a mapping, found %s", keyParams, n.Kind)}
	}

	var (
		params []Param
		errs   []error
	)
	for _, p := range n.Pairs {
		if !p.Value.Kind.IsScalar() && p.Value.Kind != yamldoc.TupleNode {
			errs = append(errs, &ConfigError{Filter: filter, Param: p.Key, Line: p.Value.Line, Column: p.Value.Column,
				Err: fmt.Errorf("expected a scalar or tuple, found %s", p.Value.Kind)})
			continue
		}
		params = append(params, Param{Name: p.Key, Value: p.Value})
	}
	return params, errors.Join(errs...)
}

// Override sets one parameter of a configured filter from the command line.
type Override struct {
	Filter string
	Param  string
	Value  *yamldoc.Node
}

// ParseOverride parses "filter.param=value". The value is decoded as a
// single YAML scalar or tuple, so "10" is an int and "'10'" a string.
func ParseOverride(s string) (Override, error) {
	key, value, ok := strings.Cut(s, "=")
	if !ok {
		return Override{}, fmt.Errorf("invalid override %q: expected filter.param=value", s)
	}
	filter, param, ok := strings.Cut(strings.TrimSpace(key), ".")
	if !ok || filter == "" || param == "" {
		return Override{}, fmt.Errorf("invalid override %q: expected filter.param=value", s)
	}

	n, err := yamldoc.ParseScalar(value)
	if err != nil {
		return Override{}, fmt.Errorf("invalid override %q: %w", s, err)
	}
	n.Line, n.Column = 0, 0

	return Override{Filter: filter, Param: param, Value: n}, nil
}

// ApplyOverrides returns specs with the overrides applied. Overriding a
// filter that is not configured is a ConfigError.
func ApplyOverrides(specs []Spec, overrides []Override) ([]Spec, error) {
	out := make([]Spec, len(specs))
	copy(out, specs)

	var errs []error
	for _, o := range overrides {
		found := false
		for i := range out {
			if out[i].Name == o.Filter {
				out[i] = out[i].WithParam(o.Param, o.Value)
				found = true
			}
		}
		if !found {
			errs = append(errs, &ConfigError{Filter: o.Filter, Param: o.Param,
				Err: errors.New("override names a filter that is not configured")})
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}
