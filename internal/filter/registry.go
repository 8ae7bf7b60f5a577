package filter

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sort"

	"github.com/go-viper/mapstructure/v2"
)

// Factory builds a filter from its decoded parameters.
type Factory func(params map[string]any) (Filter, error)

// Definition describes a filter the registry can build.
type Definition struct {
	Name        string
	Description string
	Params      []ParamDef
	New         Factory
}

// ParamDef documents one parameter of a filter.
type ParamDef struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

// Registry maps filter names to their definitions. It is populated at
// startup; lookups of unregistered names fail with ErrUnknownFilter.
type Registry struct {
	defs map[string]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds a definition, replacing any previous one with the same name.
func (r *Registry) Register(def Definition) {
	r.defs[def.Name] = def
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Names returns the registered filter names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns every definition, sorted by name.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.defs))
	for _, name := range r.Names() {
		defs = append(defs, r.defs[name])
	}
	return defs
}

// Build instantiates the filter named by spec. All errors are ConfigErrors
// positioned at the entry or the offending parameter.
func (r *Registry) Build(spec Spec) (Filter, error) {
	def, ok := r.defs[spec.Name]
	if !ok {
		return nil, &ConfigError{Filter: spec.Name, Line: spec.Line, Column: spec.Column, Err: ErrUnknownFilter}
	}

	f, err := def.New(spec.Values())
	if err != nil {
		return nil, locate(spec, err)
	}
	if f.Name() != spec.Name {
		return nil, &ConfigError{Filter: spec.Name, Line: spec.Line, Column: spec.Column,
			Err: fmt.Errorf("factory built filter %q", f.Name())}
	}
	return f, nil
}

// locate fills in the filter name and source position of factory errors.
func locate(spec Spec, err error) error {
	parts := ConfigErrors(err)
	if len(parts) == 0 {
		return &ConfigError{Filter: spec.Name, Line: spec.Line, Column: spec.Column, Err: err}
	}
	errs := make([]error, 0, len(parts))
	for _, ce := range parts {
		located := *ce
		located.Filter = spec.Name
		if located.Line == 0 {
			located.Line, located.Column = spec.position(ce.Param)
		}
		errs = append(errs, &located)
	}
	return errors.Join(errs...)
}

// DecodeParams decodes params into the struct pointed to by out, one key at
// a time so that every failure names its parameter. Keys are matched against
// the struct's mapstructure tags; keys without a field are rejected. Null
// values are left unset.
func DecodeParams(params map[string]any, out any) error {
	known := paramNames(out)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, k := range keys {
		if !slices.Contains(known, k) {
			errs = append(errs, paramError(k, ErrUnknownParam))
			continue
		}
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: out})
		if err != nil {
			return err
		}
		if err := dec.Decode(map[string]any{k: params[k]}); err != nil {
			errs = append(errs, paramError(k, fmt.Errorf("invalid value %v: expected %s", params[k], paramType(out, k))))
		}
	}
	return errors.Join(errs...)
}

func paramNames(out any) []string {
	t := reflect.TypeOf(out)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	var names []string
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("mapstructure"); tag != "" && tag != "-" {
			names = append(names, tag)
		}
	}
	return names
}

func paramType(out any, name string) string {
	t := reflect.TypeOf(out)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Tag.Get("mapstructure") != name {
			continue
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		switch ft.Kind() {
		case reflect.Float32, reflect.Float64:
			return "a number"
		case reflect.Int, reflect.Int64:
			return "an integer"
		case reflect.Bool:
			return "a bool"
		case reflect.String:
			return "a string"
		}
		return ft.String()
	}
	return "nothing"
}
