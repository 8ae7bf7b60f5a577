package yamldoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DecodeError reports a malformed document or an unsupported construct.
// Line and Column are 1-based; Column is 0 when the parser does not report one.
type DecodeError struct {
	Line    int
	Column  int
	Message string
}

func (e *DecodeError) Error() string {
	switch {
	case e.Line > 0 && e.Column > 0:
		return fmt.Sprintf("yaml decode error at line %d, column %d: %s", e.Line, e.Column, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("yaml decode error at line %d: %s", e.Line, e.Message)
	default:
		return fmt.Sprintf("yaml decode error: %s", e.Message)
	}
}

// Core tags, in the short form reported by yaml.Node.ShortTag.
const (
	nullTag      = "!!null"
	boolTag      = "!!bool"
	intTag       = "!!int"
	floatTag     = "!!float"
	strTag       = "!!str"
	timestampTag = "!!timestamp"
	seqTag       = "!!seq"
	mapTag       = "!!map"
	mergeTag     = "!!merge"
)

var syntaxErrorLine = regexp.MustCompile(`^yaml: line (\d+): (.*)$`)

// Decode parses a single-document YAML text into a Node tree. An empty
// input decodes to a null node.
func Decode(data []byte) (*Node, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Null(), nil
		}
		return nil, syntaxError(err)
	}

	var extra yaml.Node
	if err := dec.Decode(&extra); err == nil {
		return nil, &DecodeError{Line: extra.Line, Column: extra.Column, Message: "multiple documents are not supported"}
	} else if !errors.Is(err, io.EOF) {
		return nil, syntaxError(err)
	}

	return convert(&doc)
}

func syntaxError(err error) error {
	msg := err.Error()
	if m := syntaxErrorLine.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return &DecodeError{Line: line, Message: m[2]}
	}
	return &DecodeError{Message: msg}
}

func nodeError(n *yaml.Node, format string, args ...any) error {
	return &DecodeError{Line: n.Line, Column: n.Column, Message: fmt.Sprintf(format, args...)}
}

func convert(n *yaml.Node) (*Node, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null(), nil
		}
		return convert(n.Content[0])
	case yaml.AliasNode:
		return convert(n.Alias)
	case yaml.ScalarNode:
		return convertScalar(n)
	case yaml.SequenceNode:
		return convertSequence(n)
	case yaml.MappingNode:
		return convertMapping(n)
	}
	return nil, nodeError(n, "unexpected node kind %d", n.Kind)
}

func convertScalar(n *yaml.Node) (*Node, error) {
	out := &Node{Line: n.Line, Column: n.Column}

	switch tag := n.ShortTag(); tag {
	case nullTag:
		out.Kind = NullNode
	case boolTag:
		out.Kind = BoolNode
		if err := n.Decode(&out.Bool); err != nil {
			return nil, nodeError(n, "invalid bool %q", n.Value)
		}
	case intTag:
		out.Kind = IntNode
		if err := n.Decode(&out.Int); err != nil {
			return nil, nodeError(n, "invalid int %q", n.Value)
		}
	case floatTag:
		out.Kind = FloatNode
		if err := n.Decode(&out.Float); err != nil {
			return nil, nodeError(n, "invalid float %q", n.Value)
		}
	case strTag:
		out.Kind = StringNode
		out.Str = n.Value
	case timestampTag:
		out.Kind = TimestampNode
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return nil, nodeError(n, "invalid timestamp %q", n.Value)
		}
		out.Time = t
	default:
		return nil, nodeError(n, "unknown tag %s", tag)
	}

	return out, nil
}

func convertSequence(n *yaml.Node) (*Node, error) {
	tag := n.ShortTag()
	out := &Node{Line: n.Line, Column: n.Column}

	switch tag {
	case seqTag:
		out.Kind = SequenceNode
	case TupleTag:
		out.Kind = TupleNode
	default:
		return nil, nodeError(n, "unknown tag %s", tag)
	}

	out.Items = make([]*Node, 0, len(n.Content))
	for _, c := range n.Content {
		item, err := convert(c)
		if err != nil {
			return nil, err
		}
		if out.Kind == TupleNode && !item.Kind.IsScalar() {
			return nil, nodeError(c, "tuple items must be scalars, found %s", item.Kind)
		}
		out.Items = append(out.Items, item)
	}

	return out, nil
}

func convertMapping(n *yaml.Node) (*Node, error) {
	if tag := n.ShortTag(); tag != mapTag {
		return nil, nodeError(n, "unknown tag %s", tag)
	}

	out := &Node{Kind: MappingNode, Line: n.Line, Column: n.Column}

	var merged []Pair
	seen := make(map[string]bool)

	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := resolveAlias(n.Content[i]), n.Content[i+1]

		if k.Kind == yaml.ScalarNode && k.ShortTag() == mergeTag {
			pairs, err := mergePairs(v)
			if err != nil {
				return nil, err
			}
			merged = appendMissing(merged, pairs)
			continue
		}

		if k.Kind != yaml.ScalarNode {
			return nil, nodeError(k, "mapping keys must be scalars")
		}
		if _, err := convertScalar(k); err != nil {
			return nil, err
		}
		if seen[k.Value] {
			return nil, nodeError(k, "duplicate key %q", k.Value)
		}
		seen[k.Value] = true

		value, err := convert(v)
		if err != nil {
			return nil, err
		}
		out.Pairs = append(out.Pairs, Pair{Key: k.Value, Value: value})
	}

	if len(merged) > 0 {
		// Explicit keys override merged ones.
		result := &Node{Kind: MappingNode, Pairs: merged}
		for _, p := range out.Pairs {
			result.Set(p.Key, p.Value)
		}
		out.Pairs = result.Pairs
	}

	return out, nil
}

// mergePairs returns the pairs contributed by a merge key value: a mapping,
// or a sequence of mappings where earlier mappings take precedence.
func mergePairs(v *yaml.Node) ([]Pair, error) {
	v = resolveAlias(v)

	switch v.Kind {
	case yaml.MappingNode:
		m, err := convertMapping(v)
		if err != nil {
			return nil, err
		}
		return m.Pairs, nil
	case yaml.SequenceNode:
		var pairs []Pair
		for _, c := range v.Content {
			c = resolveAlias(c)
			if c.Kind != yaml.MappingNode {
				return nil, nodeError(c, "expected a mapping for merging")
			}
			m, err := convertMapping(c)
			if err != nil {
				return nil, err
			}
			pairs = appendMissing(pairs, m.Pairs)
		}
		return pairs, nil
	}

	return nil, nodeError(v, "expected a mapping or list of mappings for merging")
}

func appendMissing(dst, src []Pair) []Pair {
	for _, p := range src {
		found := false
		for _, d := range dst {
			if d.Key == p.Key {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, p)
		}
	}
	return dst
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}
