// Package yamldoc decodes and encodes configuration documents.
//
// A document is a tree of Nodes drawn from a closed set of kinds: the YAML
// core scalars (null, bool, int, float, str, timestamp), sequences, ordered
// mappings with unique string keys, and tuples. A tuple is a fixed-length
// list of scalars written as a sequence carrying the !tuple tag:
//
//	bounds: !tuple [10, 250.5]
package yamldoc

import (
	"fmt"
	"math"
	"time"
)

// TupleTag marks a sequence as a tuple.
const TupleTag = "!tuple"

// Kind identifies the variant held by a Node.
type Kind int

// Node kinds.
const (
	NullNode Kind = iota
	BoolNode
	IntNode
	FloatNode
	StringNode
	TimestampNode
	TupleNode
	SequenceNode
	MappingNode
)

var kindNames = [...]string{
	NullNode:      "null",
	BoolNode:      "bool",
	IntNode:       "int",
	FloatNode:     "float",
	StringNode:    "string",
	TimestampNode: "timestamp",
	TupleNode:     "tuple",
	SequenceNode:  "sequence",
	MappingNode:   "mapping",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsScalar reports whether k is one of the scalar kinds.
func (k Kind) IsScalar() bool {
	return k <= TimestampNode
}

// Node is one element of a document. Only the fields matching Kind are used.
type Node struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	Time  time.Time
	Items []*Node // TupleNode and SequenceNode
	Pairs []Pair  // MappingNode, in document order

	// Source position, 1-based. Zero for nodes built in code.
	Line   int
	Column int
}

// Pair is one key/value entry of a mapping.
type Pair struct {
	Key   string
	Value *Node
}

// Null returns a null node.
func Null() *Node { return &Node{Kind: NullNode} }

// Bool returns a bool node.
func Bool(b bool) *Node { return &Node{Kind: BoolNode, Bool: b} }

// Int returns an int node.
func Int(i int64) *Node { return &Node{Kind: IntNode, Int: i} }

// Float returns a float node.
func Float(f float64) *Node { return &Node{Kind: FloatNode, Float: f} }

// String returns a string node.
func String(s string) *Node { return &Node{Kind: StringNode, Str: s} }

// Timestamp returns a timestamp node.
func Timestamp(t time.Time) *Node { return &Node{Kind: TimestampNode, Time: t} }

// Tuple returns a tuple node. Items must be scalars; Encode rejects anything else.
func Tuple(items ...*Node) *Node { return &Node{Kind: TupleNode, Items: items} }

// Sequence returns a sequence node.
func Sequence(items ...*Node) *Node { return &Node{Kind: SequenceNode, Items: items} }

// Mapping returns a mapping node. Later pairs replace earlier ones with the same key.
func Mapping(pairs ...Pair) *Node {
	m := &Node{Kind: MappingNode}
	for _, p := range pairs {
		m.Set(p.Key, p.Value)
	}
	return m
}

// Get returns the value stored under key in a mapping.
func (n *Node) Get(key string) (*Node, bool) {
	if n == nil || n.Kind != MappingNode {
		return nil, false
	}
	for _, p := range n.Pairs {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// Set stores value under key in a mapping, keeping the position of an
// existing key.
func (n *Node) Set(key string, value *Node) {
	for i, p := range n.Pairs {
		if p.Key == key {
			n.Pairs[i].Value = value
			return
		}
	}
	n.Pairs = append(n.Pairs, Pair{Key: key, Value: value})
}

// Keys returns the mapping keys in order.
func (n *Node) Keys() []string {
	keys := make([]string, len(n.Pairs))
	for i, p := range n.Pairs {
		keys[i] = p.Key
	}
	return keys
}

// TupleValue is the native form of a tuple node.
type TupleValue []any

// Interface converts the node into plain Go values: nil, bool, int64,
// float64, string, time.Time, TupleValue, []any and map[string]any.
// Mapping order is lost.
func (n *Node) Interface() any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case BoolNode:
		return n.Bool
	case IntNode:
		return n.Int
	case FloatNode:
		return n.Float
	case StringNode:
		return n.Str
	case TimestampNode:
		return n.Time
	case TupleNode:
		out := make(TupleValue, len(n.Items))
		for i, it := range n.Items {
			out[i] = it.Interface()
		}
		return out
	case SequenceNode:
		out := make([]any, len(n.Items))
		for i, it := range n.Items {
			out[i] = it.Interface()
		}
		return out
	case MappingNode:
		out := make(map[string]any, len(n.Pairs))
		for _, p := range n.Pairs {
			out[p.Key] = p.Value.Interface()
		}
		return out
	}
	return nil
}

// Equal reports whether a and b are structurally equal. Source positions
// are ignored; NaN equals NaN; timestamps compare as instants.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case NullNode:
		return true
	case BoolNode:
		return a.Bool == b.Bool
	case IntNode:
		return a.Int == b.Int
	case FloatNode:
		if math.IsNaN(a.Float) || math.IsNaN(b.Float) {
			return math.IsNaN(a.Float) && math.IsNaN(b.Float)
		}
		return a.Float == b.Float
	case StringNode:
		return a.Str == b.Str
	case TimestampNode:
		return a.Time.Equal(b.Time)
	case TupleNode, SequenceNode:
		if len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !Equal(a.Items[i], b.Items[i]) {
				return false
			}
		}
		return true
	case MappingNode:
		if len(a.Pairs) != len(b.Pairs) {
			return false
		}
		for i := range a.Pairs {
			if a.Pairs[i].Key != b.Pairs[i].Key || !Equal(a.Pairs[i].Value, b.Pairs[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}
