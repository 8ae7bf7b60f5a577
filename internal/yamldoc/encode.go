package yamldoc

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Encode serializes a Node tree as a YAML document using block style with
// two-space indentation. Tuples are written in flow style.
func Encode(n *Node) ([]byte, error) {
	yn, err := toYAML(n)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(yn); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func toYAML(n *Node) (*yaml.Node, error) {
	if n == nil {
		return scalar(nullTag, "null"), nil
	}

	switch n.Kind {
	case NullNode:
		return scalar(nullTag, "null"), nil
	case BoolNode:
		return scalar(boolTag, strconv.FormatBool(n.Bool)), nil
	case IntNode:
		return scalar(intTag, strconv.FormatInt(n.Int, 10)), nil
	case FloatNode:
		return scalar(floatTag, formatFloat(n.Float)), nil
	case StringNode:
		if !utf8.ValidString(n.Str) {
			return nil, fmt.Errorf("encode yaml: string %q is not valid UTF-8", n.Str)
		}
		return str(n.Str), nil
	case TimestampNode:
		return scalar(timestampTag, formatTime(n.Time)), nil
	case TupleNode:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: TupleTag, Style: yaml.FlowStyle}
		for _, it := range n.Items {
			if it == nil || !it.Kind.IsScalar() {
				return nil, fmt.Errorf("encode yaml: tuple items must be scalars")
			}
			c, err := toYAML(it)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, c)
		}
		return seq, nil
	case SequenceNode:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: seqTag}
		for _, it := range n.Items {
			c, err := toYAML(it)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, c)
		}
		return seq, nil
	case MappingNode:
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: mapTag}
		seen := make(map[string]bool, len(n.Pairs))
		for _, p := range n.Pairs {
			if seen[p.Key] {
				return nil, fmt.Errorf("encode yaml: duplicate key %q", p.Key)
			}
			seen[p.Key] = true
			v, err := toYAML(p.Value)
			if err != nil {
				return nil, err
			}
			m.Content = append(m.Content, str(p.Key), v)
		}
		return m, nil
	}

	return nil, fmt.Errorf("encode yaml: unknown node kind %s", n.Kind)
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

// str returns a string scalar. The merge key and strings made only of line
// breaks are double-quoted; plain or block style would not decode back to
// the same string.
func str(s string) *yaml.Node {
	n := scalar(strTag, s)
	if s == "<<" || (s != "" && strings.Trim(s, "\r\n") == "") {
		n.Style = yaml.DoubleQuotedStyle
	}
	return n
}

// formatFloat renders f so that it resolves back to a float.
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// formatTime writes UTC midnights as plain dates, everything else as RFC 3339.
func formatTime(t time.Time) string {
	if t.Location() == time.UTC && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339Nano)
}
