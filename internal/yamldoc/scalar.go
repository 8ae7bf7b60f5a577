package yamldoc

import (
	"fmt"
	"strconv"
	"strings"
)

// Strip removes a trailing comment and surrounding white space from a
// single line. A '#' starts a comment at the beginning of the line or after
// white space, as in YAML.
func Strip(line string) (string, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.ContainsAny(line, "\r\n") {
		return "", fmt.Errorf("cannot strip multi-line string %q", line)
	}

	for i := 0; i < len(line); i++ {
		if line[i] == '#' && (i == 0 || line[i-1] == ' ' || line[i-1] == '\t') {
			line = line[:i]
			break
		}
	}

	return strings.TrimSpace(line), nil
}

// ParseScalar decodes one line of text into a scalar or tuple node.
// Comments are stripped; an empty line decodes to null. A trailing
// document end marker ("...") on its own line is allowed.
func ParseScalar(s string) (*Node, error) {
	lines := strings.Split(strings.TrimRight(s, "\r\n"), "\n")
	if len(lines) == 2 && strings.TrimSpace(lines[1]) == "..." {
		lines = lines[:1]
	}
	if len(lines) > 1 {
		return nil, fmt.Errorf("cannot parse scalar from multi-line input %q", s)
	}

	line, err := Strip(lines[0])
	if err != nil {
		return nil, err
	}
	if line == "" {
		return Null(), nil
	}

	n, err := Decode([]byte(line))
	if err != nil {
		return nil, err
	}
	if !n.Kind.IsScalar() && n.Kind != TupleNode {
		return nil, fmt.Errorf("%q is a %s, not a scalar", line, n.Kind)
	}
	return n, nil
}

// FormatScalar renders a scalar or tuple node on a single line such that
// ParseScalar returns an equal node. Null renders as the empty string.
func FormatScalar(n *Node) (string, error) {
	if n == nil || n.Kind == NullNode {
		return "", nil
	}
	if !n.Kind.IsScalar() && n.Kind != TupleNode {
		return "", fmt.Errorf("cannot format %s as a scalar", n.Kind)
	}
	if n.Kind == StringNode && strings.ContainsAny(n.Str, "\r\n") {
		return "", fmt.Errorf("cannot format multi-line string %q", n.Str)
	}

	b, err := Encode(n)
	if err != nil {
		return "", err
	}
	out := strings.TrimSuffix(string(b), "\n")

	if strings.Contains(out, "\n") {
		// The emitter folded a long string.
		if n.Kind == StringNode {
			return strconv.Quote(n.Str), nil
		}
		return "", fmt.Errorf("cannot format %s on a single line", n.Kind)
	}
	return out, nil
}
