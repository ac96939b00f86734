package metadata

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NodeKind distinguishes the three shapes a structured literal can take
type NodeKind int

const (
	NodeNumber NodeKind = iota
	NodeString
	NodeList
)

// Node is a parsed structured literal: a number, a quoted string or a nested list.
type Node struct {
	Kind   NodeKind
	Number float64
	Text   string
	Items  []Node
}

// Num builds a number node
func Num(f float64) Node { return Node{Kind: NodeNumber, Number: f} }

// Str builds a string node
func Str(s string) Node { return Node{Kind: NodeString, Text: s} }

// List builds a list node
func List(items ...Node) Node {
	if items == nil {
		items = []Node{}
	}
	return Node{Kind: NodeList, Items: items}
}

// Len returns the number of items of a list node and 0 otherwise
func (n Node) Len() int {
	if n.Kind != NodeList {
		return 0
	}
	return len(n.Items)
}

// Shape returns the extent along each nesting level, following the first item.
func (n Node) Shape() []int {
	var shape []int
	cur := n
	for cur.Kind == NodeList {
		shape = append(shape, len(cur.Items))
		if len(cur.Items) == 0 {
			break
		}
		cur = cur.Items[0]
	}
	return shape
}

// Floats returns a one-dimensional numeric list
func (n Node) Floats() ([]float64, error) {
	if n.Kind != NodeList {
		return nil, fmt.Errorf("expected a list, got %s", n)
	}
	out := make([]float64, len(n.Items))
	for i, item := range n.Items {
		if item.Kind != NodeNumber {
			return nil, fmt.Errorf("item %d of %s is not a number", i, n)
		}
		out[i] = item.Number
	}
	return out, nil
}

// Ints returns a one-dimensional list of whole numbers
func (n Node) Ints() ([]int, error) {
	floats, err := n.Floats()
	if err != nil {
		return nil, err
	}
	out := make([]int, len(floats))
	for i, f := range floats {
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("item %d of %s is not an integer", i, n)
		}
		out[i] = int(f)
	}
	return out, nil
}

// Strings returns a one-dimensional list of strings
func (n Node) Strings() ([]string, error) {
	if n.Kind != NodeList {
		return nil, fmt.Errorf("expected a list, got %s", n)
	}
	out := make([]string, len(n.Items))
	for i, item := range n.Items {
		if item.Kind != NodeString {
			return nil, fmt.Errorf("item %d of %s is not a string", i, n)
		}
		out[i] = item.Text
	}
	return out, nil
}

// Matrix returns a [row][column] numeric array. A flat numeric list is read as
// one column per row.
func (n Node) Matrix() ([][]float64, error) {
	if n.Kind != NodeList {
		return nil, fmt.Errorf("expected a list, got %s", n)
	}
	out := make([][]float64, len(n.Items))
	for i, item := range n.Items {
		switch item.Kind {
		case NodeNumber:
			out[i] = []float64{item.Number}
		case NodeList:
			row, err := item.Floats()
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			out[i] = row
		default:
			return nil, fmt.Errorf("row %d of %s is not numeric", i, n)
		}
	}
	return out, nil
}

// String renders the node as a literal that parses back to the same node.
func (n Node) String() string {
	var sb strings.Builder
	n.write(&sb)
	return sb.String()
}

func (n Node) write(sb *strings.Builder) {
	switch n.Kind {
	case NodeNumber:
		sb.WriteString(strconv.FormatFloat(n.Number, 'g', -1, 64))
	case NodeString:
		sb.WriteByte('\'')
		sb.WriteString(strings.ReplaceAll(strings.ReplaceAll(n.Text, `\`, `\\`), `'`, `\'`))
		sb.WriteByte('\'')
	case NodeList:
		sb.WriteByte('[')
		for i, item := range n.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			item.write(sb)
		}
		sb.WriteByte(']')
	}
}
