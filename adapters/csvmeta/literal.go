package csvmeta

import (
	"fmt"
	"strconv"
	"strings"

	"cutvalid/domain/metadata"
)

// maxLiteralDepth bounds list nesting in array fields
const maxLiteralDepth = 32

// ParseLiteral parses a nested list literal of numbers and quoted strings, e.g.
// [[-0.95, 0.1], [-0.85, 0.1]] or ['costh_f_star']. Parentheses are accepted as
// list delimiters; a trailing comma before the closing bracket is allowed.
func ParseLiteral(src string) (metadata.Node, error) {
	p := &literalParser{src: src}
	p.skipSpace()
	node, err := p.value(0)
	if err != nil {
		return metadata.Node{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return metadata.Node{}, p.errorf("unexpected trailing input %q", p.src[p.pos:])
	}
	return node, nil
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("literal at offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) && strings.ContainsRune(" \t\r\n", rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *literalParser) value(depth int) (metadata.Node, error) {
	if p.pos >= len(p.src) {
		return metadata.Node{}, p.errorf("unexpected end of input")
	}
	switch c := p.src[p.pos]; {
	case c == '[':
		return p.list(depth, ']')
	case c == '(':
		return p.list(depth, ')')
	case c == '\'' || c == '"':
		return p.quoted(c)
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.number()
	default:
		return metadata.Node{}, p.errorf("unexpected character %q", c)
	}
}

func (p *literalParser) list(depth int, closer byte) (metadata.Node, error) {
	if depth >= maxLiteralDepth {
		return metadata.Node{}, p.errorf("nesting deeper than %d", maxLiteralDepth)
	}
	p.pos++ // opening bracket
	items := []metadata.Node{}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return metadata.Node{}, p.errorf("unterminated list, expected %q", closer)
		}
		if p.src[p.pos] == closer {
			p.pos++
			return metadata.List(items...), nil
		}
		item, err := p.value(depth + 1)
		if err != nil {
			return metadata.Node{}, err
		}
		items = append(items, item)

		p.skipSpace()
		if p.pos >= len(p.src) {
			return metadata.Node{}, p.errorf("unterminated list, expected %q", closer)
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case closer:
			p.pos++
			return metadata.List(items...), nil
		default:
			return metadata.Node{}, p.errorf("expected ',' or %q, got %q", closer, p.src[p.pos])
		}
	}
}

func (p *literalParser) quoted(quote byte) (metadata.Node, error) {
	p.pos++ // opening quote
	var sb strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '\\' && p.pos+1 < len(p.src):
			sb.WriteByte(p.src[p.pos+1])
			p.pos += 2
		case c == quote:
			p.pos++
			return metadata.Str(sb.String()), nil
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	return metadata.Node{}, p.errorf("unterminated string")
}

func (p *literalParser) number() (metadata.Node, error) {
	start := p.pos
	for p.pos < len(p.src) && strings.ContainsRune("+-.0123456789eE", rune(p.src[p.pos])) {
		p.pos++
	}
	text := p.src[start:p.pos]
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		p.pos = start
		return metadata.Node{}, p.errorf("invalid number %q", text)
	}
	return metadata.Num(f), nil
}
