package expect

import (
	"fmt"
	"strings"
	"unicode"
)

// Parse reads declaration text into a validated expectation.
//
//	int                 Concrete(int)
//	[int]               SequenceOf(int)
//	{int: str}          MappingOf(int, str)
//	(int, bool)         TupleOf(int, bool)
//	[int, bool]         TupleOf(int, bool), like a list literal of types
//
// Shapes nest freely. Unknown names and malformed text are ConfigErrors.
func (r *Registry) Parse(text string) (*Expectation, error) {
	p := &parser{reg: r, src: text}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// MustParse is like Parse but panics on error. Intended for package-level
// declarations and tests.
func (r *Registry) MustParse(text string) *Expectation {
	e, err := r.Parse(text)
	if err != nil {
		panic(err)
	}
	return e
}

type parser struct {
	reg *Registry
	src string
	pos int
}

func (p *parser) errorf(format string, args ...any) *ConfigError {
	return &ConfigError{
		Subject: p.src,
		Reason:  fmt.Sprintf("at offset %d: ", p.pos) + fmt.Sprintf(format, args...),
	}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *parser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) expect(c byte) error {
	if p.peek() != c {
		if p.pos >= len(p.src) {
			return p.errorf("expected %q, reached end of declaration", c)
		}
		return p.errorf("expected %q, found %q", c, p.src[p.pos])
	}
	p.pos++
	return nil
}

func (p *parser) parseExpr() (*Expectation, error) {
	switch c := p.peek(); c {
	case 0:
		return nil, p.errorf("empty type")
	case '[':
		p.pos++
		items, err := p.parseList(']')
		if err != nil {
			return nil, err
		}
		if len(items) == 1 {
			return SequenceOf(items[0]), nil
		}
		return TupleOf(items...), nil
	case '(':
		p.pos++
		items, err := p.parseList(')')
		if err != nil {
			return nil, err
		}
		return TupleOf(items...), nil
	case '{':
		p.pos++
		key, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect('}'); err != nil {
			return nil, err
		}
		return MappingOf(key, val), nil
	default:
		return p.parseName()
	}
}

// parseList reads "expr (, expr)* close" after the opening bracket.
func (p *parser) parseList(close byte) ([]*Expectation, error) {
	if p.peek() == close {
		return nil, p.errorf("empty %c%c has no element type", openerOf(close), close)
	}

	var items []*Expectation
	for {
		item, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)

		switch p.peek() {
		case ',':
			p.pos++
		case close:
			p.pos++
			return items, nil
		default:
			return nil, p.expect(close)
		}
	}
}

func openerOf(close byte) byte {
	if close == ')' {
		return '('
	}
	return '['
}

func (p *parser) parseName() (*Expectation, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := rune(p.src[p.pos])
		if c == '_' || c == '.' || unicode.IsLetter(c) || unicode.IsDigit(c) {
			p.pos++
			continue
		}
		break
	}
	name := p.src[start:p.pos]
	if name == "" {
		return nil, p.errorf("unexpected %q", p.src[p.pos])
	}

	leaf, ok := p.reg.Lookup(name)
	if !ok {
		return nil, &ConfigError{Subject: name, Reason: "not a registered type (known: " + strings.Join(p.reg.Names(), ", ") + ")"}
	}
	return Concrete(leaf), nil
}
