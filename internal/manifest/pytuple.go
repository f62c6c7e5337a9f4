package manifest

import (
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// ParseTupleLiteral recognizes Python-style tuple literals carried inside
// YAML scalars, e.g. "(15000, 20000)", "(800,)", or "((1333, 1333),)".
// It returns the parsed cty tuple and true, or cty.NilVal and false when the
// string is not a well-formed tuple literal and should stay a plain string.
func ParseTupleLiteral(s string) (cty.Value, bool) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "(") || !strings.HasSuffix(trimmed, ")") {
		return cty.NilVal, false
	}
	p := &tupleParser{src: trimmed}
	v, ok := p.parseTuple()
	if !ok {
		return cty.NilVal, false
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return cty.NilVal, false
	}
	return v, true
}

// RenderTupleLiteral is the inverse of ParseTupleLiteral. Single-element
// tuples keep the trailing comma so they survive another parse.
func RenderTupleLiteral(v cty.Value) string {
	var sb strings.Builder
	sb.WriteString("(")
	elems := v.AsValueSlice()
	for i, elem := range elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(renderTupleElem(elem))
	}
	if len(elems) == 1 {
		sb.WriteString(",")
	}
	sb.WriteString(")")
	return sb.String()
}

func renderTupleElem(v cty.Value) string {
	switch {
	case v.IsNull():
		return "None"
	case v.Type() == cty.Bool:
		if v.True() {
			return "True"
		}
		return "False"
	case v.Type() == cty.Number:
		return formatNumber(v)
	case v.Type() == cty.String:
		return "\"" + v.AsString() + "\""
	case v.Type().IsTupleType():
		return RenderTupleLiteral(v)
	default:
		return v.GoString()
	}
}

type tupleParser struct {
	src string
	pos int
}

func (p *tupleParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *tupleParser) parseTuple() (cty.Value, bool) {
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '(' {
		return cty.NilVal, false
	}
	p.pos++

	var elems []cty.Value
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return cty.NilVal, false
		}
		if p.src[p.pos] == ')' {
			p.pos++
			break
		}
		elem, ok := p.parseValue()
		if !ok {
			return cty.NilVal, false
		}
		elems = append(elems, elem)

		p.skipSpace()
		if p.pos >= len(p.src) {
			return cty.NilVal, false
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case ')':
			// handled on the next loop iteration
		default:
			return cty.NilVal, false
		}
	}

	if len(elems) == 0 {
		return cty.EmptyTupleVal, true
	}
	return cty.TupleVal(elems), true
}

func (p *tupleParser) parseValue() (cty.Value, bool) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return cty.NilVal, false
	}
	switch c := p.src[p.pos]; {
	case c == '(':
		return p.parseTuple()
	case c == '\'' || c == '"':
		return p.parseString(c)
	case c == '-' || c == '+' || (c >= '0' && c <= '9') || c == '.':
		return p.parseNumber()
	default:
		return p.parseKeyword()
	}
}

func (p *tupleParser) parseString(quote byte) (cty.Value, bool) {
	p.pos++ // opening quote
	start := p.pos
	for p.pos < len(p.src) {
		if p.src[p.pos] == quote {
			s := p.src[start:p.pos]
			p.pos++
			return cty.StringVal(s), true
		}
		p.pos++
	}
	return cty.NilVal, false
}

func (p *tupleParser) parseNumber() (cty.Value, bool) {
	start := p.pos
	for p.pos < len(p.src) && strings.ContainsRune("+-0123456789.eE", rune(p.src[p.pos])) {
		p.pos++
	}
	v, err := cty.ParseNumberVal(p.src[start:p.pos])
	if err != nil {
		return cty.NilVal, false
	}
	return v, true
}

func (p *tupleParser) parseKeyword() (cty.Value, bool) {
	start := p.pos
	for p.pos < len(p.src) && isIdentChar(p.src[p.pos]) {
		p.pos++
	}
	switch p.src[start:p.pos] {
	case "True":
		return cty.True, true
	case "False":
		return cty.False, true
	case "None":
		return cty.NullVal(cty.DynamicPseudoType), true
	default:
		return cty.NilVal, false
	}
}

func isIdentChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}
