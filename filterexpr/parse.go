package filterexpr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/tabula/cond"
)

// ParseError reports a malformed filter expression.
type ParseError struct {
	Expr    string
	Offset  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("filter expression %q at %d: %s", e.Expr, e.Offset, e.Message)
}

// Parse reads a disjunction produced by Join back into groups. Quoted values
// come back as strings; unquoted values as int64, float64 or string.
func Parse(expr string) ([]Group, error) {
	items, err := split(expr, 0, expr)
	if err != nil {
		return nil, err
	}
	groups := make([]Group, 0, len(items))
	for _, it := range items {
		g, err := parseItem(expr, it)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

type span struct {
	text   string
	offset int
}

// split cuts s on commas outside quotes and parentheses.
func split(expr string, base int, s string) ([]span, error) {
	var (
		out     []span
		depth   int
		inQuote bool
		start   int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote && c == '\\':
			i++
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth < 0 {
				return nil, &ParseError{Expr: expr, Offset: base + i, Message: "unbalanced ')'"}
			}
		case c == ',' && depth == 0:
			out = append(out, span{text: s[start:i], offset: base + start})
			start = i + 1
		}
	}
	if inQuote {
		return nil, &ParseError{Expr: expr, Offset: base + len(s), Message: "unterminated quote"}
	}
	if depth != 0 {
		return nil, &ParseError{Expr: expr, Offset: base + len(s), Message: "unbalanced '('"}
	}
	if strings.TrimSpace(s) != "" {
		out = append(out, span{text: s[start:], offset: base + start})
	}
	return out, nil
}

func parseItem(expr string, it span) (Group, error) {
	text := strings.TrimSpace(it.text)
	if inner, ok := strings.CutPrefix(text, "and("); ok && strings.HasSuffix(inner, ")") {
		inner = inner[:len(inner)-1]
		parts, err := split(expr, it.offset+4, inner)
		if err != nil {
			return nil, err
		}
		var g Group
		for _, p := range parts {
			sub, err := parseItem(expr, p)
			if err != nil {
				return nil, err
			}
			g = append(g, sub...)
		}
		return g, nil
	}
	if strings.HasPrefix(text, "or(") {
		return nil, &ParseError{Expr: expr, Offset: it.offset, Message: "nested or() is not supported"}
	}
	c, err := parseClause(expr, it.offset, text)
	if err != nil {
		return nil, err
	}
	return Group{c}, nil
}

func parseClause(expr string, offset int, text string) (Clause, error) {
	fail := func(msg string) (Clause, error) {
		return Clause{}, &ParseError{Expr: expr, Offset: offset, Message: msg}
	}

	field, rest, ok := strings.Cut(text, ".")
	if !ok || field == "" {
		return fail("expected field.op.value")
	}
	c := Clause{Field: field}
	if after, ok := strings.CutPrefix(rest, "not."); ok {
		c.Not = true
		rest = after
	}
	opName, raw, ok := strings.Cut(rest, ".")
	if !ok {
		return fail("missing value")
	}
	op, known := cond.ParseOp(opName)
	if !known {
		return fail(fmt.Sprintf("unknown operator %q", opName))
	}
	c.Op = op

	switch op {
	case cond.OpIs:
		switch raw {
		case "null":
			c.Value = nil
		case "true":
			c.Value = true
		case "false":
			c.Value = false
		default:
			return fail(fmt.Sprintf("is expects null, true or false, got %q", raw))
		}
	case cond.OpIn:
		if !strings.HasPrefix(raw, "(") || !strings.HasSuffix(raw, ")") {
			return fail("in expects a parenthesized list")
		}
		parts, err := split(expr, offset, raw[1:len(raw)-1])
		if err != nil {
			return Clause{}, err
		}
		values := make([]any, 0, len(parts))
		for _, p := range parts {
			v, err := literal(strings.TrimSpace(p.text))
			if err != nil {
				return fail(err.Error())
			}
			values = append(values, v)
		}
		c.Value = values
	default:
		v, err := literal(raw)
		if err != nil {
			return fail(err.Error())
		}
		c.Value = v
	}
	return c, nil
}

func literal(s string) (any, error) {
	if strings.HasPrefix(s, `"`) {
		return unquote(s)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	return s, nil
}

// unquote reverses Quote.
func unquote(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", fmt.Errorf("malformed quoted value %s", s)
	}
	body := s[1 : len(s)-1]
	var sb strings.Builder
	sb.Grow(len(body))
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' {
			i++
			if i == len(body) {
				return "", fmt.Errorf("dangling escape in %s", s)
			}
		}
		sb.WriteByte(body[i])
	}
	return sb.String(), nil
}
