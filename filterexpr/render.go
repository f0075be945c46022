// Package filterexpr renders and parses the backend's disjunction filter
// grammar: comma-separated clauses such as role.eq."admin" or age.gte.18,
// optionally grouped with and(...).
package filterexpr

import (
	"strings"

	"github.com/roach88/tabula/cond"
)

// Clause is a single field predicate.
type Clause struct {
	Field string
	Op    cond.Op
	Not   bool
	// Value is the operand; for OpIn it holds a []any.
	Value any
}

// Group is a conjunction of clauses: one OR branch.
type Group []Clause

// String renders the clause, for example status.eq."draft".
func (c Clause) String() string {
	var sb strings.Builder
	sb.WriteString(c.Field)
	sb.WriteByte('.')
	if c.Not {
		sb.WriteString("not.")
	}
	sb.WriteString(string(c.Op))
	sb.WriteByte('.')

	switch c.Op {
	case cond.OpIs:
		sb.WriteString(cond.Format(c.Value))
	case cond.OpIn:
		sb.WriteByte('(')
		for i, v := range cond.AsList(c.Value) {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(Quote(cond.Format(v)))
		}
		sb.WriteByte(')')
	case cond.OpGt, cond.OpGte, cond.OpLt, cond.OpLte:
		sb.WriteString(cond.Format(c.Value))
	default:
		sb.WriteString(Quote(cond.Format(c.Value)))
	}
	return sb.String()
}

// String renders a single-clause group bare and a multi-clause group as
// and(c1,c2,...).
func (g Group) String() string {
	if len(g) == 1 {
		return g[0].String()
	}
	parts := make([]string, len(g))
	for i, c := range g {
		parts[i] = c.String()
	}
	return "and(" + strings.Join(parts, ",") + ")"
}

// Join renders groups as one disjunction. Empty groups are skipped.
func Join(groups []Group) string {
	parts := make([]string, 0, len(groups))
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		parts = append(parts, g.String())
	}
	return strings.Join(parts, ",")
}

// Quote wraps s in double quotes, escaping backslashes and quotes.
func Quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('"')
	return sb.String()
}

// Branch renders the clauses of one condition set in compilation order:
// where, is, in, gt, gte, lt, lte, neq, like, ilike. Empty in-lists are
// omitted. The set must already be normalized.
func Branch(s cond.Set) Group {
	var g Group
	for _, p := range s.Where {
		if p.Value == nil {
			g = append(g, Clause{Field: p.Key, Op: cond.OpIs})
			continue
		}
		g = append(g, Clause{Field: p.Key, Op: cond.OpEq, Value: p.Value})
	}
	for _, p := range s.Is {
		g = append(g, Clause{Field: p.Key, Op: cond.OpIs, Value: p.Value})
	}
	for _, p := range s.WhereIn {
		values := cond.AsList(p.Value)
		if len(values) == 0 {
			continue
		}
		g = append(g, Clause{Field: p.Key, Op: cond.OpIn, Value: values})
	}
	for _, op := range []cond.Op{cond.OpGt, cond.OpGte, cond.OpLt, cond.OpLte} {
		for _, p := range s.Slot(op) {
			g = append(g, Clause{Field: p.Key, Op: op, Value: p.Value})
		}
	}
	for _, p := range s.Neq {
		if p.Value == nil {
			g = append(g, Clause{Field: p.Key, Op: cond.OpIs, Not: true})
			continue
		}
		g = append(g, Clause{Field: p.Key, Op: cond.OpNeq, Value: p.Value})
	}
	for _, op := range cond.Patterns {
		for _, p := range s.Slot(op) {
			g = append(g, Clause{Field: p.Key, Op: op, Value: p.Value})
		}
	}
	return g
}
