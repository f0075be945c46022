package memsource

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/tabula/cond"
	"github.com/roach88/tabula/datasource"
	"github.com/roach88/tabula/filterexpr"
)

// predicate reports whether a row satisfies a request's filters.
type predicate func(datasource.Row) bool

// compile builds the row predicate for req: every filter and every Or
// disjunction must hold.
func compile(req *datasource.Request) (predicate, error) {
	ors, err := req.Groups()
	if err != nil {
		return nil, err
	}
	filters := req.Filters
	return func(row datasource.Row) bool {
		for _, c := range filters {
			if !matchClause(row, c) {
				return false
			}
		}
		for _, groups := range ors {
			if !matchAny(row, groups) {
				return false
			}
		}
		return true
	}, nil
}

func matchAny(row datasource.Row, groups []filterexpr.Group) bool {
	for _, g := range groups {
		all := true
		for _, c := range g {
			if !matchClause(row, c) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// matchClause evaluates one clause with SQL null semantics: any comparison
// against a NULL column is unknown and filters the row out, negated or not.
func matchClause(row datasource.Row, c filterexpr.Clause) bool {
	v := row[c.Field]
	if c.Op == cond.OpIs {
		ok := isMatch(v, c.Value)
		return ok != c.Not
	}
	if v == nil {
		return false
	}
	ok := evaluate(v, c)
	return ok != c.Not
}

func isMatch(v, want any) bool {
	if want == nil {
		return v == nil
	}
	b, ok := want.(bool)
	if !ok {
		return false
	}
	got, ok := asBool(v)
	return ok && got == b
}

func evaluate(v any, c filterexpr.Clause) bool {
	switch c.Op {
	case cond.OpEq:
		return looseEqual(v, c.Value)
	case cond.OpNeq:
		return !looseEqual(v, c.Value)
	case cond.OpGt, cond.OpGte, cond.OpLt, cond.OpLte:
		n, ok := cond.Compare(v, c.Value)
		if !ok {
			return false
		}
		switch c.Op {
		case cond.OpGt:
			return n > 0
		case cond.OpGte:
			return n >= 0
		case cond.OpLt:
			return n < 0
		default:
			return n <= 0
		}
	case cond.OpIn:
		for _, candidate := range cond.AsList(c.Value) {
			if looseEqual(v, candidate) {
				return true
			}
		}
		return false
	case cond.OpLike:
		return like(cond.Format(v), cond.Format(c.Value), false)
	case cond.OpILike:
		return like(cond.Format(v), cond.Format(c.Value), true)
	}
	return false
}

// looseEqual compares the way the backend does after casting the literal to
// the column type.
func looseEqual(a, b any) bool {
	if cond.Equal(a, b) {
		return true
	}
	if n, ok := cond.Compare(a, b); ok {
		return n == 0
	}
	if x, ok := asBool(a); ok {
		y, ok := asBool(b)
		return ok && x == y
	}
	return false
}

func asBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		b, err := strconv.ParseBool(x)
		return b, err == nil
	}
	return false, false
}

// like matches s against a SQL LIKE pattern: % is any run, _ any single
// character. Folding uses Unicode case folding.
func like(s, pattern string, fold bool) bool {
	if fold {
		caser := cases.Fold()
		s = caser.String(s)
		pattern = caser.String(pattern)
	}
	var sb strings.Builder
	sb.WriteString(`(?s)^`)
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteByte('.')
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteByte('$')
	re, err := regexp.Compile(sb.String())
	if err != nil {
		return false
	}
	return re.MatchString(s)
}
