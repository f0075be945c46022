package cond

// Op names a backend filter operator.
type Op string

const (
	OpEq    Op = "eq"
	OpNeq   Op = "neq"
	OpGt    Op = "gt"
	OpGte   Op = "gte"
	OpLt    Op = "lt"
	OpLte   Op = "lte"
	OpLike  Op = "like"
	OpILike Op = "ilike"
	OpIn    Op = "in"
	OpIs    Op = "is"
)

// Comparisons lists the comparison operators in compilation order.
var Comparisons = []Op{OpGt, OpGte, OpLt, OpLte, OpNeq}

// Patterns lists the pattern operators in compilation order.
var Patterns = []Op{OpLike, OpILike}

// embeddedOrder is the order embedded operators are extracted in.
var embeddedOrder = []Op{OpEq, OpIn, OpIs, OpGt, OpGte, OpLt, OpLte, OpNeq, OpLike, OpILike}

// ParseOp returns the operator named s.
func ParseOp(s string) (Op, bool) {
	for _, op := range embeddedOrder {
		if string(op) == s {
			return op, true
		}
	}
	return "", false
}

// Ops is an operator object embedded in a Where entry, for example
// cond.P("age", cond.Ops{cond.OpGte: 18, cond.OpLt: 65}).
type Ops map[Op]any

func Eq(v any) Ops       { return Ops{OpEq: v} }
func Neq(v any) Ops      { return Ops{OpNeq: v} }
func Gt(v any) Ops       { return Ops{OpGt: v} }
func Gte(v any) Ops      { return Ops{OpGte: v} }
func Lt(v any) Ops       { return Ops{OpLt: v} }
func Lte(v any) Ops      { return Ops{OpLte: v} }
func Like(p string) Ops  { return Ops{OpLike: p} }
func ILike(p string) Ops { return Ops{OpILike: p} }
func In(vs ...any) Ops   { return Ops{OpIn: vs} }

// Is builds an IS test; v must be nil or a bool.
func Is(v any) Ops { return Ops{OpIs: v} }

// And merges operator objects; later entries win.
func (o Ops) And(other Ops) Ops {
	out := make(Ops, len(o)+len(other))
	for k, v := range o {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}
