package cond

import "reflect"

// Set is one OR branch: a conjunction of predicates.
//
// Where values are literals, nil (IS NULL) or embedded Ops. Is values are nil
// or bool. WhereIn values are slices of candidates.
type Set struct {
	Where   Fields
	Is      Fields
	WhereIn Fields
	Gt      Fields
	Gte     Fields
	Lt      Fields
	Lte     Fields
	Neq     Fields
	Like    Fields
	ILike   Fields
}

// Where is shorthand for a Set with only equality entries.
func Where(pairs ...Pair) Set {
	return Set{Where: Fields(pairs)}
}

// Slot returns the operator map for op. OpEq maps to Where.
func (s Set) Slot(op Op) Fields {
	switch op {
	case OpEq:
		return s.Where
	case OpIs:
		return s.Is
	case OpIn:
		return s.WhereIn
	case OpGt:
		return s.Gt
	case OpGte:
		return s.Gte
	case OpLt:
		return s.Lt
	case OpLte:
		return s.Lte
	case OpNeq:
		return s.Neq
	case OpLike:
		return s.Like
	case OpILike:
		return s.ILike
	}
	return nil
}

func (s *Set) setSlot(op Op, f Fields) {
	switch op {
	case OpEq:
		s.Where = f
	case OpIs:
		s.Is = f
	case OpIn:
		s.WhereIn = f
	case OpGt:
		s.Gt = f
	case OpGte:
		s.Gte = f
	case OpLt:
		s.Lt = f
	case OpLte:
		s.Lte = f
	case OpNeq:
		s.Neq = f
	case OpLike:
		s.Like = f
	case OpILike:
		s.ILike = f
	}
}

// Normalize extracts operator objects embedded in Where into the top-level
// operator maps. Embedded in feeds WhereIn, embedded is feeds Is, embedded eq
// stays an equality. Top-level entries win over embedded ones for the same
// field. The receiver is not modified.
func (s Set) Normalize() Set {
	embedded := make(map[Op]Fields)
	var where Fields
	for _, p := range s.Where {
		ops, ok := p.Value.(Ops)
		if !ok {
			where = append(where, p)
			continue
		}
		for _, op := range embeddedOrder {
			v, ok := ops[op]
			if !ok {
				continue
			}
			if op == OpEq {
				where = append(where, Pair{Key: p.Key, Value: v})
				continue
			}
			embedded[op] = embedded[op].Set(p.Key, v)
		}
	}

	out := Set{Where: where}
	for _, op := range embeddedOrder[1:] {
		out.setSlot(op, embedded[op].Merge(s.Slot(op)))
	}
	return out
}

// HasOperators reports whether any slot other than Where is populated.
func (s Set) HasOperators() bool {
	for _, op := range embeddedOrder[1:] {
		if len(s.Slot(op)) > 0 {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the set constrains nothing.
func (s Set) IsEmpty() bool {
	return len(s.Where) == 0 && !s.HasOperators()
}

// And returns s with every slot of other merged in; other wins on collisions.
func (s Set) And(other Set) Set {
	out := Set{}
	for _, op := range embeddedOrder {
		out.setSlot(op, s.Slot(op).Merge(other.Slot(op)))
	}
	return out
}

// Clone returns a copy of s that shares no slot storage with it.
func (s Set) Clone() Set {
	out := Set{}
	for _, op := range embeddedOrder {
		out.setSlot(op, s.Slot(op).Clone())
	}
	return out
}

// List is an ordered, non-empty sequence of Sets. One element is a plain
// conjunction; more are OR'd.
type List []Set

// NewList builds a List.
func NewList(first Set, rest ...Set) List {
	l := make(List, 0, 1+len(rest))
	l = append(l, first)
	return append(l, rest...)
}

// Append returns a list with s added. The receiver's backing array is never
// written to, so lists derived from the same parent stay independent.
func (l List) Append(s Set) List {
	return append(l[:len(l):len(l)], s)
}

// Map returns a new list with fn applied to every branch.
func (l List) Map(fn func(Set) Set) List {
	out := make(List, len(l))
	for i, s := range l {
		out[i] = fn(s)
	}
	return out
}

// Clone returns a deep copy of l.
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	return l.Map(Set.Clone)
}

// AsList converts a slice of any element type to []any. A non-slice value is
// returned as a one-element list.
func AsList(v any) []any {
	switch vs := v.(type) {
	case nil:
		return nil
	case []any:
		return vs
	case []string:
		out := make([]any, len(vs))
		for i, s := range vs {
			out[i] = s
		}
		return out
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
