package compiler

import (
	"github.com/roach88/tabula/cond"
	"github.com/roach88/tabula/datasource"
	"github.com/roach88/tabula/filterexpr"
)

// Compile applies list and sd to b and returns the builder without
// executing it. b must already be selected and targeted at a table.
//
// Call order for a single branch: soft-delete, match, in, is, gt, gte, lt,
// lte, neq, like, ilike. For several branches: soft-delete, hoisted common
// equalities, then one or() over the remaining per-branch conditions.
func Compile(b datasource.Builder, list cond.List, sd *cond.SoftDelete) datasource.Builder {
	b = ApplySoftDelete(b, sd)
	switch len(list) {
	case 0:
		return b
	case 1:
		return ApplySet(b, list[0].Normalize())
	}
	return applyBranches(b, list.Map(cond.Set.Normalize))
}

// ApplySoftDelete adds the marker-column constraint for sd, if any.
func ApplySoftDelete(b datasource.Builder, sd *cond.SoftDelete) datasource.Builder {
	if sd == nil {
		return b
	}
	column := sd.Column
	if column == "" {
		column = cond.DefaultDeletedColumn
	}
	switch sd.Mode {
	case cond.Exclude:
		return b.Is(column, nil)
	case cond.Only:
		return b.Not(column, cond.OpIs, nil)
	}
	return b
}

// ApplySet adds the filters of one normalized condition set. Mutation
// builders use it directly for their targeting filters.
func ApplySet(b datasource.Builder, s cond.Set) datasource.Builder {
	if len(s.Where) > 0 {
		b = b.Match(datasource.Row(s.Where.Map()))
	}
	for _, p := range s.WhereIn {
		b = b.In(p.Key, cond.AsList(p.Value))
	}
	for _, p := range s.Is {
		b = b.Is(p.Key, p.Value)
	}
	for _, p := range s.Gt {
		b = b.Gt(p.Key, p.Value)
	}
	for _, p := range s.Gte {
		b = b.Gte(p.Key, p.Value)
	}
	for _, p := range s.Lt {
		b = b.Lt(p.Key, p.Value)
	}
	for _, p := range s.Lte {
		b = b.Lte(p.Key, p.Value)
	}
	for _, p := range s.Neq {
		b = b.Neq(p.Key, p.Value)
	}
	for _, p := range s.Like {
		b = b.Like(p.Key, cond.Format(p.Value))
	}
	for _, p := range s.ILike {
		b = b.ILike(p.Key, cond.Format(p.Value))
	}
	return b
}

func applyBranches(b datasource.Builder, branches cond.List) datasource.Builder {
	common := CommonWhere(branches)
	for _, p := range common {
		if p.Value == nil {
			b = b.Is(p.Key, nil)
			continue
		}
		b = b.Eq(p.Key, p.Value)
	}

	varying := make(cond.List, len(branches))
	for i, s := range branches {
		for _, p := range common {
			s.Where = s.Where.Delete(p.Key)
		}
		varying[i] = s
	}

	if degenerate(varying) {
		return b
	}

	groups := make([]filterexpr.Group, 0, len(varying))
	for _, s := range varying {
		if g := filterexpr.Branch(s); len(g) > 0 {
			groups = append(groups, g)
		}
	}
	if len(groups) == 0 {
		return b
	}
	return b.Or(filterexpr.Join(groups))
}

// CommonWhere returns the Where entries of the first branch that every
// other branch repeats with an equal value, in first-branch order. Only
// Where equalities are candidates.
func CommonWhere(branches cond.List) cond.Fields {
	if len(branches) == 0 {
		return nil
	}
	var common cond.Fields
	for _, p := range branches[0].Where {
		shared := true
		for _, other := range branches[1:] {
			v, ok := other.Where.Get(p.Key)
			if !ok || !cond.Equal(p.Value, v) {
				shared = false
				break
			}
		}
		if shared {
			common = append(common, p)
		}
	}
	return common
}

func degenerate(varying cond.List) bool {
	for _, s := range varying {
		if !s.IsEmpty() {
			return false
		}
	}
	return true
}
