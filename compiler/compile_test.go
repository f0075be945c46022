package compiler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/roach88/tabula/cond"
	"github.com/roach88/tabula/datasource"
	"github.com/roach88/tabula/datasource/mocks"
	"github.com/roach88/tabula/datasource/recorder"
	"github.com/roach88/tabula/internal/testutil"
)

// compileCalls compiles against a recording builder and returns the calls
// made after from() and select().
func compileCalls(list cond.List, sd *cond.SoftDelete) []datasource.Call {
	b := datasource.NewRequestBuilder("users", nil)
	Compile(b.Select("*"), list, sd)
	return b.Request().Calls[2:]
}

func lines(list cond.List, sd *cond.SoftDelete) []string {
	return recorder.Lines(compileCalls(list, sd))
}

func fullSet() cond.Set {
	// Slots are listed out of compilation order on purpose.
	return cond.Set{
		ILike:   cond.Fields{cond.P("email", "%@x.io")},
		Like:    cond.Fields{cond.P("name", "A%")},
		Neq:     cond.Fields{cond.P("status", "draft")},
		Lte:     cond.Fields{cond.P("d", 4)},
		Lt:      cond.Fields{cond.P("c", 3)},
		Gte:     cond.Fields{cond.P("b", 2)},
		Gt:      cond.Fields{cond.P("a", 1)},
		Is:      cond.Fields{cond.P("verified", true)},
		WhereIn: cond.Fields{cond.P("tier", []string{"gold", "silver"})},
		Where:   cond.Fields{cond.P("role", "admin")},
	}
}

func TestSingleBranchCallOrder(t *testing.T) {
	got := lines(cond.NewList(fullSet()), cond.TableDefault(""))

	assert.Equal(t, []string{
		`is("deleted", null)`,
		`match({"role":"admin"})`,
		`in("tier", ["gold","silver"])`,
		`is("verified", true)`,
		`gt("a", 1)`,
		`gte("b", 2)`,
		`lt("c", 3)`,
		`lte("d", 4)`,
		`neq("status", "draft")`,
		`like("name", "A%")`,
		`ilike("email", "%@x.io")`,
	}, got)
}

func TestSingleBranchCallOrderGolden(t *testing.T) {
	testutil.AssertCallsGolden(t, "single_branch", compileCalls(cond.NewList(fullSet()), cond.TableDefault("")))
}

func TestSingleBranchCallOrderWithMock(t *testing.T) {
	b := new(mocks.MockBuilder)
	mock.InOrder(
		b.On("Is", "deleted", nil).Return(b).Once(),
		b.On("Match", datasource.Row{"role": "admin"}).Return(b).Once(),
		b.On("In", "tier", []any{"gold", "silver"}).Return(b).Once(),
		b.On("Is", "verified", true).Return(b).Once(),
		b.On("Gt", "a", 1).Return(b).Once(),
		b.On("Gte", "b", 2).Return(b).Once(),
		b.On("Lt", "c", 3).Return(b).Once(),
		b.On("Lte", "d", 4).Return(b).Once(),
		b.On("Neq", "status", "draft").Return(b).Once(),
		b.On("Like", "name", "A%").Return(b).Once(),
		b.On("ILike", "email", "%@x.io").Return(b).Once(),
	)

	Compile(b, cond.NewList(fullSet()), cond.TableDefault(""))

	b.AssertExpectations(t)
	b.AssertNotCalled(t, "Or", mock.Anything)
}

func TestSingleBranchSkipsEmptyMatch(t *testing.T) {
	got := lines(cond.NewList(cond.Set{Is: cond.Fields{cond.P("verified", false)}}), nil)
	assert.Equal(t, []string{`is("verified", false)`}, got)

	assert.Empty(t, lines(cond.NewList(cond.Set{}), nil))
}

func TestSingleBranchEmbeddedOperators(t *testing.T) {
	list := cond.NewList(cond.Where(
		cond.P("role", "admin"),
		cond.P("age", cond.Ops{cond.OpGte: 18, cond.OpLt: 65}),
		cond.P("tier", cond.In("gold")),
	))

	assert.Equal(t, []string{
		`match({"role":"admin"})`,
		`in("tier", ["gold"])`,
		`gte("age", 18)`,
		`lt("age", 65)`,
	}, lines(list, nil))
}

func TestSoftDeleteModes(t *testing.T) {
	list := cond.NewList(cond.Where(cond.P("id", "u1")))

	tests := []struct {
		name string
		sd   *cond.SoftDelete
		want []string
	}{
		{"no policy", nil, []string{`match({"id":"u1"})`}},
		{"exclude", cond.TableDefault(""), []string{`is("deleted", null)`, `match({"id":"u1"})`}},
		{"only", cond.TableDefault("").Explicit(cond.Only), []string{`not("deleted", "is", null)`, `match({"id":"u1"})`}},
		{"include", cond.TableDefault("").Explicit(cond.Include), []string{`match({"id":"u1"})`}},
		{"custom column", cond.TableDefault("archived_at"), []string{`is("archived_at", null)`, `match({"id":"u1"})`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lines(list, tt.sd))
		})
	}
}

func TestMultiBranchAllIdenticalIsDegenerate(t *testing.T) {
	list := cond.NewList(
		cond.Where(cond.P("role", "admin"), cond.P("tenant_id", "t1")),
		cond.Where(cond.P("role", "admin"), cond.P("tenant_id", "t1")),
		cond.Where(cond.P("tenant_id", "t1"), cond.P("role", "admin")),
	)

	got := lines(list, nil)

	assert.Equal(t, []string{`eq("role", "admin")`, `eq("tenant_id", "t1")`}, got)
}

func TestMultiBranchNullCommonKeyUsesIs(t *testing.T) {
	list := cond.NewList(
		cond.Where(cond.P("manager_id", nil), cond.P("role", "admin")),
		cond.Where(cond.P("manager_id", nil), cond.P("role", "owner")),
	)

	assert.Equal(t, []string{
		`is("manager_id", null)`,
		`or("role.eq.\"admin\",role.eq.\"owner\"")`,
	}, lines(list, nil))
}

func TestUsersAdminOrModerator(t *testing.T) {
	list := cond.NewList(
		cond.Where(cond.P("role", "admin")),
		cond.Where(cond.P("role", "moderator")),
	)

	calls := compileCalls(list, cond.TableDefault(""))

	assert.Equal(t, []string{
		`is("deleted", null)`,
		`or("role.eq.\"admin\",role.eq.\"moderator\"")`,
	}, recorder.Lines(calls))
	testutil.AssertCallsGolden(t, "users_admin_or_moderator", calls)
}

func TestTenantStatusHoisting(t *testing.T) {
	list := cond.NewList(
		cond.Where(cond.P("tenant_id", "t1"), cond.P("status", "draft")),
		cond.Where(cond.P("tenant_id", "t1"), cond.P("status", "published")),
	)

	calls := compileCalls(list, nil)

	assert.Equal(t, []string{
		`eq("tenant_id", "t1")`,
		`or("status.eq.\"draft\",status.eq.\"published\"")`,
	}, recorder.Lines(calls))
	testutil.AssertCallsGolden(t, "tenant_status_hoisting", calls)
}

func TestMultiClauseBranch(t *testing.T) {
	list := cond.NewList(
		cond.Set{Where: cond.Fields{cond.P("role", "admin")}, Gte: cond.Fields{cond.P("age", 18)}},
		cond.Where(cond.P("role", "moderator")),
	)

	calls := compileCalls(list, cond.TableDefault(""))

	assert.Equal(t, []string{
		`is("deleted", null)`,
		`or("and(role.eq.\"admin\",age.gte.18),role.eq.\"moderator\"")`,
	}, recorder.Lines(calls))
	testutil.AssertCallsGolden(t, "multi_clause_branch", calls)
}

func TestMultiBranchNaNIsNeverHoisted(t *testing.T) {
	list := cond.NewList(
		cond.Where(cond.P("role", "a"), cond.P("score", math.NaN())),
		cond.Where(cond.P("role", "a"), cond.P("score", math.NaN())),
	)

	var got []string
	assert.NotPanics(t, func() { got = lines(list, nil) })
	assert.Equal(t, []string{
		`eq("role", "a")`,
		`or("score.eq.\"NaN\",score.eq.\"NaN\"")`,
	}, got)
}

func TestMultiBranchOperatorsAreNotHoisted(t *testing.T) {
	list := cond.NewList(
		cond.Set{Where: cond.Fields{cond.P("role", "a")}, Is: cond.Fields{cond.P("verified", true)}},
		cond.Set{Where: cond.Fields{cond.P("role", "b")}, Is: cond.Fields{cond.P("verified", true)}},
	)

	assert.Equal(t, []string{
		`or("and(role.eq.\"a\",verified.is.true),and(role.eq.\"b\",verified.is.true)")`,
	}, lines(list, nil))
}

func TestMultiBranchIdenticalWhereWithOperatorsStillOrs(t *testing.T) {
	list := cond.NewList(
		cond.Set{Where: cond.Fields{cond.P("role", "a")}, Gt: cond.Fields{cond.P("age", 18)}},
		cond.Set{Where: cond.Fields{cond.P("role", "a")}},
	)

	assert.Equal(t, []string{
		`eq("role", "a")`,
		`or("age.gt.18")`,
	}, lines(list, nil))
}

func TestMultiBranchEmbeddedOperators(t *testing.T) {
	list := cond.NewList(
		cond.Where(cond.P("role", "admin"), cond.P("age", cond.Gte(18))),
		cond.Where(cond.P("role", "admin"), cond.P("vip", true)),
	)

	assert.Equal(t, []string{
		`eq("role", "admin")`,
		`or("age.gte.18,vip.eq.\"true\"")`,
	}, lines(list, nil))
}

func TestMultiBranchFullFragment(t *testing.T) {
	list := cond.NewList(
		cond.Where(cond.P("kind", "x")),
		cond.Set{
			WhereIn: cond.Fields{cond.P("tier", []string{"gold"}), cond.P("none", []string{})},
			Neq:     cond.Fields{cond.P("owner", nil)},
			ILike:   cond.Fields{cond.P("email", "%@x.io")},
		},
	)

	assert.Equal(t, []string{
		`or("kind.eq.\"x\",and(tier.in.(\"gold\"),owner.not.is.null,email.ilike.\"%@x.io\")")`,
	}, lines(list, nil))
}

func TestMultiBranchDropsEmptyFragments(t *testing.T) {
	list := cond.NewList(
		cond.Where(cond.P("a", 1), cond.P("b", 2)),
		cond.Where(cond.P("a", 1)),
	)

	assert.Equal(t, []string{`eq("a", 1)`, `or("b.eq.\"2\"")`}, lines(list, nil))
}

func TestMultiBranchOnlyEmptyInListsSkipsOr(t *testing.T) {
	list := cond.NewList(
		cond.Set{WhereIn: cond.Fields{cond.P("x", []any{})}},
		cond.Set{WhereIn: cond.Fields{cond.P("x", []any{})}},
	)

	assert.Empty(t, lines(list, nil))
}

func TestMultiBranchSoftDeleteComesFirst(t *testing.T) {
	list := cond.NewList(
		cond.Where(cond.P("tenant_id", "t1"), cond.P("status", "draft")),
		cond.Where(cond.P("tenant_id", "t1"), cond.P("status", "published")),
	)

	got := lines(list, cond.TableDefault("").Explicit(cond.Only))

	assert.Equal(t, `not("deleted", "is", null)`, got[0])
	assert.Equal(t, `eq("tenant_id", "t1")`, got[1])
}

func TestCommonWhere(t *testing.T) {
	list := cond.NewList(
		cond.Where(cond.P("a", 1), cond.P("b", "x"), cond.P("c", []string{"p", "q"})),
		cond.Where(cond.P("c", []any{"p", "q"}), cond.P("a", int64(1)), cond.P("b", "y")),
	)

	assert.Equal(t, cond.Fields{cond.P("a", 1), cond.P("c", []string{"p", "q"})}, CommonWhere(list))
	assert.Nil(t, CommonWhere(nil))
}

func TestCompileDoesNotMutateInput(t *testing.T) {
	where := cond.Fields{cond.P("tenant_id", "t1"), cond.P("age", cond.Gte(18))}
	list := cond.NewList(cond.Set{Where: where}, cond.Where(cond.P("tenant_id", "t1")))

	_ = lines(list, nil)

	assert.Equal(t, cond.Fields{cond.P("tenant_id", "t1"), cond.P("age", cond.Gte(18))}, list[0].Where)
	assert.Len(t, list[1].Where, 1)
}

func TestApplySetForMutations(t *testing.T) {
	b := datasource.NewRequestBuilder("users", nil)
	ApplySet(b.Update(datasource.Row{"name": "x"}), cond.Set{
		Where: cond.Fields{cond.P("id", "u1")},
		Is:    cond.Fields{cond.P("deleted", nil)},
	})

	assert.Equal(t, []string{
		`update({"name":"x"})`,
		`match({"id":"u1"})`,
		`is("deleted", null)`,
	}, recorder.Lines(b.Request().Calls[1:]))
}
