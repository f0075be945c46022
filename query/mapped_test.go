package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/datasource"
	"github.com/roach88/tabula/datasource/recorder"
)

func TestMapComposesInOrder(t *testing.T) {
	var trace []string
	upper := func(u user) string {
		trace = append(trace, "upper:"+u.Name)
		return strings.ToUpper(u.Name)
	}
	exclaim := func(s string) string {
		trace = append(trace, "exclaim:"+s)
		return s + "!"
	}

	m := MapThen(Map(users(memUsers()).WhereID("u1"), upper), exclaim)
	got, err := m.Many(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"ADA!"}, got)
	assert.Equal(t, []string{"upper:Ada", "exclaim:ADA"}, trace)
}

func TestMappedFilterSeesMappedValue(t *testing.T) {
	ctx := context.Background()
	ages := Map(users(memUsers()).Order("age", datasource.OrderOptions{Ascending: true}), func(u user) int { return u.Age })

	adults, err := ages.Filter(func(age int) bool { return age >= 18 }).Many(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{29, 36}, adults)

	first, err := ages.Filter(func(age int) bool { return age > 30 }).First(ctx)
	require.NoError(t, err)
	assert.Equal(t, 36, first.OrElse(0))

	all, err := ages.Many(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{17, 29, 36}, all, "filtering returns a new view")
}

func TestMappedFilterStacksWithSourceFilter(t *testing.T) {
	q := users(memUsers()).Filter(func(u user) bool { return u.TenantID == "t1" })
	m := Map(q, func(u user) string { return u.Role }).Filter(func(role string) bool { return role != "admin" })

	got, err := m.Many(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"moderator"}, got)
	assert.True(t, m.Source().Config().Filtered)
}

func TestMappedOne(t *testing.T) {
	ctx := context.Background()
	m := Map(users(memUsers()).WhereID("u2"), func(u user) string { return u.Role })

	role, err := m.RequireOne(ctx)
	require.NoError(t, err)
	assert.Equal(t, "moderator", role)

	none, err := Map(users(memUsers()).WhereID("missing"), func(u user) string { return u.Role }).One(ctx)
	require.NoError(t, err)
	assert.True(t, none.IsAbsent())
}

func TestMappedRequireNotFound(t *testing.T) {
	ctx := context.Background()
	m := Map(users(memUsers()).WhereID("missing"), func(u user) string { return u.Name })

	_, err := m.RequireOne(ctx)
	assert.True(t, IsNotFound(err))

	_, err = m.RequireFirst(ctx)
	assert.True(t, IsNotFound(err))

	names, err := m.RequireMany(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestMappedPropagatesErrors(t *testing.T) {
	called := false
	m := Map(users(recorder.New().Errors(errors.New("dial tcp: refused"))), func(u user) string {
		called = true
		return u.Name
	})

	_, err := m.Many(context.Background())
	assert.True(t, IsUnexpectedError(err))
	assert.False(t, called)
}
