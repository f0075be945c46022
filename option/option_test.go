package option

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOption(t *testing.T) {
	some := Some(3)
	v, ok := some.Get()
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	assert.True(t, some.IsPresent())
	assert.False(t, some.IsAbsent())
	assert.Equal(t, 3, some.OrElse(9))

	none := None[int]()
	_, ok = none.Get()
	assert.False(t, ok)
	assert.True(t, none.IsAbsent())
	assert.Equal(t, 9, none.OrElse(9))

	var zero Option[string]
	assert.True(t, zero.IsAbsent())
}

func TestFilter(t *testing.T) {
	even := func(n int) bool { return n%2 == 0 }

	assert.Equal(t, Some(2), Filter(Some(2), even))
	assert.True(t, Filter(Some(3), even).IsAbsent())
	assert.True(t, Filter(None[int](), even).IsAbsent())
}

func TestMap(t *testing.T) {
	got := Map(Some(42), strconv.Itoa)
	assert.Equal(t, Some("42"), got)

	assert.True(t, Map(None[int](), strconv.Itoa).IsAbsent())
}

func TestFromSlice(t *testing.T) {
	assert.Equal(t, Some("a"), FromSlice([]string{"a", "b"}))
	assert.True(t, FromSlice[string](nil).IsAbsent())
	assert.Equal(t, Some(0), FromSlice([]int{0}))
}

func TestJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Limit Option[int] `json:"limit"`
	}{Limit: Some(5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"limit":5}`, string(data))
}
