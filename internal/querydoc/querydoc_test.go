package querydoc

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/cond"
	"github.com/roach88/tabula/datasource/memsource"
	"github.com/roach88/tabula/datasource/recorder"
	"github.com/roach88/tabula/internal/testutil"
	"github.com/roach88/tabula/query"
)

var quiet = query.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

const adminsOrModerators = `
table: users
soft_delete_column: deleted
where:
  tenant_id: t1
  role: admin
or:
  - where:
      tenant_id: t1
      role: moderator
order:
  field: name
  ascending: true
limit: 10
offset: 20
`

func TestParse(t *testing.T) {
	doc, err := Parse("admins.yaml", []byte(adminsOrModerators))
	require.NoError(t, err)

	assert.Equal(t, "users", doc.Table)
	assert.Equal(t, "deleted", doc.SoftDeleteColumn)
	assert.True(t, doc.SoftDelete.IsAbsent())
	require.Len(t, doc.Branches, 2)
	assert.Equal(t, []string{"tenant_id", "role"}, doc.Branches[0].Where.Keys())
	assert.Equal(t, 10, doc.Limit.OrElse(0))
	assert.Equal(t, 20, doc.Offset.OrElse(0))
	o, ok := doc.Order.Get()
	require.True(t, ok)
	assert.Equal(t, "name", o.Field)
	assert.True(t, o.Ascending)
}

func TestDocumentCompiles(t *testing.T) {
	doc, err := Parse("admins.yaml", []byte(adminsOrModerators))
	require.NoError(t, err)

	rec := recorder.New()
	_, err = doc.Query(rec, quiet).Many(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		`select("*")`,
		`is("deleted", null)`,
		`eq("tenant_id", "t1")`,
		`or("role.eq.\"admin\",role.eq.\"moderator\"")`,
		`order("name", {ascending: true, nullsFirst: false})`,
		`limit(10)`,
		`range(20, 29)`,
	}, rec.Calls())
}

func TestEveryOperatorSlot(t *testing.T) {
	src := `
table: users
where:
  age: {gte: 18, lt: 65}
  tier: {in: [gold, silver]}
  deleted: null
is: {verified: true}
wherein: {role: [admin, member]}
gt: {score: 1}
neq: {status: draft}
like: {name: "A%"}
ilike: {email: "%@x.io"}
`
	doc, err := Parse("all.yaml", []byte(src))
	require.NoError(t, err)

	rec := recorder.New()
	_, err = doc.Query(rec, quiet).Many(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		`select("*")`,
		`match({"deleted":null})`,
		`in("tier", ["gold","silver"])`,
		`in("role", ["admin","member"])`,
		`is("verified", true)`,
		`gt("score", 1)`,
		`gte("age", 18)`,
		`lt("age", 65)`,
		`neq("status", "draft")`,
		`like("name", "A%")`,
		`ilike("email", "%@x.io")`,
	}, rec.Calls())
}

func TestSoftDeleteModes(t *testing.T) {
	ctx := context.Background()
	src := memsource.New().Seed("users", testutil.Users()...)

	tests := []struct {
		yaml string
		want int
	}{
		{"table: users\n", 4},
		{"table: users\nsoft_delete: exclude\n", 3},
		{"table: users\nsoft_delete: only\n", 1},
		{"table: users\nsoft_delete_column: deleted\n", 3},
		{"table: users\nsoft_delete_column: deleted\nsoft_delete: include\n", 4},
	}

	for _, tt := range tests {
		t.Run(tt.yaml, func(t *testing.T) {
			doc, err := Parse("sd.yaml", []byte(tt.yaml))
			require.NoError(t, err)

			rows, err := doc.Query(src, quiet).Many(ctx)
			require.NoError(t, err)
			assert.Len(t, rows, tt.want)
		})
	}
}

func TestConfiguredSoftDeleteColumn(t *testing.T) {
	doc, err := Parse("q.yaml", []byte("table: users\nsoft_delete: only\n"))
	require.NoError(t, err)

	rec := recorder.New()
	_, err = doc.Query(rec, quiet, query.WithSoftDelete("removed_at")).Many(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{`select("*")`, `not("removed_at", "is", null)`}, rec.Calls())
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing table", "where: {role: admin}\n"},
		{"unknown field", "table: users\ncolumns: [id]\n"},
		{"bad soft delete", "table: users\nsoft_delete: sometimes\n"},
		{"negative limit", "table: users\nlimit: -1\n"},
		{"unknown operator", "table: users\nwhere:\n  age: {between: [1, 2]}\n"},
		{"is not boolean", "table: users\nis: {verified: maybe}\n"},
		{"wherein not a list", "table: users\nwherein: {role: admin}\n"},
		{"order without field", "table: users\norder: {ascending: true}\n"},
		{"bad table name", "table: \"users; drop\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate("bad.yaml", []byte(tt.yaml))
			require.Error(t, err)

			_, err = Parse("bad.yaml", []byte(tt.yaml))
			var docErr *Error
			assert.ErrorAs(t, err, &docErr)
		})
	}
}

func TestValidateReportsPosition(t *testing.T) {
	err := Validate("pos.yaml", []byte("table: users\nlimit: many\n"))

	var docErr *Error
	require.ErrorAs(t, err, &docErr)
	assert.Contains(t, err.Error(), "limit")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.yaml")
	require.NoError(t, os.WriteFile(path, []byte(adminsOrModerators), 0o644))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "users", doc.Table)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDecodeKeepsOrder(t *testing.T) {
	doc, err := Parse("order.yaml", []byte("table: t\nwhere: {z: 1, a: 2, m: 3}\n"))
	require.NoError(t, err)

	assert.Equal(t, cond.Fields{cond.P("z", 1), cond.P("a", 2), cond.P("m", 3)}, doc.Branches[0].Where)
}
