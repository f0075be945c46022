package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/datasource/sqlsource"
	"github.com/roach88/tabula/internal/testutil"
)

const usersSchema = `
CREATE TABLE users (
	id TEXT PRIMARY KEY,
	name TEXT,
	email TEXT,
	role TEXT,
	age INTEGER,
	tenant_id TEXT,
	verified BOOLEAN,
	deleted TIMESTAMP
);
`

// seedDB creates a SQLite file holding the users fixture.
func seedDB(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "app.db")
	src, err := sqlsource.Open("sqlite3", path)
	require.NoError(t, err)
	defer src.Close()

	_, err = src.DB().Exec(usersSchema)
	require.NoError(t, err)

	resp, err := src.From("users").Insert(testutil.Users()).Execute(context.Background())
	require.NoError(t, err)
	require.NoError(t, resp.Error)
	return path
}

type runResponse struct {
	Status string `json:"status"`
	Data   struct {
		Table string           `json:"table"`
		Rows  []map[string]any `json:"rows"`
	} `json:"data"`
}

func rowNames(rows []map[string]any) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i], _ = row["name"].(string)
	}
	return out
}

func TestRunText(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, "run", "--dsn", db, "testdata/queries/adults.yaml")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, []string{"age", "deleted", "email", "id", "name", "role", "tenant_id", "verified"}, strings.Fields(lines[0]))
	assert.Contains(t, lines[1], "Brian")
	assert.Contains(t, lines[2], "Ada")
	assert.Contains(t, lines[3], "Dana")
	assert.Contains(t, lines[3], "2024-05-01T12:00:00Z")
	assert.Equal(t, "(3 rows)", lines[4])
}

func TestRunJSONWithConfig(t *testing.T) {
	db := seedDB(t)
	cfg := writeFile(t, "tabula.yaml", `
database:
  driver: sqlite3
  dsn: `+db+`
output:
  format: json
tables:
  users:
    soft_delete: deleted
`)

	out, err := execute(t, "--config", cfg, "run", "testdata/queries/adults.yaml")
	require.NoError(t, err)

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "users", resp.Data.Table)
	assert.Equal(t, []string{"Brian", "Ada"}, rowNames(resp.Data.Rows))
}

func TestRunDSNFromEnv(t *testing.T) {
	t.Setenv("TABULA_DATABASE_DSN", seedDB(t))

	out, err := execute(t, "--format", "json", "run", "--terminal", "first", "testdata/queries/adults.yaml")
	require.NoError(t, err)

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []string{"Brian"}, rowNames(resp.Data.Rows))
}

func TestRunOneAbsent(t *testing.T) {
	db := seedDB(t)
	doc := writeFile(t, "nobody.yaml", "table: users\nwhere: {name: Zed}\n")

	out, err := execute(t, "run", "--dsn", db, "--terminal", "one", doc)
	require.NoError(t, err)
	assert.Equal(t, "(0 rows)\n", out)
}

func TestRunErrors(t *testing.T) {
	db := seedDB(t)
	posts := writeFile(t, "posts.yaml", "table: posts\n")

	tests := []struct {
		name string
		args []string
		exit int
		code string
	}{
		{"one with several rows", []string{"run", "--dsn", db, "--terminal", "one", "testdata/queries/adults.yaml"}, ExitFailure, "E006"},
		{"missing table", []string{"run", "--dsn", db, posts}, ExitFailure, "E006"},
		{"unknown driver", []string{"run", "--driver", "oracle", "--dsn", db, "testdata/queries/adults.yaml"}, ExitCommandError, "E005"},
		{"invalid document", []string{"run", "--dsn", db, "testdata/queries/invalid.yaml"}, ExitFailure, "E003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.exit, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}
