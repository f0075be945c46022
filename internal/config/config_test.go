package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tabula.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "tabula.db", cfg.Database.DSN)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.Empty(t, cfg.SoftDeleteColumn("users"))
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
  dsn: postgres://localhost/app?sslmode=disable
output:
  format: json
tables:
  users:
    soft_delete: deleted_at
  posts: {}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/app?sslmode=disable", cfg.Database.DSN)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "deleted_at", cfg.SoftDeleteColumn("users"))
	assert.Empty(t, cfg.SoftDeleteColumn("posts"))
	assert.Empty(t, cfg.SoftDeleteColumn("comments"))
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "database:\n  dsn: from-file.db\n")
	t.Setenv("TABULA_DATABASE_DSN", "from-env.db")
	t.Setenv("TABULA_OUTPUT_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env.db", cfg.Database.DSN)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "output:\n  format: xml\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output.format")

	_, err = Load(writeConfig(t, "database: {driver: \"\"}\n"))
	assert.Error(t, err)
}

func TestNilConfigHasNoSoftDelete(t *testing.T) {
	var cfg *Config
	assert.Empty(t, cfg.SoftDeleteColumn("users"))
}
