// Package config loads CLI settings from an optional YAML file and
// TABULA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TABULA_DATABASE_DSN.
const EnvPrefix = "TABULA"

// Config is the resolved configuration.
type Config struct {
	Database Database         `mapstructure:"database"`
	Output   Output           `mapstructure:"output"`
	Tables   map[string]Table `mapstructure:"tables"`
}

// Database selects the driver and connection string used by run.
type Database struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Output holds presentation defaults.
type Output struct {
	Format string `mapstructure:"format"`
}

// Table holds per-table defaults.
type Table struct {
	// SoftDelete names the marker column. Empty means the table has no
	// soft-delete default.
	SoftDelete string `mapstructure:"soft_delete"`
}

// SoftDeleteColumn returns the configured marker column for table, or "".
func (c *Config) SoftDeleteColumn(table string) string {
	if c == nil {
		return ""
	}
	return c.Tables[table].SoftDelete
}

// Load resolves configuration. path names an explicit config file; when
// empty, tabula.yaml in the working directory is used if present.
// Environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "tabula.db")
	v.SetDefault("output.format", "text")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("tabula")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no command can use.
func (c *Config) Validate() error {
	if c.Database.Driver == "" {
		return errors.New("database.driver must not be empty")
	}
	switch c.Output.Format {
	case "text", "json":
	default:
		return fmt.Errorf("output.format %q: must be text or json", c.Output.Format)
	}
	return nil
}
