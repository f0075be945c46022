package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/tabula/datasource"
	"github.com/roach88/tabula/datasource/sqlsource"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Driver   string
	DSN      string
	Terminal string
}

// RunResult is the JSON payload of run.
type RunResult struct {
	Table string           `json:"table"`
	Rows  []datasource.Row `json:"rows"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <query-file>",
		Short: "Execute a query document against a database",
		Long: `Execute a query document against SQLite or PostgreSQL and print the rows.

The driver and DSN default to the database section of the config file and
can be overridden with TABULA_DATABASE_DRIVER / TABULA_DATABASE_DSN or the
flags below.

Example:
  tabula run --dsn ./app.db queries/admins.yaml
  tabula run --driver postgres --dsn "postgres://localhost/app?sslmode=disable" queries/admins.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Driver, "driver", "", "database driver (sqlite3|postgres)")
	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "data source name")
	cmd.Flags().StringVarP(&opts.Terminal, "terminal", "t", TerminalMany, "terminal operation (many|one|first)")

	return cmd
}

func runQuery(opts *RunOptions, path string, cmd *cobra.Command) error {
	cfg, formatter, err := setup(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	if err := checkTerminal(formatter, opts.Terminal); err != nil {
		return err
	}

	doc, err := loadDocument(formatter, path)
	if err != nil {
		return err
	}

	driver, dsn := cfg.Database.Driver, cfg.Database.DSN
	if opts.Driver != "" {
		driver = opts.Driver
	}
	if opts.DSN != "" {
		dsn = opts.DSN
	}

	logger := newLogger(opts.RootOptions, cmd)
	logger.Debug("opening database", "driver", driver)
	src, err := sqlsource.Open(driver, dsn)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConnect, "opening database", err)
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rows, err := runTerminal(ctx, buildQuery(doc, src, cfg, logger), opts.Terminal)
	if err != nil {
		if ctx.Err() == context.Canceled {
			logger.Info("interrupted", slog.String("file", path))
		}
		return queryFailure(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(RunResult{Table: doc.Table, Rows: rows})
	}
	return formatter.Rows(rows)
}
