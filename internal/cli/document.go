package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/tabula/datasource"
	"github.com/roach88/tabula/internal/config"
	"github.com/roach88/tabula/internal/querydoc"
	"github.com/roach88/tabula/option"
	"github.com/roach88/tabula/query"
)

// Terminal operations selectable with --terminal.
const (
	TerminalMany  = "many"
	TerminalOne   = "one"
	TerminalFirst = "first"
)

// ValidTerminals lists the accepted --terminal values.
var ValidTerminals = []string{TerminalMany, TerminalOne, TerminalFirst}

// newLogger routes library logs to stderr, at debug level when verbose.
func newLogger(opts *RootOptions, cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// setup loads configuration and builds the formatter. A configuration
// failure is reported through a text formatter.
func setup(opts *RootOptions, cmd *cobra.Command) (*config.Config, *OutputFormatter, error) {
	cfg, err := opts.Config()
	f := opts.formatter(cmd)
	if err != nil {
		return nil, f, f.Fail(ExitCommandError, ErrCodeConfig, "loading config", err)
	}
	return cfg, f, nil
}

// loadDocument reads and validates a query document.
func loadDocument(f *OutputFormatter, path string) (*querydoc.Document, error) {
	doc, err := querydoc.Load(path)
	if err != nil {
		var docErr *querydoc.Error
		if errors.As(err, &docErr) {
			return nil, f.Fail(ExitFailure, ErrCodeInvalidDoc, "invalid query document", err)
		}
		return nil, f.Fail(ExitCommandError, ErrCodeReadFailed, "reading query document", err)
	}
	f.VerboseLog("Loaded %s: table %s, %d branch(es)", path, doc.Table, len(doc.Branches))
	return doc, nil
}

// buildQuery builds doc's query over src, applying the table's configured
// soft-delete column.
func buildQuery(doc *querydoc.Document, src datasource.Source, cfg *config.Config, logger *slog.Logger) query.Query[datasource.Row] {
	opts := []query.QueryOption{query.WithLogger(logger)}
	if col := cfg.SoftDeleteColumn(doc.Table); col != "" {
		opts = append(opts, query.WithSoftDelete(col))
	}
	return doc.Query(src, opts...)
}

func checkTerminal(f *OutputFormatter, terminal string) error {
	if slices.Contains(ValidTerminals, terminal) {
		return nil
	}
	return f.Fail(ExitCommandError, ErrCodeBadTerminal,
		fmt.Sprintf("invalid terminal %q: must be one of %v", terminal, ValidTerminals), nil)
}

// runTerminal executes q with the named terminal operation. Absence from
// one or first yields no rows.
func runTerminal(ctx context.Context, q query.Query[datasource.Row], terminal string) ([]datasource.Row, error) {
	switch terminal {
	case TerminalOne:
		return rowsOf(q.One(ctx))
	case TerminalFirst:
		return rowsOf(q.First(ctx))
	default:
		return q.Many(ctx)
	}
}

func rowsOf(o option.Option[datasource.Row], err error) ([]datasource.Row, error) {
	if err != nil {
		return nil, err
	}
	if row, ok := o.Get(); ok {
		return []datasource.Row{row}, nil
	}
	return []datasource.Row{}, nil
}

// queryFailure reports a terminal operation error.
func queryFailure(f *OutputFormatter, err error) error {
	code := ErrCodeGeneric
	var qe *query.Error
	if errors.As(err, &qe) {
		switch qe.Code {
		case query.ErrCodeBackend:
			code = ErrCodeQueryFailed
		case query.ErrCodeUnexpected:
			code = ErrCodeUnexpected
		case query.ErrCodeDecode:
			code = ErrCodeDecodeFailed
		}
	}
	return f.Fail(ExitFailure, code, "query failed", err)
}
