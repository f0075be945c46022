package query

import (
	"context"
	"log/slog"

	"github.com/roach88/tabula/datasource"
	"github.com/roach88/tabula/option"
)

// Mutation wraps an insert, update, upsert or delete in the same execution
// contract as Query. The builder is rebuilt on every call, so a Mutation can
// be executed more than once.
type Mutation[T any] struct {
	table  string
	op     string
	build  func() datasource.Builder
	decode func(datasource.Row) (T, error)
	logger *slog.Logger
}

// NewMutation wraps build. op names the mutation in errors and logs.
// Only WithLogger applies to mutations.
func NewMutation[T any](table, op string, build func() datasource.Builder, opts ...QueryOption) Mutation[T] {
	st := applyOptions(opts)
	return Mutation[T]{
		table:  table,
		op:     op,
		build:  build,
		decode: DecodeRow[T],
		logger: st.logger,
	}
}

// WithDecoder replaces the row decoder.
func (m Mutation[T]) WithDecoder(fn func(datasource.Row) (T, error)) Mutation[T] {
	m.decode = fn
	return m
}

// Op returns the mutation kind.
func (m Mutation[T]) Op() string { return m.op }

// Execute runs the mutation and discards the affected rows.
func (m Mutation[T]) Execute(ctx context.Context) error {
	_, err := run(ctx, m.logger, m.table, m.op, m.build)
	return err
}

// Many runs the mutation and returns the affected rows.
func (m Mutation[T]) Many(ctx context.Context) ([]T, error) {
	rows, err := run(ctx, m.logger, m.table, m.op, m.build)
	if err != nil {
		return nil, err
	}
	return decodeAll(m.table, m.op, rows, m.decode)
}

// One runs the mutation and returns the first affected row, if any.
func (m Mutation[T]) One(ctx context.Context) (option.Option[T], error) {
	items, err := m.Many(ctx)
	if err != nil {
		return option.None[T](), err
	}
	return option.FromSlice(items), nil
}

// RequireOne is One with no affected row reported as a not-found error.
func (m Mutation[T]) RequireOne(ctx context.Context) (T, error) {
	opt, err := m.One(ctx)
	return unwrapRequired(m.op, m.table, opt, err)
}

// RequireMany is Many.
func (m Mutation[T]) RequireMany(ctx context.Context) ([]T, error) {
	return m.Many(ctx)
}
