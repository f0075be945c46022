package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/tabula/compiler"
	"github.com/roach88/tabula/datasource"
	"github.com/roach88/tabula/option"
)

// DecodeRow converts a row to T. Rows pass through unchanged when T is
// datasource.Row; otherwise the row is converted through its JSON form, so
// struct fields follow encoding/json tags.
func DecodeRow[T any](row datasource.Row) (T, error) {
	if v, ok := any(row).(T); ok {
		return v, nil
	}
	var out T
	data, err := json.Marshal(row)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(data, &out)
	return out, err
}

// builder compiles the query against a fresh builder from the source.
//
// Order: select, conditions, order, limit, range. Offset without a limit
// produces an open-ended range.
func (q Query[T]) builder() datasource.Builder {
	b := q.src.From(q.table).Select("*")
	b = compiler.Compile(b, q.conds, q.sd)
	if o, ok := q.order.Get(); ok {
		b = b.Order(o.Field, o.OrderOptions)
	}
	limit, hasLimit := q.limit.Get()
	if hasLimit {
		b = b.Limit(limit)
	}
	if off, ok := q.offset.Get(); ok {
		to := -1
		if hasLimit {
			to = off + limit - 1
		}
		b = b.Range(off, to)
	}
	return b
}

// One fetches at most one row. Zero matching rows, or a row rejected by the
// client-side filter, yield None rather than an error.
func (q Query[T]) One(ctx context.Context) (option.Option[T], error) {
	rows, err := run(ctx, q.logger, q.table, "one", func() datasource.Builder {
		return q.builder().Single()
	})
	if err != nil {
		if errors.Is(err, datasource.ErrNoRows) {
			return option.None[T](), nil
		}
		return option.None[T](), err
	}
	items, err := decodeAll(q.table, "one", rows, q.decode)
	if err != nil {
		return option.None[T](), err
	}
	return option.Filter(option.FromSlice(items), q.keep), nil
}

// Many fetches every matching row and applies the client-side filter,
// preserving backend order.
func (q Query[T]) Many(ctx context.Context) ([]T, error) {
	rows, err := run(ctx, q.logger, q.table, "many", q.builder)
	if err != nil {
		return nil, err
	}
	items, err := decodeAll(q.table, "many", rows, q.decode)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if q.keep(item) {
			out = append(out, item)
		}
	}
	return out, nil
}

// First returns the head of Many. It fetches the full (limited) result set
// so the client-side filter sees every candidate.
func (q Query[T]) First(ctx context.Context) (option.Option[T], error) {
	items, err := q.Many(ctx)
	if err != nil {
		return option.None[T](), err
	}
	return option.FromSlice(items), nil
}

// RequireOne is One with absence reported as a not-found error.
func (q Query[T]) RequireOne(ctx context.Context) (T, error) {
	opt, err := q.One(ctx)
	return unwrapRequired("one", q.table, opt, err)
}

// RequireMany is Many; it exists for symmetry with the other Require calls.
func (q Query[T]) RequireMany(ctx context.Context) ([]T, error) {
	return q.Many(ctx)
}

// RequireFirst is First with absence reported as a not-found error.
func (q Query[T]) RequireFirst(ctx context.Context) (T, error) {
	opt, err := q.First(ctx)
	return unwrapRequired("first", q.table, opt, err)
}

func (q Query[T]) keep(v T) bool {
	return q.filter == nil || q.filter(v)
}

// unwrapRequired unwraps an Option result, turning None into a not-found error.
func unwrapRequired[T any](op, table string, o option.Option[T], err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	v, ok := o.Get()
	if !ok {
		return zero, newNotFound(op, table)
	}
	return v, nil
}

// run builds and executes one request. Transport errors and panics from the
// data source become ErrCodeUnexpected; backend-reported errors become
// ErrCodeBackend. Nothing is retried.
func run(ctx context.Context, logger *slog.Logger, table, op string, build func() datasource.Builder) (rows []datasource.Row, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("data source panicked", "table", table, "op", op, "panic", r)
			err = &Error{
				Code:    ErrCodeUnexpected,
				Op:      op,
				Table:   table,
				Message: "unexpected error",
				Err:     fmt.Errorf("panic: %v", r),
			}
		}
	}()

	logger.Debug("executing", "table", table, "op", op)

	resp, err := build().Execute(ctx)
	if err != nil {
		logger.Warn("data source failed", "table", table, "op", op, "error", err)
		return nil, &Error{Code: ErrCodeUnexpected, Op: op, Table: table, Message: "unexpected error", Err: err}
	}
	if resp == nil {
		return nil, nil
	}
	if resp.Error != nil {
		if !errors.Is(resp.Error, datasource.ErrNoRows) {
			logger.Warn("backend error", "table", table, "op", op, "error", resp.Error)
		}
		return nil, &Error{Code: ErrCodeBackend, Op: op, Table: table, Message: "backend error", Err: resp.Error}
	}

	logger.Debug("executed", "table", table, "op", op, "rows", len(resp.Rows))
	return resp.Rows, nil
}

func decodeAll[T any](table, op string, rows []datasource.Row, decode func(datasource.Row) (T, error)) ([]T, error) {
	out := make([]T, 0, len(rows))
	for i, row := range rows {
		v, err := decode(row)
		if err != nil {
			return nil, &Error{
				Code:    ErrCodeDecode,
				Op:      op,
				Table:   table,
				Message: fmt.Sprintf("decode row %d", i),
				Err:     err,
			}
		}
		out = append(out, v)
	}
	return out, nil
}
