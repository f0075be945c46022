package query

import (
	"context"

	"github.com/roach88/tabula/option"
)

// Mapped is a view over a Query[S] whose results are passed through fn
// after retrieval and after the source's client-side filter.
type Mapped[S, T any] struct {
	source Query[S]
	fn     func(S) T
}

// Map returns a mapped view of q. q itself is unchanged.
func Map[S, T any](q Query[S], fn func(S) T) Mapped[S, T] {
	return Mapped[S, T]{source: q, fn: fn}
}

// MapThen composes fn after m's mapping. Nothing is materialized in
// between: each row goes through both functions in one pass.
func MapThen[S, T, U any](m Mapped[S, T], fn func(T) U) Mapped[S, U] {
	first := m.fn
	return Mapped[S, U]{
		source: m.source,
		fn:     func(s S) U { return fn(first(s)) },
	}
}

// Filter keeps rows whose mapped value satisfies pred. The predicate runs
// as part of the source's client-side filter, tested against fn(row).
func (m Mapped[S, T]) Filter(pred func(T) bool) Mapped[S, T] {
	fn := m.fn
	return Mapped[S, T]{
		source: m.source.Filter(func(s S) bool { return pred(fn(s)) }),
		fn:     fn,
	}
}

// Source returns the underlying query.
func (m Mapped[S, T]) Source() Query[S] { return m.source }

// One runs the source's One and maps the row, if any.
func (m Mapped[S, T]) One(ctx context.Context) (option.Option[T], error) {
	o, err := m.source.One(ctx)
	if err != nil {
		return option.None[T](), err
	}
	return option.Map(o, m.fn), nil
}

// Many runs the source's Many and maps every row.
func (m Mapped[S, T]) Many(ctx context.Context) ([]T, error) {
	items, err := m.source.Many(ctx)
	if err != nil {
		return nil, err
	}
	return mapSlice(items, m.fn), nil
}

// First runs the source's First and maps the row, if any.
func (m Mapped[S, T]) First(ctx context.Context) (option.Option[T], error) {
	o, err := m.source.First(ctx)
	if err != nil {
		return option.None[T](), err
	}
	return option.Map(o, m.fn), nil
}

// RequireOne is One with absence reported as a not-found error.
func (m Mapped[S, T]) RequireOne(ctx context.Context) (T, error) {
	opt, err := m.One(ctx)
	return unwrapRequired("one", m.source.table, opt, err)
}

// RequireMany is Many.
func (m Mapped[S, T]) RequireMany(ctx context.Context) ([]T, error) {
	return m.Many(ctx)
}

// RequireFirst is First with absence reported as a not-found error.
func (m Mapped[S, T]) RequireFirst(ctx context.Context) (T, error) {
	opt, err := m.First(ctx)
	return unwrapRequired("first", m.source.table, opt, err)
}

func mapSlice[S, T any](items []S, fn func(S) T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = fn(item)
	}
	return out
}
