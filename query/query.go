package query

import (
	"log/slog"

	"github.com/roach88/tabula/cond"
	"github.com/roach88/tabula/datasource"
	"github.com/roach88/tabula/option"
)

// ID is an identifier stored in a table's id column.
type ID string

// IDColumn is the column WhereID and OrWhereID filter on.
const IDColumn = "id"

// Query is an immutable query description over rows decoded as T.
type Query[T any] struct {
	src    datasource.Source
	table  string
	conds  cond.List
	sd     *cond.SoftDelete
	order  option.Option[datasource.Ordering]
	limit  option.Option[int]
	offset option.Option[int]
	filter func(T) bool
	decode func(datasource.Row) (T, error)
	logger *slog.Logger
}

// Config is a read-only snapshot of a query's configuration.
type Config struct {
	Table      string
	Conditions cond.List
	SoftDelete *cond.SoftDelete
	Order      option.Option[datasource.Ordering]
	Limit      option.Option[int]
	Offset     option.Option[int]
	Filtered   bool
}

type settings struct {
	where  cond.Set
	sd     *cond.SoftDelete
	logger *slog.Logger
}

// QueryOption configures a new Query or Mutation.
type QueryOption func(*settings)

// WithConditions sets the initial condition set.
func WithConditions(s cond.Set) QueryOption {
	return func(st *settings) {
		st.where = s
	}
}

// WithSoftDelete marks the table as soft-deleting through column. Queries
// then exclude deleted rows unless told otherwise.
func WithSoftDelete(column string) QueryOption {
	return func(st *settings) {
		st.sd = cond.TableDefault(column)
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) QueryOption {
	return func(st *settings) {
		st.logger = l
	}
}

func applyOptions(opts []QueryOption) settings {
	st := settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(&st)
	}
	if st.logger == nil {
		st.logger = slog.Default()
	}
	return st
}

// New creates a query over table. Rows are decoded with DecodeRow unless a
// decoder is set with WithDecoder.
func New[T any](src datasource.Source, table string, opts ...QueryOption) Query[T] {
	st := applyOptions(opts)
	return Query[T]{
		src:    src,
		table:  table,
		conds:  cond.NewList(st.where),
		sd:     st.sd,
		decode: DecodeRow[T],
		logger: st.logger,
	}
}

// WithDecoder replaces the row decoder.
func (q Query[T]) WithDecoder(fn func(datasource.Row) (T, error)) Query[T] {
	q.decode = fn
	return q
}

// Where ANDs s into every branch.
func (q Query[T]) Where(s cond.Set) Query[T] {
	q.conds = q.conds.Map(func(branch cond.Set) cond.Set {
		return branch.And(s)
	})
	return q
}

// Or adds s as a new OR branch.
func (q Query[T]) Or(s cond.Set) Query[T] {
	q.conds = q.conds.Append(s)
	return q
}

// WhereID restricts every branch to the row with id.
func (q Query[T]) WhereID(id ID) Query[T] {
	return q.Where(cond.Where(cond.P(IDColumn, string(id))))
}

// OrWhereID adds a branch matching the row with id.
func (q Query[T]) OrWhereID(id ID) Query[T] {
	return q.Or(cond.Where(cond.P(IDColumn, string(id))))
}

// Filter adds a client-side predicate, ANDed with any existing one.
// Rows are tested after retrieval, before mapping. A nil pred is ignored.
func (q Query[T]) Filter(pred func(T) bool) Query[T] {
	if pred == nil {
		return q
	}
	if prev := q.filter; prev != nil {
		q.filter = func(v T) bool { return prev(v) && pred(v) }
	} else {
		q.filter = pred
	}
	return q
}

// Limit caps the number of rows. The last call wins.
func (q Query[T]) Limit(n int) Query[T] {
	q.limit = option.Some(n)
	return q
}

// Offset skips n rows. The last call wins.
func (q Query[T]) Offset(n int) Query[T] {
	q.offset = option.Some(n)
	return q
}

// Order sorts by field. The last call wins.
func (q Query[T]) Order(field string, opts datasource.OrderOptions) Query[T] {
	q.order = option.Some(datasource.Ordering{Field: field, OrderOptions: opts})
	return q
}

// IncludeDeleted lifts the soft-delete constraint.
func (q Query[T]) IncludeDeleted() Query[T] {
	q.sd = q.sd.Explicit(cond.Include)
	return q
}

// ExcludeDeleted keeps only rows that are not soft-deleted.
func (q Query[T]) ExcludeDeleted() Query[T] {
	q.sd = q.sd.Explicit(cond.Exclude)
	return q
}

// OnlyDeleted keeps only soft-deleted rows.
func (q Query[T]) OnlyDeleted() Query[T] {
	q.sd = q.sd.Explicit(cond.Only)
	return q
}

// Table returns the target table.
func (q Query[T]) Table() string { return q.table }

// Config returns a snapshot of the configuration. The snapshot shares no
// storage with q; changing it does not affect q or its derived queries.
func (q Query[T]) Config() Config {
	var sd *cond.SoftDelete
	if q.sd != nil {
		cp := *q.sd
		sd = &cp
	}
	return Config{
		Table:      q.table,
		Conditions: q.conds.Clone(),
		SoftDelete: sd,
		Order:      q.order,
		Limit:      q.limit,
		Offset:     q.offset,
		Filtered:   q.filter != nil,
	}
}
