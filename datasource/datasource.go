package datasource

import (
	"context"

	"github.com/roach88/tabula/cond"
)

// Row is one record as returned by a backend.
type Row = map[string]any

// Source hands out builders scoped to a table. Implementations must be safe
// for concurrent use; From must return a fresh builder on every call.
type Source interface {
	From(table string) Builder
}

// OrderOptions controls result ordering.
type OrderOptions struct {
	Ascending  bool
	NullsFirst bool
}

// UpsertOptions controls conflict handling for Upsert. OnConflict is a
// comma-separated list of conflict target columns.
type UpsertOptions struct {
	OnConflict string
}

// Builder accumulates one backend request. Filter methods return the
// builder for chaining; nothing is sent until Execute.
//
// A nil value passed to Match, Eq or Is means IS NULL. Neq with nil means
// IS NOT NULL. Range bounds are inclusive; a negative upper bound leaves
// the range open-ended.
type Builder interface {
	Select(columns string) Builder
	Insert(rows []Row) Builder
	Update(values Row) Builder
	Upsert(rows []Row, opts UpsertOptions) Builder
	Delete() Builder

	Match(record Row) Builder
	Eq(field string, value any) Builder
	Neq(field string, value any) Builder
	Gt(field string, value any) Builder
	Gte(field string, value any) Builder
	Lt(field string, value any) Builder
	Lte(field string, value any) Builder
	Like(field, pattern string) Builder
	ILike(field, pattern string) Builder
	Is(field string, value any) Builder
	Not(field string, op cond.Op, value any) Builder
	In(field string, values []any) Builder
	Or(expr string) Builder

	Order(field string, opts OrderOptions) Builder
	Limit(n int) Builder
	Range(from, to int) Builder
	Single() Builder

	// Execute sends the request. A non-nil error means the request could not
	// be carried out at all (transport failure, cancelled context). Errors the
	// backend reports about the request itself travel in Response.Error.
	Execute(ctx context.Context) (*Response, error)
}

// Response is the resolved result of a request.
type Response struct {
	Rows  []Row
	Error error
}

// Method names a Builder operation; adapters use them to tag the request
// kind and spy backends to label recorded calls.
type Method string

const (
	MethodFrom   Method = "from"
	MethodSelect Method = "select"
	MethodInsert Method = "insert"
	MethodUpdate Method = "update"
	MethodUpsert Method = "upsert"
	MethodDelete Method = "delete"
	MethodMatch  Method = "match"
	MethodEq     Method = "eq"
	MethodNeq    Method = "neq"
	MethodGt     Method = "gt"
	MethodGte    Method = "gte"
	MethodLt     Method = "lt"
	MethodLte    Method = "lte"
	MethodLike   Method = "like"
	MethodILike  Method = "ilike"
	MethodIs     Method = "is"
	MethodNot    Method = "not"
	MethodIn     Method = "in"
	MethodOr     Method = "or"
	MethodOrder  Method = "order"
	MethodLimit  Method = "limit"
	MethodRange  Method = "range"
	MethodSingle Method = "single"
)

// CloneRow returns a shallow copy of r.
func CloneRow(r Row) Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// CheckSingle applies single-row semantics to a result set.
func CheckSingle(rows []Row) *Response {
	switch len(rows) {
	case 0:
		return &Response{Error: ErrNoRows}
	case 1:
		return &Response{Rows: rows}
	default:
		return &Response{Error: ErrMultipleRows}
	}
}
