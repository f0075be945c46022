package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/tabula/cond"
	"github.com/roach88/tabula/filterexpr"
)

// Call is one recorded builder invocation.
type Call struct {
	Method Method
	Args   []any
}

// String renders the call as method(arg, ...) with strings quoted, nil as
// null and records as canonical JSON.
func (c Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = formatArg(a)
	}
	return fmt.Sprintf("%s(%s)", c.Method, strings.Join(args, ", "))
}

func formatArg(a any) string {
	switch v := a.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", v)
	case cond.Op:
		return fmt.Sprintf("%q", string(v))
	case OrderOptions:
		return fmt.Sprintf("{ascending: %t, nullsFirst: %t}", v.Ascending, v.NullsFirst)
	case UpsertOptions:
		return fmt.Sprintf("{onConflict: %q}", v.OnConflict)
	case Row, []Row, []any:
		// encoding/json sorts map keys, which keeps the output stable.
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
	return cond.Format(a)
}

// Request is the accumulated state of one builder chain.
type Request struct {
	Table      string
	Action     Method
	Columns    string
	Rows       []Row
	Values     Row
	OnConflict []string
	Filters    []filterexpr.Clause
	Ors        []string
	Order      []Ordering
	Limit      int // -1 when unset
	From       int
	To         int // -1 when open-ended
	Single     bool
	Calls      []Call
}

// Ordering is one ORDER BY term.
type Ordering struct {
	Field string
	OrderOptions
}

// Groups parses every Or expression. Each element of the result is one
// disjunction that must hold.
func (r *Request) Groups() ([][]filterexpr.Group, error) {
	out := make([][]filterexpr.Group, 0, len(r.Ors))
	for _, expr := range r.Ors {
		groups, err := filterexpr.Parse(expr)
		if err != nil {
			return nil, &Error{
				Code:    "PGRST100",
				Message: "failed to parse logic tree",
				Details: err.Error(),
			}
		}
		out = append(out, groups)
	}
	return out, nil
}

// Window returns the offset and maximum row count implied by Limit and
// Range. max is -1 when unbounded.
func (r *Request) Window() (offset, max int) {
	offset, max = r.From, r.Limit
	if r.To >= 0 {
		n := r.To - r.From + 1
		if n < 0 {
			n = 0
		}
		if max < 0 || n < max {
			max = n
		}
	}
	return offset, max
}

// Executor runs a finished request.
type Executor func(ctx context.Context, req *Request) (*Response, error)

// RequestBuilder is a Builder that records every call into a Request and
// hands it to an Executor. Backends embed it and supply the Executor.
type RequestBuilder struct {
	req  Request
	exec Executor
}

// NewRequestBuilder starts a request against table.
func NewRequestBuilder(table string, exec Executor) *RequestBuilder {
	return &RequestBuilder{
		req: Request{
			Table:  table,
			Action: MethodSelect,
			Limit:  -1,
			To:     -1,
			Calls:  []Call{{Method: MethodFrom, Args: []any{table}}},
		},
		exec: exec,
	}
}

// Request returns the accumulated request.
func (b *RequestBuilder) Request() *Request { return &b.req }

func (b *RequestBuilder) record(m Method, args ...any) {
	b.req.Calls = append(b.req.Calls, Call{Method: m, Args: args})
}

func (b *RequestBuilder) filter(c filterexpr.Clause) *RequestBuilder {
	b.req.Filters = append(b.req.Filters, c)
	return b
}

func (b *RequestBuilder) Select(columns string) Builder {
	b.record(MethodSelect, columns)
	b.req.Columns = columns
	return b
}

func (b *RequestBuilder) Insert(rows []Row) Builder {
	b.record(MethodInsert, rows)
	b.req.Action = MethodInsert
	b.req.Rows = rows
	return b
}

func (b *RequestBuilder) Update(values Row) Builder {
	b.record(MethodUpdate, values)
	b.req.Action = MethodUpdate
	b.req.Values = values
	return b
}

func (b *RequestBuilder) Upsert(rows []Row, opts UpsertOptions) Builder {
	b.record(MethodUpsert, rows, opts)
	b.req.Action = MethodUpsert
	b.req.Rows = rows
	b.req.OnConflict = nil
	for _, col := range strings.Split(opts.OnConflict, ",") {
		if col = strings.TrimSpace(col); col != "" {
			b.req.OnConflict = append(b.req.OnConflict, col)
		}
	}
	return b
}

func (b *RequestBuilder) Delete() Builder {
	b.record(MethodDelete)
	b.req.Action = MethodDelete
	return b
}

// Match adds one equality filter per record entry in sorted key order.
func (b *RequestBuilder) Match(record Row) Builder {
	b.record(MethodMatch, record)
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.eq(k, record[k])
	}
	return b
}

func (b *RequestBuilder) eq(field string, value any) {
	if value == nil {
		b.filter(filterexpr.Clause{Field: field, Op: cond.OpIs})
		return
	}
	b.filter(filterexpr.Clause{Field: field, Op: cond.OpEq, Value: value})
}

func (b *RequestBuilder) Eq(field string, value any) Builder {
	b.record(MethodEq, field, value)
	b.eq(field, value)
	return b
}

func (b *RequestBuilder) Neq(field string, value any) Builder {
	b.record(MethodNeq, field, value)
	if value == nil {
		return b.filter(filterexpr.Clause{Field: field, Op: cond.OpIs, Not: true})
	}
	return b.filter(filterexpr.Clause{Field: field, Op: cond.OpNeq, Value: value})
}

func (b *RequestBuilder) compare(m Method, op cond.Op, field string, value any) Builder {
	b.record(m, field, value)
	return b.filter(filterexpr.Clause{Field: field, Op: op, Value: value})
}

func (b *RequestBuilder) Gt(field string, value any) Builder {
	return b.compare(MethodGt, cond.OpGt, field, value)
}

func (b *RequestBuilder) Gte(field string, value any) Builder {
	return b.compare(MethodGte, cond.OpGte, field, value)
}

func (b *RequestBuilder) Lt(field string, value any) Builder {
	return b.compare(MethodLt, cond.OpLt, field, value)
}

func (b *RequestBuilder) Lte(field string, value any) Builder {
	return b.compare(MethodLte, cond.OpLte, field, value)
}

func (b *RequestBuilder) Like(field, pattern string) Builder {
	return b.compare(MethodLike, cond.OpLike, field, pattern)
}

func (b *RequestBuilder) ILike(field, pattern string) Builder {
	return b.compare(MethodILike, cond.OpILike, field, pattern)
}

func (b *RequestBuilder) Is(field string, value any) Builder {
	return b.compare(MethodIs, cond.OpIs, field, value)
}

func (b *RequestBuilder) Not(field string, op cond.Op, value any) Builder {
	b.record(MethodNot, field, op, value)
	return b.filter(filterexpr.Clause{Field: field, Op: op, Not: true, Value: value})
}

func (b *RequestBuilder) In(field string, values []any) Builder {
	b.record(MethodIn, field, values)
	return b.filter(filterexpr.Clause{Field: field, Op: cond.OpIn, Value: values})
}

func (b *RequestBuilder) Or(expr string) Builder {
	b.record(MethodOr, expr)
	b.req.Ors = append(b.req.Ors, expr)
	return b
}

func (b *RequestBuilder) Order(field string, opts OrderOptions) Builder {
	b.record(MethodOrder, field, opts)
	b.req.Order = append(b.req.Order, Ordering{Field: field, OrderOptions: opts})
	return b
}

func (b *RequestBuilder) Limit(n int) Builder {
	b.record(MethodLimit, n)
	b.req.Limit = n
	return b
}

func (b *RequestBuilder) Range(from, to int) Builder {
	b.record(MethodRange, from, to)
	b.req.From, b.req.To = from, to
	return b
}

func (b *RequestBuilder) Single() Builder {
	b.record(MethodSingle)
	b.req.Single = true
	return b
}

// Execute hands the request to the executor.
func (b *RequestBuilder) Execute(ctx context.Context) (*Response, error) {
	return b.exec(ctx, &b.req)
}
