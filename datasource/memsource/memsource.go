// Package memsource is an in-memory datasource.Source. It evaluates the
// full filter grammar over tables held in memory and is used for tests,
// examples and offline tooling.
package memsource

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/tabula/cond"
	"github.com/roach88/tabula/datasource"
)

// Source holds tables of rows. Every table has a unique id column.
//
// Thread-safety: Source is safe for concurrent use.
type Source struct {
	mu     sync.RWMutex
	tables map[string][]datasource.Row
	newID  func() string
}

// Option configures a Source.
type Option func(*Source)

// WithIDGenerator sets the generator for rows inserted without an id.
// Default: UUIDv7.
func WithIDGenerator(fn func() string) Option {
	return func(s *Source) {
		s.newID = fn
	}
}

// New creates an empty Source.
func New(opts ...Option) *Source {
	s := &Source{
		tables: make(map[string][]datasource.Row),
		newID: func() string {
			return uuid.Must(uuid.NewV7()).String()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed appends copies of rows to table without id checks.
func (s *Source) Seed(table string, rows ...datasource.Row) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.tables[table] = append(s.tables[table], datasource.CloneRow(r))
	}
	return s
}

// Rows returns copies of every row in table in storage order.
func (s *Source) Rows(table string) []datasource.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.tables[table])
}

// From implements datasource.Source.
func (s *Source) From(table string) datasource.Builder {
	return datasource.NewRequestBuilder(table, s.execute)
}

func (s *Source) execute(ctx context.Context, req *datasource.Request) (*datasource.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pred, err := compile(req)
	if err != nil {
		return &datasource.Response{Error: err}, nil
	}

	var rows []datasource.Row
	switch req.Action {
	case datasource.MethodSelect:
		rows = s.selectRows(req, pred)
	case datasource.MethodInsert:
		rows, err = s.insert(req.Table, req.Rows)
	case datasource.MethodUpdate:
		rows = s.update(req.Table, req.Values, pred)
	case datasource.MethodUpsert:
		rows, err = s.upsert(req.Table, req.Rows, req.OnConflict, pred)
	case datasource.MethodDelete:
		rows = s.delete(req.Table, pred)
	default:
		return nil, fmt.Errorf("memsource: unsupported action %q", req.Action)
	}
	if err != nil {
		return &datasource.Response{Error: err}, nil
	}
	if req.Single {
		return datasource.CheckSingle(rows), nil
	}
	return &datasource.Response{Rows: rows}, nil
}

func (s *Source) selectRows(req *datasource.Request, pred predicate) []datasource.Row {
	s.mu.RLock()
	var rows []datasource.Row
	for _, r := range s.tables[req.Table] {
		if pred(r) {
			rows = append(rows, datasource.CloneRow(r))
		}
	}
	s.mu.RUnlock()

	sortRows(rows, req.Order)

	offset, max := req.Window()
	if offset >= len(rows) {
		return []datasource.Row{}
	}
	rows = rows[offset:]
	if max >= 0 && max < len(rows) {
		rows = rows[:max]
	}
	return rows
}

func (s *Source) insert(table string, rows []datasource.Row) ([]datasource.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.tables[table]
	out := make([]datasource.Row, 0, len(rows))
	for _, r := range rows {
		row := s.withID(r)
		if indexOf(stored, row, []string{"id"}) >= 0 {
			return nil, duplicateKey(table, row["id"])
		}
		stored = append(stored, row)
		out = append(out, datasource.CloneRow(row))
	}
	s.tables[table] = stored
	return out, nil
}

func (s *Source) update(table string, values datasource.Row, pred predicate) []datasource.Row {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []datasource.Row
	for _, r := range s.tables[table] {
		if !pred(r) {
			continue
		}
		for k, v := range values {
			r[k] = v
		}
		out = append(out, datasource.CloneRow(r))
	}
	return out
}

// upsert inserts rows, or merges them into existing rows that agree on
// every conflict column. Existing rows that fail the request's filters are
// left untouched.
func (s *Source) upsert(table string, rows []datasource.Row, onConflict []string, pred predicate) ([]datasource.Row, error) {
	if len(onConflict) == 0 {
		onConflict = []string{"id"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.tables[table]
	var out []datasource.Row
	for _, r := range rows {
		if i := indexOf(stored, r, onConflict); i >= 0 {
			if !pred(stored[i]) {
				continue
			}
			for k, v := range r {
				stored[i][k] = v
			}
			out = append(out, datasource.CloneRow(stored[i]))
			continue
		}
		row := s.withID(r)
		if indexOf(stored, row, []string{"id"}) >= 0 {
			return nil, duplicateKey(table, row["id"])
		}
		stored = append(stored, row)
		out = append(out, datasource.CloneRow(row))
	}
	s.tables[table] = stored
	return out, nil
}

func (s *Source) delete(table string, pred predicate) []datasource.Row {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept, removed []datasource.Row
	for _, r := range s.tables[table] {
		if pred(r) {
			removed = append(removed, r)
			continue
		}
		kept = append(kept, r)
	}
	s.tables[table] = kept
	return removed
}

func (s *Source) withID(r datasource.Row) datasource.Row {
	row := datasource.CloneRow(r)
	if id, ok := row["id"]; (!ok || id == nil || id == "") && s.newID != nil {
		row["id"] = s.newID()
	}
	return row
}

// indexOf returns the index of the stored row agreeing with r on every
// column in cols, or -1. A nil value never conflicts.
func indexOf(stored []datasource.Row, r datasource.Row, cols []string) int {
next:
	for i, existing := range stored {
		for _, c := range cols {
			v := r[c]
			if v == nil || !cond.Equal(existing[c], v) {
				continue next
			}
		}
		return i
	}
	return -1
}

func duplicateKey(table string, id any) *datasource.Error {
	return &datasource.Error{
		Code:    "23505",
		Message: fmt.Sprintf("duplicate key value violates unique constraint \"%s_pkey\"", table),
		Details: fmt.Sprintf("Key (id)=(%s) already exists.", cond.Format(id)),
	}
}

// sortRows orders rows by each term in turn. Incomparable values keep
// their relative order.
func sortRows(rows []datasource.Row, order []datasource.Ordering) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range order {
			a, b := rows[i][o.Field], rows[j][o.Field]
			switch {
			case a == nil && b == nil:
				continue
			case a == nil:
				return o.NullsFirst
			case b == nil:
				return !o.NullsFirst
			}
			n, ok := cond.Compare(a, b)
			if !ok || n == 0 {
				continue
			}
			if o.Ascending {
				return n < 0
			}
			return n > 0
		}
		return false
	})
}

func cloneAll(rows []datasource.Row) []datasource.Row {
	out := make([]datasource.Row, len(rows))
	for i, r := range rows {
		out[i] = datasource.CloneRow(r)
	}
	return out
}
