// Package recorder provides a spy data source that logs every builder call
// and answers with canned responses. It backs call-order tests and the
// CLI's dry-run compile.
package recorder

import (
	"context"
	"strings"
	"sync"

	"github.com/roach88/tabula/datasource"
)

// Handler produces the response for one executed request.
type Handler func(ctx context.Context, req *datasource.Request) (*datasource.Response, error)

// Recorder is a datasource.Source that records executed requests.
//
// Thread-safety: Recorder is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	handler  Handler
	requests []*datasource.Request
}

// New creates a recorder that answers every request with zero rows.
func New() *Recorder {
	return &Recorder{}
}

// Returns makes every request resolve to rows. Single requests get
// single-row semantics applied.
func (r *Recorder) Returns(rows ...datasource.Row) *Recorder {
	return r.Handle(func(_ context.Context, req *datasource.Request) (*datasource.Response, error) {
		return respond(req, rows), nil
	})
}

// Fails makes every request resolve to a backend-reported error.
func (r *Recorder) Fails(err error) *Recorder {
	return r.Handle(func(context.Context, *datasource.Request) (*datasource.Response, error) {
		return &datasource.Response{Error: err}, nil
	})
}

// Errors makes every Execute call return err, as a transport failure would.
func (r *Recorder) Errors(err error) *Recorder {
	return r.Handle(func(context.Context, *datasource.Request) (*datasource.Response, error) {
		return nil, err
	})
}

// Panics makes every Execute call panic with v.
func (r *Recorder) Panics(v any) *Recorder {
	return r.Handle(func(context.Context, *datasource.Request) (*datasource.Response, error) {
		panic(v)
	})
}

// Handle installs a custom handler.
func (r *Recorder) Handle(h Handler) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = h
	return r
}

// From implements datasource.Source.
func (r *Recorder) From(table string) datasource.Builder {
	return datasource.NewRequestBuilder(table, r.execute)
}

func (r *Recorder) execute(ctx context.Context, req *datasource.Request) (*datasource.Response, error) {
	r.mu.Lock()
	snapshot := *req
	snapshot.Calls = append([]datasource.Call(nil), req.Calls...)
	r.requests = append(r.requests, &snapshot)
	h := r.handler
	r.mu.Unlock()

	if h == nil {
		return respond(req, nil), nil
	}
	return h(ctx, req)
}

func respond(req *datasource.Request, rows []datasource.Row) *datasource.Response {
	out := make([]datasource.Row, len(rows))
	for i, row := range rows {
		out[i] = datasource.CloneRow(row)
	}
	if req.Single {
		return datasource.CheckSingle(out)
	}
	return &datasource.Response{Rows: out}
}

// Requests returns every executed request in order.
func (r *Recorder) Requests() []*datasource.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*datasource.Request(nil), r.requests...)
}

// Last returns the most recent request, or nil.
func (r *Recorder) Last() *datasource.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.requests) == 0 {
		return nil
	}
	return r.requests[len(r.requests)-1]
}

// Calls returns the rendered calls of the most recent request, omitting
// the leading from() call.
func (r *Recorder) Calls() []string {
	last := r.Last()
	if last == nil {
		return nil
	}
	return Lines(last.Calls[1:])
}

// Transcript renders every executed request, one call per line and a blank
// line between requests.
func (r *Recorder) Transcript() string {
	var sb strings.Builder
	for i, req := range r.Requests() {
		if i > 0 {
			sb.WriteByte('\n')
		}
		for _, line := range Lines(req.Calls) {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Reset forgets recorded requests; the handler stays.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = nil
}

// Lines renders calls one per element.
func Lines(calls []datasource.Call) []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}
