// Package mocks provides testify mock implementations of the datasource
// interfaces.
//
// Builder methods return whatever the expectation returns, usually the mock
// itself:
//
//	b := new(mocks.MockBuilder)
//	b.On("Select", "*").Return(b)
//	b.On("Is", "deleted", nil).Return(b)
//	b.On("Execute", mock.Anything).Return(&datasource.Response{}, nil)
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/roach88/tabula/cond"
	"github.com/roach88/tabula/datasource"
)

// MockSource is a mock implementation of datasource.Source.
type MockSource struct {
	mock.Mock
}

// From returns the builder configured for table.
func (m *MockSource) From(table string) datasource.Builder {
	args := m.Called(table)
	return args.Get(0).(datasource.Builder)
}

// MockBuilder is a mock implementation of datasource.Builder.
type MockBuilder struct {
	mock.Mock
}

func (m *MockBuilder) chain(args mock.Arguments) datasource.Builder {
	return args.Get(0).(datasource.Builder)
}

func (m *MockBuilder) Select(columns string) datasource.Builder {
	return m.chain(m.Called(columns))
}

func (m *MockBuilder) Insert(rows []datasource.Row) datasource.Builder {
	return m.chain(m.Called(rows))
}

func (m *MockBuilder) Update(values datasource.Row) datasource.Builder {
	return m.chain(m.Called(values))
}

func (m *MockBuilder) Upsert(rows []datasource.Row, opts datasource.UpsertOptions) datasource.Builder {
	return m.chain(m.Called(rows, opts))
}

func (m *MockBuilder) Delete() datasource.Builder {
	return m.chain(m.Called())
}

func (m *MockBuilder) Match(record datasource.Row) datasource.Builder {
	return m.chain(m.Called(record))
}

func (m *MockBuilder) Eq(field string, value any) datasource.Builder {
	return m.chain(m.Called(field, value))
}

func (m *MockBuilder) Neq(field string, value any) datasource.Builder {
	return m.chain(m.Called(field, value))
}

func (m *MockBuilder) Gt(field string, value any) datasource.Builder {
	return m.chain(m.Called(field, value))
}

func (m *MockBuilder) Gte(field string, value any) datasource.Builder {
	return m.chain(m.Called(field, value))
}

func (m *MockBuilder) Lt(field string, value any) datasource.Builder {
	return m.chain(m.Called(field, value))
}

func (m *MockBuilder) Lte(field string, value any) datasource.Builder {
	return m.chain(m.Called(field, value))
}

func (m *MockBuilder) Like(field, pattern string) datasource.Builder {
	return m.chain(m.Called(field, pattern))
}

func (m *MockBuilder) ILike(field, pattern string) datasource.Builder {
	return m.chain(m.Called(field, pattern))
}

func (m *MockBuilder) Is(field string, value any) datasource.Builder {
	return m.chain(m.Called(field, value))
}

func (m *MockBuilder) Not(field string, op cond.Op, value any) datasource.Builder {
	return m.chain(m.Called(field, op, value))
}

func (m *MockBuilder) In(field string, values []any) datasource.Builder {
	return m.chain(m.Called(field, values))
}

func (m *MockBuilder) Or(expr string) datasource.Builder {
	return m.chain(m.Called(expr))
}

func (m *MockBuilder) Order(field string, opts datasource.OrderOptions) datasource.Builder {
	return m.chain(m.Called(field, opts))
}

func (m *MockBuilder) Limit(n int) datasource.Builder {
	return m.chain(m.Called(n))
}

func (m *MockBuilder) Range(from, to int) datasource.Builder {
	return m.chain(m.Called(from, to))
}

func (m *MockBuilder) Single() datasource.Builder {
	return m.chain(m.Called())
}

// Execute returns the configured response and error.
func (m *MockBuilder) Execute(ctx context.Context) (*datasource.Response, error) {
	args := m.Called(ctx)
	var resp *datasource.Response
	if r := args.Get(0); r != nil {
		resp = r.(*datasource.Response)
	}
	return resp, args.Error(1)
}
