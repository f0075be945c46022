// Package entity is a parameter-object facade over the query package. An
// Entity binds a data source and a table, and turns GetItem/GetItems
// parameters into queries and AddItems/UpdateItem/UpdateItems/DeleteItem
// parameters into mutations with the same execution contract.
package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/tabula/compiler"
	"github.com/roach88/tabula/cond"
	"github.com/roach88/tabula/datasource"
	"github.com/roach88/tabula/option"
	"github.com/roach88/tabula/query"
)

// Entity is the facade for one table. It holds no query state; every
// method returns a fresh query or mutation.
type Entity[T any] struct {
	src        datasource.Source
	table      string
	softDelete string
	identity   []string
	ids        IDGenerator
	now        func() time.Time
	logger     *slog.Logger
}

type settings struct {
	softDelete string
	identity   []string
	ids        IDGenerator
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures an Entity.
type Option func(*settings)

// WithSoftDelete marks the table as soft-deleting through column. Reads
// exclude deleted rows by default and DeleteItem stamps column instead of
// removing the row.
func WithSoftDelete(column string) Option {
	return func(s *settings) {
		s.softDelete = column
	}
}

// WithIdentity sets the default conflict target for UpdateItems.
// Default: id.
func WithIdentity(cols ...string) Option {
	return func(s *settings) {
		s.identity = cols
	}
}

// WithIDGenerator sets the generator for items added without an id.
// Default: UUIDv7Generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *settings) {
		s.ids = gen
	}
}

// WithClock sets the time source for soft-delete stamps.
// Default: time.Now in UTC.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}

// WithLogger sets the logger handed to every query and mutation.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// New creates an Entity for table.
func New[T any](src datasource.Source, table string, opts ...Option) *Entity[T] {
	st := settings{
		identity: []string{query.IDColumn},
		ids:      UUIDv7Generator{},
		now:      func() time.Time { return time.Now().UTC() },
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&st)
	}
	return &Entity[T]{
		src:        src,
		table:      table,
		softDelete: st.softDelete,
		identity:   st.identity,
		ids:        st.ids,
		now:        st.now,
		logger:     st.logger,
	}
}

// Table returns the entity's table.
func (e *Entity[T]) Table() string { return e.table }

// Query returns an unconstrained query over the table.
func (e *Entity[T]) Query(opts ...query.QueryOption) query.Query[T] {
	base := []query.QueryOption{query.WithLogger(e.logger)}
	if e.softDelete != "" {
		base = append(base, query.WithSoftDelete(e.softDelete))
	}
	return query.New[T](e.src, e.table, append(base, opts...)...)
}

// GetItemParams selects one row by id, optionally narrowed further.
type GetItemParams struct {
	ID    query.ID
	Where cond.Fields
	Is    cond.Fields
}

// GetItem returns a query for the row with params.ID.
func (e *Entity[T]) GetItem(params GetItemParams) query.Query[T] {
	set := cond.Set{
		Where: cond.Fields{cond.P(query.IDColumn, string(params.ID))}.Merge(params.Where),
		Is:    params.Is,
	}
	return e.Query(query.WithConditions(set))
}

// GetItemsParams selects rows by condition.
type GetItemsParams struct {
	Where   cond.Fields
	Is      cond.Fields
	WhereIn cond.Fields
	Order   option.Option[datasource.Ordering]
}

// GetItems returns a query for every row matching params.
func (e *Entity[T]) GetItems(params GetItemsParams) query.Query[T] {
	q := e.Query(query.WithConditions(cond.Set{
		Where:   params.Where,
		Is:      params.Is,
		WhereIn: params.WhereIn,
	}))
	if o, ok := params.Order.Get(); ok {
		q = q.Order(o.Field, o.OrderOptions)
	}
	return q
}

// AddItemsParams lists items to insert.
type AddItemsParams[T any] struct {
	Items []T
}

// AddItems returns a mutation inserting params.Items. Items without an id
// get one from the entity's generator when AddItems is called, so running
// the mutation again inserts the same ids.
func (e *Entity[T]) AddItems(params AddItemsParams[T]) (query.Mutation[T], error) {
	rows, err := e.encodeAll(params.Items)
	if err != nil {
		return query.Mutation[T]{}, err
	}
	for _, row := range rows {
		if id, ok := row[query.IDColumn]; !ok || id == nil || id == "" {
			row[query.IDColumn] = e.ids.Generate()
		}
	}
	return e.mutation("insert", func() datasource.Builder {
		return e.src.From(e.table).Insert(rows)
	}), nil
}

// UpdateItemParams patches one row by id. Item carries only the columns
// to change.
type UpdateItemParams struct {
	ID      query.ID
	Item    datasource.Row
	Where   cond.Fields
	Is      cond.Fields
	WhereIn cond.Fields
}

// UpdateItem returns a mutation applying params.Item to the row with
// params.ID. Soft-deleted rows are not updated.
func (e *Entity[T]) UpdateItem(params UpdateItemParams) query.Mutation[T] {
	values := datasource.CloneRow(params.Item)
	set := cond.Set{
		Where:   cond.Fields{cond.P(query.IDColumn, string(params.ID))}.Merge(params.Where),
		Is:      params.Is,
		WhereIn: params.WhereIn,
	}
	return e.mutation("update", func() datasource.Builder {
		b := e.src.From(e.table).Update(values)
		return e.constrain(b, set)
	})
}

// UpdateItemsParams upserts whole items. Identity overrides the entity's
// conflict target for this call.
type UpdateItemsParams[T any] struct {
	Items    []T
	Identity []string
	Where    cond.Fields
	Is       cond.Fields
	WhereIn  cond.Fields
}

// UpdateItems returns an upsert of params.Items keyed on the identity
// columns, joined with "," for the backend's conflict target.
func (e *Entity[T]) UpdateItems(params UpdateItemsParams[T]) (query.Mutation[T], error) {
	rows, err := e.encodeAll(params.Items)
	if err != nil {
		return query.Mutation[T]{}, err
	}
	identity := params.Identity
	if len(identity) == 0 {
		identity = e.identity
	}
	opts := datasource.UpsertOptions{OnConflict: strings.Join(identity, ",")}
	set := cond.Set{Where: params.Where, Is: params.Is, WhereIn: params.WhereIn}
	return e.mutation("upsert", func() datasource.Builder {
		b := e.src.From(e.table).Upsert(rows, opts)
		return e.constrain(b, set)
	}), nil
}

// DeleteItemParams selects the row to delete.
type DeleteItemParams struct {
	ID    query.ID
	Where cond.Fields
	Is    cond.Fields
}

// DeleteItem returns a mutation removing the row with params.ID. On a
// soft-delete table the row is stamped with the current time instead, and
// rows already deleted are left alone.
func (e *Entity[T]) DeleteItem(params DeleteItemParams) query.Mutation[T] {
	set := cond.Set{
		Where: cond.Fields{cond.P(query.IDColumn, string(params.ID))}.Merge(params.Where),
		Is:    params.Is,
	}
	if e.softDelete == "" {
		return e.mutation("delete", func() datasource.Builder {
			return compiler.ApplySet(e.src.From(e.table).Delete(), set.Normalize())
		})
	}
	return e.mutation("delete", func() datasource.Builder {
		b := e.src.From(e.table).Update(datasource.Row{e.softDelete: e.now()})
		return e.constrain(b, set)
	})
}

// constrain applies the table's soft-delete default and set to a
// mutation builder.
func (e *Entity[T]) constrain(b datasource.Builder, set cond.Set) datasource.Builder {
	if e.softDelete != "" {
		b = compiler.ApplySoftDelete(b, cond.TableDefault(e.softDelete))
	}
	return compiler.ApplySet(b, set.Normalize())
}

func (e *Entity[T]) mutation(op string, build func() datasource.Builder) query.Mutation[T] {
	return query.NewMutation[T](e.table, op, build, query.WithLogger(e.logger))
}

func (e *Entity[T]) encodeAll(items []T) ([]datasource.Row, error) {
	rows := make([]datasource.Row, len(items))
	for i, item := range items {
		row, err := EncodeItem(item)
		if err != nil {
			return nil, fmt.Errorf("encode %s item %d: %w", e.table, i, err)
		}
		rows[i] = row
	}
	return rows, nil
}

// EncodeItem converts an item to a row. Rows are copied; other values go
// through their JSON form, with integral numbers kept as int64.
func EncodeItem[T any](item T) (datasource.Row, error) {
	if row, ok := any(item).(datasource.Row); ok {
		return datasource.CloneRow(row), nil
	}
	data, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var row datasource.Row
	if err := dec.Decode(&row); err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("item encodes to %s, not an object", data)
	}
	for k, v := range row {
		row[k] = plainNumbers(v)
	}
	return row, nil
}

func plainNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case []any:
		for i := range x {
			x[i] = plainNumbers(x[i])
		}
	case map[string]any:
		for k := range x {
			x[k] = plainNumbers(x[k])
		}
	}
	return v
}
