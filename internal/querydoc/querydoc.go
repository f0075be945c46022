// Package querydoc loads query description files: YAML documents naming a
// table, its condition branches, ordering and pagination. Documents are
// checked against an embedded CUE schema before they are decoded, and
// mapping key order is kept so compiled filters follow the file.
package querydoc

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/tabula/cond"
	"github.com/roach88/tabula/datasource"
	"github.com/roach88/tabula/option"
	"github.com/roach88/tabula/query"
)

//go:embed schema.cue
var schemaCUE string

// Document is a decoded query description.
type Document struct {
	Table string

	// SoftDelete is the requested mode, if the document sets one.
	SoftDelete option.Option[cond.Mode]

	// SoftDeleteColumn overrides the table's marker column.
	SoftDeleteColumn string

	// Branches holds the top-level branch followed by each or: entry.
	Branches cond.List

	Order  option.Option[datasource.Ordering]
	Limit  option.Option[int]
	Offset option.Option[int]
}

// Error reports an invalid document, with the position of the offending
// value when known.
type Error struct {
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Load reads and parses the document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, data)
}

// Parse validates data against the schema and decodes it. filename is
// used in error positions.
func Parse(filename string, data []byte) (*Document, error) {
	if err := Validate(filename, data); err != nil {
		return nil, err
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &Error{Message: err.Error()}
	}
	if len(root.Content) == 0 {
		return nil, &Error{Message: "empty document"}
	}
	return decode(root.Content[0])
}

// Validate checks data against the #Query schema without decoding it.
func Validate(filename string, data []byte) error {
	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return formatCUEError(err, filename)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile query schema: %w", err)
	}

	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return formatCUEError(err, filename)
	}

	unified := schema.LookupPath(cue.ParsePath("#Query")).Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err, filename)
	}
	return nil
}

// formatCUEError reports the first CUE error, positioned in the document
// when one of its positions points there.
func formatCUEError(err error, filename string) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Message: err.Error()}
	}

	first := errs[0]
	positions := cueerrors.Positions(first)
	for _, pos := range positions {
		if pos.Filename() == filename {
			return &Error{Message: first.Error(), Pos: pos}
		}
	}
	if len(positions) > 0 {
		return &Error{Message: first.Error(), Pos: positions[0]}
	}
	return &Error{Message: first.Error()}
}

// Query builds the described query over src. opts are applied first, so a
// table default soft-delete column from configuration can be passed in and
// overridden by the document.
func (d *Document) Query(src datasource.Source, opts ...query.QueryOption) query.Query[datasource.Row] {
	if d.SoftDeleteColumn != "" {
		opts = append(opts, query.WithSoftDelete(d.SoftDeleteColumn))
	}
	opts = append(opts, query.WithConditions(d.Branches[0]))

	q := query.New[datasource.Row](src, d.Table, opts...)
	for _, branch := range d.Branches[1:] {
		q = q.Or(branch)
	}

	if mode, ok := d.SoftDelete.Get(); ok {
		switch mode {
		case cond.Include:
			q = q.IncludeDeleted()
		case cond.Exclude:
			q = q.ExcludeDeleted()
		case cond.Only:
			q = q.OnlyDeleted()
		}
	}
	if o, ok := d.Order.Get(); ok {
		q = q.Order(o.Field, o.OrderOptions)
	}
	if n, ok := d.Limit.Get(); ok {
		q = q.Limit(n)
	}
	if n, ok := d.Offset.Get(); ok {
		q = q.Offset(n)
	}
	return q
}
