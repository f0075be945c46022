package querydoc

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tabula/cond"
	"github.com/roach88/tabula/datasource"
	"github.com/roach88/tabula/option"
)

// slots maps branch keys to the operator each one feeds. where and is are
// handled separately.
var slots = map[string]cond.Op{
	"wherein": cond.OpIn,
	"gt":      cond.OpGt,
	"gte":     cond.OpGte,
	"lt":      cond.OpLt,
	"lte":     cond.OpLte,
	"neq":     cond.OpNeq,
	"like":    cond.OpLike,
	"ilike":   cond.OpILike,
}

type orderDoc struct {
	Field      string `yaml:"field"`
	Ascending  bool   `yaml:"ascending"`
	NullsFirst bool   `yaml:"nulls_first"`
}

func decode(node *yaml.Node) (*Document, error) {
	if node.Kind != yaml.MappingNode {
		return nil, nodeError(node, "document must be a mapping")
	}

	doc := &Document{}
	var top cond.Set
	var ors []cond.Set

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		var err error
		switch key.Value {
		case "table":
			doc.Table = val.Value
		case "soft_delete":
			var mode cond.Mode
			mode, err = cond.ParseMode(val.Value)
			doc.SoftDelete = option.Some(mode)
		case "soft_delete_column":
			doc.SoftDeleteColumn = val.Value
		case "or":
			ors, err = decodeBranches(val)
		case "order":
			var o orderDoc
			err = val.Decode(&o)
			doc.Order = option.Some(datasource.Ordering{
				Field:        o.Field,
				OrderOptions: datasource.OrderOptions{Ascending: o.Ascending, NullsFirst: o.NullsFirst},
			})
		case "limit":
			var n int
			err = val.Decode(&n)
			doc.Limit = option.Some(n)
		case "offset":
			var n int
			err = val.Decode(&n)
			doc.Offset = option.Some(n)
		default:
			err = decodeSlot(&top, key, val)
		}
		if err != nil {
			return nil, err
		}
	}

	doc.Branches = cond.NewList(top, ors...)
	return doc, nil
}

func decodeBranches(node *yaml.Node) ([]cond.Set, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, nodeError(node, "or must be a list of branches")
	}
	out := make([]cond.Set, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.MappingNode {
			return nil, nodeError(item, "branch must be a mapping")
		}
		var s cond.Set
		for i := 0; i+1 < len(item.Content); i += 2 {
			if err := decodeSlot(&s, item.Content[i], item.Content[i+1]); err != nil {
				return nil, err
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// decodeSlot fills the condition slot named by key.
func decodeSlot(s *cond.Set, key, val *yaml.Node) error {
	if val.Kind != yaml.MappingNode {
		return nodeError(val, fmt.Sprintf("%s must be a mapping", key.Value))
	}

	switch key.Value {
	case "where":
		fields, err := decodeFields(val, decodeWhereValue)
		s.Where = fields
		return err
	case "is":
		fields, err := decodeFields(val, decodeScalar)
		s.Is = fields
		return err
	}

	op, ok := slots[key.Value]
	if !ok {
		return nodeError(key, fmt.Sprintf("unknown field %q", key.Value))
	}
	fields, err := decodeFields(val, decodeScalar)
	if err != nil {
		return err
	}
	switch op {
	case cond.OpIn:
		s.WhereIn = fields
	case cond.OpGt:
		s.Gt = fields
	case cond.OpGte:
		s.Gte = fields
	case cond.OpLt:
		s.Lt = fields
	case cond.OpLte:
		s.Lte = fields
	case cond.OpNeq:
		s.Neq = fields
	case cond.OpLike:
		s.Like = fields
	case cond.OpILike:
		s.ILike = fields
	}
	return nil
}

// decodeFields decodes a mapping into Fields in document order.
func decodeFields(node *yaml.Node, value func(*yaml.Node) (any, error)) (cond.Fields, error) {
	out := make(cond.Fields, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		v, err := value(node.Content[i+1])
		if err != nil {
			return nil, err
		}
		out = out.Set(node.Content[i].Value, v)
	}
	return out, nil
}

// decodeWhereValue decodes a where entry: a literal, or a mapping of
// embedded operators.
func decodeWhereValue(node *yaml.Node) (any, error) {
	if node.Kind != yaml.MappingNode {
		return decodeScalar(node)
	}
	ops := cond.Ops{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		op, ok := cond.ParseOp(key.Value)
		if !ok {
			return nil, nodeError(key, fmt.Sprintf("unknown operator %q", key.Value))
		}
		v, err := decodeScalar(node.Content[i+1])
		if err != nil {
			return nil, err
		}
		ops[op] = v
	}
	return ops, nil
}

func decodeScalar(node *yaml.Node) (any, error) {
	var v any
	if err := node.Decode(&v); err != nil {
		return nil, nodeError(node, err.Error())
	}
	return v, nil
}

func nodeError(node *yaml.Node, msg string) error {
	return &Error{Message: fmt.Sprintf("line %d: %s", node.Line, msg)}
}
