package query

import "crudkit/internal/metadata"

// Compile turns a filter set into one predicate: the conjunction of the
// per-filter predicates, or All for an empty set. Operators are guarded
// again against the schema, and values are converted to the field's native
// type, so caller-built sets cannot smuggle in illegal pairings. Filters
// naming unknown fields or carrying unparseable values are skipped.
func Compile[T any](s *metadata.Schema[T], filters *FilterSet) Node {
	var nodes []Node
	for _, f := range filters.Items() {
		field, ok := s.Field(f.Field)
		if !ok {
			continue
		}
		v, err := field.Parse(f.Value)
		if err != nil {
			continue
		}
		nodes = append(nodes, compileFilter(f.Field, Guard(field.Kind, f.Operator), f.Value, v))
	}
	switch len(nodes) {
	case 0:
		return All{}
	case 1:
		return nodes[0]
	default:
		return And{Nodes: nodes}
	}
}

func compileFilter(field string, op Operator, raw string, v any) Node {
	switch op {
	case OpEquals:
		return Compare{Field: field, Op: Eq, Value: v}
	case OpNotEquals:
		return Compare{Field: field, Op: Ne, Value: v}
	case OpLike:
		return Like{Field: field, Pattern: "%" + raw + "%"}
	case OpStartWith:
		return Like{Field: field, Pattern: raw + "%"}
	case OpEndWith:
		return Like{Field: field, Pattern: "%" + raw}
	case OpGreaterThan:
		return Compare{Field: field, Op: Gt, Value: v}
	case OpLessThan:
		return Compare{Field: field, Op: Lt, Value: v}
	case OpGreaterThanOrEquals:
		return Compare{Field: field, Op: Gte, Value: v}
	case OpLessThanOrEquals:
		return Compare{Field: field, Op: Lte, Value: v}
	case OpIn:
		return Membership{Field: field, Values: []any{v}}
	case OpNotIn:
		return Membership{Field: field, Values: []any{v}, Negate: true}
	default:
		return Tautology{Field: field}
	}
}
