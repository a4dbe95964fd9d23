package query

import "crudkit/internal/metadata"

// Operator is the comparison applied between a field and a filter value.
// The names are the exact, case-sensitive tokens accepted on the wire.
type Operator string

const (
	OpEquals              Operator = "EQUALS"
	OpNotEquals           Operator = "NOT_EQUALS"
	OpLike                Operator = "LIKE"
	OpStartWith           Operator = "START_WITH"
	OpEndWith             Operator = "END_WITH"
	OpGreaterThan         Operator = "GREATER_THAN"
	OpLessThan            Operator = "LESS_THAN"
	OpGreaterThanOrEquals Operator = "GREATER_THAN_OR_EQUALS"
	OpLessThanOrEquals    Operator = "LESS_THAN_OR_EQUALS"
	OpIn                  Operator = "IN"
	OpNotIn               Operator = "NOT_IN"
)

// Operators lists every operator in declaration order.
var Operators = []Operator{
	OpEquals, OpNotEquals, OpLike, OpStartWith, OpEndWith,
	OpGreaterThan, OpLessThan, OpGreaterThanOrEquals, OpLessThanOrEquals,
	OpIn, OpNotIn,
}

var known = func() map[Operator]bool {
	m := make(map[Operator]bool, len(Operators))
	for _, op := range Operators {
		m[op] = true
	}
	return m
}()

var stringLegal = map[Operator]bool{
	OpEquals: true, OpNotEquals: true,
	OpLike: true, OpStartWith: true, OpEndWith: true,
	OpIn: true, OpNotIn: true,
}

var numericLegal = map[Operator]bool{
	OpEquals: true, OpNotEquals: true,
	OpGreaterThan: true, OpLessThan: true,
	OpGreaterThanOrEquals: true, OpLessThanOrEquals: true,
	OpIn: true, OpNotIn: true,
}

var wildcard = map[Operator]bool{
	OpLike: true, OpStartWith: true, OpEndWith: true,
}

// ResolveOperator maps an operator token to an Operator. Absent or unknown
// tokens resolve to OpEquals; the function never fails.
func ResolveOperator(token string) Operator {
	op := Operator(token)
	if known[op] {
		return op
	}
	return OpEquals
}

// Guard returns the operator to use for a field of the given kind, forcing
// OpEquals when op is not legal for it.
//
// Timestamps are ordered and follow the numeric rules. UUIDs follow the
// string rules without the wildcard operators.
func Guard(kind metadata.Kind, op Operator) Operator {
	switch kind {
	case metadata.KindInt, metadata.KindFloat, metadata.KindTime:
		if !numericLegal[op] {
			return OpEquals
		}
	case metadata.KindString:
		if !stringLegal[op] {
			return OpEquals
		}
	case metadata.KindUUID:
		if !stringLegal[op] || wildcard[op] {
			return OpEquals
		}
	default:
		// booleans and enums compare by equality only
		return OpEquals
	}
	return op
}
