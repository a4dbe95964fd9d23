package query

import (
	"fmt"
	"strings"
)

// Node is a compiled predicate. Storage backends translate nodes into their
// own query form; see store.WhereSQL and memstore.Match.
type Node interface {
	node()
	String() string
}

// Cmp is an ordered or equality comparison.
type Cmp string

const (
	Eq  Cmp = "="
	Ne  Cmp = "!="
	Gt  Cmp = ">"
	Lt  Cmp = "<"
	Gte Cmp = ">="
	Lte Cmp = "<="
)

// All matches every record.
type All struct{}

// And matches when every child matches.
type And struct {
	Nodes []Node
}

// Compare compares a field with a native value.
type Compare struct {
	Field string
	Op    Cmp
	Value any
}

// Like matches a text field against a pattern where % stands for any run
// of characters.
type Like struct {
	Field   string
	Pattern string
}

// Membership tests whether a field equals one of Values, or none of them
// when Negate is set.
type Membership struct {
	Field  string
	Values []any
	Negate bool
}

// Tautology compares a field with itself. It is true for every record with
// a non-null value in Field.
type Tautology struct {
	Field string
}

func (All) node()        {}
func (And) node()        {}
func (Compare) node()    {}
func (Like) node()       {}
func (Membership) node() {}
func (Tautology) node()  {}

func (All) String() string { return "TRUE" }

func (n And) String() string {
	parts := make([]string, len(n.Nodes))
	for i, c := range n.Nodes {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, " AND ") + ")"
}

func (n Compare) String() string {
	return fmt.Sprintf("%s %s %v", n.Field, n.Op, n.Value)
}

func (n Like) String() string {
	return fmt.Sprintf("%s LIKE %q", n.Field, n.Pattern)
}

func (n Membership) String() string {
	op := "IN"
	if n.Negate {
		op = "NOT IN"
	}
	return fmt.Sprintf("%s %s %v", n.Field, op, n.Values)
}

func (n Tautology) String() string {
	return fmt.Sprintf("%s = %s", n.Field, n.Field)
}
