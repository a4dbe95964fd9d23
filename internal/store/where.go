package store

import (
	"fmt"
	"strings"

	"crudkit/internal/query"
)

// WhereSQL translates a predicate into a SQL condition, adding its
// arguments to pb. It returns "" for a predicate that matches everything.
// Every field a node names must satisfy known; the field names are
// written into the statement as column identifiers.
func WhereSQL(n query.Node, d Dialect, pb ParamBuilder, known func(string) bool) (string, error) {
	column := func(field string) (string, error) {
		if !known(field) {
			return "", fmt.Errorf("unknown column %q", field)
		}
		return field, nil
	}

	switch n := n.(type) {
	case nil, query.All:
		return "", nil
	case query.And:
		var parts []string
		for _, child := range n.Nodes {
			sql, err := WhereSQL(child, d, pb, known)
			if err != nil {
				return "", err
			}
			if sql != "" {
				parts = append(parts, sql)
			}
		}
		return strings.Join(parts, " AND "), nil
	case query.Compare:
		col, err := column(n.Field)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", col, n.Op, pb.Add(d.Bind(n.Value))), nil
	case query.Like:
		col, err := column(n.Field)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s LIKE %s", col, pb.Add(n.Pattern)), nil
	case query.Membership:
		col, err := column(n.Field)
		if err != nil {
			return "", err
		}
		values := make([]any, len(n.Values))
		for i, v := range n.Values {
			values[i] = d.Bind(v)
		}
		return inExpr(col, pb, values, n.Negate), nil
	case query.Tautology:
		col, err := column(n.Field)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s = %s", col, col), nil
	default:
		return "", fmt.Errorf("unsupported predicate %T", n)
	}
}

// OrderSQL renders sorts as an ORDER BY list, skipping unknown fields.
// fallback, normally the id column, ends the list as a tiebreak unless a
// sort already names it.
func OrderSQL(sorts []query.Sort, known func(string) bool, fallback string) string {
	var parts []string
	tied := true
	for _, s := range sorts {
		if !known(s.Field) {
			continue
		}
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		parts = append(parts, s.Field+" "+dir)
		if s.Field == fallback {
			tied = false
		}
	}
	if tied && fallback != "" {
		parts = append(parts, fallback+" ASC")
	}
	return strings.Join(parts, ", ")
}
