package memstore

import (
	"bytes"
	"cmp"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"crudkit/internal/metadata"
	"crudkit/internal/query"
)

// Match evaluates a predicate against one record. A field holding no value
// matches nothing, the way a NULL column does in SQL.
func Match[T any](n query.Node, s *metadata.Schema[T], rec *T) (bool, error) {
	lookup := func(name string) (any, bool, error) {
		f, ok := s.Field(name)
		if !ok {
			return nil, false, fmt.Errorf("unknown field %q", name)
		}
		v, present := f.Get(rec)
		return v, present, nil
	}

	switch n := n.(type) {
	case nil, query.All:
		return true, nil
	case query.And:
		for _, child := range n.Nodes {
			ok, err := Match(child, s, rec)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case query.Compare:
		v, present, err := lookup(n.Field)
		if err != nil || !present {
			return false, err
		}
		c, ok := compareValues(v, n.Value)
		if !ok {
			return false, fmt.Errorf("field %s: cannot compare %T with %T", n.Field, v, n.Value)
		}
		switch n.Op {
		case query.Eq:
			return c == 0, nil
		case query.Ne:
			return c != 0, nil
		case query.Gt:
			return c > 0, nil
		case query.Lt:
			return c < 0, nil
		case query.Gte:
			return c >= 0, nil
		case query.Lte:
			return c <= 0, nil
		default:
			return false, fmt.Errorf("unsupported comparison %q", n.Op)
		}
	case query.Like:
		v, present, err := lookup(n.Field)
		if err != nil || !present {
			return false, err
		}
		str, ok := v.(string)
		if !ok {
			return false, fmt.Errorf("field %s: LIKE on %T", n.Field, v)
		}
		return likePattern(n.Pattern).MatchString(str), nil
	case query.Membership:
		v, present, err := lookup(n.Field)
		if err != nil || !present {
			return false, err
		}
		found := false
		for _, candidate := range n.Values {
			if c, ok := compareValues(v, candidate); ok && c == 0 {
				found = true
				break
			}
		}
		return found != n.Negate, nil
	case query.Tautology:
		_, present, err := lookup(n.Field)
		return present, err
	default:
		return false, fmt.Errorf("unsupported predicate %T", n)
	}
}

// likePattern turns a SQL LIKE pattern into an anchored regular expression.
// % matches any run of characters and _ matches exactly one. Matching is
// case-sensitive.
func likePattern(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString(`(?s)^`)
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(`.*`)
		case '_':
			b.WriteString(`.`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString(`$`)
	return regexp.MustCompile(b.String())
}

// compareValues orders two canonical values of the same type. It reports
// false when the values are not of the same comparable type.
func compareValues(a, b any) (int, bool) {
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return cmp.Compare(x, y), ok
	case int64:
		switch y := b.(type) {
		case int64:
			return cmp.Compare(x, y), true
		case float64:
			return cmp.Compare(float64(x), y), true
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return cmp.Compare(x, y), true
		case int64:
			return cmp.Compare(x, float64(y)), true
		}
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		default:
			return 1, true
		}
	case time.Time:
		y, ok := b.(time.Time)
		return x.Compare(y), ok
	case uuid.UUID:
		y, ok := b.(uuid.UUID)
		return bytes.Compare(x[:], y[:]), ok
	}
	return 0, false
}

// compareForSort orders absent values first.
func compareForSort(a any, aok bool, b any, bok bool) int {
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	c, _ := compareValues(a, b)
	return c
}
