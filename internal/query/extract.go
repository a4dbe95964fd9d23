package query

import (
	"net/url"
	"slices"
	"strings"

	"crudkit/internal/metadata"
)

// Candidate is a syntactically valid filter parameter before its operator
// has been resolved.
type Candidate struct {
	Field string
	Value string
	Token string
}

// Extract turns raw request parameters into candidates. Keys that are not
// schema fields, empty value lists and values the field cannot parse are
// dropped without error. Only the first value of a key is used.
func Extract[T any](params url.Values, s *metadata.Schema[T]) []Candidate {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var out []Candidate
	for _, key := range keys {
		field, ok := s.Field(key)
		if !ok {
			continue
		}
		values := params[key]
		if len(values) == 0 {
			continue
		}
		tokens := splitTokens(values[0])
		if len(tokens) == 0 {
			continue
		}
		if _, err := field.Parse(tokens[0]); err != nil {
			continue
		}
		c := Candidate{Field: key, Value: tokens[0]}
		if len(tokens) > 1 {
			c.Token = tokens[1]
		}
		out = append(out, c)
	}
	return out
}

// BuildFilters extracts candidates and resolves and guards their operators.
func BuildFilters[T any](params url.Values, s *metadata.Schema[T]) *FilterSet {
	set := &FilterSet{}
	for _, c := range Extract(params, s) {
		field, _ := s.Field(c.Field)
		set.Add(Filter{
			Field:    c.Field,
			Operator: Guard(field.Kind, ResolveOperator(c.Token)),
			Value:    c.Value,
		})
	}
	return set
}

// splitTokens splits on commas and discards empty tokens, so "a,,LIKE"
// yields [a LIKE] and "," yields nothing.
func splitTokens(raw string) []string {
	parts := strings.Split(raw, ",")
	tokens := parts[:0]
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}
