package query

import "encoding/json"

// Filter is one (field, operator, value) constraint. Two filters are the
// same constraint only when all three parts are equal.
type Filter struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
}

// FilterSet is an insertion-ordered set of filters. All filters in a set
// are ANDed together. The zero value is empty and ready to use.
type FilterSet struct {
	items []Filter
	seen  map[Filter]struct{}
}

// NewFilterSet returns a set holding the given filters minus duplicates.
func NewFilterSet(filters ...Filter) *FilterSet {
	s := &FilterSet{}
	for _, f := range filters {
		s.Add(f)
	}
	return s
}

// Add inserts f and reports whether it was not already present.
func (s *FilterSet) Add(f Filter) bool {
	if s.seen == nil {
		s.seen = make(map[Filter]struct{})
	}
	if _, ok := s.seen[f]; ok {
		return false
	}
	s.seen[f] = struct{}{}
	s.items = append(s.items, f)
	return true
}

func (s *FilterSet) Contains(f Filter) bool {
	if s == nil {
		return false
	}
	_, ok := s.seen[f]
	return ok
}

func (s *FilterSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Items returns the filters in insertion order.
func (s *FilterSet) Items() []Filter {
	if s == nil {
		return nil
	}
	out := make([]Filter, len(s.items))
	copy(out, s.items)
	return out
}

// MarshalJSON encodes the set as an array, never null.
func (s *FilterSet) MarshalJSON() ([]byte, error) {
	items := s.Items()
	if items == nil {
		items = []Filter{}
	}
	return json.Marshal(items)
}
