package metadata

import (
	"fmt"
	"sync"
)

// Schema is the field-name-to-type map of a record type T. It is immutable
// once built and safe to share between goroutines.
type Schema[T any] struct {
	name   string
	table  string
	id     string
	fields []Field[T]
	index  map[string]int
}

// Source yields the schema of a record type, building it on first use.
type Source[T any] func() (*Schema[T], error)

// Lazy wraps a schema builder so it runs at most once. Every later call
// returns the same schema (or the same build error).
func Lazy[T any](build func() (*Schema[T], error)) Source[T] {
	return sync.OnceValues(build)
}

// New builds a schema. idField must name one of the fields.
func New[T any](name, table, idField string, fields ...Field[T]) (*Schema[T], error) {
	if name == "" {
		return nil, fmt.Errorf("schema name is required")
	}
	if table == "" {
		table = name
	}
	s := &Schema[T]{
		name:   name,
		table:  table,
		id:     idField,
		fields: make([]Field[T], 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("schema %s: field without a name", name)
		}
		if f.get == nil || f.set == nil {
			return nil, fmt.Errorf("schema %s: field %s has no accessors", name, f.Name)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("schema %s: duplicate field %s", name, f.Name)
		}
		if f.Kind == KindEnum && len(f.Enum) == 0 {
			return nil, fmt.Errorf("schema %s: enum field %s declares no values", name, f.Name)
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	if idField != "" && !s.HasField(idField) {
		return nil, fmt.Errorf("schema %s: id field %s is not declared", name, idField)
	}
	return s, nil
}

// Name returns the entity name.
func (s *Schema[T]) Name() string { return s.name }

// Table returns the storage table name.
func (s *Schema[T]) Table() string { return s.table }

// IDName returns the name of the identifier field, or "" for request schemas.
func (s *Schema[T]) IDName() string { return s.id }

// IDField returns the identifier field.
func (s *Schema[T]) IDField() (Field[T], bool) {
	return s.Field(s.id)
}

// Field returns the field with the given name.
func (s *Schema[T]) Field(name string) (Field[T], bool) {
	i, ok := s.index[name]
	if !ok {
		return Field[T]{}, false
	}
	return s.fields[i], true
}

// HasField returns true if the schema declares a field with the given name.
func (s *Schema[T]) HasField(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Fields returns the fields in declaration order.
func (s *Schema[T]) Fields() []Field[T] {
	out := make([]Field[T], len(s.fields))
	copy(out, s.fields)
	return out
}

// FieldNames returns all field names in declaration order.
func (s *Schema[T]) FieldNames() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Kinds returns the static kind of every field.
func (s *Schema[T]) Kinds() map[string]Kind {
	kinds := make(map[string]Kind, len(s.fields))
	for _, f := range s.fields {
		kinds[f.Name] = f.Kind
	}
	return kinds
}

// Values returns the canonical values of all present fields of rec.
// Absent optional fields map to nil.
func (s *Schema[T]) Values(rec *T) map[string]any {
	values := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		v, ok := f.Get(rec)
		if !ok {
			v = nil
		}
		values[f.Name] = v
	}
	return values
}
