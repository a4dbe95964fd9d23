package metadata

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Kind is the static type tag of a schema field.
type Kind uint8

const (
	KindString Kind = iota + 1
	KindInt
	KindFloat
	KindBool
	KindEnum
	KindTime
	KindUUID
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "boolean"
	case KindEnum:
		return "enum"
	case KindTime:
		return "timestamp"
	case KindUUID:
		return "uuid"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether values of this kind are numbers.
func (k Kind) IsNumeric() bool {
	return k == KindInt || k == KindFloat
}

// Integer lists the Go integer types an Int field may be declared with.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32
}

// Floating lists the Go types a Float field may be declared with.
type Floating interface {
	~float32 | ~float64
}

// Field describes one field of a record type T: its name, static kind and
// declared Go type, plus typed accessors. Accessors exchange canonical values:
// string, int64, float64, bool, string (enum), time.Time and uuid.UUID.
type Field[T any] struct {
	Name   string
	Kind   Kind
	Type   string // declared Go type, e.g. "int" or "catalog.Status"
	Enum   []string
	Unique bool

	get func(*T) (any, bool)
	set func(*T, any) bool
}

// Get returns the canonical value of the field and whether it is present.
// Optional fields holding nil report false.
func (f Field[T]) Get(rec *T) (any, bool) {
	return f.get(rec)
}

// Set assigns a canonical value. It returns false and leaves the record
// untouched when v does not fit the field. Setting nil clears optional fields.
func (f Field[T]) Set(rec *T, v any) bool {
	return f.set(rec, v)
}

// AsUnique marks the field as carrying a uniqueness constraint.
func (f Field[T]) AsUnique() Field[T] {
	f.Unique = true
	return f
}

// SameType reports whether two fields have the same kind and declared Go type.
func SameType[A, B any](a Field[A], b Field[B]) bool {
	return a.Kind == b.Kind && a.Type == b.Type
}

// Parse converts a raw string into the field's canonical value.
func (f Field[T]) Parse(raw string) (any, error) {
	switch f.Kind {
	case KindString:
		return raw, nil
	case KindInt:
		return strconv.ParseInt(raw, 10, 64)
	case KindFloat:
		return strconv.ParseFloat(raw, 64)
	case KindBool:
		return strconv.ParseBool(raw)
	case KindEnum:
		if !slices.Contains(f.Enum, raw) {
			return nil, fmt.Errorf("%q is not one of %v", raw, f.Enum)
		}
		return raw, nil
	case KindTime:
		return parseTime(raw)
	case KindUUID:
		return uuid.Parse(raw)
	default:
		return nil, fmt.Errorf("field %s has unknown kind", f.Name)
	}
}

func scalar[T, V any](name string, kind Kind, ref func(*T) *V, out func(V) any, in func(any) (V, bool)) Field[T] {
	var zero V
	return Field[T]{
		Name: name,
		Kind: kind,
		Type: fmt.Sprintf("%T", zero),
		get: func(rec *T) (any, bool) {
			return out(*ref(rec)), true
		},
		set: func(rec *T, v any) bool {
			x, ok := in(v)
			if ok {
				*ref(rec) = x
			}
			return ok
		},
	}
}

func optional[T, V any](name string, kind Kind, ref func(*T) **V, out func(V) any, in func(any) (V, bool)) Field[T] {
	var zero V
	return Field[T]{
		Name: name,
		Kind: kind,
		Type: fmt.Sprintf("%T", zero),
		get: func(rec *T) (any, bool) {
			p := *ref(rec)
			if p == nil {
				return nil, false
			}
			return out(*p), true
		},
		set: func(rec *T, v any) bool {
			if v == nil {
				*ref(rec) = nil
				return true
			}
			x, ok := in(v)
			if ok {
				*ref(rec) = &x
			}
			return ok
		},
	}
}

func stringOut[V ~string](v V) any { return string(v) }

func stringIn[V ~string](v any) (V, bool) {
	s, ok := v.(string)
	return V(s), ok
}

func intOut[V Integer](v V) any { return int64(v) }

func intIn[V Integer](v any) (V, bool) {
	n, ok := v.(int64)
	return V(n), ok
}

func floatOut[V Floating](v V) any { return float64(v) }

func floatIn[V Floating](v any) (V, bool) {
	f, ok := v.(float64)
	return V(f), ok
}

func boolOut[V ~bool](v V) any { return bool(v) }

func boolIn[V ~bool](v any) (V, bool) {
	b, ok := v.(bool)
	return V(b), ok
}

func same[V any](v V) any { return v }

func as[V any](v any) (V, bool) {
	x, ok := v.(V)
	return x, ok
}

// String declares a text field.
func String[T any, V ~string](name string, ref func(*T) *V) Field[T] {
	return scalar(name, KindString, ref, stringOut[V], stringIn[V])
}

// OptString declares a nullable text field.
func OptString[T any, V ~string](name string, ref func(*T) **V) Field[T] {
	return optional(name, KindString, ref, stringOut[V], stringIn[V])
}

// Int declares an integer field.
func Int[T any, V Integer](name string, ref func(*T) *V) Field[T] {
	return scalar(name, KindInt, ref, intOut[V], intIn[V])
}

// OptInt declares a nullable integer field.
func OptInt[T any, V Integer](name string, ref func(*T) **V) Field[T] {
	return optional(name, KindInt, ref, intOut[V], intIn[V])
}

// Float declares a floating point field.
func Float[T any, V Floating](name string, ref func(*T) *V) Field[T] {
	return scalar(name, KindFloat, ref, floatOut[V], floatIn[V])
}

// OptFloat declares a nullable floating point field.
func OptFloat[T any, V Floating](name string, ref func(*T) **V) Field[T] {
	return optional(name, KindFloat, ref, floatOut[V], floatIn[V])
}

// Bool declares a boolean field.
func Bool[T any, V ~bool](name string, ref func(*T) *V) Field[T] {
	return scalar(name, KindBool, ref, boolOut[V], boolIn[V])
}

// OptBool declares a nullable boolean field.
func OptBool[T any, V ~bool](name string, ref func(*T) **V) Field[T] {
	return optional(name, KindBool, ref, boolOut[V], boolIn[V])
}

// Enum declares a field restricted to the given values.
func Enum[T any, V ~string](name string, ref func(*T) *V, values ...V) Field[T] {
	f := scalar(name, KindEnum, ref, stringOut[V], stringIn[V])
	f.Enum = enumNames(values)
	return f
}

// OptEnum declares a nullable field restricted to the given values.
func OptEnum[T any, V ~string](name string, ref func(*T) **V, values ...V) Field[T] {
	f := optional(name, KindEnum, ref, stringOut[V], stringIn[V])
	f.Enum = enumNames(values)
	return f
}

// Time declares a timestamp field.
func Time[T any](name string, ref func(*T) *time.Time) Field[T] {
	return scalar(name, KindTime, ref, same[time.Time], as[time.Time])
}

// OptTime declares a nullable timestamp field.
func OptTime[T any](name string, ref func(*T) **time.Time) Field[T] {
	return optional(name, KindTime, ref, same[time.Time], as[time.Time])
}

// UUID declares a UUID field.
func UUID[T any](name string, ref func(*T) *uuid.UUID) Field[T] {
	return scalar(name, KindUUID, ref, same[uuid.UUID], as[uuid.UUID])
}

// OptUUID declares a nullable UUID field.
func OptUUID[T any](name string, ref func(*T) **uuid.UUID) Field[T] {
	return optional(name, KindUUID, ref, same[uuid.UUID], as[uuid.UUID])
}

func enumNames[V ~string](values []V) []string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = string(v)
	}
	return names
}
