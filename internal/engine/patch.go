package engine

import "crudkit/internal/metadata"

// Merge copies fields of req into rec. A field is copied only when rec's
// schema declares a field of the same name with the same kind and Go type,
// and req holds a value for it. Absent request values leave the record
// untouched, so Merge can never clear a field. The record's identifier is
// never copied. Merge returns the names of the copied fields.
func Merge[E, U any](rec *E, recSchema *metadata.Schema[E], req *U, reqSchema *metadata.Schema[U]) []string {
	var copied []string
	for _, src := range reqSchema.Fields() {
		if src.Name == recSchema.IDName() {
			continue
		}
		dst, ok := recSchema.Field(src.Name)
		if !ok || !metadata.SameType(src, dst) {
			continue
		}
		v, present := src.Get(req)
		if !present {
			continue
		}
		if dst.Set(rec, v) {
			copied = append(copied, src.Name)
		}
	}
	return copied
}
