// Package instrument records per-operation metrics for the CRUD engine.
package instrument

import "context"

// Instrumenter starts a span around one engine operation.
type Instrumenter interface {
	StartSpan(ctx context.Context, entity, operation string) (context.Context, Span)
}

// Span ends exactly once. The status defaults to StatusOK.
type Span interface {
	SetStatus(status string)
	End()
}

const (
	StatusOK       = "ok"
	StatusNotFound = "not_found"
	StatusInvalid  = "invalid"
	StatusConflict = "conflict"
	StatusError    = "error"
)

type ctxKey struct{}

// WithInstrumenter stores inst in ctx.
func WithInstrumenter(ctx context.Context, inst Instrumenter) context.Context {
	return context.WithValue(ctx, ctxKey{}, inst)
}

// GetInstrumenter returns the instrumenter stored in ctx, or a no-op one.
func GetInstrumenter(ctx context.Context) Instrumenter {
	if inst, ok := ctx.Value(ctxKey{}).(Instrumenter); ok && inst != nil {
		return inst
	}
	return &NoopInstrumenter{}
}
