package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"crudkit/internal/metadata"
	"crudkit/internal/query"
)

// Resource is a Service with its type parameters erased, so one HTTP
// handler can serve every registered entity. Raw ids come from the path and
// bodies are undecoded JSON.
type Resource interface {
	Name() string
	Describe() metadata.Description
	List(ctx context.Context, req query.ParamsRequest) (any, error)
	Get(ctx context.Context, rawID string) (any, error)
	Create(ctx context.Context, body []byte) (any, error)
	CreateAll(ctx context.Context, body []byte) (any, error)
	Update(ctx context.Context, rawID string, body []byte) (any, error)
	Patch(ctx context.Context, rawID string, body []byte) (any, error)
	Delete(ctx context.Context, rawID string) (any, error)
	DeleteAll(ctx context.Context, rawIDs []string) (any, error)
}

// IDParser converts a path segment into an identifier.
type IDParser[K comparable] func(raw string) (K, error)

func Int64ID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}

func StringID(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("empty id")
	}
	return raw, nil
}

func UUIDID(raw string) (uuid.UUID, error) {
	return uuid.Parse(raw)
}

type resource[E any, K comparable, C, U, R, D any] struct {
	svc     *Service[E, K, C, U, R, D]
	parseID IDParser[K]
}

// NewResource erases the type parameters of svc.
func NewResource[E any, K comparable, C, U, R, D any](svc *Service[E, K, C, U, R, D], parseID IDParser[K]) Resource {
	return &resource[E, K, C, U, R, D]{svc: svc, parseID: parseID}
}

func (r *resource[E, K, C, U, R, D]) Name() string { return r.svc.Name() }

func (r *resource[E, K, C, U, R, D]) Describe() metadata.Description {
	d := r.svc.Schema().Describe()
	d.Name = r.svc.Name()
	return d
}

func (r *resource[E, K, C, U, R, D]) List(ctx context.Context, req query.ParamsRequest) (any, error) {
	return r.svc.FindAll(ctx, req)
}

func (r *resource[E, K, C, U, R, D]) Get(ctx context.Context, rawID string) (any, error) {
	id, err := r.id(rawID)
	if err != nil {
		return nil, err
	}
	return r.svc.FindByID(ctx, id)
}

func (r *resource[E, K, C, U, R, D]) Create(ctx context.Context, body []byte) (any, error) {
	var req C
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	return r.svc.Create(ctx, req)
}

func (r *resource[E, K, C, U, R, D]) CreateAll(ctx context.Context, body []byte) (any, error) {
	var reqs []C
	if err := decodeBody(body, &reqs); err != nil {
		return nil, err
	}
	return r.svc.CreateAll(ctx, reqs)
}

func (r *resource[E, K, C, U, R, D]) Update(ctx context.Context, rawID string, body []byte) (any, error) {
	id, err := r.id(rawID)
	if err != nil {
		return nil, err
	}
	var req U
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	return r.svc.Update(ctx, id, req)
}

func (r *resource[E, K, C, U, R, D]) Patch(ctx context.Context, rawID string, body []byte) (any, error) {
	id, err := r.id(rawID)
	if err != nil {
		return nil, err
	}
	var req U
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	return r.svc.Patch(ctx, id, req)
}

func (r *resource[E, K, C, U, R, D]) Delete(ctx context.Context, rawID string) (any, error) {
	id, err := r.id(rawID)
	if err != nil {
		return nil, err
	}
	return r.svc.DeleteByID(ctx, id)
}

func (r *resource[E, K, C, U, R, D]) DeleteAll(ctx context.Context, rawIDs []string) (any, error) {
	ids := make([]K, 0, len(rawIDs))
	for _, raw := range rawIDs {
		id, err := r.id(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return r.svc.DeleteAllByID(ctx, ids)
}

func (r *resource[E, K, C, U, R, D]) id(raw string) (K, error) {
	id, err := r.parseID(raw)
	if err != nil {
		var zero K
		return zero, InvalidIDError(r.svc.Name(), raw)
	}
	return id, nil
}

// decodeBody rejects empty bodies, unknown fields and trailing data.
func decodeBody(body []byte, v any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return InvalidPayloadError("Request body is required")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return InvalidPayloadError(fmt.Sprintf("Invalid JSON body: %v", err))
	}
	if dec.More() {
		return InvalidPayloadError("Invalid JSON body: trailing data")
	}
	return nil
}
