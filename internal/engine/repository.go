package engine

import (
	"context"

	"crudkit/internal/query"
	"crudkit/internal/store"
)

// Repository is the persistence capability a Service depends on.
// store.Repository and memstore.Repository implement it.
type Repository[E any, K comparable] interface {
	FindAll(ctx context.Context, where query.Node, page query.PageRequest) (store.Page[E], error)
	// FindByID returns store.ErrNotFound when no record has the id.
	FindByID(ctx context.Context, id K) (*E, error)
	FindAllByID(ctx context.Context, ids []K) ([]*E, error)
	Save(ctx context.Context, e *E) (*E, error)
	// SaveAll stores all records or none of them.
	SaveAll(ctx context.Context, es []*E) ([]*E, error)
	DeleteByID(ctx context.Context, id K) error
}

// Mapper converts between records and the request and response types of a
// resource.
type Mapper[E, C, U, R, D any] interface {
	Create(req C) *E
	// Update overwrites every mapped field of rec from req.
	Update(rec *E, req U)
	Detail(rec *E) D
	Response(rec *E) R
}
