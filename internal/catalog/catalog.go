// Package catalog holds the sample resources served by crudkit.
package catalog

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"crudkit/internal/engine"
	"crudkit/internal/instrument"
	"crudkit/internal/memstore"
	"crudkit/internal/store"
)

// Deps selects the backend of the catalog. A nil Store keeps records in
// memory.
type Deps struct {
	Store        *store.Store
	Logger       *slog.Logger
	Instrumenter instrument.Instrumenter
}

// Register adds every catalog resource to reg.
func Register(reg *engine.Registry, deps Deps) error {
	customers, err := NewCustomerService(deps)
	if err != nil {
		return err
	}
	products, err := NewProductService(deps)
	if err != nil {
		return err
	}
	for _, r := range []engine.Resource{
		engine.NewResource(customers, engine.Int64ID),
		engine.NewResource(products, engine.UUIDID),
	} {
		if err := reg.Register(r); err != nil {
			return err
		}
	}
	return nil
}

// Tables returns the table definitions of every catalog resource.
func Tables() ([]store.Table, error) {
	customers, err := CustomerSchema()
	if err != nil {
		return nil, fmt.Errorf("customer schema: %w", err)
	}
	products, err := ProductSchema()
	if err != nil {
		return nil, fmt.Errorf("product schema: %w", err)
	}
	return []store.Table{store.TableOf(customers), store.TableOf(products)}, nil
}

type (
	CustomerService = engine.Service[Customer, int64, CreateCustomerRequest, UpdateCustomerRequest, CustomerResponse, CustomerDetail]
	ProductService  = engine.Service[Product, uuid.UUID, CreateProductRequest, UpdateProductRequest, ProductResponse, ProductDetail]
)

func NewCustomerService(deps Deps) (*CustomerService, error) {
	rules, err := engine.NewRuleSet(customerRules...)
	if err != nil {
		return nil, fmt.Errorf("customer rules: %w", err)
	}
	var repo engine.Repository[Customer, int64]
	if deps.Store != nil {
		repo = store.NewRepository[Customer, int64](deps.Store, CustomerSchema)
	} else {
		repo = memstore.New(CustomerSchema, CustomerKey)
	}
	return engine.NewService(engine.Config[Customer, int64, CreateCustomerRequest, UpdateCustomerRequest, CustomerResponse, CustomerDetail]{
		Records:      CustomerSchema,
		Updates:      UpdateCustomerSchema,
		Key:          CustomerKey,
		Repository:   repo,
		Mapper:       CustomerMapper{},
		Rules:        rules,
		Logger:       deps.Logger,
		Instrumenter: deps.Instrumenter,
	})
}

func NewProductService(deps Deps) (*ProductService, error) {
	rules, err := engine.NewRuleSet(productRules...)
	if err != nil {
		return nil, fmt.Errorf("product rules: %w", err)
	}
	var repo engine.Repository[Product, uuid.UUID]
	if deps.Store != nil {
		repo = store.NewRepository[Product, uuid.UUID](deps.Store, ProductSchema)
	} else {
		repo = memstore.New(ProductSchema, ProductKey)
	}
	return engine.NewService(engine.Config[Product, uuid.UUID, CreateProductRequest, UpdateProductRequest, ProductResponse, ProductDetail]{
		Records:      ProductSchema,
		Updates:      UpdateProductSchema,
		Key:          ProductKey,
		Repository:   repo,
		Mapper:       ProductMapper{},
		Rules:        rules,
		Logger:       deps.Logger,
		Instrumenter: deps.Instrumenter,
	})
}
