package catalog

import (
	"github.com/google/uuid"

	"crudkit/internal/engine"
	"crudkit/internal/metadata"
)

type Category string

const (
	CategoryBooks       Category = "BOOKS"
	CategoryElectronics Category = "ELECTRONICS"
	CategoryGrocery     Category = "GROCERY"
	CategoryToys        Category = "TOYS"
)

var categories = []Category{CategoryBooks, CategoryElectronics, CategoryGrocery, CategoryToys}

type Product struct {
	ID          uuid.UUID
	SKU         string
	Name        string
	Price       float64
	Stock       int
	Category    Category
	Description *string
}

type CreateProductRequest struct {
	SKU         string   `json:"sku"`
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Stock       int      `json:"stock"`
	Category    Category `json:"category"`
	Description *string  `json:"description,omitempty"`
}

type UpdateProductRequest struct {
	SKU         *string   `json:"sku,omitempty"`
	Name        *string   `json:"name,omitempty"`
	Price       *float64  `json:"price,omitempty"`
	Stock       *int      `json:"stock,omitempty"`
	Category    *Category `json:"category,omitempty"`
	Description *string   `json:"description,omitempty"`
}

type ProductResponse struct {
	ID       uuid.UUID `json:"id"`
	SKU      string    `json:"sku"`
	Name     string    `json:"name"`
	Price    float64   `json:"price"`
	Category Category  `json:"category"`
}

type ProductDetail struct {
	ID          uuid.UUID `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	Category    Category  `json:"category"`
	Description *string   `json:"description,omitempty"`
}

var ProductSchema = metadata.Lazy(func() (*metadata.Schema[Product], error) {
	return metadata.New("products", "products", "id",
		metadata.UUID("id", func(p *Product) *uuid.UUID { return &p.ID }),
		metadata.String("sku", func(p *Product) *string { return &p.SKU }).AsUnique(),
		metadata.String("name", func(p *Product) *string { return &p.Name }),
		metadata.Float("price", func(p *Product) *float64 { return &p.Price }),
		metadata.Int("stock", func(p *Product) *int { return &p.Stock }),
		metadata.Enum("category", func(p *Product) *Category { return &p.Category }, categories...),
		metadata.OptString("description", func(p *Product) **string { return &p.Description }),
	)
})

var UpdateProductSchema = metadata.Lazy(func() (*metadata.Schema[UpdateProductRequest], error) {
	return metadata.New("update_product", "", "",
		metadata.OptString("sku", func(r *UpdateProductRequest) **string { return &r.SKU }),
		metadata.OptString("name", func(r *UpdateProductRequest) **string { return &r.Name }),
		metadata.OptFloat("price", func(r *UpdateProductRequest) **float64 { return &r.Price }),
		metadata.OptInt("stock", func(r *UpdateProductRequest) **int { return &r.Stock }),
		metadata.OptEnum("category", func(r *UpdateProductRequest) **Category { return &r.Category }, categories...),
		metadata.OptString("description", func(r *UpdateProductRequest) **string { return &r.Description }),
	)
})

func ProductKey(p *Product) uuid.UUID { return p.ID }

var productRules = []engine.Rule{
	{Type: "field", Field: "sku", Operator: "pattern", Value: `^[A-Z0-9-]{3,32}$`, Message: "SKU must be 3-32 upper-case letters, digits or dashes"},
	{Type: "field", Field: "name", Operator: "min_length", Value: 1, Message: "Name is required"},
	{Type: "field", Field: "price", Operator: "min", Value: 0, Message: "Price must be non-negative"},
	{Type: "field", Field: "stock", Operator: "min", Value: 0, Message: "Stock must be non-negative"},
	{
		Type:       "expression",
		Expression: "record.category not in ['BOOKS', 'ELECTRONICS', 'GROCERY', 'TOYS']",
		Field:      "category",
		Message:    "Unknown category",
	},
}

type ProductMapper struct{}

func (ProductMapper) Create(req CreateProductRequest) *Product {
	return &Product{
		SKU:         req.SKU,
		Name:        req.Name,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		Description: req.Description,
	}
}

func (ProductMapper) Update(p *Product, req UpdateProductRequest) {
	p.SKU = deref(req.SKU)
	p.Name = deref(req.Name)
	p.Price = deref(req.Price)
	p.Stock = deref(req.Stock)
	p.Category = deref(req.Category)
	p.Description = req.Description
}

func (ProductMapper) Response(p *Product) ProductResponse {
	return ProductResponse{ID: p.ID, SKU: p.SKU, Name: p.Name, Price: p.Price, Category: p.Category}
}

func (ProductMapper) Detail(p *Product) ProductDetail {
	return ProductDetail{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Price:       p.Price,
		Stock:       p.Stock,
		Category:    p.Category,
		Description: p.Description,
	}
}
