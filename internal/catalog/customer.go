package catalog

import (
	"time"

	"crudkit/internal/engine"
	"crudkit/internal/metadata"
)

type CustomerStatus string

const (
	CustomerActive   CustomerStatus = "ACTIVE"
	CustomerInactive CustomerStatus = "INACTIVE"
	CustomerBlocked  CustomerStatus = "BLOCKED"
)

type Customer struct {
	ID        int64
	Name      string
	Email     string
	Age       int
	Status    CustomerStatus
	Active    bool
	CreatedAt time.Time
}

type CreateCustomerRequest struct {
	Name   string         `json:"name"`
	Email  string         `json:"email"`
	Age    int            `json:"age"`
	Status CustomerStatus `json:"status,omitempty"`
}

type UpdateCustomerRequest struct {
	Name   *string         `json:"name,omitempty"`
	Email  *string         `json:"email,omitempty"`
	Age    *int            `json:"age,omitempty"`
	Status *CustomerStatus `json:"status,omitempty"`
	Active *bool           `json:"active,omitempty"`
}

// CustomerResponse is the list representation.
type CustomerResponse struct {
	ID     int64          `json:"id"`
	Name   string         `json:"name"`
	Status CustomerStatus `json:"status"`
}

type CustomerDetail struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Age       int            `json:"age"`
	Status    CustomerStatus `json:"status"`
	Active    bool           `json:"active"`
	CreatedAt time.Time      `json:"created_at"`
}

var CustomerSchema = metadata.Lazy(func() (*metadata.Schema[Customer], error) {
	return metadata.New("customers", "customers", "id",
		metadata.Int("id", func(c *Customer) *int64 { return &c.ID }),
		metadata.String("name", func(c *Customer) *string { return &c.Name }),
		metadata.String("email", func(c *Customer) *string { return &c.Email }).AsUnique(),
		metadata.Int("age", func(c *Customer) *int { return &c.Age }),
		metadata.Enum("status", func(c *Customer) *CustomerStatus { return &c.Status },
			CustomerActive, CustomerInactive, CustomerBlocked),
		metadata.Bool("active", func(c *Customer) *bool { return &c.Active }),
		metadata.Time("created_at", func(c *Customer) *time.Time { return &c.CreatedAt }),
	)
})

var UpdateCustomerSchema = metadata.Lazy(func() (*metadata.Schema[UpdateCustomerRequest], error) {
	return metadata.New("update_customer", "", "",
		metadata.OptString("name", func(r *UpdateCustomerRequest) **string { return &r.Name }),
		metadata.OptString("email", func(r *UpdateCustomerRequest) **string { return &r.Email }),
		metadata.OptInt("age", func(r *UpdateCustomerRequest) **int { return &r.Age }),
		metadata.OptEnum("status", func(r *UpdateCustomerRequest) **CustomerStatus { return &r.Status },
			CustomerActive, CustomerInactive, CustomerBlocked),
		metadata.OptBool("active", func(r *UpdateCustomerRequest) **bool { return &r.Active }),
	)
})

func CustomerKey(c *Customer) int64 { return c.ID }

var customerRules = []engine.Rule{
	{Type: "field", Field: "name", Operator: "min_length", Value: 1, Message: "Name is required"},
	{Type: "field", Field: "email", Operator: "pattern", Value: `^[^@\s]+@[^@\s]+\.[^@\s]+$`, Message: "Invalid email format"},
	{Type: "field", Field: "age", Operator: "min", Value: 0, Message: "Age must be non-negative"},
	{Type: "field", Field: "age", Operator: "max", Value: 150, Message: "Age must be at most 150"},
	{
		Type:       "expression",
		Expression: "record.status not in ['ACTIVE', 'INACTIVE', 'BLOCKED']",
		Field:      "status",
		Message:    "Unknown status",
		StopOnFail: true,
	},
	{
		Type:       "expression",
		Expression: "action == 'update' && old.status == 'BLOCKED' && record.status == 'ACTIVE'",
		Field:      "status",
		Message:    "Blocked customers cannot be reactivated",
	},
}

type CustomerMapper struct {
	now func() time.Time
}

func (m CustomerMapper) Create(req CreateCustomerRequest) *Customer {
	status := req.Status
	if status == "" {
		status = CustomerActive
	}
	return &Customer{
		Name:      req.Name,
		Email:     req.Email,
		Age:       req.Age,
		Status:    status,
		Active:    status == CustomerActive,
		CreatedAt: m.clock().UTC().Truncate(time.Microsecond),
	}
}

// Update overwrites every mutable field. Absent values become zero values,
// except status which keeps its current value.
func (CustomerMapper) Update(c *Customer, req UpdateCustomerRequest) {
	c.Name = deref(req.Name)
	c.Email = deref(req.Email)
	c.Age = deref(req.Age)
	if req.Status != nil {
		c.Status = *req.Status
	}
	c.Active = deref(req.Active)
}

func (CustomerMapper) Response(c *Customer) CustomerResponse {
	return CustomerResponse{ID: c.ID, Name: c.Name, Status: c.Status}
}

func (CustomerMapper) Detail(c *Customer) CustomerDetail {
	return CustomerDetail{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Age:       c.Age,
		Status:    c.Status,
		Active:    c.Active,
		CreatedAt: c.CreatedAt,
	}
}

func (m CustomerMapper) clock() time.Time {
	if m.now != nil {
		return m.now()
	}
	return time.Now()
}

func deref[V any](p *V) V {
	var zero V
	if p == nil {
		return zero
	}
	return *p
}
