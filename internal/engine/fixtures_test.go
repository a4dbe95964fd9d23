package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"crudkit/internal/logger"
	"crudkit/internal/memstore"
	"crudkit/internal/metadata"
)

type status string

const (
	statusActive   status = "ACTIVE"
	statusInactive status = "INACTIVE"
)

type person struct {
	ID     int64
	Name   string
	Age    int
	Status status
	Active bool
	Score  int64
	Email  *string
}

type personCreate struct {
	Name   string  `json:"name"`
	Age    int     `json:"age"`
	Status status  `json:"status"`
	Email  *string `json:"email,omitempty"`
}

// personUpdate deliberately declares fields the record lacks (nickname), a
// field with a different kind (active) and one with a different Go type
// (score).
type personUpdate struct {
	ID       *int64  `json:"id,omitempty"`
	Name     *string `json:"name,omitempty"`
	Age      *int    `json:"age,omitempty"`
	Status   *status `json:"status,omitempty"`
	Active   *string `json:"active,omitempty"`
	Score    *int32  `json:"score,omitempty"`
	Email    *string `json:"email,omitempty"`
	Nickname *string `json:"nickname,omitempty"`
}

type personView struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Age    int     `json:"age"`
	Status status  `json:"status"`
	Active bool    `json:"active"`
	Score  int64   `json:"score"`
	Email  *string `json:"email,omitempty"`
}

var personSchema = metadata.Lazy(func() (*metadata.Schema[person], error) {
	return metadata.New("person", "people", "id",
		metadata.Int("id", func(p *person) *int64 { return &p.ID }),
		metadata.String("name", func(p *person) *string { return &p.Name }).AsUnique(),
		metadata.Int("age", func(p *person) *int { return &p.Age }),
		metadata.Enum("status", func(p *person) *status { return &p.Status }, statusActive, statusInactive),
		metadata.Bool("active", func(p *person) *bool { return &p.Active }),
		metadata.Int("score", func(p *person) *int64 { return &p.Score }),
		metadata.OptString("email", func(p *person) **string { return &p.Email }),
	)
})

var personUpdateSchema = metadata.Lazy(func() (*metadata.Schema[personUpdate], error) {
	return metadata.New("personUpdate", "", "",
		metadata.OptInt("id", func(p *personUpdate) **int64 { return &p.ID }),
		metadata.OptString("name", func(p *personUpdate) **string { return &p.Name }),
		metadata.OptInt("age", func(p *personUpdate) **int { return &p.Age }),
		metadata.OptEnum("status", func(p *personUpdate) **status { return &p.Status }, statusActive, statusInactive),
		metadata.OptString("active", func(p *personUpdate) **string { return &p.Active }),
		metadata.OptInt("score", func(p *personUpdate) **int32 { return &p.Score }),
		metadata.OptString("email", func(p *personUpdate) **string { return &p.Email }),
		metadata.OptString("nickname", func(p *personUpdate) **string { return &p.Nickname }),
	)
})

type personMapper struct{}

func (personMapper) Create(req personCreate) *person {
	return &person{Name: req.Name, Age: req.Age, Status: req.Status, Active: true, Email: req.Email}
}

func (personMapper) Update(rec *person, req personUpdate) {
	rec.Name = deref(req.Name)
	rec.Age = deref(req.Age)
	rec.Status = deref(req.Status)
	rec.Email = req.Email
}

func (m personMapper) Detail(rec *person) personView { return m.Response(rec) }

func (personMapper) Response(rec *person) personView {
	return personView{
		ID: rec.ID, Name: rec.Name, Age: rec.Age, Status: rec.Status,
		Active: rec.Active, Score: rec.Score, Email: rec.Email,
	}
}

func deref[V any](p *V) V {
	var zero V
	if p == nil {
		return zero
	}
	return *p
}

func ptr[V any](v V) *V { return &v }

func personKey(p *person) int64 { return p.ID }

type personService = Service[person, int64, personCreate, personUpdate, personView, personView]

func newPersonRepo() *memstore.Repository[person, int64] {
	return memstore.New(personSchema, personKey)
}

// newPersonService wires a service over repo; a nil repo gets a fresh
// in-memory one.
func newPersonService(t *testing.T, repo Repository[person, int64], rules ...Rule) *personService {
	t.Helper()
	if repo == nil {
		repo = newPersonRepo()
	}
	var rs *RuleSet
	if len(rules) > 0 {
		var err error
		rs, err = NewRuleSet(rules...)
		require.NoError(t, err)
	}
	svc, err := NewService(Config[person, int64, personCreate, personUpdate, personView, personView]{
		Name:       "people",
		Records:    personSchema,
		Updates:    personUpdateSchema,
		Key:        personKey,
		Repository: repo,
		Mapper:     personMapper{},
		Rules:      rs,
		Logger:     logger.Discard(),
	})
	require.NoError(t, err)
	return svc
}

// requireAppError asserts err is an AppError with the given code.
func requireAppError(t *testing.T, err error, code string, status int) *AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, code, appErr.Code)
	require.Equal(t, status, appErr.Status)
	return appErr
}
