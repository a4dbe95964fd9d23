package query

import (
	"encoding/json"
	"math"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crudkit/internal/metadata"
)

type status string

type person struct {
	ID     int64
	Name   string
	Age    int
	Score  float64
	Active bool
	Status status
	Born   time.Time
	Ref    uuid.UUID
}

func personSchema(t *testing.T) *metadata.Schema[person] {
	t.Helper()
	s, err := metadata.New("person", "people", "id",
		metadata.Int("id", func(p *person) *int64 { return &p.ID }),
		metadata.String("name", func(p *person) *string { return &p.Name }),
		metadata.Int("age", func(p *person) *int { return &p.Age }),
		metadata.Float("score", func(p *person) *float64 { return &p.Score }),
		metadata.Bool("active", func(p *person) *bool { return &p.Active }),
		metadata.Enum("status", func(p *person) *status { return &p.Status }, "ACTIVE", "INACTIVE"),
		metadata.Time("born", func(p *person) *time.Time { return &p.Born }),
		metadata.UUID("ref", func(p *person) *uuid.UUID { return &p.Ref }),
	)
	require.NoError(t, err)
	return s
}

func TestResolveOperator(t *testing.T) {
	for _, op := range Operators {
		assert.Equal(t, op, ResolveOperator(string(op)))
	}
	assert.Equal(t, OpEquals, ResolveOperator(""))
	assert.Equal(t, OpEquals, ResolveOperator("like"), "names are case-sensitive")
	assert.Equal(t, OpEquals, ResolveOperator("BETWEEN"))
}

func TestGuard(t *testing.T) {
	cases := []struct {
		kind metadata.Kind
		op   Operator
		want Operator
	}{
		{metadata.KindString, OpLike, OpLike},
		{metadata.KindString, OpEndWith, OpEndWith},
		{metadata.KindString, OpGreaterThan, OpEquals},
		{metadata.KindString, OpNotIn, OpNotIn},
		{metadata.KindInt, OpGreaterThanOrEquals, OpGreaterThanOrEquals},
		{metadata.KindInt, OpStartWith, OpEquals},
		{metadata.KindFloat, OpIn, OpIn},
		{metadata.KindTime, OpLessThan, OpLessThan},
		{metadata.KindTime, OpLike, OpEquals},
		{metadata.KindUUID, OpNotEquals, OpNotEquals},
		{metadata.KindUUID, OpLike, OpEquals},
		{metadata.KindUUID, OpGreaterThan, OpEquals},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Guard(tc.kind, tc.op), "%s %s", tc.kind, tc.op)
	}
}

func TestGuard_NumericLikeBecomesEquals(t *testing.T) {
	s := personSchema(t)
	for _, name := range []string{"age", "score"} {
		params := url.Values{name: {"3,LIKE"}}

		filters := BuildFilters(params, s)
		require.Equal(t, 1, filters.Len())
		assert.Equal(t, OpEquals, filters.Items()[0].Operator)

		// A caller-built set is guarded again at compile time.
		raw := NewFilterSet(Filter{Field: name, Operator: OpLike, Value: "3"})
		n := Compile(s, raw)
		cmp, ok := n.(Compare)
		require.True(t, ok, "got %T", n)
		assert.Equal(t, Eq, cmp.Op)
	}
}

func TestGuard_BoolAndEnumAlwaysEquals(t *testing.T) {
	s := personSchema(t)
	values := map[string]string{"active": "true", "status": "ACTIVE"}
	for field, value := range values {
		for _, op := range Operators {
			set := NewFilterSet(Filter{Field: field, Operator: op, Value: value})
			n := Compile(s, set)
			cmp, ok := n.(Compare)
			require.True(t, ok, "%s with %s compiled to %T", field, op, n)
			assert.Equal(t, Eq, cmp.Op)
		}
	}
}

func TestFilterSet_Dedup(t *testing.T) {
	set := &FilterSet{}
	f := Filter{Field: "name", Operator: OpEquals, Value: "a"}

	assert.True(t, set.Add(f))
	assert.False(t, set.Add(f))
	assert.Equal(t, 1, set.Len())

	assert.True(t, set.Add(Filter{Field: "name", Operator: OpLike, Value: "a"}))
	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Contains(f))

	s := personSchema(t)
	n := Compile(s, set)
	and, ok := n.(And)
	require.True(t, ok)
	assert.Equal(t, []Node{
		Compare{Field: "name", Op: Eq, Value: "a"},
		Like{Field: "name", Pattern: "%a%"},
	}, and.Nodes)
}

func TestFilterSet_MarshalJSON(t *testing.T) {
	var empty *FilterSet
	b, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(b))

	set := NewFilterSet(Filter{Field: "age", Operator: OpGreaterThan, Value: "30"})
	b, err = json.Marshal(set)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"field":"age","operator":"GREATER_THAN","value":"30"}]`, string(b))
}

func TestExtract(t *testing.T) {
	s := personSchema(t)
	params := url.Values{
		"age":     {"30,GREATER_THAN", "40"},
		"name":    {"al,LIKE,extra"},
		"score":   {"high"},
		"unknown": {"x"},
		"status":  {},
		"born":    {","},
		"ref":     {uuid.Nil.String()},
		"active":  {",true"},
	}

	got := Extract(params, s)
	assert.Equal(t, []Candidate{
		{Field: "active", Value: "true"},
		{Field: "age", Value: "30", Token: "GREATER_THAN"},
		{Field: "name", Value: "al", Token: "LIKE"},
		{Field: "ref", Value: uuid.Nil.String()},
	}, got)
}

func TestExtract_EnumValueMustBeDeclared(t *testing.T) {
	s := personSchema(t)
	assert.Empty(t, Extract(url.Values{"status": {"DELETED"}}, s))
	assert.Len(t, Extract(url.Values{"status": {"INACTIVE"}}, s), 1)
}

func TestCompile_Operators(t *testing.T) {
	s := personSchema(t)
	born := time.Date(2000, 1, 2, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		filter Filter
		want   Node
	}{
		{Filter{"name", OpNotEquals, "bob"}, Compare{Field: "name", Op: Ne, Value: "bob"}},
		{Filter{"name", OpLike, "al"}, Like{Field: "name", Pattern: "%al%"}},
		{Filter{"name", OpStartWith, "al"}, Like{Field: "name", Pattern: "al%"}},
		{Filter{"name", OpEndWith, "ce"}, Like{Field: "name", Pattern: "%ce"}},
		{Filter{"age", OpGreaterThan, "30"}, Compare{Field: "age", Op: Gt, Value: int64(30)}},
		{Filter{"age", OpLessThan, "30"}, Compare{Field: "age", Op: Lt, Value: int64(30)}},
		{Filter{"score", OpGreaterThanOrEquals, "1.5"}, Compare{Field: "score", Op: Gte, Value: 1.5}},
		{Filter{"born", OpLessThanOrEquals, "2000-01-02"}, Compare{Field: "born", Op: Lte, Value: born}},
		{Filter{"age", OpIn, "30"}, Membership{Field: "age", Values: []any{int64(30)}}},
		{Filter{"name", OpNotIn, "bob"}, Membership{Field: "name", Values: []any{"bob"}, Negate: true}},
	}
	for _, tc := range cases {
		t.Run(string(tc.filter.Operator), func(t *testing.T) {
			assert.Equal(t, tc.want, Compile(s, NewFilterSet(tc.filter)))
		})
	}
}

func TestCompile_EmptyAndInvalid(t *testing.T) {
	s := personSchema(t)
	assert.Equal(t, All{}, Compile(s, nil))
	assert.Equal(t, All{}, Compile(s, &FilterSet{}))

	set := NewFilterSet(
		Filter{Field: "missing", Operator: OpEquals, Value: "x"},
		Filter{Field: "age", Operator: OpEquals, Value: "old"},
	)
	assert.Equal(t, All{}, Compile(s, set))
}

func TestCompile_DefaultIsTautology(t *testing.T) {
	n := compileFilter("name", Operator("UNREACHABLE"), "x", "x")
	assert.Equal(t, Tautology{Field: "name"}, n)
	assert.Equal(t, "name = name", n.String())
}

func TestBuildFilters_QueryExample(t *testing.T) {
	s := personSchema(t)
	params, err := url.ParseQuery("age=30,GREATER_THAN&name=al,LIKE&page=2")
	require.NoError(t, err)

	n := Compile(s, BuildFilters(params, s))
	assert.Equal(t, And{Nodes: []Node{
		Compare{Field: "age", Op: Gt, Value: int64(30)},
		Like{Field: "name", Pattern: "%al%"},
	}}, n)
	assert.Equal(t, `(age > 30 AND name LIKE "%al%")`, n.String())
}

func TestParseParams(t *testing.T) {
	s := personSchema(t)
	values := url.Values{
		"page": {"3"},
		"size": {"500"},
		"sort": {"-age, name,,nope"},
	}
	req := ParseParams(values, Limits{DefaultSize: 10, MaxSize: 50})
	assert.Equal(t, 3, req.Page)
	assert.Equal(t, 50, req.Size)
	assert.Equal(t, 100, req.Offset())
	assert.Equal(t, []Sort{{Field: "age", Desc: true}, {Field: "name"}, {Field: "nope"}}, req.Sort)
	assert.Equal(t, []Sort{{Field: "age", Desc: true}, {Field: "name"}}, SanitizeSort(req.Sort, s))

	req = ParseParams(url.Values{"page": {"-1"}, "size": {"x"}}, Limits{})
	assert.Equal(t, 1, req.Page)
	assert.Equal(t, DefaultLimits.DefaultSize, req.Size)
	assert.Equal(t, 0, req.Offset())
}

func TestParseParams_HugePageDoesNotOverflow(t *testing.T) {
	for _, page := range []string{"184467440737095516", strconv.Itoa(math.MaxInt)} {
		req := ParseParams(url.Values{"page": {page}, "size": {"100"}}, Limits{})
		assert.Positive(t, req.Page)
		assert.GreaterOrEqual(t, req.Offset(), 0, "page %s", page)
	}

	assert.Equal(t, math.MaxInt, PageRequest{Page: math.MaxInt / 50, Size: 100}.Offset())
	assert.Equal(t, 0, PageRequest{Page: 3, Size: 0}.Offset())
}
