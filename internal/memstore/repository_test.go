package memstore

import (
	"context"
	"math"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crudkit/internal/metadata"
	"crudkit/internal/query"
	"crudkit/internal/store"
)

type user struct {
	ID     int64
	Name   string
	Email  string
	Age    int
	Joined time.Time
	Nick   *string
}

type ticket struct {
	ID    uuid.UUID
	Title string
}

var userSchema = metadata.Lazy(func() (*metadata.Schema[user], error) {
	return metadata.New("user", "users", "id",
		metadata.Int("id", func(u *user) *int64 { return &u.ID }),
		metadata.String("name", func(u *user) *string { return &u.Name }),
		metadata.String("email", func(u *user) *string { return &u.Email }).AsUnique(),
		metadata.Int("age", func(u *user) *int { return &u.Age }),
		metadata.Time("joined", func(u *user) *time.Time { return &u.Joined }),
		metadata.OptString("nick", func(u *user) **string { return &u.Nick }),
	)
})

var ticketSchema = metadata.Lazy(func() (*metadata.Schema[ticket], error) {
	return metadata.New("ticket", "tickets", "id",
		metadata.UUID("id", func(t *ticket) *uuid.UUID { return &t.ID }),
		metadata.String("title", func(t *ticket) *string { return &t.Title }),
	)
})

func newUsers() *Repository[user, int64] {
	return New(userSchema, func(u *user) int64 { return u.ID })
}

func seed(t *testing.T, repo *Repository[user, int64], users ...user) []*user {
	t.Helper()
	var out []*user
	for i := range users {
		saved, err := repo.Save(context.Background(), &users[i])
		require.NoError(t, err)
		out = append(out, saved)
	}
	return out
}

func TestSave_AssignsSequentialIDs(t *testing.T) {
	repo := newUsers()
	saved := seed(t, repo, user{Name: "a", Email: "a@x"}, user{Name: "b", Email: "b@x"})
	assert.Equal(t, int64(1), saved[0].ID)
	assert.Equal(t, int64(2), saved[1].ID)

	// An explicit id moves the sequence past it.
	explicit := seed(t, repo, user{ID: 10, Name: "c", Email: "c@x"}, user{Name: "d", Email: "d@x"})
	assert.Equal(t, int64(10), explicit[0].ID)
	assert.Equal(t, int64(11), explicit[1].ID)
	assert.Equal(t, 4, repo.Len())
}

func TestSave_StoresCopies(t *testing.T) {
	ctx := context.Background()
	repo := newUsers()
	in := &user{Name: "a", Email: "a@x"}
	saved, err := repo.Save(ctx, in)
	require.NoError(t, err)
	assert.Zero(t, in.ID)

	saved.Name = "changed"
	got, err := repo.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Name)
}

func TestFindAll_QueryExample(t *testing.T) {
	ctx := context.Background()
	repo := newUsers()
	seed(t, repo,
		user{Name: "alice", Email: "1", Age: 25},
		user{Name: "albert", Email: "2", Age: 35},
		user{Name: "bob", Email: "3", Age: 40},
	)
	s, err := userSchema()
	require.NoError(t, err)

	params, err := url.ParseQuery("age=30,GREATER_THAN&name=al,LIKE")
	require.NoError(t, err)
	where := query.Compile(s, query.BuildFilters(params, s))

	page, err := repo.FindAll(ctx, where, query.PageRequest{Page: 1, Size: 25})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "albert", page.Items[0].Name)
	assert.EqualValues(t, 1, page.Total)
}

func TestFindAll_PagingAndSort(t *testing.T) {
	ctx := context.Background()
	repo := newUsers()
	seed(t, repo,
		user{Name: "c", Email: "1", Age: 30},
		user{Name: "a", Email: "2", Age: 30},
		user{Name: "b", Email: "3", Age: 20},
	)

	page, err := repo.FindAll(ctx, query.All{}, query.PageRequest{Page: 1, Size: 2, Sort: []query.Sort{{Field: "age", Desc: true}, {Field: "name"}}})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "a", page.Items[0].Name)
	assert.Equal(t, "c", page.Items[1].Name)

	page, err = repo.FindAll(ctx, query.All{}, query.PageRequest{Page: 5, Size: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Empty(t, page.Items)

	// Without a sort, records come back in id order.
	page, err = repo.FindAll(ctx, nil, query.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{page.Items[0].Name, page.Items[1].Name, page.Items[2].Name})
}

func TestFindAll_HugePageIsEmpty(t *testing.T) {
	repo := newUsers()
	seed(t, repo, user{Name: "a", Email: "1", Age: 30})

	page, err := repo.FindAll(context.Background(), query.All{}, query.PageRequest{Page: math.MaxInt / 50, Size: 100})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	assert.Empty(t, page.Items)
}

func TestMatch(t *testing.T) {
	s, err := userSchema()
	require.NoError(t, err)
	nick := "Al"
	rec := &user{ID: 1, Name: "alice", Age: 30, Joined: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Nick: &nick}

	cases := []struct {
		name string
		node query.Node
		want bool
	}{
		{"all", query.All{}, true},
		{"eq", query.Compare{Field: "age", Op: query.Eq, Value: int64(30)}, true},
		{"ne", query.Compare{Field: "age", Op: query.Ne, Value: int64(30)}, false},
		{"gte", query.Compare{Field: "age", Op: query.Gte, Value: int64(30)}, true},
		{"lt time", query.Compare{Field: "joined", Op: query.Lt, Value: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}, true},
		{"like contains", query.Like{Field: "name", Pattern: "%lic%"}, true},
		{"like prefix", query.Like{Field: "name", Pattern: "al%"}, true},
		{"like suffix", query.Like{Field: "name", Pattern: "%ce"}, true},
		{"like case-sensitive", query.Like{Field: "name", Pattern: "AL%"}, false},
		{"like single char", query.Like{Field: "name", Pattern: "al_ce"}, true},
		{"like regexp meta", query.Like{Field: "name", Pattern: "a.*"}, false},
		{"in", query.Membership{Field: "name", Values: []any{"alice"}}, true},
		{"not in", query.Membership{Field: "name", Values: []any{"alice"}, Negate: true}, false},
		{"tautology", query.Tautology{Field: "nick"}, true},
		{"and", query.And{Nodes: []query.Node{
			query.Compare{Field: "age", Op: query.Gt, Value: int64(20)},
			query.Like{Field: "nick", Pattern: "A%"},
		}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Match(tc.node, s, rec)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	// Absent values never match, not even NOT IN.
	rec.Nick = nil
	for _, n := range []query.Node{
		query.Tautology{Field: "nick"},
		query.Membership{Field: "nick", Values: []any{"x"}, Negate: true},
		query.Compare{Field: "nick", Op: query.Ne, Value: "x"},
	} {
		got, err := Match(n, s, rec)
		require.NoError(t, err)
		assert.False(t, got, n.String())
	}

	_, err = Match(query.Compare{Field: "missing", Op: query.Eq, Value: "x"}, s, rec)
	assert.Error(t, err)
	_, err = Match(query.Compare{Field: "age", Op: query.Eq, Value: "30"}, s, rec)
	assert.Error(t, err)
}

func TestSave_UniqueViolation(t *testing.T) {
	ctx := context.Background()
	repo := newUsers()
	saved := seed(t, repo, user{Name: "a", Email: "same"})

	_, err := repo.Save(ctx, &user{Name: "b", Email: "same"})
	assert.ErrorIs(t, err, store.ErrUniqueViolation)

	// Re-saving the owner of the value is an update, not a conflict.
	saved[0].Name = "renamed"
	_, err = repo.Save(ctx, saved[0])
	assert.NoError(t, err)
}

func TestSaveAll_IsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := newUsers()

	_, err := repo.SaveAll(ctx, []*user{
		{Name: "a", Email: "a@x"},
		{Name: "b", Email: "a@x"},
		{Name: "c", Email: "c@x"},
	})
	require.ErrorIs(t, err, store.ErrUniqueViolation)
	assert.Zero(t, repo.Len())

	saved, err := repo.SaveAll(ctx, []*user{{Name: "a", Email: "a@x"}, {Name: "c", Email: "c@x"}})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, int64(1), saved[0].ID, "a failed batch does not consume ids")
	assert.Equal(t, 2, repo.Len())
}

func TestFindAllByIDAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := newUsers()
	saved := seed(t, repo, user{Name: "a", Email: "1"}, user{Name: "b", Email: "2"})

	found, err := repo.FindAllByID(ctx, []int64{saved[1].ID, 99, saved[1].ID})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "b", found[0].Name)

	require.NoError(t, repo.DeleteByID(ctx, saved[0].ID))
	assert.ErrorIs(t, repo.DeleteByID(ctx, saved[0].ID), store.ErrNotFound)
	_, err = repo.FindByID(ctx, saved[0].ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSave_GeneratesUUID(t *testing.T) {
	repo := New(ticketSchema, func(t *ticket) uuid.UUID { return t.ID })
	saved, err := repo.Save(context.Background(), &ticket{Title: "first"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, saved.ID)

	got, err := repo.FindByID(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title)
}

func TestConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	repo := newUsers()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Save(ctx, &user{Name: "u", Email: uuid.NewString(), Age: i})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	page, err := repo.FindAll(ctx, query.All{}, query.PageRequest{Page: 1, Size: 100})
	require.NoError(t, err)
	assert.EqualValues(t, 50, page.Total)
	assert.Equal(t, int64(50), page.Items[49].ID)
}
