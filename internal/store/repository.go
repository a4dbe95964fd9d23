package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"crudkit/internal/metadata"
	"crudkit/internal/query"
)

// Page is one page of records plus the number of records matching in total.
type Page[E any] struct {
	Items []*E
	Total int64
}

// Repository persists records of type E with identifiers of type K in the
// table described by their schema.
type Repository[E any, K comparable] struct {
	store  *Store
	source metadata.Source[E]
}

func NewRepository[E any, K comparable](s *Store, source metadata.Source[E]) *Repository[E, K] {
	return &Repository[E, K]{store: s, source: source}
}

func (r *Repository[E, K]) schema() (*metadata.Schema[E], error) {
	s, err := r.source()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if s.IDName() == "" {
		return nil, fmt.Errorf("schema %s has no id field", s.Name())
	}
	return s, nil
}

// FindAll returns the page of records matching where. The page query and
// the count query run concurrently.
func (r *Repository[E, K]) FindAll(ctx context.Context, where query.Node, page query.PageRequest) (Page[E], error) {
	s, err := r.schema()
	if err != nil {
		return Page[E]{}, err
	}
	d := r.store.Dialect
	columns := strings.Join(s.FieldNames(), ", ")

	var out Page[E]
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pb := d.NewParamBuilder()
		cond, err := WhereSQL(where, d, pb, s.HasField)
		if err != nil {
			return err
		}
		sql := fmt.Sprintf("SELECT %s FROM %s", columns, s.Table()) + whereClause(cond)
		if order := OrderSQL(page.Sort, s.HasField, s.IDName()); order != "" {
			sql += " ORDER BY " + order
		}
		if page.Size > 0 {
			limit := pb.Add(page.Size)
			offset := pb.Add(page.Offset())
			sql += fmt.Sprintf(" LIMIT %s OFFSET %s", limit, offset)
		}
		rows, err := QueryRows(gctx, r.store.DB, sql, pb.Params()...)
		if err != nil {
			return err
		}
		out.Items, err = decodeAll(s, rows)
		return err
	})
	g.Go(func() error {
		pb := d.NewParamBuilder()
		cond, err := WhereSQL(where, d, pb, s.HasField)
		if err != nil {
			return err
		}
		sql := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.Table()) + whereClause(cond)
		if err := r.store.DB.QueryRowContext(gctx, sql, pb.Params()...).Scan(&out.Total); err != nil {
			return fmt.Errorf("count: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Page[E]{}, err
	}
	return out, nil
}

// FindByID returns ErrNotFound when no record has the given id.
func (r *Repository[E, K]) FindByID(ctx context.Context, id K) (*E, error) {
	s, err := r.schema()
	if err != nil {
		return nil, err
	}
	pb := r.store.Dialect.NewParamBuilder()
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		strings.Join(s.FieldNames(), ", "), s.Table(), s.IDName(), pb.Add(r.store.Dialect.Bind(id)))

	rows, err := QueryRows(ctx, r.store.DB, sql, pb.Params()...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return decode(s, rows[0])
}

// FindAllByID returns the records whose ids are listed. Unknown ids are
// skipped.
func (r *Repository[E, K]) FindAllByID(ctx context.Context, ids []K) ([]*E, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	s, err := r.schema()
	if err != nil {
		return nil, err
	}
	d := r.store.Dialect
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = d.Bind(id)
	}
	pb := d.NewParamBuilder()
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s ASC",
		strings.Join(s.FieldNames(), ", "), s.Table(), inExpr(s.IDName(), pb, values, false), s.IDName())

	rows, err := QueryRows(ctx, r.store.DB, sql, pb.Params()...)
	if err != nil {
		return nil, err
	}
	return decodeAll(s, rows)
}

// Save inserts e, or overwrites the stored record with the same id.
func (r *Repository[E, K]) Save(ctx context.Context, e *E) (*E, error) {
	s, err := r.schema()
	if err != nil {
		return nil, err
	}
	return r.save(ctx, r.store.DB, s, e)
}

// SaveAll saves every record in one transaction. Either all records are
// stored or none are.
func (r *Repository[E, K]) SaveAll(ctx context.Context, es []*E) ([]*E, error) {
	s, err := r.schema()
	if err != nil {
		return nil, err
	}
	saved := make([]*E, 0, len(es))
	err = r.store.InTx(ctx, func(tx Querier) error {
		for i, e := range es {
			rec, err := r.save(ctx, tx, s, e)
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			if rec == nil {
				return fmt.Errorf("record %d: no row returned", i)
			}
			saved = append(saved, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// DeleteByID returns ErrNotFound when no record has the given id.
func (r *Repository[E, K]) DeleteByID(ctx context.Context, id K) error {
	s, err := r.schema()
	if err != nil {
		return err
	}
	pb := r.store.Dialect.NewParamBuilder()
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", s.Table(), s.IDName(), pb.Add(r.store.Dialect.Bind(id)))
	n, err := Exec(ctx, r.store.DB, sql, pb.Params()...)
	if err != nil {
		return MapError(r.store.Dialect, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository[E, K]) save(ctx context.Context, q Querier, s *metadata.Schema[E], e *E) (*E, error) {
	d := r.store.Dialect
	rec := *e
	assignID(s, &rec)

	pb := d.NewParamBuilder()
	var cols, phs, updates []string
	for _, f := range s.Fields() {
		v, ok := f.Get(&rec)
		if !ok {
			v = nil
		}
		if f.Name == s.IDName() && metadata.IsZero(v) {
			// generated by the database
			continue
		}
		cols = append(cols, f.Name)
		phs = append(phs, pb.Add(d.Bind(v)))
		if f.Name != s.IDName() {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", f.Name, f.Name))
		}
	}
	if len(updates) == 0 {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", s.IDName(), s.IDName()))
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s RETURNING %s",
		s.Table(), strings.Join(cols, ", "), strings.Join(phs, ", "),
		s.IDName(), strings.Join(updates, ", "), strings.Join(s.FieldNames(), ", "))

	rows, err := QueryRows(ctx, q, sql, pb.Params()...)
	if err != nil {
		return nil, MapError(d, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return decode(s, rows[0])
}

// assignID fills in a missing UUID or text identifier. Integer identifiers
// are left to the database.
func assignID[E any](s *metadata.Schema[E], rec *E) {
	id, ok := s.IDField()
	if !ok {
		return
	}
	if v, present := id.Get(rec); present && !metadata.IsZero(v) {
		return
	}
	switch id.Kind {
	case metadata.KindUUID:
		id.Set(rec, uuid.New())
	case metadata.KindString:
		id.Set(rec, uuid.NewString())
	}
}

func whereClause(cond string) string {
	if cond == "" {
		return ""
	}
	return " WHERE " + cond
}

func decodeAll[E any](s *metadata.Schema[E], rows []map[string]any) ([]*E, error) {
	out := make([]*E, 0, len(rows))
	for _, row := range rows {
		rec, err := decode(s, row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func decode[E any](s *metadata.Schema[E], row map[string]any) (*E, error) {
	rec := new(E)
	for _, f := range s.Fields() {
		v, err := f.Convert(row[f.Name])
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", s.Name(), err)
		}
		if v == nil {
			f.Set(rec, nil)
			continue
		}
		if !f.Set(rec, v) {
			return nil, fmt.Errorf("decode %s: field %s does not accept %T", s.Name(), f.Name, v)
		}
	}
	return rec, nil
}
