// Package memstore keeps records in process memory. It evaluates the same
// predicates as the SQL store and is used when no database is configured.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"crudkit/internal/metadata"
	"crudkit/internal/query"
	"crudkit/internal/store"
)

// Repository stores shallow copies of records of type E keyed by K.
type Repository[E any, K comparable] struct {
	mu      sync.RWMutex
	source  metadata.Source[E]
	key     func(*E) K
	records map[K]E
	seq     int64
}

// New returns an empty repository. key extracts the identifier of a record.
func New[E any, K comparable](source metadata.Source[E], key func(*E) K) *Repository[E, K] {
	return &Repository[E, K]{
		source:  source,
		key:     key,
		records: make(map[K]E),
	}
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

func (r *Repository[E, K]) FindAll(_ context.Context, where query.Node, page query.PageRequest) (store.Page[E], error) {
	s, err := r.schema()
	if err != nil {
		return store.Page[E]{}, err
	}

	r.mu.RLock()
	var matched []*E
	for _, rec := range r.records {
		ok, err := Match(where, s, &rec)
		if err != nil {
			r.mu.RUnlock()
			return store.Page[E]{}, err
		}
		if ok {
			matched = append(matched, &rec)
		}
	}
	r.mu.RUnlock()

	sortRecords(s, matched, page.Sort)

	out := store.Page[E]{Total: int64(len(matched))}
	if page.Size <= 0 {
		out.Items = matched
		return out, nil
	}
	start := max(0, min(page.Offset(), len(matched)))
	end := min(start+page.Size, len(matched))
	out.Items = matched[start:end]
	return out, nil
}

func (r *Repository[E, K]) FindByID(_ context.Context, id K) (*E, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &rec, nil
}

func (r *Repository[E, K]) FindAllByID(_ context.Context, ids []K) ([]*E, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*E
	seen := make(map[K]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if rec, ok := r.records[id]; ok {
			out = append(out, &rec)
		}
	}
	return out, nil
}

func (r *Repository[E, K]) Save(_ context.Context, e *E) (*E, error) {
	s, err := r.schema()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seq := r.seq
	rec, err := r.put(s, r.records, &seq, e)
	if err != nil {
		return nil, err
	}
	r.seq = seq
	return rec, nil
}

// SaveAll stages every record on a copy of the data and publishes the copy
// only when all of them were accepted.
func (r *Repository[E, K]) SaveAll(_ context.Context, es []*E) ([]*E, error) {
	s, err := r.schema()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	staged := maps.Clone(r.records)
	seq := r.seq
	saved := make([]*E, 0, len(es))
	for i, e := range es {
		rec, err := r.put(s, staged, &seq, e)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		saved = append(saved, rec)
	}
	r.records = staged
	r.seq = seq
	return saved, nil
}

func (r *Repository[E, K]) DeleteByID(_ context.Context, id K) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.records, id)
	return nil
}

// Len returns the number of stored records.
func (r *Repository[E, K]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// put upserts a copy of e into records, assigning an identifier when the
// record has none. The caller holds the write lock.
func (r *Repository[E, K]) put(s *metadata.Schema[E], records map[K]E, seq *int64, e *E) (*E, error) {
	rec := *e
	idField, _ := s.IDField()
	if v, ok := idField.Get(&rec); !ok || metadata.IsZero(v) {
		var id any
		switch idField.Kind {
		case metadata.KindInt:
			*seq++
			id = *seq
		case metadata.KindUUID:
			id = uuid.New()
		case metadata.KindString:
			id = uuid.NewString()
		default:
			return nil, fmt.Errorf("cannot generate %s identifier", idField.Kind)
		}
		if !idField.Set(&rec, id) {
			return nil, fmt.Errorf("assign identifier to %s", s.Name())
		}
	} else if n, ok := v.(int64); ok && n > *seq {
		*seq = n
	}

	key := r.key(&rec)
	if err := checkUnique(s, records, key, &rec); err != nil {
		return nil, err
	}
	records[key] = rec
	return &rec, nil
}

func checkUnique[E any, K comparable](s *metadata.Schema[E], records map[K]E, key K, rec *E) error {
	for _, f := range s.Fields() {
		if !f.Unique || f.Name == s.IDName() {
			continue
		}
		v, ok := f.Get(rec)
		if !ok {
			continue
		}
		for k, other := range records {
			if k == key {
				continue
			}
			ov, ok := f.Get(&other)
			if !ok {
				continue
			}
			if c, same := compareValues(v, ov); same && c == 0 {
				return fmt.Errorf("%w: %s.%s = %v", store.ErrUniqueViolation, s.Table(), f.Name, v)
			}
		}
	}
	return nil
}

func sortRecords[E any](s *metadata.Schema[E], recs []*E, sorts []query.Sort) {
	type key struct {
		field metadata.Field[E]
		desc  bool
	}
	var keys []key
	for _, srt := range sorts {
		if f, ok := s.Field(srt.Field); ok {
			keys = append(keys, key{field: f, desc: srt.Desc})
		}
	}
	if id, ok := s.IDField(); ok {
		keys = append(keys, key{field: id})
	}

	slices.SortStableFunc(recs, func(a, b *E) int {
		for _, k := range keys {
			av, aok := k.field.Get(a)
			bv, bok := k.field.Get(b)
			c := compareForSort(av, aok, bv, bok)
			if k.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}
