package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"crudkit/internal/instrument"
	"crudkit/internal/logger"
	"crudkit/internal/metadata"
	"crudkit/internal/query"
	"crudkit/internal/store"
)

// Config wires a Service. E is the record type, K its identifier, C the
// create request, U the update request, R the list item and D the detail
// response.
type Config[E any, K comparable, C, U, R, D any] struct {
	// Name is used in error messages and metrics; defaults to the schema name.
	Name         string
	Records      metadata.Source[E]
	Updates      metadata.Source[U]
	Key          func(*E) K
	Repository   Repository[E, K]
	Mapper       Mapper[E, C, U, R, D]
	Rules        *RuleSet
	Logger       *slog.Logger
	// Instrumenter defaults to the one stored in each call's context.
	Instrumenter instrument.Instrumenter
}

// Service implements list, get, create, update, patch and delete for one
// record type. It holds no per-request state and is safe for concurrent use.
//
// Update and Patch read the record and then save it without locking, so a
// concurrent writer between the two steps is silently overwritten.
type Service[E any, K comparable, C, U, R, D any] struct {
	name    string
	records *metadata.Schema[E]
	updates *metadata.Schema[U]
	key     func(*E) K
	repo    Repository[E, K]
	mapper  Mapper[E, C, U, R, D]
	rules   *RuleSet
	log     *slog.Logger
	inst    instrument.Instrumenter
}

func NewService[E any, K comparable, C, U, R, D any](cfg Config[E, K, C, U, R, D]) (*Service[E, K, C, U, R, D], error) {
	if cfg.Records == nil || cfg.Updates == nil {
		return nil, fmt.Errorf("service: record and update schemas are required")
	}
	if cfg.Repository == nil || cfg.Mapper == nil || cfg.Key == nil {
		return nil, fmt.Errorf("service: repository, mapper and key are required")
	}
	records, err := cfg.Records()
	if err != nil {
		return nil, fmt.Errorf("service: record schema: %w", err)
	}
	updates, err := cfg.Updates()
	if err != nil {
		return nil, fmt.Errorf("service: update schema: %w", err)
	}
	if _, ok := records.IDField(); !ok {
		return nil, fmt.Errorf("service: schema %s has no id field", records.Name())
	}

	s := &Service[E, K, C, U, R, D]{
		name:    cfg.Name,
		records: records,
		updates: updates,
		key:     cfg.Key,
		repo:    cfg.Repository,
		mapper:  cfg.Mapper,
		rules:   cfg.Rules,
		log:     cfg.Logger,
		inst:    cfg.Instrumenter,
	}
	if s.name == "" {
		s.name = records.Name()
	}
	if s.log == nil {
		s.log = logger.Get()
	}
	s.log = s.log.With("entity", s.name)
	return s, nil
}

func (s *Service[E, K, C, U, R, D]) Name() string { return s.name }

// Schema returns the record schema.
func (s *Service[E, K, C, U, R, D]) Schema() *metadata.Schema[E] { return s.records }

// FindAll extracts filters from req.Params, compiles them into a predicate
// and returns the matching page. Unknown parameters and ill-typed values
// are dropped, never reported.
func (s *Service[E, K, C, U, R, D]) FindAll(ctx context.Context, req query.ParamsRequest) (resp PageResponse[R], err error) {
	ctx, done := s.span(ctx, "find_all")
	defer func() { done(err) }()

	filters := query.BuildFilters(req.Params, s.records)
	where := query.Compile(s.records, filters)
	page := req.PageRequest
	page.Sort = query.SanitizeSort(page.Sort, s.records)

	s.log.Debug("find all", "where", where.String(), "page", page.Page, "size", page.Size)

	found, err := s.repo.FindAll(ctx, where, page)
	if err != nil {
		return PageResponse[R]{}, s.mapError(err)
	}
	results := make([]R, 0, len(found.Items))
	for _, rec := range found.Items {
		results = append(results, s.mapper.Response(rec))
	}
	return NewPageResponse(results, page, found.Total, filters), nil
}

func (s *Service[E, K, C, U, R, D]) FindByID(ctx context.Context, id K) (d D, err error) {
	ctx, done := s.span(ctx, "find_by_id")
	defer func() { done(err) }()

	rec, err := s.find(ctx, id)
	if err != nil {
		return d, err
	}
	return s.mapper.Detail(rec), nil
}

func (s *Service[E, K, C, U, R, D]) Create(ctx context.Context, req C) (d D, err error) {
	ctx, done := s.span(ctx, "create")
	defer func() { done(err) }()

	rec := s.mapper.Create(req)
	if rec == nil {
		return d, InternalError(fmt.Sprintf("%s: mapper produced no record", s.name))
	}
	if err := s.validate(rec, nil, "create"); err != nil {
		return d, err
	}
	saved, err := s.repo.Save(ctx, rec)
	if err != nil {
		return d, s.mapError(err)
	}
	if saved == nil {
		return d, InternalError(fmt.Sprintf("%s: save returned no record", s.name))
	}
	s.log.Debug("created", "id", s.key(saved))
	return s.mapper.Detail(saved), nil
}

// CreateAll persists every request or none of them.
func (s *Service[E, K, C, U, R, D]) CreateAll(ctx context.Context, reqs []C) (ds []D, err error) {
	ctx, done := s.span(ctx, "create_all")
	defer func() { done(err) }()

	if len(reqs) == 0 {
		return []D{}, nil
	}
	recs := make([]*E, 0, len(reqs))
	for i, req := range reqs {
		rec := s.mapper.Create(req)
		if rec == nil {
			return nil, InternalError(fmt.Sprintf("%s: mapper produced no record for item %d", s.name, i))
		}
		if err := s.validate(rec, nil, "create"); err != nil {
			var appErr *AppError
			if errors.As(err, &appErr) {
				appErr.Message = fmt.Sprintf("Validation failed for item %d", i)
			}
			return nil, err
		}
		recs = append(recs, rec)
	}

	saved, err := s.repo.SaveAll(ctx, recs)
	if err != nil {
		return nil, s.mapError(err)
	}
	ds = make([]D, 0, len(saved))
	for _, rec := range saved {
		if rec == nil {
			return nil, InternalError(fmt.Sprintf("%s: save returned no record", s.name))
		}
		ds = append(ds, s.mapper.Detail(rec))
	}
	s.log.Debug("created batch", "count", len(ds))
	return ds, nil
}

// Update overwrites every mapped field of the stored record.
func (s *Service[E, K, C, U, R, D]) Update(ctx context.Context, id K, req U) (d D, err error) {
	ctx, done := s.span(ctx, "update")
	defer func() { done(err) }()

	return s.modify(ctx, id, "update", func(rec *E) {
		s.mapper.Update(rec, req)
	})
}

// Patch copies only the present, type-compatible fields of req.
func (s *Service[E, K, C, U, R, D]) Patch(ctx context.Context, id K, req U) (d D, err error) {
	ctx, done := s.span(ctx, "patch")
	defer func() { done(err) }()

	return s.modify(ctx, id, "update", func(rec *E) {
		copied := Merge(rec, s.records, &req, s.updates)
		s.log.Debug("patch", "id", id, "fields", copied)
	})
}

// DeleteByID returns the record as it was before deletion.
func (s *Service[E, K, C, U, R, D]) DeleteByID(ctx context.Context, id K) (d D, err error) {
	ctx, done := s.span(ctx, "delete")
	defer func() { done(err) }()

	rec, err := s.find(ctx, id)
	if err != nil {
		return d, err
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return d, NotFoundError(s.name, fmt.Sprint(id))
		}
		return d, s.mapError(err)
	}
	s.log.Debug("deleted", "id", id)
	return s.mapper.Detail(rec), nil
}

// DeleteAllByID deletes whichever of ids exist. It fails with NOT_FOUND
// only when none of them do.
func (s *Service[E, K, C, U, R, D]) DeleteAllByID(ctx context.Context, ids []K) (ds []D, err error) {
	ctx, done := s.span(ctx, "delete_all")
	defer func() { done(err) }()

	found, err := s.repo.FindAllByID(ctx, ids)
	if err != nil {
		return nil, s.mapError(err)
	}
	if len(found) == 0 {
		return nil, NotFoundError(s.name, joinIDs(ids))
	}

	ds = make([]D, 0, len(found))
	for _, rec := range found {
		id := s.key(rec)
		if err := s.repo.DeleteByID(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue // deleted concurrently
			}
			return nil, s.mapError(err)
		}
		ds = append(ds, s.mapper.Detail(rec))
	}
	s.log.Debug("deleted batch", "requested", len(ids), "deleted", len(ds))
	return ds, nil
}

func (s *Service[E, K, C, U, R, D]) find(ctx context.Context, id K) (*E, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NotFoundError(s.name, fmt.Sprint(id))
		}
		return nil, s.mapError(err)
	}
	if rec == nil {
		return nil, NotFoundError(s.name, fmt.Sprint(id))
	}
	return rec, nil
}

// modify loads the record, applies change, restores the identifier, runs
// the rules and saves.
func (s *Service[E, K, C, U, R, D]) modify(ctx context.Context, id K, action string, change func(*E)) (d D, err error) {
	rec, err := s.find(ctx, id)
	if err != nil {
		return d, err
	}
	old := s.records.Values(rec)

	idField, _ := s.records.IDField()
	idValue, _ := idField.Get(rec)
	change(rec)
	idField.Set(rec, idValue)

	if err := s.validate(rec, old, action); err != nil {
		return d, err
	}
	saved, err := s.repo.Save(ctx, rec)
	if err != nil {
		return d, s.mapError(err)
	}
	if saved == nil {
		return d, InternalError(fmt.Sprintf("%s: save returned no record", s.name))
	}
	return s.mapper.Detail(saved), nil
}

func (s *Service[E, K, C, U, R, D]) validate(rec *E, old map[string]any, action string) error {
	if s.rules.Len() == 0 {
		return nil
	}
	if errs := s.rules.Evaluate(s.records.Values(rec), old, action); len(errs) > 0 {
		return ValidationError(errs)
	}
	return nil
}

func (s *Service[E, K, C, U, R, D]) mapError(err error) error {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, store.ErrUniqueViolation):
		return ConflictError(err.Error())
	case errors.Is(err, store.ErrNotFound):
		return NewAppError("NOT_FOUND", 404, err.Error())
	}
	return fmt.Errorf("%s: %w", s.name, err)
}

// span starts an instrumentation span and returns a func that ends it with
// a status derived from the operation's error. Without a configured
// instrumenter the one carried by ctx is used.
func (s *Service[E, K, C, U, R, D]) span(ctx context.Context, op string) (context.Context, func(error)) {
	inst := s.inst
	if inst == nil {
		inst = instrument.GetInstrumenter(ctx)
	}
	ctx, sp := inst.StartSpan(ctx, s.name, op)
	return ctx, func(err error) {
		sp.SetStatus(spanStatus(err))
		sp.End()
		if err != nil {
			s.log.Debug("operation failed", "op", op, "error", err)
		}
	}
}

func spanStatus(err error) string {
	if err == nil {
		return instrument.StatusOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Status {
		case 404:
			return instrument.StatusNotFound
		case 409:
			return instrument.StatusConflict
		case 400, 422:
			return instrument.StatusInvalid
		}
	}
	return instrument.StatusError
}

func joinIDs[K any](ids []K) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
