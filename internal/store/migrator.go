package store

import (
	"context"
	"fmt"
	"strings"

	"crudkit/internal/metadata"
)

// Table is the storage layout of one schema.
type Table struct {
	Name       string
	PrimaryKey string
	Columns    []Column
}

type Column struct {
	Name   string
	Kind   metadata.Kind
	Unique bool
}

// TableOf derives the table layout of a schema.
func TableOf[T any](s *metadata.Schema[T]) Table {
	t := Table{Name: s.Table(), PrimaryKey: s.IDName()}
	for _, f := range s.Fields() {
		t.Columns = append(t.Columns, Column{Name: f.Name, Kind: f.Kind, Unique: f.Unique})
	}
	return t
}

type Migrator struct {
	store *Store
}

func NewMigrator(store *Store) *Migrator {
	return &Migrator{store: store}
}

// Migrate ensures the table matches the schema layout.
// Creates the table if it doesn't exist, or adds missing columns.
func (m *Migrator) Migrate(ctx context.Context, t Table) error {
	exists, err := m.store.Dialect.TableExists(ctx, m.store.DB, t.Name)
	if err != nil {
		return fmt.Errorf("check table exists: %w", err)
	}

	if !exists {
		return m.createTable(ctx, t)
	}

	return m.alterTable(ctx, t)
}

// CreateTableSQL returns the CREATE TABLE statement for t.
func (m *Migrator) CreateTableSQL(t Table) string {
	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == t.PrimaryKey {
			cols = append(cols, m.store.Dialect.PrimaryKeyDef(c.Name, c.Kind))
			continue
		}
		cols = append(cols, c.Name+" "+m.store.Dialect.ColumnType(c.Kind))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", t.Name, strings.Join(cols, ",\n  "))
}

func (m *Migrator) createTable(ctx context.Context, t Table) error {
	if _, err := m.store.DB.ExecContext(ctx, m.CreateTableSQL(t)); err != nil {
		return fmt.Errorf("create table %s: %w", t.Name, err)
	}

	if err := m.createIndexes(ctx, t); err != nil {
		return fmt.Errorf("create indexes for %s: %w", t.Name, err)
	}

	return nil
}

func (m *Migrator) alterTable(ctx context.Context, t Table) error {
	existing, err := m.store.Dialect.GetColumns(ctx, m.store.DB, t.Name)
	if err != nil {
		return fmt.Errorf("get columns for %s: %w", t.Name, err)
	}

	for _, c := range t.Columns {
		if _, ok := existing[c.Name]; ok {
			continue
		}
		sql := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", t.Name, c.Name, m.store.Dialect.ColumnType(c.Kind))
		if _, err := m.store.DB.ExecContext(ctx, sql); err != nil {
			return fmt.Errorf("add column %s.%s: %w", t.Name, c.Name, err)
		}
	}

	if err := m.createIndexes(ctx, t); err != nil {
		return fmt.Errorf("create indexes for %s: %w", t.Name, err)
	}

	return nil
}

func (m *Migrator) createIndexes(ctx context.Context, t Table) error {
	for _, c := range t.Columns {
		if !c.Unique || c.Name == t.PrimaryKey {
			continue
		}
		sql := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s)",
			t.Name, c.Name, t.Name, c.Name)
		if _, err := m.store.DB.ExecContext(ctx, sql); err != nil {
			return fmt.Errorf("create unique index on %s.%s: %w", t.Name, c.Name, err)
		}
	}
	return nil
}
