package store

import (
	"context"
	"fmt"
	"log/slog"
)

// Bootstrap migrates every table in order.
func (s *Store) Bootstrap(ctx context.Context, log *slog.Logger, tables ...Table) error {
	if log == nil {
		log = slog.Default()
	}
	m := NewMigrator(s)
	for _, t := range tables {
		if err := m.Migrate(ctx, t); err != nil {
			return fmt.Errorf("bootstrap %s: %w", t.Name, err)
		}
		log.Info("table ready", "table", t.Name, "dialect", s.Dialect.Name())
	}
	return nil
}
