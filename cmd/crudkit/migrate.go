package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"crudkit/internal/catalog"
	"crudkit/internal/logger"
	"crudkit/internal/store"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or extend the catalog tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg.Database
			if cfg.IsMemory() {
				return fmt.Errorf("migrate: the memory driver has no tables")
			}
			tables, err := catalog.Tables()
			if err != nil {
				return err
			}

			if dryRun {
				m := store.NewMigrator(&store.Store{Dialect: store.NewDialect(cfg.Driver)})
				for _, t := range tables {
					fmt.Fprintf(cmd.OutOrStdout(), "%s;\n\n", m.CreateTableSQL(t))
				}
				return nil
			}

			db, err := openStore(cmd.Context(), cfg, logger.Get())
			if err != nil {
				return err
			}
			db.Close()
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print CREATE TABLE statements instead of executing them")
	return cmd
}
