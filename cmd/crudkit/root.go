package main

import (
	"github.com/spf13/cobra"

	"crudkit/internal/config"
	"crudkit/internal/logger"
)

// rootOptions holds global flags and the config loaded before every command.
type rootOptions struct {
	ConfigPath string
	cfg        *config.Config
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "crudkit",
		Short:         "Schema-driven CRUD service",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if opts.ConfigPath != "" {
				opts.cfg, err = config.LoadFile(opts.ConfigPath)
			} else {
				opts.cfg, err = config.Load()
			}
			if err != nil {
				return err
			}
			logger.Init(logger.Config{Level: opts.cfg.Log.Level, Format: opts.cfg.Log.Format})
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default app.yaml)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newSchemaCommand(opts))
	cmd.AddCommand(newTokenCommand(opts))

	return cmd
}
