package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"crudkit/internal/catalog"
	"crudkit/internal/engine"
	"crudkit/internal/logger"
)

func newSchemaCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema [entity]",
		Short: "Print the schema of every resource, or of one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := engine.NewRegistry()
			if err := catalog.Register(reg, catalog.Deps{Logger: logger.Discard()}); err != nil {
				return err
			}

			var out any
			if len(args) == 1 {
				r, ok := reg.Get(args[0])
				if !ok {
					return fmt.Errorf("unknown entity %q", args[0])
				}
				out = r.Describe()
			} else {
				all := reg.All()
				descs := make([]any, 0, len(all))
				for _, r := range all {
					descs = append(descs, r.Describe())
				}
				out = descs
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
