package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"crudkit/internal/auth"
)

func newTokenCommand(opts *rootOptions) *cobra.Command {
	var (
		subject string
		roles   []string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token for the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := opts.cfg.Auth.JWTSecret
			if secret == "" {
				return fmt.Errorf("token: auth.jwt_secret is not configured")
			}
			token, err := auth.GenerateAccessToken(subject, roles, secret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "cli", "token subject")
	cmd.Flags().StringSliceVar(&roles, "role", []string{auth.RoleReader}, "roles to grant (admin, writer, reader)")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenTTL, "token lifetime")
	return cmd
}
