package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"quizdesk/internal/config"
	"quizdesk/internal/domain"
)

// NewTokenCmd issues a bearer token for local testing against the configured secret.
func NewTokenCmd(configPath *string) *cobra.Command {
	var userID, name string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.Secret == "" {
				return fmt.Errorf("auth.secret not configured")
			}
			// revocations are not needed to sign
			tok, err := newProvider(cfg, nil).Issue(domain.Identity{ID: userID, DisplayName: name})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (token subject)")
	cmd.Flags().StringVar(&name, "name", "", "display name written on results")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
