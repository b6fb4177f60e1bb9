package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"termfolio/internal/auth"
)

func newMintKeyCmd() *cobra.Command {
	var (
		role   string
		expiry time.Duration
	)
	cmd := &cobra.Command{
		Use:   "mint-key",
		Short: "Print a signed API key for the data store",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("API_SECRET")
			if secret == "" {
				return fmt.Errorf("API_SECRET is required")
			}
			if !auth.ValidRole(role) {
				return fmt.Errorf("unknown role %q", role)
			}
			cfg := auth.DefaultKeyConfig(secret)
			if expiry > 0 {
				cfg.Expiry = expiry
			}
			key, err := auth.CreateAPIKey(role, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", auth.RoleAnon, "key role (anon or service)")
	cmd.Flags().DurationVar(&expiry, "expiry", 0, "key lifetime (default 365 days)")
	return cmd
}
