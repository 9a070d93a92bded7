package commands

import (
	"fmt"

	"github.com/TimurManjosov/packgenie/internal/auth"
	"github.com/TimurManjosov/packgenie/internal/webhook"
	"github.com/spf13/cobra"
)

func newKeygenCmd(opts *globalOptions) *cobra.Command {
	var webhookSecret bool

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an admin API key and its bcrypt hash",
		Long: `Generate a random admin API key. Give the key to clients and put the
hash in ADMIN_API_KEY_HASH so the server never stores the plain key.

With --webhook-secret a signing secret for WEBHOOK_SECRET is printed too.

Example:
  packgenie keygen
  packgenie keygen --webhook-secret`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := auth.GenerateAPIKey()
			if err != nil {
				return fmt.Errorf("failed to generate key: %w", err)
			}
			hash, err := auth.HashAPIKey(key)
			if err != nil {
				return fmt.Errorf("failed to hash key: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "API key:            %s\n", key)
			fmt.Fprintf(out, "ADMIN_API_KEY_HASH: %s\n", hash)

			if webhookSecret {
				secret, err := webhook.GenerateSecret()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "WEBHOOK_SECRET:     %s\n", secret)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&webhookSecret, "webhook-secret", false, "also generate a webhook signing secret")
	return cmd
}
