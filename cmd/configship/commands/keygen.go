package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goconfigship/internal/auth"
	"github.com/TimurManjosov/goconfigship/internal/webhook"
)

var (
	keygenPrefix  string
	keygenHash    bool
	keygenWebhook bool
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an API key or webhook secret",
	Long: `Generate a random API key for the server's auth configuration. With
--hash, also print a bcrypt hash that can be configured instead of the
plaintext key. With --webhook, generate a webhook signing secret.

Examples:
  configship keygen
  configship keygen --hash
  configship keygen --prefix adm_
  configship keygen --webhook`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if keygenWebhook {
			secret, err := webhook.GenerateSecret()
			if err != nil {
				return fmt.Errorf("failed to generate secret: %w", err)
			}
			fmt.Println(secret)
			return nil
		}

		key, err := auth.NewKey(keygenPrefix)
		if err != nil {
			return fmt.Errorf("failed to generate key: %w", err)
		}
		fmt.Println(key)

		if keygenHash {
			hash, err := auth.HashKey(key)
			if err != nil {
				return fmt.Errorf("failed to hash key: %w", err)
			}
			fmt.Println(hash)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)

	keygenCmd.Flags().StringVar(&keygenPrefix, "prefix", "", "Key prefix (default \"csk_\")")
	keygenCmd.Flags().BoolVar(&keygenHash, "hash", false, "Also print a bcrypt hash of the key")
	keygenCmd.Flags().BoolVar(&keygenWebhook, "webhook", false, "Generate a webhook signing secret instead")
}
