package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var rollbackForce bool

var rollbackCmd = &cobra.Command{
	Use:   "rollback <version>",
	Short: "Roll back to an earlier version",
	Long: `Roll back the served template to an earlier version. The rollback is
published as a new version, so the history stays intact.

Examples:
  configship rollback 4 --context prod
  configship rollback 4 --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || target < 1 {
			return fmt.Errorf("invalid version %q, expected a positive number", args[0])
		}

		// Confirm unless --force
		if !rollbackForce && !quiet {
			fmt.Printf("Roll back to version %d? (y/N): ", target)
			reader := bufio.NewReader(os.Stdin)
			response, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read confirmation: %w", err)
			}
			response = strings.ToLower(strings.TrimSpace(response))
			if response != "y" && response != "yes" {
				fmt.Println("Rollback cancelled")
				return nil
			}
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		res, err := c.Rollback(context.Background(), target)
		if err != nil {
			return fmt.Errorf("failed to roll back: %w", err)
		}

		if !quiet {
			fmt.Printf("Rolled back to version %d, published as version %d\n",
				res.TargetVersion, res.VersionNumber)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(rollbackCmd)

	rollbackCmd.Flags().BoolVar(&rollbackForce, "force", false, "Skip confirmation prompt")
}
