package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goconfigship/internal/cli"
)

var versionsLimit int

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List template versions",
	Long: `List the version history of the template, newest first.

Examples:
  configship versions
  configship versions --limit 5 --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outFormat, err := outputFormat()
		if err != nil {
			return err
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		versions, err := c.ListVersions(context.Background(), versionsLimit)
		if err != nil {
			return fmt.Errorf("failed to list versions: %w", err)
		}

		if len(versions) == 0 {
			if !quiet {
				fmt.Println("No versions found")
			}
			return nil
		}

		return cli.PrintVersions(os.Stdout, versions, outFormat)
	},
}

func init() {
	rootCmd.AddCommand(versionsCmd)

	versionsCmd.Flags().IntVar(&versionsLimit, "limit", 0, "Maximum number of versions to show (0 = server default)")
}
