package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goconfigship/internal/cli"
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Fetch the active template",
	Long: `Fetch the currently served config template.

Examples:
  configship get
  configship get --context prod --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outFormat, err := outputFormat()
		if err != nil {
			return err
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		tpl, etag, err := c.GetTemplate(context.Background(), "")
		if err != nil {
			return fmt.Errorf("failed to fetch template: %w", err)
		}

		if verbose {
			fmt.Printf("ETag: %s\n", etag)
		}

		return cli.PrintTemplate(os.Stdout, tpl, outFormat)
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
