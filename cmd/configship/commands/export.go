package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goconfigship/internal/cli"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the active template to a file",
	Long: `Export the currently served template as JSON or YAML. JSON output is
round-trippable: the file can be fed straight back into publish.

Examples:
  configship export --output template.json
  configship export --format yaml > backup.yaml
  configship export --context prod --output prod.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outFormat, err := outputFormat()
		if err != nil {
			return err
		}
		// Tables make no sense in an export file, default to JSON.
		if outFormat == cli.FormatTable {
			outFormat = cli.FormatJSON
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		tpl, _, err := c.GetTemplate(context.Background(), "")
		if err != nil {
			return fmt.Errorf("failed to fetch template: %w", err)
		}

		// Determine output destination
		output := os.Stdout
		if exportOutput != "" && exportOutput != "-" {
			output, err = os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer output.Close()
		}

		if err := cli.PrintTemplate(output, tpl, outFormat); err != nil {
			return fmt.Errorf("failed to encode template: %w", err)
		}

		if output != os.Stdout && !quiet {
			fmt.Fprintf(os.Stderr, "Exported template version %d to %s\n",
				tpl.Version.VersionNumber, exportOutput)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
}
