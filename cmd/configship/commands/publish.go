package commands

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goconfigship/internal/template"
)

var publishDryRun bool

var publishCmd = &cobra.Command{
	Use:   "publish <file>",
	Short: "Publish a template",
	Long: `Publish a config template from a JSON file. The server assigns the
next version number and starts serving the new template immediately.

Examples:
  configship publish template.json --context prod
  configship publish template.json --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		tpl, err := template.Parse(data)
		if err != nil {
			return fmt.Errorf("failed to parse template: %w", err)
		}

		// Validate locally so obvious mistakes fail before the request.
		if result := template.Validate(tpl); !result.Valid {
			fields := make([]string, 0, len(result.Errors))
			for field := range result.Errors {
				fields = append(fields, field)
			}
			sort.Strings(fields)
			fmt.Fprintln(os.Stderr, "Template validation failed:")
			for _, field := range fields {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", field, result.Errors[field])
			}
			return fmt.Errorf("template is invalid")
		}

		if publishDryRun {
			if !quiet {
				fmt.Printf("Template is valid: %d parameter(s), %d condition(s)\n",
					len(tpl.Parameters), len(tpl.Conditions))
			}
			return nil
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		pub, err := c.Publish(context.Background(), tpl)
		if err != nil {
			return fmt.Errorf("failed to publish template: %w", err)
		}

		if !quiet {
			fmt.Printf("Published version %d (etag %s)\n", pub.VersionNumber, pub.ETag)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().BoolVar(&publishDryRun, "dry-run", false, "Validate without publishing")
}
