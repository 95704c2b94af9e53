package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goconfigship/internal/cli"
	"github.com/TimurManjosov/goconfigship/internal/client"
)

var (
	// Global flags
	baseURL     string
	apiKey      string
	contextName string
	format      string
	quiet       bool
	verbose     bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "configship",
	Short: "CLI tool for managing remote config templates",
	Long: `Configship is a command-line tool for the goconfigship service.

It provides commands for publishing, fetching and rolling back config
templates, evaluating them against a client context, and following
template updates as they happen.

Examples:
  configship get --context prod
  configship publish template.json --context prod
  configship evaluate --id user-123 --signal tier=beta
  configship versions --limit 10
  configship rollback 4 --context prod
  configship watch --context prod`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// newClient resolves connection settings from flags, environment
// variables and the config file, then builds an API client.
func newClient() (*client.Client, error) {
	ctxCfg, name, err := cli.Resolve(contextName, baseURL, apiKey)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if verbose {
		fmt.Printf("Using context %q (%s)\n", name, ctxCfg.BaseURL)
	}
	return client.NewClient(ctxCfg.BaseURL, ctxCfg.APIKey), nil
}

// outputFormat validates the --format flag.
func outputFormat() (cli.OutputFormat, error) {
	switch f := cli.OutputFormat(format); f {
	case cli.FormatTable, cli.FormatJSON, cli.FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q, valid formats: table, json, yaml", format)
	}
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Base URL of the configship API")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for authentication")
	rootCmd.PersistentFlags().StringVar(&contextName, "context", "", "Named context from the config file")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
}
