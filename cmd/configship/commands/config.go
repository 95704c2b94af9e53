package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goconfigship/internal/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long:  `Manage the configship CLI configuration file.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long: `Create a default configuration file at ~/.configship/config.yaml

Example:
  configship config init`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.InitConfig(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		configPath, _ := cli.GetConfigPath()
		fmt.Printf("Configuration file created at: %s\n", configPath)
		fmt.Println("\nPlease edit the file to set your API keys and base URLs.")

		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all contexts",
	Long: `Display the configured contexts.

Example:
  configship config list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		fmt.Printf("Default context: %s\n\n", cfg.DefaultContext)
		fmt.Println("Contexts:")

		names := make([]string, 0, len(cfg.Contexts))
		for name := range cfg.Contexts {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			ctxCfg := cfg.Contexts[name]
			fmt.Printf("  %s:\n", name)
			fmt.Printf("    base_url: %s\n", ctxCfg.BaseURL)
			// Mask API key for security
			maskedKey := "***"
			if len(ctxCfg.APIKey) > 8 {
				maskedKey = ctxCfg.APIKey[:8] + "***"
			}
			fmt.Printf("    api_key: %s\n", maskedKey)
		}

		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <context.key>",
	Short: "Get a configuration value",
	Long: `Get a specific configuration value.

Examples:
  configship config get local.base_url
  configship config get prod.api_key`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		name, key, err := splitConfigKey(args[0])
		if err != nil {
			return err
		}

		ctxCfg, ok := cfg.Contexts[name]
		if !ok {
			return fmt.Errorf("context '%s' not found", name)
		}

		switch key {
		case "base_url":
			fmt.Println(ctxCfg.BaseURL)
		case "api_key":
			fmt.Println(ctxCfg.APIKey)
		default:
			return fmt.Errorf("unknown key '%s', valid keys: base_url, api_key", key)
		}

		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <context.key> <value>",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value, creating the context if needed.

Examples:
  configship config set local.base_url http://localhost:8080
  configship config set prod.api_key csk_my-secret-key`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		name, key, err := splitConfigKey(args[0])
		if err != nil {
			return err
		}
		value := args[1]

		ctxCfg := cfg.Contexts[name]

		switch key {
		case "base_url":
			ctxCfg.BaseURL = value
		case "api_key":
			ctxCfg.APIKey = value
		default:
			return fmt.Errorf("unknown key '%s', valid keys: base_url, api_key", key)
		}

		cfg.Contexts[name] = ctxCfg

		if err := cli.SaveConfig(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Printf("Successfully set %s.%s\n", name, key)

		return nil
	},
}

var configUseCmd = &cobra.Command{
	Use:   "use <context>",
	Short: "Set the default context",
	Long: `Set the context used when --context is not given.

Example:
  configship config use prod`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		name := args[0]
		if _, ok := cfg.Contexts[name]; !ok {
			return fmt.Errorf("context '%s' not found, add it with 'configship config set %s.base_url <url>'", name, name)
		}

		cfg.DefaultContext = name
		if err := cli.SaveConfig(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Printf("Default context set to '%s'\n", name)

		return nil
	},
}

func splitConfigKey(s string) (name, key string, err error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid key format, expected 'context.key' (e.g., 'local.base_url')")
	}
	return parts[0], parts[1], nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUseCmd)
}
