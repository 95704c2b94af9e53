// Package cli holds the pieces shared by configship commands: context
// configuration and output rendering.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the CLI configuration file, a set of named server contexts.
type Config struct {
	DefaultContext string                   `yaml:"default_context"`
	Contexts       map[string]ContextConfig `yaml:"contexts"`
}

// ContextConfig points at one configship server.
type ContextConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// GetConfigPath returns the config file location. CONFIGSHIP_CONFIG
// overrides the default of ~/.configship/config.yaml.
func GetConfigPath() (string, error) {
	if path := os.Getenv("CONFIGSHIP_CONFIG"); path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".configship", "config.yaml"), nil
}

// LoadConfig loads the configuration file. A missing file yields an
// empty config rather than an error.
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{Contexts: make(map[string]ContextConfig)}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]ContextConfig)
	}
	return &cfg, nil
}

// SaveConfig writes the configuration file, creating its directory if
// needed. The file holds API keys, so permissions stay tight.
func SaveConfig(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Resolve picks the server to talk to. Precedence per field: command
// flags, then CONFIGSHIP_BASE_URL / CONFIGSHIP_API_KEY, then the named
// (or default) context from the config file. It returns the resolved
// connection and the effective context name.
func Resolve(contextName, baseURLFlag, apiKeyFlag string) (*ContextConfig, string, error) {
	resolved := ContextConfig{
		BaseURL: firstNonEmpty(baseURLFlag, os.Getenv("CONFIGSHIP_BASE_URL")),
		APIKey:  firstNonEmpty(apiKeyFlag, os.Getenv("CONFIGSHIP_API_KEY")),
	}

	// Flags and env vars alone can fully specify a server; the config
	// file is only read to fill the gaps.
	if resolved.BaseURL != "" {
		if contextName == "" {
			contextName = "direct"
		}
		return &resolved, contextName, nil
	}

	cfg, err := LoadConfig()
	if err != nil {
		return nil, "", err
	}
	if contextName == "" {
		contextName = cfg.DefaultContext
	}
	if contextName == "" {
		return nil, "", fmt.Errorf("no context selected: pass --context, set CONFIGSHIP_BASE_URL, or configure a default_context")
	}

	ctxCfg, ok := cfg.Contexts[contextName]
	if !ok {
		return nil, "", fmt.Errorf("context %q not found in config", contextName)
	}
	if resolved.APIKey != "" {
		ctxCfg.APIKey = resolved.APIKey
	}
	if ctxCfg.BaseURL == "" {
		return nil, "", fmt.Errorf("context %q has no base_url configured", contextName)
	}
	return &ctxCfg, contextName, nil
}

// InitConfig writes a starter config file.
func InitConfig() error {
	cfg := &Config{
		DefaultContext: "local",
		Contexts: map[string]ContextConfig{
			"local": {
				BaseURL: "http://localhost:8080",
			},
			"prod": {
				BaseURL: "https://configship.example.com",
				APIKey:  "csk_replace-me",
			},
		},
	}
	return SaveConfig(cfg)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
