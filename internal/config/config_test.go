package config

import (
	"strings"
	"testing"
)

func baseConfig() *Config {
	return &Config{
		AppEnv:      "dev",
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",
		StoreType:   "memory",
		AdminAPIKey: "admin-123",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.HTTPAddr == "" || cfg.MetricsAddr == "" {
		t.Errorf("Load() left addresses empty: %+v", cfg)
	}
	if cfg.StoreType != "memory" && cfg.StoreType != "postgres" {
		t.Errorf("StoreType default = %q", cfg.StoreType)
	}
	if cfg.RateLimitPerIP <= 0 {
		t.Errorf("RateLimitPerIP default = %d", cfg.RateLimitPerIP)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"valid dev config", func(c *Config) {}, ""},
		{"unknown store type", func(c *Config) { c.StoreType = "etcd" }, "STORE_TYPE"},
		{"postgres without dsn", func(c *Config) { c.StoreType = "postgres"; c.DatabaseDSN = "" }, "DB_DSN"},
		{"empty http addr", func(c *Config) { c.HTTPAddr = "" }, "APP_HTTP_ADDR"},
		{"empty metrics addr", func(c *Config) { c.MetricsAddr = "" }, "METRICS_ADDR"},
		{"default admin key in prod", func(c *Config) { c.AppEnv = "prod" }, "ADMIN_API_KEY"},
		{"custom admin key in prod", func(c *Config) { c.AppEnv = "prod"; c.AdminAPIKey = "s3cret" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("Validate() = %v, want field %s", err, tt.wantField)
			}
		})
	}
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Field: "STORE_TYPE", Message: "bad"}
	if got := err.Error(); !strings.Contains(got, "STORE_TYPE") || !strings.Contains(got, "bad") {
		t.Errorf("Error() = %q", got)
	}
}
