package webhook

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
)

// Delivery defaults applied to endpoints that leave them unset.
const (
	DefaultMaxRetries     = 3
	DefaultTimeoutSeconds = 10
)

// LoadEndpoints reads the webhooks file: a JSON array of Endpoint
// objects. Defaults are applied and every endpoint is validated so
// misconfiguration fails at startup rather than at delivery time.
func LoadEndpoints(path string) ([]Endpoint, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read webhooks file: %w", err)
	}

	var endpoints []Endpoint
	if err := json.Unmarshal(raw, &endpoints); err != nil {
		return nil, fmt.Errorf("parse webhooks file %s: %w", path, err)
	}

	for i := range endpoints {
		if err := validateEndpoint(&endpoints[i]); err != nil {
			return nil, fmt.Errorf("webhooks file %s, endpoint %d: %w", path, i, err)
		}
	}
	return endpoints, nil
}

func validateEndpoint(e *Endpoint) error {
	if e.URL == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(e.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url %q is not a valid http(s) URL", e.URL)
	}
	if e.Secret == "" {
		return fmt.Errorf("secret is required")
	}
	if err := ValidateFilter(e.Filter); err != nil {
		return err
	}
	if e.Name == "" {
		e.Name = u.Host
	}
	if e.MaxRetries <= 0 {
		e.MaxRetries = DefaultMaxRetries
	}
	if e.TimeoutSeconds <= 0 {
		e.TimeoutSeconds = DefaultTimeoutSeconds
	}
	return nil
}
