// Package testutil bundles a full in-memory API stack for tests that
// exercise the service over HTTP, such as the client and CLI tests.
package testutil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/goconfigship/internal/api"
	"github.com/TimurManjosov/goconfigship/internal/auth"
	"github.com/TimurManjosov/goconfigship/internal/config"
	"github.com/TimurManjosov/goconfigship/internal/snapshot"
	"github.com/TimurManjosov/goconfigship/internal/store"
	"github.com/TimurManjosov/goconfigship/internal/template"
)

// API keys used by test servers.
const (
	AdminKey  = "test-admin-key"
	ClientKey = "test-client-key"
)

// SampleTemplate is a small valid template body shared by tests.
const SampleTemplate = `{
	"parameters": {
		"welcome_message": {
			"defaultValue": {"value": "hello"},
			"conditionalValues": {"beta_users": {"value": "hello beta"}},
			"valueType": "STRING"
		}
	},
	"conditions": [
		{
			"name": "beta_users",
			"condition": {
				"customSignal": {
					"customSignalOperator": "STRING_EXACTLY_MATCHES",
					"customSignalKey": "tier",
					"targetCustomSignalValues": ["beta"]
				}
			}
		}
	],
	"version": {"description": "test template"}
}`

// Env is a running API server over an in-memory store.
type Env struct {
	Server  *httptest.Server
	Handler http.Handler
	Store   *store.MemoryStore
	Holder  *snapshot.Holder
}

// NewEnv starts a test server with known keys. The server is shut down
// when the test finishes.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	cfg := &config.Config{
		AppEnv:               "test",
		StoreType:            "memory",
		AdminAPIKey:          AdminKey,
		ClientAPIKey:         ClientKey,
		RateLimitPerIP:       1000,
		RateLimitPerKey:      1000,
		RateLimitAdminPerKey: 1000,
	}
	st := store.NewMemoryStore()
	holder := snapshot.NewHolder()
	kc := auth.NewKeychain(cfg.AdminAPIKey, cfg.ClientAPIKey)
	srv := api.NewServer(cfg, st, holder, kc, nil, nil, zerolog.Nop())
	handler := srv.Router()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	return &Env{Server: ts, Handler: handler, Store: st, Holder: holder}
}

// SeedTemplate publishes a template body directly through the store and
// refreshes the snapshot, bypassing the HTTP layer.
func (e *Env) SeedTemplate(t *testing.T, body string) *snapshot.Snapshot {
	t.Helper()

	tpl, err := template.Parse([]byte(body))
	if err != nil {
		t.Fatalf("Failed to parse seed template: %v", err)
	}
	published, err := e.Store.PublishTemplate(context.Background(), store.PublishParams{
		Template:    tpl,
		Description: tpl.Version.Description,
		UpdateUser:  "seed",
	})
	if err != nil {
		t.Fatalf("Failed to publish seed template: %v", err)
	}
	snap, err := e.Holder.Update(published)
	if err != nil {
		t.Fatalf("Failed to update snapshot: %v", err)
	}
	return snap
}

// HTTPRequest is a helper for making test HTTP requests.
type HTTPRequest struct {
	Method  string
	Path    string
	Body    string
	Headers map[string]string
}

// Do executes the HTTP request and returns the response recorder.
func (r *HTTPRequest) Do(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if r.Body != "" {
		body = bytes.NewBufferString(r.Body)
	}
	req := httptest.NewRequest(r.Method, r.Path, body)
	if r.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}
