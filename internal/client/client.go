// Package client is the Go SDK for the configship API. It wraps the
// HTTP surface: template fetch with ETag revalidation, server-side
// evaluation, publishing, version history, rollback and the SSE change
// stream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/TimurManjosov/goconfigship/internal/condition"
	"github.com/TimurManjosov/goconfigship/internal/template"
)

// ErrNotModified is returned by GetTemplate when the server's template
// still matches the ETag the caller holds.
var ErrNotModified = errors.New("template not modified")

// Client is an HTTP client for the configship API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client

	// streamHTTP serves the SSE stream. The request timeout on
	// HTTPClient would sever long-lived connections.
	streamHTTP *http.Client
}

// NewClient creates a new API client. apiKey may be empty when the
// server leaves read endpoints public.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		streamHTTP: &http.Client{},
	}
}

// APIError is a structured error returned by the service.
type APIError struct {
	Status    int
	Code      string
	Message   string
	Fields    map[string]string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error (status %d, code %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// decodeAPIError reads the error envelope off a non-2xx response,
// falling back to the raw body for non-JSON errors.
func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var envelope struct {
		Message   string            `json:"message"`
		Code      string            `json:"code"`
		Fields    map[string]string `json:"fields"`
		RequestID string            `json:"request_id"`
	}
	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		apiErr.Code = envelope.Code
		apiErr.Message = envelope.Message
		apiErr.Fields = envelope.Fields
		apiErr.RequestID = envelope.RequestID
	} else {
		apiErr.Message = string(bytes.TrimSpace(body))
	}
	return apiErr
}

func (c *Client) authorize(req *http.Request) {
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
}

// do runs one JSON request/response round trip.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// GetTemplate fetches the active template. A non-empty etag makes the
// request conditional: when the server copy still matches, the error is
// ErrNotModified. On success it returns the template and its ETag.
func (c *Client) GetTemplate(ctx context.Context, etag string) (*template.Template, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/template", nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	c.authorize(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return nil, etag, ErrNotModified
	case resp.StatusCode != http.StatusOK:
		return nil, "", decodeAPIError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}
	tpl, err := template.Parse(body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode template: %w", err)
	}
	return tpl, resp.Header.Get("ETag"), nil
}

// EvalResult is the server-resolved configuration for one context.
type EvalResult struct {
	Values      map[string]template.Value `json:"values"`
	Conditions  map[string]bool           `json:"conditions"`
	Version     int64                     `json:"version"`
	ETag        string                    `json:"etag"`
	EvaluatedAt string                    `json:"evaluatedAt"`
}

// Evaluate resolves the active template for the given context on the
// server.
func (c *Client) Evaluate(ctx context.Context, evalCtx condition.Context) (*EvalResult, error) {
	in := struct {
		Context condition.Context `json:"context"`
	}{Context: evalCtx}

	var out EvalResult
	if err := c.do(ctx, http.MethodPost, "/v1/evaluate", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EvaluateConditions evaluates ad-hoc named conditions against a
// context without touching the active template.
func (c *Client) EvaluateConditions(ctx context.Context, conditions []condition.NamedCondition, evalCtx condition.Context) (map[string]bool, error) {
	in := struct {
		Conditions []condition.NamedCondition `json:"conditions"`
		Context    condition.Context          `json:"context"`
	}{Conditions: conditions, Context: evalCtx}

	var out struct {
		Conditions map[string]bool `json:"conditions"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/conditions/evaluate", in, &out); err != nil {
		return nil, err
	}
	return out.Conditions, nil
}

// PublishResult describes the version created by a publish.
type PublishResult struct {
	VersionNumber int64     `json:"versionNumber"`
	ETag          string    `json:"etag"`
	UpdateTime    time.Time `json:"updateTime"`
}

// Publish validates and activates a new template version. Requires the
// admin key.
func (c *Client) Publish(ctx context.Context, tpl *template.Template) (*PublishResult, error) {
	var out PublishResult
	if err := c.do(ctx, http.MethodPost, "/v1/template", tpl, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListVersions returns version history, newest first. limit 0 uses the
// server default.
func (c *Client) ListVersions(ctx context.Context, limit int) ([]template.Version, error) {
	path := "/v1/template/versions"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}

	var out struct {
		Versions []template.Version `json:"versions"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Versions, nil
}

// RollbackResult describes the version created by a rollback.
type RollbackResult struct {
	VersionNumber int64  `json:"versionNumber"`
	TargetVersion int64  `json:"targetVersion"`
	ETag          string `json:"etag"`
}

// Rollback restores the body of an earlier version as a new active
// version. Requires the admin key.
func (c *Client) Rollback(ctx context.Context, versionNumber int64) (*RollbackResult, error) {
	in := struct {
		VersionNumber int64 `json:"versionNumber"`
	}{VersionNumber: versionNumber}

	var out RollbackResult
	if err := c.do(ctx, http.MethodPost, "/v1/template/rollback", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Info reports the service health and build version.
type Info struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ServerInfo fetches the health endpoint.
func (c *Client) ServerInfo(ctx context.Context) (*Info, error) {
	var out Info
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckServerVersion reports whether the server build satisfies a
// semver constraint such as ">= 0.2". It returns the reported version
// alongside the verdict.
func (c *Client) CheckServerVersion(ctx context.Context, constraint string) (bool, string, error) {
	cons, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, "", fmt.Errorf("invalid version constraint: %w", err)
	}

	info, err := c.ServerInfo(ctx)
	if err != nil {
		return false, "", err
	}
	v, err := semver.NewVersion(info.Version)
	if err != nil {
		return false, info.Version, fmt.Errorf("server reported unparseable version %q: %w", info.Version, err)
	}
	return cons.Check(v), info.Version, nil
}
