package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Update is one change notification from the template event stream.
type Update struct {
	// Event is "init" on (re)connect and "template" on publishes and
	// rollbacks.
	Event string
	// ETag identifies the template version now active on the server.
	ETag string
}

// Watch subscribes to the server's SSE stream and delivers an Update
// per event. Dropped connections are retried with exponential backoff
// until ctx is cancelled; each reconnect yields a fresh "init" update
// so callers can catch up on anything missed while disconnected.
//
// The returned channel closes when ctx ends or the server rejects the
// credentials.
func (c *Client) Watch(ctx context.Context) <-chan Update {
	updates := make(chan Update, 8)

	go func() {
		defer close(updates)

		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = time.Second
		bo.MaxInterval = 30 * time.Second

		for {
			err := c.stream(ctx, updates, bo)
			if ctx.Err() != nil {
				return
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) &&
				(apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
				// Retrying with the same key cannot succeed.
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(bo.NextBackOff()):
			}
		}
	}()

	return updates
}

// stream holds one SSE connection open, forwarding events until the
// connection drops. The backoff resets once events flow, so a stable
// stream that later drops reconnects quickly.
func (c *Client) stream(ctx context.Context, updates chan<- Update, bo *backoff.ExponentialBackOff) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/stream", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	c.authorize(req)

	resp, err := c.streamHTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	bo.Reset()

	scanner := bufio.NewScanner(resp.Body)
	var event, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "" && event != "":
			var payload struct {
				ETag string `json:"etag"`
			}
			if err := json.Unmarshal([]byte(data), &payload); err == nil {
				select {
				case updates <- Update{Event: event, ETag: payload.ETag}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			event, data = "", ""
		}
	}
	return scanner.Err()
}
