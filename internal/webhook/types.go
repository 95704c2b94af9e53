package webhook

import (
	"encoding/json"
	"time"
)

// Event types delivered to subscribed endpoints.
const (
	EventTemplatePublished  = "template.published"
	EventTemplateRolledBack = "template.rolled_back"
)

// Event is the payload POSTed to webhook endpoints.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"event"`
	Timestamp time.Time      `json:"timestamp"`
	Version   int64          `json:"version"`
	ETag      string         `json:"etag,omitempty"`
	Actor     string         `json:"actor,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Endpoint is one delivery target, loaded from the webhooks file.
type Endpoint struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Secret string `json:"secret"`
	// Events limits delivery to the listed event types; empty means all.
	Events []string `json:"events,omitempty"`
	// Filter is an optional JSON Logic rule evaluated against the event
	// payload; falsy results suppress delivery.
	Filter         json.RawMessage `json:"filter,omitempty"`
	MaxRetries     int             `json:"maxRetries,omitempty"`
	TimeoutSeconds int             `json:"timeoutSeconds,omitempty"`
}

// subscribes reports whether the endpoint wants this event type.
func (e Endpoint) subscribes(eventType string) bool {
	if len(e.Events) == 0 {
		return true
	}
	for _, t := range e.Events {
		if t == eventType {
			return true
		}
	}
	return false
}
