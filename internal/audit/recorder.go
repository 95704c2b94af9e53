// Package audit records administrative actions (publishes, rollbacks,
// authentication failures) through pluggable sinks. Recording is
// asynchronous and never blocks the caller; when the queue overflows,
// events are dropped with a warning rather than stalling a request.
package audit

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Action constants for audit events.
const (
	ActionPublish     = "publish"
	ActionRollback    = "rollback"
	ActionAuthFailure = "auth_failure"
)

// DefaultQueueSize bounds the in-flight event queue when no explicit
// size is given.
const DefaultQueueSize = 256

const sinkWriteTimeout = 5 * time.Second

// Event is a canonical audit record.
type Event struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	Actor      string         `json:"actor"`
	Version    int64          `json:"version,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// Sink persists audit events.
type Sink interface {
	Write(ctx context.Context, event Event) error
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// IDGenerator abstracts event ID generation for tests.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator issues random UUIDs as event IDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// Redactor removes sensitive data from event details before they reach
// any sink.
type Redactor interface {
	Redact(details map[string]any) map[string]any
}

// DefaultRedactor replaces values of well-known sensitive keys.
type DefaultRedactor struct {
	sensitiveKeys []string
}

func NewDefaultRedactor() *DefaultRedactor {
	return &DefaultRedactor{
		sensitiveKeys: []string{
			"password", "secret", "token", "api_key", "key_hash",
			"authorization", "cookie", "session",
		},
	}
}

func (r *DefaultRedactor) Redact(details map[string]any) map[string]any {
	if details == nil {
		return nil
	}
	redacted := make(map[string]any, len(details))
	for k, v := range details {
		sensitive := false
		for _, s := range r.sensitiveKeys {
			if k == s {
				sensitive = true
				break
			}
		}
		switch {
		case sensitive:
			redacted[k] = "[REDACTED]"
		default:
			if nested, ok := v.(map[string]any); ok {
				redacted[k] = r.Redact(nested)
				continue
			}
			redacted[k] = v
		}
	}
	return redacted
}

// Recorder queues events and writes them to a sink from a background
// worker.
type Recorder struct {
	sink     Sink
	clock    Clock
	idgen    IDGenerator
	redactor Redactor
	log      zerolog.Logger

	queue   chan Event
	stopCh  chan struct{}
	drained chan struct{}
	closed  atomic.Bool
}

// NewRecorder starts a Recorder writing to sink. Nil clock, idgen and
// redactor fall back to the system defaults; queueSize <= 0 uses
// DefaultQueueSize.
func NewRecorder(sink Sink, log zerolog.Logger, clock Clock, idgen IDGenerator, redactor Redactor, queueSize int) *Recorder {
	if clock == nil {
		clock = SystemClock{}
	}
	if idgen == nil {
		idgen = UUIDGenerator{}
	}
	if redactor == nil {
		redactor = NewDefaultRedactor()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	r := &Recorder{
		sink:     sink,
		clock:    clock,
		idgen:    idgen,
		redactor: redactor,
		log:      log,
		queue:    make(chan Event, queueSize),
		stopCh:   make(chan struct{}),
		drained:  make(chan struct{}),
	}
	go r.worker()
	return r
}

func (r *Recorder) worker() {
	defer close(r.drained)
	for {
		select {
		case event := <-r.queue:
			r.write(event)
		case <-r.stopCh:
			for {
				select {
				case event := <-r.queue:
					r.write(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), sinkWriteTimeout)
	defer cancel()
	if err := r.sink.Write(ctx, event); err != nil {
		r.log.Error().Err(err).
			Str("action", event.Action).
			Str("event_id", event.ID).
			Msg("audit sink write failed")
	}
}

// Record queues an event, filling in ID and timestamp when absent and
// redacting sensitive detail fields. Events recorded after Close, or
// while the queue is full, are dropped.
func (r *Recorder) Record(event Event) {
	if r.closed.Load() {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = r.clock.Now()
	}
	if event.ID == "" {
		event.ID = r.idgen.NewID()
	}
	event.Details = r.redactor.Redact(event.Details)

	select {
	case r.queue <- event:
	default:
		r.log.Warn().
			Str("action", event.Action).
			Msg("audit queue full, dropping event")
	}
}

// Close stops the worker after draining queued events. Safe to call
// more than once.
func (r *Recorder) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(r.stopCh)
	<-r.drained
	return nil
}
