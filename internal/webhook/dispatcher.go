// Package webhook delivers signed template lifecycle events to
// configured HTTP endpoints. Dispatch is asynchronous: events are
// queued, fanned out to matching endpoints over a bounded worker pool,
// and retried with exponential backoff before being given up on.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/TimurManjosov/goconfigship/internal/telemetry"
)

const (
	// queueSize bounds events waiting for fan-out.
	queueSize = 256
	// maxConcurrentDeliveries bounds parallel deliveries per event.
	maxConcurrentDeliveries = 4
	// maxResponseBodySize limits how much of an endpoint response is read.
	maxResponseBodySize = 1024
)

// Dispatcher fans events out to the configured endpoints.
type Dispatcher struct {
	endpoints []Endpoint
	client    *http.Client
	log       zerolog.Logger

	queue  chan Event
	done   chan struct{}
	closed atomic.Bool

	// retryInterval seeds the exponential backoff between delivery
	// attempts; tests shrink it.
	retryInterval time.Duration
}

// NewDispatcher builds a Dispatcher for the given endpoints. Call Start
// to begin processing and Close to drain and stop.
func NewDispatcher(endpoints []Endpoint, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		endpoints: endpoints,
		client:    &http.Client{Timeout: 30 * time.Second},
		log:       log,
		queue:     make(chan Event, queueSize),
		done:      make(chan struct{}),

		retryInterval: 500 * time.Millisecond,
	}
}

// Start begins processing queued events.
func (d *Dispatcher) Start() {
	go d.worker()
}

// Close stops the dispatcher after delivering everything already
// queued. Safe to call more than once.
func (d *Dispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(d.queue)
	<-d.done
	return nil
}

// Dispatch queues an event for delivery without blocking the caller,
// filling in ID and timestamp when absent. Events are dropped with a
// warning when the queue is full or the dispatcher is closed.
func (d *Dispatcher) Dispatch(event Event) {
	if d.closed.Load() {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case d.queue <- event:
		d.log.Debug().
			Str("event", event.Type).
			Int64("version", event.Version).
			Msg("webhook event queued")
	default:
		d.log.Warn().
			Str("event", event.Type).
			Int64("version", event.Version).
			Msg("webhook queue full, dropping event")
	}
}

func (d *Dispatcher) worker() {
	defer close(d.done)
	for event := range d.queue {
		d.fanOut(event)
	}
}

// fanOut delivers one event to every matching endpoint, a bounded
// number at a time. It returns once every delivery has finished, so
// queued events are processed strictly in order.
func (d *Dispatcher) fanOut(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		d.log.Error().Err(err).Str("event", event.Type).Msg("failed to marshal webhook payload")
		return
	}

	p := pool.New().WithMaxGoroutines(maxConcurrentDeliveries)
	for _, ep := range d.endpoints {
		if !ep.subscribes(event.Type) {
			continue
		}
		ok, err := matchesFilter(ep.Filter, payload)
		if err != nil {
			d.log.Error().Err(err).
				Str("endpoint", ep.Name).
				Str("event", event.Type).
				Msg("webhook filter failed, skipping delivery")
			continue
		}
		if !ok {
			telemetry.WebhookDeliveries.WithLabelValues("filtered").Inc()
			d.log.Debug().
				Str("endpoint", ep.Name).
				Str("event", event.Type).
				Msg("webhook filter did not match")
			continue
		}
		p.Go(func() {
			d.deliver(ep, event, payload)
		})
	}
	p.Wait()
}

// deliver POSTs the payload to one endpoint, retrying transient
// failures. 4xx responses other than 408 and 429 are treated as
// permanent.
func (d *Dispatcher) deliver(ep Endpoint, event Event, payload []byte) {
	signature := ComputeSignature(payload, ep.Secret)
	deliveryID := uuid.NewString()

	attempts := 0
	operation := func() (int, error) {
		attempts++
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(ep.TimeoutSeconds)*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(payload))
		if err != nil {
			return 0, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Configship-Signature", signature)
		req.Header.Set("X-Configship-Event", event.Type)
		req.Header.Set("X-Configship-Delivery", deliveryID)

		resp, err := d.client.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBodySize))

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp.StatusCode, nil
		}
		statusErr := fmt.Errorf("endpoint returned %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 &&
			resp.StatusCode != http.StatusRequestTimeout &&
			resp.StatusCode != http.StatusTooManyRequests {
			return resp.StatusCode, backoff.Permanent(statusErr)
		}
		return resp.StatusCode, statusErr
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.retryInterval

	status, err := backoff.Retry(context.Background(), operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(ep.MaxRetries)+1),
	)
	if err != nil {
		telemetry.WebhookDeliveries.WithLabelValues("failed").Inc()
		d.log.Error().Err(err).
			Str("endpoint", ep.Name).
			Str("event", event.Type).
			Str("delivery_id", deliveryID).
			Int("attempts", attempts).
			Msg("webhook delivery failed")
		return
	}

	telemetry.WebhookDeliveries.WithLabelValues("delivered").Inc()
	d.log.Info().
		Str("endpoint", ep.Name).
		Str("event", event.Type).
		Str("delivery_id", deliveryID).
		Int("status", status).
		Int("attempts", attempts).
		Msg("webhook delivered")
}

// PublishedEvent builds the payload announcing a newly published
// template version.
func PublishedEvent(version int64, etag, actor, description string) Event {
	data := map[string]any{}
	if description != "" {
		data["description"] = description
	}
	return Event{
		Type:    EventTemplatePublished,
		Version: version,
		ETag:    etag,
		Actor:   actor,
		Data:    data,
	}
}

// RolledBackEvent builds the payload announcing a rollback. version is
// the newly created version, target the version it restores.
func RolledBackEvent(version int64, etag, actor string, target int64) Event {
	return Event{
		Type:    EventTemplateRolledBack,
		Version: version,
		ETag:    etag,
		Actor:   actor,
		Data:    map[string]any{"targetVersion": target},
	}
}
