package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// capture records every request an httptest endpoint receives.
type capture struct {
	mu      sync.Mutex
	bodies  [][]byte
	headers []http.Header
}

func (c *capture) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.bodies = append(c.bodies, body)
		c.headers = append(c.headers, r.Header.Clone())
		c.mu.Unlock()
		w.WriteHeader(status)
	}
}

func (c *capture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bodies)
}

func testDispatcher(endpoints []Endpoint) *Dispatcher {
	d := NewDispatcher(endpoints, zerolog.Nop())
	d.retryInterval = time.Millisecond
	d.Start()
	return d
}

func TestDispatcherDelivers(t *testing.T) {
	var got capture
	srv := httptest.NewServer(got.handler(http.StatusOK))
	defer srv.Close()

	d := testDispatcher([]Endpoint{{
		Name:           "test",
		URL:            srv.URL,
		Secret:         "whsec_test",
		MaxRetries:     1,
		TimeoutSeconds: 5,
	}})

	d.Dispatch(PublishedEvent(4, `W/"00000000deadbeef"`, "admin", "launch"))
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if got.count() != 1 {
		t.Fatalf("endpoint received %d requests, want 1", got.count())
	}

	body := got.bodies[0]
	header := got.headers[0]
	if !VerifySignature(body, header.Get("X-Configship-Signature"), "whsec_test") {
		t.Error("delivered payload signature does not verify")
	}
	if header.Get("X-Configship-Event") != EventTemplatePublished {
		t.Errorf("event header = %q", header.Get("X-Configship-Event"))
	}
	if header.Get("X-Configship-Delivery") == "" {
		t.Error("delivery header missing")
	}
	if header.Get("Content-Type") != "application/json" {
		t.Errorf("content type = %q", header.Get("Content-Type"))
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if event.Type != EventTemplatePublished || event.Version != 4 || event.Actor != "admin" {
		t.Errorf("payload = %+v", event)
	}
	if event.ID == "" || event.Timestamp.IsZero() {
		t.Errorf("ID/Timestamp not filled in: %+v", event)
	}
	if event.Data["description"] != "launch" {
		t.Errorf("description = %v", event.Data["description"])
	}
}

func TestDispatcherRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := testDispatcher([]Endpoint{{
		Name: "flaky", URL: srv.URL, Secret: "s", MaxRetries: 3, TimeoutSeconds: 5,
	}})
	d.Dispatch(RolledBackEvent(6, "", "admin", 4))
	d.Close()

	if got := hits.Load(); got != 3 {
		t.Errorf("endpoint hit %d times, want 3 (two failures then success)", got)
	}
}

func TestDispatcherGivesUpOnPermanentFailure(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	d := testDispatcher([]Endpoint{{
		Name: "rejecting", URL: srv.URL, Secret: "s", MaxRetries: 5, TimeoutSeconds: 5,
	}})
	d.Dispatch(PublishedEvent(1, "", "admin", ""))
	d.Close()

	if got := hits.Load(); got != 1 {
		t.Errorf("endpoint hit %d times, want 1 (4xx is permanent)", got)
	}
}

func TestDispatcherExhaustsRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d := testDispatcher([]Endpoint{{
		Name: "down", URL: srv.URL, Secret: "s", MaxRetries: 2, TimeoutSeconds: 5,
	}})
	d.Dispatch(PublishedEvent(1, "", "admin", ""))
	d.Close()

	if got := hits.Load(); got != 3 {
		t.Errorf("endpoint hit %d times, want 3 (initial attempt plus two retries)", got)
	}
}

func TestDispatcherRoutesBySubscriptionAndFilter(t *testing.T) {
	var rollbackOnly, filtered capture
	srvA := httptest.NewServer(rollbackOnly.handler(http.StatusOK))
	defer srvA.Close()
	srvB := httptest.NewServer(filtered.handler(http.StatusOK))
	defer srvB.Close()

	d := testDispatcher([]Endpoint{
		{
			Name: "rollbacks", URL: srvA.URL, Secret: "sa",
			Events:     []string{EventTemplateRolledBack},
			MaxRetries: 1, TimeoutSeconds: 5,
		},
		{
			Name: "big-versions", URL: srvB.URL, Secret: "sb",
			Filter:     json.RawMessage(`{">":[{"var":"version"},10]}`),
			MaxRetries: 1, TimeoutSeconds: 5,
		},
	})

	d.Dispatch(PublishedEvent(3, "", "admin", ""))   // matches neither
	d.Dispatch(PublishedEvent(12, "", "admin", ""))  // passes the filter
	d.Dispatch(RolledBackEvent(13, "", "admin", 12)) // matches both
	d.Close()

	if got := rollbackOnly.count(); got != 1 {
		t.Errorf("rollback-only endpoint received %d events, want 1", got)
	}
	if got := filtered.count(); got != 2 {
		t.Errorf("filtered endpoint received %d events, want 2", got)
	}
}

func TestDispatcherFanOutSignsPerEndpoint(t *testing.T) {
	var a, b capture
	srvA := httptest.NewServer(a.handler(http.StatusOK))
	defer srvA.Close()
	srvB := httptest.NewServer(b.handler(http.StatusOK))
	defer srvB.Close()

	d := testDispatcher([]Endpoint{
		{Name: "a", URL: srvA.URL, Secret: "secret-a", MaxRetries: 1, TimeoutSeconds: 5},
		{Name: "b", URL: srvB.URL, Secret: "secret-b", MaxRetries: 1, TimeoutSeconds: 5},
	})
	d.Dispatch(PublishedEvent(2, "", "admin", ""))
	d.Close()

	if a.count() != 1 || b.count() != 1 {
		t.Fatalf("fan-out incomplete: a=%d b=%d", a.count(), b.count())
	}
	if !VerifySignature(a.bodies[0], a.headers[0].Get("X-Configship-Signature"), "secret-a") {
		t.Error("endpoint a signature invalid")
	}
	if !VerifySignature(b.bodies[0], b.headers[0].Get("X-Configship-Signature"), "secret-b") {
		t.Error("endpoint b signature invalid")
	}
}

func TestDispatcherCloseIdempotent(t *testing.T) {
	d := testDispatcher(nil)
	if err := d.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	// Dispatching after close must not panic.
	d.Dispatch(PublishedEvent(1, "", "admin", ""))
}
