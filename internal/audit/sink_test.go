package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/goconfigship/internal/db"
)

func TestZerologSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewZerologSink(zerolog.New(&buf))

	err := sink.Write(context.Background(), Event{
		ID:         "evt-9",
		Action:     ActionRollback,
		Actor:      "admin",
		Version:    7,
		Details:    map[string]any{"targetVersion": int64(4)},
		OccurredAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if line["audit_id"] != "evt-9" || line["action"] != "rollback" || line["actor"] != "admin" {
		t.Errorf("log line = %v", line)
	}
	if line["version"] != float64(7) {
		t.Errorf("version = %v, want 7", line["version"])
	}
}

func TestMultiSink(t *testing.T) {
	a := NewMemorySink()
	b := NewMemorySink()
	multi := NewMultiSink(a, b)

	if err := multi.Write(context.Background(), Event{ID: "e1", Action: ActionPublish}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Errorf("fan-out incomplete: a=%d b=%d", len(a.Events()), len(b.Events()))
	}

	boom := errors.New("sink down")
	multi = NewMultiSink(&failingSink{err: boom}, a)
	if err := multi.Write(context.Background(), Event{ID: "e2"}); !errors.Is(err, boom) {
		t.Errorf("Write() error = %v, want %v", err, boom)
	}
	if len(a.Events()) != 2 {
		t.Errorf("healthy sink skipped after failing sibling: %d events", len(a.Events()))
	}
}

type failingSink struct {
	err error
}

func (s *failingSink) Write(context.Context, Event) error { return s.err }

func TestAuthFailureEvent(t *testing.T) {
	req := httptest.NewRequest("POST", "/v1/template", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.7")
	req.Header.Set("User-Agent", "configship-cli/1.0")

	event := AuthFailure(req, "invalid token")
	if event.Action != ActionAuthFailure {
		t.Errorf("Action = %q", event.Action)
	}
	if event.Actor != "anonymous" {
		t.Errorf("Actor = %q", event.Actor)
	}
	if event.Details["ip"] != "198.51.100.7" {
		t.Errorf("ip = %v", event.Details["ip"])
	}
	if event.Details["path"] != "/v1/template" {
		t.Errorf("path = %v", event.Details["path"])
	}
	if event.Details["user_agent"] != "configship-cli/1.0" {
		t.Errorf("user_agent = %v", event.Details["user_agent"])
	}
}

func TestPublishedAndRolledBackEvents(t *testing.T) {
	pub := Published("admin", 5, "enable dark mode")
	if pub.Action != ActionPublish || pub.Version != 5 {
		t.Errorf("Published() = %+v", pub)
	}
	if pub.Details["description"] != "enable dark mode" {
		t.Errorf("description = %v", pub.Details["description"])
	}

	rb := RolledBack("admin", 6, 4)
	if rb.Action != ActionRollback || rb.Version != 6 {
		t.Errorf("RolledBack() = %+v", rb)
	}
	if rb.Details["targetVersion"] != int64(4) {
		t.Errorf("targetVersion = %v", rb.Details["targetVersion"])
	}
}

func TestPostgresSink(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping postgres integration test")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPool() error: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := db.Migrate(pool); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE audit_log RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	sink := NewPostgresSink(pool)
	event := Event{
		ID:         "evt-db-1",
		Action:     ActionPublish,
		Actor:      "admin",
		Version:    2,
		Details:    map[string]any{"description": "initial"},
		OccurredAt: time.Now().UTC(),
	}
	if err := sink.Write(ctx, event); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var (
		action  string
		actor   string
		version int64
	)
	row := pool.QueryRow(ctx, `SELECT action, actor, version FROM audit_log WHERE event_id = $1`, "evt-db-1")
	if err := row.Scan(&action, &actor, &version); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if action != ActionPublish || actor != "admin" || version != 2 {
		t.Errorf("stored row = %s/%s/%d", action, actor, version)
	}

	// Zero version stores NULL.
	if err := sink.Write(ctx, Event{ID: "evt-db-2", Action: ActionAuthFailure, OccurredAt: time.Now().UTC()}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	var nullVersion *int64
	row = pool.QueryRow(ctx, `SELECT version FROM audit_log WHERE event_id = $1`, "evt-db-2")
	if err := row.Scan(&nullVersion); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if nullVersion != nil {
		t.Errorf("version = %v, want NULL", *nullVersion)
	}
}
