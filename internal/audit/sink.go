package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ZerologSink writes audit events to the structured log. It is the
// default sink and always available.
type ZerologSink struct {
	log zerolog.Logger
}

func NewZerologSink(log zerolog.Logger) *ZerologSink {
	return &ZerologSink{log: log}
}

func (s *ZerologSink) Write(_ context.Context, event Event) error {
	rec := s.log.Info().
		Str("audit_id", event.ID).
		Str("action", event.Action).
		Str("actor", event.Actor).
		Time("occurred_at", event.OccurredAt)
	if event.Version > 0 {
		rec = rec.Int64("version", event.Version)
	}
	if len(event.Details) > 0 {
		rec = rec.Interface("details", event.Details)
	}
	rec.Msg("audit event")
	return nil
}

// MemorySink collects events in memory for tests.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Write(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of everything written so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// PostgresSink persists audit events to the audit_log table.
type PostgresSink struct {
	pool *pgxpool.Pool
}

func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

const insertAuditSQL = `
INSERT INTO audit_log (event_id, action, actor, version, details, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6)`

func (s *PostgresSink) Write(ctx context.Context, event Event) error {
	var version any
	if event.Version > 0 {
		version = event.Version
	}
	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}
	if _, err := s.pool.Exec(ctx, insertAuditSQL,
		event.ID, event.Action, event.Actor, version, details, event.OccurredAt,
	); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// MultiSink fans every event out to all children, returning the first
// error encountered.
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (s *MultiSink) Write(ctx context.Context, event Event) error {
	var firstErr error
	for _, sink := range s.sinks {
		if err := sink.Write(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
