package audit

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// LogSink writes audit events as structured log lines.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink that logs through logger.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "audit").Logger()}
}

// Write logs one event at info level, or warn for failures.
func (s *LogSink) Write(ctx context.Context, event AuditEvent) error {
	entry := s.logger.Info()
	if event.Status == StatusFailure {
		entry = s.logger.Warn().Str("error_message", event.ErrorMessage)
	}
	entry.
		Str("event_id", event.ID).
		Time("occurred_at", event.OccurredAt).
		Str("request_id", event.RequestID).
		Str("actor", event.Actor).
		Str("ip_address", event.Source.IPAddress).
		Str("action", event.Action).
		Str("resource_type", event.ResourceType).
		Str("resource_id", event.ResourceID).
		Interface("changes", event.Changes).
		Msg("audit event")
	return nil
}

// MemorySink keeps events in memory, for tests and the CLI.
type MemorySink struct {
	mu     sync.Mutex
	events []AuditEvent
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Write(ctx context.Context, event AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (s *MemorySink) Events() []AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditEvent, len(s.events))
	copy(out, s.events)
	return out
}
