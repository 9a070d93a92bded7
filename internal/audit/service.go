// Package audit records catalogue mutations as structured events.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Action constants for audit logging
const (
	ActionCreated  = "created"
	ActionUpdated  = "updated"
	ActionDeleted  = "deleted"
	ActionCloned   = "cloned"
	ActionImported = "imported"
)

// ResourceType constants for audit logging
const (
	ResourceTypePack      = "pack"
	ResourceTypeCatalogue = "catalogue"
)

// Status constants for audit logging
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Clock interface for testable time operations
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using time.Now()
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// IDGenerator interface for testable ID generation
type IDGenerator interface {
	Generate() string
}

// UUIDGenerator implements IDGenerator using random UUIDs
type UUIDGenerator struct{}

func (UUIDGenerator) Generate() string {
	return uuid.NewString()
}

// Source represents request metadata
type Source struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
}

// AuditEvent represents one catalogue mutation
type AuditEvent struct {
	ID           string         `json:"id"`
	OccurredAt   time.Time      `json:"occurred_at"`
	RequestID    string         `json:"request_id"`
	Actor        string         `json:"actor"`
	Source       Source         `json:"source"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	BeforeState  map[string]any `json:"before_state,omitempty"`
	AfterState   map[string]any `json:"after_state,omitempty"`
	Changes      map[string]any `json:"changes,omitempty"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// AuditSink defines the interface for persisting audit events
type AuditSink interface {
	Write(ctx context.Context, event AuditEvent) error
}

// Service queues audit events and writes them to a sink from a single
// background worker. Log never blocks; events are dropped when the queue is full.
type Service struct {
	sink   AuditSink
	clock  Clock
	idgen  IDGenerator
	logger zerolog.Logger

	queue     chan AuditEvent
	stopCh    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewService creates a new audit service and starts its worker
func NewService(sink AuditSink, clock Clock, idgen IDGenerator, logger zerolog.Logger, queueSize int) *Service {
	if clock == nil {
		clock = SystemClock{}
	}
	if idgen == nil {
		idgen = UUIDGenerator{}
	}
	if queueSize <= 0 {
		queueSize = 256
	}

	s := &Service{
		sink:   sink,
		clock:  clock,
		idgen:  idgen,
		logger: logger.With().Str("component", "audit").Logger(),
		queue:  make(chan AuditEvent, queueSize),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.worker()
	return s
}

func (s *Service) worker() {
	defer close(s.done)
	for {
		select {
		case event := <-s.queue:
			s.write(event)
		case <-s.stopCh:
			for {
				select {
				case event := <-s.queue:
					s.write(event)
				default:
					return
				}
			}
		}
	}
}

func (s *Service) write(event AuditEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.sink.Write(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("event_id", event.ID).Msg("failed to write audit event")
	}
}

// Close stops the worker after draining queued events. Safe to call more
// than once.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCh)
	})
	<-s.done
	return nil
}

// Log stamps the event and queues it for the worker.
func (s *Service) Log(event AuditEvent) {
	if event.ID == "" {
		event.ID = s.idgen.Generate()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.clock.Now()
	}
	if event.Status == "" {
		event.Status = StatusSuccess
	}
	if event.Changes == nil && (event.BeforeState != nil || event.AfterState != nil) {
		event.Changes = ComputeChanges(event.BeforeState, event.AfterState)
	}

	select {
	case s.queue <- event:
	default:
		s.logger.Warn().
			Str("resource_type", event.ResourceType).
			Str("resource_id", event.ResourceID).
			Msg("audit queue full, dropping event")
	}
}

// StateOf converts a value (typically a store.Pack) into the generic map
// form stored on events. A nil value yields nil.
func StateOf(v any) map[string]any {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var state map[string]any
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil
	}
	return state
}

// ComputeChanges computes the top-level difference between two states.
// It returns nil when nothing changed.
func ComputeChanges(before, after map[string]any) map[string]any {
	if before == nil && after == nil {
		return nil
	}
	if before == nil {
		before = make(map[string]any)
	}
	if after == nil {
		after = make(map[string]any)
	}

	changes := make(map[string]any)
	for key, afterVal := range after {
		beforeVal, existedBefore := before[key]
		beforeJSON, _ := json.Marshal(beforeVal)
		afterJSON, _ := json.Marshal(afterVal)
		if !existedBefore || string(beforeJSON) != string(afterJSON) {
			changes[key] = map[string]any{"before": beforeVal, "after": afterVal}
		}
	}
	for key, beforeVal := range before {
		if _, existsAfter := after[key]; !existsAfter {
			changes[key] = map[string]any{"before": beforeVal, "after": nil}
		}
	}

	if len(changes) == 0 {
		return nil
	}
	return changes
}
