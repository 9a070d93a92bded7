package audit

import (
	"net/http"

	"github.com/TimurManjosov/packgenie/internal/auth"
	"github.com/go-chi/chi/v5/middleware"
)

// EventBuilder provides a fluent API for constructing audit events.
//
//	event := audit.NewEventBuilder(r).
//		ForResource(audit.ResourceTypePack, pack.ID).
//		WithAction(audit.ActionUpdated).
//		WithBeforeState(audit.StateOf(before)).
//		WithAfterState(audit.StateOf(pack)).
//		Build()
type EventBuilder struct {
	event AuditEvent
}

// NewEventBuilder creates a builder initialised from the request: request
// id, authenticated actor and source address.
func NewEventBuilder(r *http.Request) *EventBuilder {
	return &EventBuilder{
		event: AuditEvent{
			RequestID: middleware.GetReqID(r.Context()),
			Actor:     auth.ActorFromContext(r.Context()),
			Source: Source{
				IPAddress: auth.GetIPAddress(r),
				UserAgent: r.UserAgent(),
			},
			Status: StatusSuccess,
		},
	}
}

// ForResource sets the resource type and ID for the event.
func (b *EventBuilder) ForResource(resourceType, resourceID string) *EventBuilder {
	b.event.ResourceType = resourceType
	b.event.ResourceID = resourceID
	return b
}

// WithAction sets the action for the event.
func (b *EventBuilder) WithAction(action string) *EventBuilder {
	b.event.Action = action
	return b
}

func (b *EventBuilder) WithBeforeState(state map[string]any) *EventBuilder {
	b.event.BeforeState = state
	return b
}

func (b *EventBuilder) WithAfterState(state map[string]any) *EventBuilder {
	b.event.AfterState = state
	return b
}

// Failure marks the event as failed and sets an error message.
func (b *EventBuilder) Failure(errorMsg string) *EventBuilder {
	b.event.Status = StatusFailure
	b.event.ErrorMessage = errorMsg
	return b
}

// Build returns the constructed AuditEvent.
func (b *EventBuilder) Build() AuditEvent {
	return b.event
}
