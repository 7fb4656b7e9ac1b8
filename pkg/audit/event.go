package audit

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrEventValidation     = errors.New("event validation failed")
	ErrStorageNotAvailable = errors.New("audit storage is unavailable")
)

// Result is the outcome of an audited action.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultError   Result = "error"
)

// Event is one audit record. Events are append-only.
type Event struct {
	ID         string         `json:"id" bson:"_id"`
	TenantID   string         `json:"tenant_id,omitempty" bson:"tenant_id,omitempty"`
	ActorID    string         `json:"actor_id,omitempty" bson:"actor_id,omitempty"`
	Action     string         `json:"action" bson:"action"`
	Resource   string         `json:"resource,omitempty" bson:"resource,omitempty"`
	ResourceID string         `json:"resource_id,omitempty" bson:"resource_id,omitempty"`
	Result     Result         `json:"result" bson:"result"`
	Error      string         `json:"error,omitempty" bson:"error,omitempty"`
	RequestID  string         `json:"request_id,omitempty" bson:"request_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at" bson:"created_at"`
}

// Validate requires an action.
func (e *Event) Validate() error {
	if e.Action == "" {
		return fmt.Errorf("%w: action is required", ErrEventValidation)
	}
	return nil
}

// EventOption adjusts an event before it is stored.
type EventOption func(*Event)

func WithResource(resource, id string) EventOption {
	return func(e *Event) {
		e.Resource = resource
		e.ResourceID = id
	}
}

func WithMetadata(key string, value any) EventOption {
	return func(e *Event) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[key] = value
	}
}

func WithResult(result Result) EventOption {
	return func(e *Event) { e.Result = result }
}

// WithTenant overrides the tenant taken from the context, for actions that
// target a tenant other than the ambient one.
func WithTenant(id string) EventOption {
	return func(e *Event) { e.TenantID = id }
}

// WithActor overrides the actor taken from the context.
func WithActor(id string) EventOption {
	return func(e *Event) { e.ActorID = id }
}
