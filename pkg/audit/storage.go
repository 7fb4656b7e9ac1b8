package audit

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Storage persists events.
type Storage interface {
	// Store persists a validated event.
	Store(ctx context.Context, e Event) error
	// Find returns events matching f, newest first.
	Find(ctx context.Context, f Filter) ([]Event, error)
}

// Filter selects events; zero fields match everything. Results are newest first.
type Filter struct {
	TenantID string
	ActorID  string
	Action   string
	Since    time.Time
	Limit    int
}

func (f Filter) match(e Event) bool {
	return (f.TenantID == "" || e.TenantID == f.TenantID) &&
		(f.ActorID == "" || e.ActorID == f.ActorID) &&
		(f.Action == "" || e.Action == f.Action) &&
		(f.Since.IsZero() || !e.CreatedAt.Before(f.Since))
}

// MemoryStorage keeps events in process. Used by tests and single-node setups.
type MemoryStorage struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryStorage returns an empty storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Store(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *MemoryStorage) Find(_ context.Context, f Filter) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, e := range slices.Backward(s.events) {
		if !f.match(e) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// LogStorage writes events to a structured logger. It cannot read them back.
type LogStorage struct {
	log *slog.Logger
}

// NewLogStorage writes events to log. It cannot be queried; Find returns
// ErrStorageNotAvailable.
func NewLogStorage(log *slog.Logger) *LogStorage {
	return &LogStorage{log: log}
}

func (s *LogStorage) Store(ctx context.Context, e Event) error {
	s.log.InfoContext(ctx, "audit",
		slog.String("audit_id", e.ID),
		slog.String("action", e.Action),
		slog.String("result", string(e.Result)),
		slog.String("tenant_id", e.TenantID),
		slog.String("actor_id", e.ActorID),
		slog.String("resource", e.Resource),
		slog.String("resource_id", e.ResourceID),
		slog.String("error", e.Error),
		slog.Any("metadata", e.Metadata),
	)
	return nil
}

func (s *LogStorage) Find(context.Context, Filter) ([]Event, error) {
	return nil, ErrStorageNotAvailable
}
