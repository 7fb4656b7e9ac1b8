package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Extractor pulls one identifier out of a request context.
type Extractor func(context.Context) (string, bool)

// Logger stamps events with request context and hands them to a Storage.
type Logger struct {
	storage   Storage
	tenantID  Extractor
	actorID   Extractor
	requestID Extractor
	now       func() time.Time
}

// Option configures a Logger.
type Option func(*Logger)

// WithTenantIDExtractor sets Event.TenantID from the context.
func WithTenantIDExtractor(fn Extractor) Option {
	return func(l *Logger) { l.tenantID = fn }
}

func WithActorIDExtractor(fn Extractor) Option {
	return func(l *Logger) { l.actorID = fn }
}

func WithRequestIDExtractor(fn Extractor) Option {
	return func(l *Logger) { l.requestID = fn }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

// NewLogger writes events to storage. Tenant, actor and request ids are
// filled from the context by the configured extractors.
func NewLogger(storage Storage, opts ...Option) *Logger {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}
	l := &Logger{storage: storage, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Log records a successful action.
func (l *Logger) Log(ctx context.Context, action string, opts ...EventOption) error {
	return l.store(ctx, l.event(ctx, action, ResultSuccess), opts)
}

// LogError records a failed action together with its error.
func (l *Logger) LogError(ctx context.Context, action string, err error, opts ...EventOption) error {
	e := l.event(ctx, action, ResultError)
	if err != nil {
		e.Error = err.Error()
	}
	return l.store(ctx, e, opts)
}

// Find reads back stored events.
func (l *Logger) Find(ctx context.Context, f Filter) ([]Event, error) {
	return l.storage.Find(ctx, f)
}

func (l *Logger) event(ctx context.Context, action string, result Result) Event {
	e := Event{
		ID:        uuid.NewString(),
		Action:    action,
		Result:    result,
		CreatedAt: l.now().UTC(),
	}
	if v, ok := extract(ctx, l.tenantID); ok {
		e.TenantID = v
	}
	if v, ok := extract(ctx, l.actorID); ok {
		e.ActorID = v
	}
	if v, ok := extract(ctx, l.requestID); ok {
		e.RequestID = v
	}
	return e
}

// store applies opts last, so callers may override extracted ids.
func (l *Logger) store(ctx context.Context, e Event, opts []EventOption) error {
	for _, opt := range opts {
		opt(&e)
	}
	if err := e.Validate(); err != nil {
		return err
	}
	return l.storage.Store(ctx, e)
}

func extract(ctx context.Context, fn Extractor) (string, bool) {
	if fn == nil {
		return "", false
	}
	return fn(ctx)
}
