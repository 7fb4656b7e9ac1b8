package scoped

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/xamu/xamu/pkg/memtx"
)

// MemoryBackend is an in-process Backend. Writes made inside a memtx unit
// of work are undone when it fails.
type MemoryBackend[T Entity, Q any] struct {
	mu      sync.RWMutex
	rows    map[uuid.UUID]T
	match   func(T, Q) bool
	clone   func(T) T
	compare func(a, b T) int
	check   func(existing, candidate T) error
}

// MemoryOption configures a MemoryBackend.
type MemoryOption[T Entity] func(*memoryOptions[T])

type memoryOptions[T Entity] struct {
	compare func(a, b T) int
	check   func(existing, candidate T) error
}

// WithOrder sorts query results.
func WithOrder[T Entity](cmp func(a, b T) int) MemoryOption[T] {
	return func(o *memoryOptions[T]) { o.compare = cmp }
}

// WithConstraint is run against every other stored row before a write,
// under the write lock, so it can enforce uniqueness.
func WithConstraint[T Entity](check func(existing, candidate T) error) MemoryOption[T] {
	return func(o *memoryOptions[T]) { o.check = check }
}

// NewMemoryBackend stores copies made by clone. match decides whether a row
// satisfies a query.
func NewMemoryBackend[T Entity, Q any](match func(T, Q) bool, clone func(T) T, opts ...MemoryOption[T]) *MemoryBackend[T, Q] {
	var o memoryOptions[T]
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryBackend[T, Q]{
		rows:    make(map[uuid.UUID]T),
		match:   match,
		clone:   clone,
		compare: o.compare,
		check:   o.check,
	}
}

func (b *MemoryBackend[T, Q]) Get(_ context.Context, tenantID, id uuid.UUID) (T, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.rows[id]
	if !ok || e.OwnerTenant() != tenantID {
		var zero T
		return zero, ErrNotFound
	}
	return b.clone(e), nil
}

func (b *MemoryBackend[T, Q]) Find(_ context.Context, tenantID uuid.UUID, q Q) ([]T, error) {
	return b.collect(func(e T) bool { return e.OwnerTenant() == tenantID && b.match(e, q) }), nil
}

func (b *MemoryBackend[T, Q]) FindAll(_ context.Context, q Q) ([]T, error) {
	return b.collect(func(e T) bool { return b.match(e, q) }), nil
}

func (b *MemoryBackend[T, Q]) collect(keep func(T) bool) []T {
	b.mu.RLock()
	out := make([]T, 0, len(b.rows))
	for _, e := range b.rows {
		if keep(e) {
			out = append(out, b.clone(e))
		}
	}
	b.mu.RUnlock()
	if b.compare != nil {
		slices.SortFunc(out, b.compare)
	}
	return out
}

// Insert checks every constraint against the stored rows and is undone on
// rollback.
func (b *MemoryBackend[T, Q]) Insert(ctx context.Context, e T) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.validate(e); err != nil {
		return err
	}
	id := e.EntityID()
	if _, exists := b.rows[id]; exists {
		return ErrDuplicateID
	}
	b.rows[id] = b.clone(e)
	memtx.OnRollback(ctx, func() {
		b.mu.Lock()
		delete(b.rows, id)
		b.mu.Unlock()
	})
	return nil
}

func (b *MemoryBackend[T, Q]) Update(ctx context.Context, tenantID uuid.UUID, e T) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := e.EntityID()
	prev, ok := b.rows[id]
	if !ok || prev.OwnerTenant() != tenantID {
		return ErrNotFound
	}
	if err := b.validate(e); err != nil {
		return err
	}
	b.rows[id] = b.clone(e)
	memtx.OnRollback(ctx, func() {
		b.mu.Lock()
		b.rows[id] = prev
		b.mu.Unlock()
	})
	return nil
}

func (b *MemoryBackend[T, Q]) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	prev, ok := b.rows[id]
	if !ok || prev.OwnerTenant() != tenantID {
		return ErrNotFound
	}
	delete(b.rows, id)
	memtx.OnRollback(ctx, func() {
		b.mu.Lock()
		b.rows[id] = prev
		b.mu.Unlock()
	})
	return nil
}

// validate runs the constraint against every other row. Caller holds mu.
func (b *MemoryBackend[T, Q]) validate(candidate T) error {
	if b.check == nil {
		return nil
	}
	for id, existing := range b.rows {
		if id == candidate.EntityID() {
			continue
		}
		if err := b.check(existing, candidate); err != nil {
			return err
		}
	}
	return nil
}
