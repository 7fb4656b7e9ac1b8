// Package memtx provides units of work for in-memory stores.
//
// A Transactor serializes units of work and records undo steps registered
// by stores. When the unit of work fails the steps run in reverse order, so
// the stores end up as they were before it started.
package memtx

import (
	"context"
	"slices"
	"sync"
)

type journalKey struct{}

type journal struct {
	undo []func()
}

func (j *journal) rollback() {
	for _, fn := range slices.Backward(j.undo) {
		fn()
	}
	j.undo = nil
}

// Transactor mirrors pg.Transactor for in-memory stores.
type Transactor struct {
	mu sync.Mutex
}

// NewTransactor returns a transactor with no shared state.
func NewTransactor() *Transactor {
	return &Transactor{}
}

// InTx runs fn as a single unit of work. Nested calls join the outer one.
// A panic inside fn rolls back and is re-raised.
func (t *Transactor) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if Active(ctx) {
		return fn(ctx)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	j := &journal{}
	defer func() {
		if p := recover(); p != nil {
			j.rollback()
			panic(p)
		}
		if err != nil {
			j.rollback()
		}
	}()
	return fn(context.WithValue(ctx, journalKey{}, j))
}

// Active reports whether ctx belongs to a unit of work.
func Active(ctx context.Context) bool {
	_, ok := ctx.Value(journalKey{}).(*journal)
	return ok
}

// OnRollback registers undo for the unit of work in ctx. Outside a unit of
// work it does nothing. undo runs after the store has released its own locks,
// so it must take them again.
func OnRollback(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.undo = append(j.undo, undo)
	}
}
