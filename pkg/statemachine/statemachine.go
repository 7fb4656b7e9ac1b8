package statemachine

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

var ErrInvalidTransition = errors.New("invalid transition: from, to and event are required")

// ErrNoTransitionAvailable means the table has no edge for the state/event pair.
type ErrNoTransitionAvailable struct {
	StateName string
	EventName string
}

func (e *ErrNoTransitionAvailable) Error() string {
	return fmt.Sprintf("no transition available from state '%s' for event '%s'", e.StateName, e.EventName)
}

// ErrTransitionRejected means every matching edge was blocked by a guard.
type ErrTransitionRejected struct {
	StateName string
	EventName string
}

func (e *ErrTransitionRejected) Error() string {
	return fmt.Sprintf("transition from state '%s' for event '%s' was rejected by guards", e.StateName, e.EventName)
}

func IsNoTransitionAvailableError(err error) bool {
	var e *ErrNoTransitionAvailable
	return errors.As(err, &e)
}

func IsTransitionRejectedError(err error) bool {
	var e *ErrTransitionRejected
	return errors.As(err, &e)
}

// Guard decides at runtime whether an edge may be taken.
type Guard[S, E ~string] func(ctx context.Context, from S, event E, data any) bool

type transition[S, E ~string] struct {
	to     S
	guards []Guard[S, E]
}

// Table is immutable once built and safe for concurrent use.
type Table[S, E ~string] struct {
	edges map[S]map[E][]transition[S, E]
}

// Builder assembles a Table.
type Builder[S, E ~string] struct {
	edges map[S]map[E][]transition[S, E]
	err   error
}

// NewBuilder starts an empty transition table.
func NewBuilder[S, E ~string]() *Builder[S, E] {
	return &Builder[S, E]{edges: make(map[S]map[E][]transition[S, E])}
}

// Allow adds the edge from --event--> to. Edges for the same pair are tried
// in insertion order; the first whose guards all pass wins.
func (b *Builder[S, E]) Allow(from S, event E, to S, guards ...Guard[S, E]) *Builder[S, E] {
	if from == "" || to == "" || event == "" {
		b.err = errors.Join(b.err, ErrInvalidTransition)
		return b
	}
	if b.edges[from] == nil {
		b.edges[from] = make(map[E][]transition[S, E])
	}
	b.edges[from][event] = append(b.edges[from][event], transition[S, E]{to: to, guards: guards})
	return b
}

// Build fails if any Allow call named an empty state or event.
func (b *Builder[S, E]) Build() (*Table[S, E], error) {
	if b.err != nil {
		return nil, b.err
	}
	return &Table[S, E]{edges: b.edges}, nil
}

// MustBuild panics on an invalid table. For package-level lifecycles.
func (b *Builder[S, E]) MustBuild() *Table[S, E] {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}

// Next returns the state reached from from by event.
func (t *Table[S, E]) Next(ctx context.Context, from S, event E, data any) (S, error) {
	candidates, ok := t.edges[from][event]
	if !ok {
		return from, &ErrNoTransitionAvailable{StateName: string(from), EventName: string(event)}
	}
	for _, tr := range candidates {
		if allow(ctx, tr.guards, from, event, data) {
			return tr.to, nil
		}
	}
	return from, &ErrTransitionRejected{StateName: string(from), EventName: string(event)}
}

// Can reports whether event may fire from from.
func (t *Table[S, E]) Can(ctx context.Context, from S, event E, data any) bool {
	_, err := t.Next(ctx, from, event, data)
	return err == nil
}

// Events lists the events with at least one edge out of from, sorted.
func (t *Table[S, E]) Events(from S) []E {
	events := make([]E, 0, len(t.edges[from]))
	for e := range t.edges[from] {
		events = append(events, e)
	}
	slices.Sort(events)
	return events
}

// IsTerminal reports whether from has no outgoing edges.
func (t *Table[S, E]) IsTerminal(from S) bool {
	return len(t.edges[from]) == 0
}

func allow[S, E ~string](ctx context.Context, guards []Guard[S, E], from S, event E, data any) bool {
	for _, g := range guards {
		if !g(ctx, from, event, data) {
			return false
		}
	}
	return true
}
