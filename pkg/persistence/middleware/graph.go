package middleware

import (
	"context"
	"fmt"

	"github.com/aretw0/hfsm/pkg/domain"
	"github.com/aretw0/hfsm/pkg/ports"
)

type graphMiddleware struct {
	next  ports.StateStore
	graph func() *domain.Graph
}

// NewGraphMiddleware rejects states that do not fit g: every key must be a
// graph node of g and every value one of its children. Saves are refused and
// loads report the mismatch, which happens when the graph changed since the
// machine was stored.
func NewGraphMiddleware(g *domain.Graph) Middleware {
	return NewGraphSourceMiddleware(func() *domain.Graph { return g })
}

// NewGraphSourceMiddleware is NewGraphMiddleware against whatever graph
// source returns at the time of each call, for graphs that are reloaded.
func NewGraphSourceMiddleware(source func() *domain.Graph) Middleware {
	return func(next ports.StateStore) ports.StateStore {
		return &graphMiddleware{next: next, graph: source}
	}
}

func (m *graphMiddleware) Save(ctx context.Context, machineID string, state domain.FSMState) error {
	if err := m.check(state); err != nil {
		return fmt.Errorf("refusing to save machine '%s': %w", machineID, err)
	}
	return m.next.Save(ctx, machineID, state)
}

func (m *graphMiddleware) Load(ctx context.Context, machineID string) (domain.FSMState, error) {
	state, err := m.next.Load(ctx, machineID)
	if err != nil {
		return nil, err
	}
	if err := m.check(state); err != nil {
		return nil, fmt.Errorf("stored machine '%s' no longer fits the graph: %w", machineID, err)
	}
	return state, nil
}

func (m *graphMiddleware) Delete(ctx context.Context, machineID string) error {
	return m.next.Delete(ctx, machineID)
}

func (m *graphMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *graphMiddleware) check(state domain.FSMState) error {
	g := m.graph()
	for _, key := range state.Keys() {
		n, ok := g.Lookup(key)
		if !ok || n.Kind() != domain.KindGraph {
			return fmt.Errorf("%w: '%s' is not a graph node", domain.ErrInvalidGraph, key)
		}
		child, ok := g.Lookup(state[key])
		if !ok || child.Parent() != key {
			return fmt.Errorf("%w: '%s' is not a child of '%s'", domain.ErrInvalidGraph, state[key], key)
		}
	}
	return nil
}
