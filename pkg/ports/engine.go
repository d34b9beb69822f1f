package ports

import (
	"context"

	"github.com/aretw0/hfsm/pkg/domain"
)

// Engine defines the interface for resolution cores that do not hold machine state.
// This is the primary interface used by adapters (e.g., HTTP, MCP) and the session manager,
// which keep state externally or per-request.
type Engine interface {
	// Initial returns the seeded state of a new machine.
	Initial(ctx context.Context) (domain.FSMState, error)

	// Transition computes the state reached when arrows fire together from state.
	Transition(ctx context.Context, state domain.FSMState, arrows ...domain.Arrow) (domain.FSMState, error)

	// Graph returns the graph the engine resolves against, for introspection.
	Graph() *domain.Graph
}
