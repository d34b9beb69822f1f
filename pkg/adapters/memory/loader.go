package memory

import (
	"context"
	"fmt"

	"github.com/aretw0/hfsm/internal/validator"
	"github.com/aretw0/hfsm/pkg/domain"
	"github.com/aretw0/hfsm/pkg/dsl"
)

// Loader implements ports.GraphLoader over a graph or plans held in memory.
type Loader struct {
	graph *domain.Graph
	doc   dsl.Document
}

// NewLoader serves an already built graph. It is validated on Load.
func NewLoader(g *domain.Graph) *Loader {
	return &Loader{graph: g}
}

// NewFromPlans compiles the plans on every Load.
// This handles compilation automatically, improving DX for tests.
func NewFromPlans(root domain.NodeID, plans ...dsl.Plan) *Loader {
	return &Loader{doc: dsl.Document{Root: root, Nodes: plans}}
}

// Load implements ports.GraphLoader.
func (l *Loader) Load(ctx context.Context) (*domain.Graph, error) {
	if l.graph == nil {
		g, err := l.doc.Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build in-memory graph: %w", err)
		}
		return g, nil
	}
	if err := validator.ValidateGraph(l.graph); err != nil {
		return nil, err
	}
	return l.graph, nil
}

// Describe implements ports.Describer.
func (l *Loader) Describe() string {
	return "memory"
}
