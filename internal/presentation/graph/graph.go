package graph

import (
	"fmt"

	"github.com/aretw0/hfsm/pkg/domain"
)

// Overlay carries machine state to highlight on a rendered graph.
type Overlay struct {
	State domain.FSMState
	// Changed marks graph nodes whose active child moved in the last step.
	Changed map[domain.NodeID]bool
}

// NewOverlay builds an overlay from a state and the diff that produced it.
func NewOverlay(state domain.FSMState, diff *domain.StateDiff) *Overlay {
	o := &Overlay{State: state, Changed: make(map[domain.NodeID]bool)}
	if diff != nil {
		for id := range diff.Changed {
			o.Changed[id] = true
		}
		for id := range diff.Added {
			o.Changed[id] = true
		}
	}
	return o
}

func (o *Overlay) active(g *domain.Graph, id domain.NodeID) bool {
	return o != nil && o.State != nil && o.State.IsActive(g, id)
}

// children lists a container's children: composites keep their declared
// order, graph nodes are sorted.
func children(g *domain.Graph, n domain.Node) []domain.NodeID {
	if c, ok := n.(*domain.Composite); ok {
		return c.Children()
	}
	return g.Children(n.ID())
}

// Format names a supported rendering.
type Format string

const (
	FormatMermaid Format = "mermaid"
	FormatDOT     Format = "dot"
)

// Render dispatches to the renderer for format.
func Render(g *domain.Graph, format Format, overlay *Overlay) (string, error) {
	switch format {
	case FormatMermaid, "":
		return GenerateMermaid(g, overlay), nil
	case FormatDOT:
		return GenerateDOT(g, overlay)
	}
	return "", fmt.Errorf("unsupported graph format %q", format)
}
