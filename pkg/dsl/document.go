package dsl

import (
	"fmt"

	"github.com/aretw0/hfsm/pkg/domain"
)

// Document is the serialized form of a whole graph.
type Document struct {
	Root  domain.NodeID `json:"root" yaml:"root" mapstructure:"root"`
	Nodes []Plan        `json:"nodes" yaml:"nodes" mapstructure:"nodes"`
}

// Builder compiles every plan into a builder.
func (d Document) Builder(handlers ...Handler) (*Builder, error) {
	if d.Root == "" {
		return nil, fmt.Errorf("%w: document has no root", domain.ErrInvalidGraph)
	}
	b := New(d.Root)
	for i, plan := range d.Nodes {
		spec, err := Compile(plan, handlers...)
		if err != nil {
			return nil, fmt.Errorf("node #%d: %w", i, err)
		}
		if _, dup := b.nodes[spec.ID]; dup {
			return nil, &domain.InvalidGraphError{Node: spec.ID, Reason: "duplicate node id"}
		}
		b.Spec(spec)
	}
	return b, nil
}

// Build compiles and validates the document.
func (d Document) Build(handlers ...Handler) (*domain.Graph, error) {
	b, err := d.Builder(handlers...)
	if err != nil {
		return nil, err
	}
	return b.Build()
}

// Export converts a graph back into a document that DefaultHandlers accept.
// Parents are never written since they follow from the ids.
func Export(g *domain.Graph) Document {
	doc := Document{Root: g.Root()}
	for _, n := range g.Nodes() {
		plan := Plan{
			KeyID:   n.ID().String(),
			KeyKind: string(n.Kind()),
		}

		switch node := n.(type) {
		case *domain.GraphNode:
			if eps := node.EntryPoints(); len(eps) > 0 {
				out := make(map[string]any, len(eps))
				for name, t := range eps {
					out[name] = exportTarget(t)
				}
				plan[KeyEntryPoints] = out
			}
			if arrows := node.Arrows(); len(arrows) > 0 {
				out := make(map[string]any, len(arrows))
				for from, byName := range arrows {
					inner := make(map[string]any, len(byName))
					for name, t := range byName {
						inner[name] = exportTarget(t)
					}
					out[from.String()] = inner
				}
				plan[KeyArrows] = out
			}
		case *domain.Composite:
			children := node.Children()
			ids := make([]string, len(children))
			for i, c := range children {
				ids[i] = c.String()
			}
			plan[KeyNodes] = ids
		}
		doc.Nodes = append(doc.Nodes, plan)
	}
	return doc
}

func exportTarget(t domain.ArrowTarget) map[string]any {
	out := map[string]any{"target": t.Target.String()}
	if t.EntryPoint != "" {
		out["entry_point"] = t.EntryPoint
	}
	return out
}
