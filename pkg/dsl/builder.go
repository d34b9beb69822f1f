package dsl

import (
	"fmt"

	"github.com/aretw0/hfsm/internal/validator"
	"github.com/aretw0/hfsm/pkg/domain"
)

// Builder manages the graph construction.
type Builder struct {
	root  domain.NodeID
	nodes map[domain.NodeID]*NodeBuilder
	order []domain.NodeID
}

// New creates a new graph builder for a graph rooted at root.
func New(root domain.NodeID) *Builder {
	return &Builder{
		root:  root,
		nodes: make(map[domain.NodeID]*NodeBuilder),
	}
}

// Root returns the id the graph will be rooted at.
func (b *Builder) Root() domain.NodeID {
	return b.root
}

// Graph declares an exclusive-choice node.
// If the node already exists, it returns the existing builder with its kind updated.
func (b *Builder) Graph(id domain.NodeID) *NodeBuilder {
	return b.add(id, domain.KindGraph)
}

// Leaf declares a node without children.
func (b *Builder) Leaf(id domain.NodeID) *NodeBuilder {
	return b.add(id, domain.KindLeaf)
}

// Composite declares a parallel node.
func (b *Builder) Composite(id domain.NodeID) *NodeBuilder {
	return b.add(id, domain.KindComposite)
}

// Spec declares a node from a prepared spec, replacing any earlier declaration.
func (b *Builder) Spec(spec NodeSpec) *NodeBuilder {
	nb := b.add(spec.ID, spec.Kind)
	nb.spec = spec
	return nb
}

func (b *Builder) add(id domain.NodeID, kind domain.NodeKind) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		nb.spec.Kind = kind
		return nb
	}
	nb := &NodeBuilder{
		spec:    NodeSpec{ID: id, Kind: kind},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Compile converts the declared nodes into a graph without validating its
// structure. Most callers want Build.
func (b *Builder) Compile() (*domain.Graph, error) {
	nodes := make([]domain.Node, 0, len(b.order))
	for _, id := range b.order {
		n, err := b.nodes[id].spec.compile(b.root)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return domain.NewGraph(b.root, nodes...)
}

// Build compiles the graph and checks it with the validator.
func (b *Builder) Build() (*domain.Graph, error) {
	g, err := b.Compile()
	if err != nil {
		return nil, fmt.Errorf("failed to compile graph: %w", err)
	}
	if err := validator.ValidateGraph(g); err != nil {
		return nil, err
	}
	return g, nil
}
