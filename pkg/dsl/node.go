package dsl

import "github.com/aretw0/hfsm/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	spec    NodeSpec
	builder *Builder
}

// Parent declares the node's parent. It must equal the id's prefix, which is
// what an undeclared parent defaults to.
func (n *NodeBuilder) Parent(id domain.NodeID) *NodeBuilder {
	n.spec.Parent = id
	return n
}

// Entry adds an entry point that enters target through its entry point ep.
func (n *NodeBuilder) Entry(name string, target domain.NodeID, ep string) *NodeBuilder {
	if n.spec.EntryPoints == nil {
		n.spec.EntryPoints = make(map[string]domain.ArrowTarget)
	}
	n.spec.EntryPoints[name] = domain.ArrowTarget{Target: target, EntryPoint: ep}
	return n
}

// Resume adds an entry point that re-enters the most recently active child
// through its entry point ep.
func (n *NodeBuilder) Resume(name string, ep string) *NodeBuilder {
	return n.Entry(name, n.spec.ID.Recent(), ep)
}

// Arrow adds an arrow named name from the child from to the child target.
func (n *NodeBuilder) Arrow(from domain.NodeID, name string, target domain.NodeID, ep string) *NodeBuilder {
	n.spec.Arrows = append(n.spec.Arrows, ArrowSpec{
		From:        from,
		Name:        name,
		ArrowTarget: domain.ArrowTarget{Target: target, EntryPoint: ep},
	})
	return n
}

// Nodes sets the regions of a composite.
func (n *NodeBuilder) Nodes(ids ...domain.NodeID) *NodeBuilder {
	list := append([]domain.NodeID(nil), ids...)
	n.spec.Nodes = func() []domain.NodeID { return list }
	return n
}

// NodesFunc sets a lazily evaluated region list.
func (n *NodeBuilder) NodesFunc(fn NodesFunc) *NodeBuilder {
	n.spec.Nodes = fn
	return n
}

// Spec returns a copy of the node's current spec.
func (n *NodeBuilder) Spec() NodeSpec {
	return n.spec
}

// End returns the graph builder, for chaining declarations.
func (n *NodeBuilder) End() *Builder {
	return n.builder
}
