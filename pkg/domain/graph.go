package domain

import (
	"sort"
)

// Graph is the static description of a machine: every node keyed by id.
// It is never mutated after NewGraph returns and may be shared between machines.
type Graph struct {
	root  NodeID
	nodes map[NodeID]Node
}

// NewGraph indexes nodes by id. It only checks what indexing needs:
// ids are unique and the root is present. Structural checks belong to the validator.
func NewGraph(root NodeID, nodes ...Node) (*Graph, error) {
	g := &Graph{
		root:  root,
		nodes: make(map[NodeID]Node, len(nodes)),
	}
	for _, n := range nodes {
		if n == nil {
			return nil, &InvalidGraphError{Reason: "nil node"}
		}
		if _, exists := g.nodes[n.ID()]; exists {
			return nil, &InvalidGraphError{Node: n.ID(), Reason: "duplicate node id"}
		}
		g.nodes[n.ID()] = n
	}
	if _, ok := g.nodes[root]; !ok {
		return nil, &InvalidGraphError{Node: root, Reason: "root node not defined"}
	}
	return g, nil
}

// Root returns the id of the outermost node.
func (g *Graph) Root() NodeID {
	return g.root
}

// Lookup returns the node with the given id.
func (g *Graph) Lookup(id NodeID) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Node returns the node with the given id or an InvalidGraphError.
func (g *Graph) Node(id NodeID) (Node, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, &InvalidGraphError{Node: id, Reason: "node not defined"}
	}
	return n, nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// IDs returns all node ids in sorted order.
func (g *Graph) IDs() []NodeID {
	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Nodes returns all nodes sorted by id.
func (g *Graph) Nodes() []Node {
	ids := g.IDs()
	out := make([]Node, len(ids))
	for i, id := range ids {
		out[i] = g.nodes[id]
	}
	return out
}

// Children returns the ids whose recorded parent is id, sorted.
// For a composite this is the set of regions, not their declared order.
func (g *Graph) Children(id NodeID) []NodeID {
	var out []NodeID
	for cid, n := range g.nodes {
		if n.Parent() == id && cid != g.root {
			out = append(out, cid)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
