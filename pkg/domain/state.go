package domain

import "sort"

// FSMState maps every graph node id to the id of its active child.
// Composite and leaf nodes never appear as keys.
// It is the entire persisted state of a machine; treat values as immutable
// and produce a new one per transition.
type FSMState map[NodeID]NodeID

// Active returns the active child of the graph node id.
func (s FSMState) Active(id NodeID) (NodeID, bool) {
	child, ok := s[id]
	return child, ok
}

// Clone returns a copy that shares nothing with s. A nil state clones to an empty one.
func (s FSMState) Clone() FSMState {
	out := make(FSMState, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Equal reports whether both states hold the same assignments.
func (s FSMState) Equal(other FSMState) bool {
	if len(s) != len(other) {
		return false
	}
	for k, v := range s {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Keys returns the graph node ids present in the state, sorted.
func (s FSMState) Keys() []NodeID {
	keys := make([]NodeID, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// ActiveLeaves walks the active configuration from the root of g and returns
// the leaves reached, in traversal order. Graph nodes without an assignment
// and unknown ids stop the walk on that branch.
func (s FSMState) ActiveLeaves(g *Graph) []NodeID {
	var leaves []NodeID
	var walk func(id NodeID, depth int)
	walk = func(id NodeID, depth int) {
		if depth > g.Len() {
			return
		}
		n, ok := g.Lookup(id)
		if !ok {
			return
		}
		switch node := n.(type) {
		case *Leaf:
			leaves = append(leaves, id)
		case *GraphNode:
			if child, ok := s[id]; ok {
				walk(child, depth+1)
			}
		case *Composite:
			for _, c := range node.children {
				walk(c, depth+1)
			}
		}
	}
	walk(g.Root(), 0)
	return leaves
}

// IsActive reports whether id lies on the active configuration of g.
func (s FSMState) IsActive(g *Graph, id NodeID) bool {
	for cur := id; ; {
		n, ok := g.Lookup(cur)
		if !ok {
			return false
		}
		parentID := n.Parent()
		if parentID == "" {
			return cur == g.Root()
		}
		parent, ok := g.Lookup(parentID)
		if !ok {
			return false
		}
		if _, isGraph := parent.(*GraphNode); isGraph && s[parentID] != cur {
			return false
		}
		cur = parentID
	}
}
