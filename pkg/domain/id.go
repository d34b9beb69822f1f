package domain

import "strings"

// Separator joins the segments of a NodeID ("app:settings:audio").
const Separator = ":"

// RecentSegment is the last segment of the recent-child sentinel of a graph node.
const RecentSegment = "recent"

// NodeID identifies a node in the graph.
// The id is a path: every prefix (split on Separator) is an ancestor.
type NodeID string

// String implements fmt.Stringer.
func (id NodeID) String() string {
	return string(id)
}

// Valid reports whether the id is non-empty and has no empty segment.
func (id NodeID) Valid() bool {
	if id == "" {
		return false
	}
	for _, seg := range strings.Split(string(id), Separator) {
		if seg == "" {
			return false
		}
	}
	return true
}

// Parent returns the id one level up. The root has no parent.
func (id NodeID) Parent() (NodeID, bool) {
	i := strings.LastIndex(string(id), Separator)
	if i < 0 {
		return "", false
	}
	return id[:i], true
}

// Child returns the id of the child named name.
func (id NodeID) Child(name string) NodeID {
	if id == "" {
		return NodeID(name)
	}
	return id + Separator + NodeID(name)
}

// Name returns the last segment of the id.
func (id NodeID) Name() string {
	i := strings.LastIndex(string(id), Separator)
	return string(id[i+1:])
}

// Depth returns the number of ancestors of the id.
func (id NodeID) Depth() int {
	if id == "" {
		return 0
	}
	return strings.Count(string(id), Separator)
}

// IsAncestorOf reports whether id is a strict ancestor of other.
func (id NodeID) IsAncestorOf(other NodeID) bool {
	if id == "" || len(other) <= len(id) {
		return false
	}
	return strings.HasPrefix(string(other), string(id)+Separator)
}

// Recent returns the sentinel that stands for "the child of id that was active last".
func (id NodeID) Recent() NodeID {
	return id.Child(RecentSegment)
}
