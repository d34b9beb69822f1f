// Package runtime resolves fired arrows against a graph.
//
// Resolution runs in two passes per arrow: followUp walks the caller supplied
// steps outward until a scope defines the arrow, then followDown enters the
// target through its entry points, splitting at composites. All partial
// updates are merged, failing on conflicts, and laid over the previous state.
// Everything here is pure: no I/O, no locks, no retained state.
package runtime
