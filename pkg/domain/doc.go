/*
Package domain contains the core data model of the hfsm engine.

It defines the static graph a machine is built from, the fired arrows that
request transitions, and the state that records which child of every graph
node is active. This package is kept pure and free of external dependencies
like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - NodeID: a path-like id ("app:settings:audio") encoding ancestry.
  - Node: one of Leaf, GraphNode (exclusive choice) or Composite (parallel regions).
  - Graph: the immutable id -> Node index shared by every machine built from it.
  - Arrow: a fired transition, an ordered list of (source, name) lookup steps.
  - FSMState: graph node id -> active child id, replaced wholesale on each transition.
  - StateDiff: what a transition changed, for hooks and clients.
*/
package domain
