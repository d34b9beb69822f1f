/*
Package hfsm resolves transitions of hierarchical finite state machines.

A machine is described by a graph of nodes addressed by colon-separated ids
("app:settings:audio"). Graph nodes pick one active child, composites keep all
of their children active at once and leaves end the hierarchy. The state of a
machine is a flat map from every graph node to its chosen child, so inactive
branches remember where they were and can be resumed later.

# Concept

Arrows are fired from a node and resolved outward: each step of an arrow names
a source and an arrow name, and the first graph node that defines it wins.
The target is then entered through one of its entry points, which descends
until leaves are reached. Several arrows may fire together; their updates are
merged and any two that disagree on a key fail the whole transition with
ErrConflictingStateUpdate. On failure nothing is applied.

The Engine never keeps machine state. It is passed in and returned, which keeps
resolution deterministic and lets pkg/session persist machines in files or
Redis and serialize concurrent updates.

# Usage

Load a graph from a YAML, JSON or HCL file, or a Loam directory:

	engine, err := hfsm.New(ctx, "graph.yaml")
	if err != nil {
		log.Fatal(err)
	}

	state, err := engine.Initial(ctx)
	if err != nil {
		log.Fatal(err)
	}

	state, err = engine.Transition(ctx, state, domain.Bubble("player:stopped", "play"))

Graphs can also be built in Go with pkg/dsl and wrapped with FromGraph.

# Observability

Lifecycle hooks receive an event for every resolved arrow, every applied
transition and every failure. pkg/observability ships Prometheus metrics and
slog hooks built on them.
*/
package hfsm
