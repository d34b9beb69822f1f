package domain

import (
	"errors"
	"fmt"
)

// ErrNoArrowFound is returned when every step of a fired arrow was tried and
// no ancestor scope defines it.
var ErrNoArrowFound = errors.New("no arrow found")

// ErrConflictingStateUpdate is returned when two resolved branches pick
// different children for the same graph node.
var ErrConflictingStateUpdate = errors.New("conflicting state update")

// ErrInvalidGraph is returned when resolution hits a structural defect:
// a missing node, a dangling entry point, or a cyclic entry chain.
var ErrInvalidGraph = errors.New("invalid graph")

// ErrMachineNotFound is returned when a machine id cannot be found in the store.
var ErrMachineNotFound = errors.New("machine not found")

// NoArrowFoundError carries the arrow that could not be resolved.
type NoArrowFoundError struct {
	Arrow Arrow
}

func (e *NoArrowFoundError) Error() string {
	return fmt.Sprintf("%v: %s", ErrNoArrowFound, e.Arrow)
}

// Is makes errors.Is(err, ErrNoArrowFound) hold.
func (e *NoArrowFoundError) Is(target error) bool {
	return target == ErrNoArrowFound
}

// ConflictError identifies the graph node claimed twice and both candidates.
type ConflictError struct {
	Key      NodeID
	Existing NodeID
	Incoming NodeID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%v: %s is set to both %s and %s", ErrConflictingStateUpdate, e.Key, e.Existing, e.Incoming)
}

// Is makes errors.Is(err, ErrConflictingStateUpdate) hold.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflictingStateUpdate
}

// InvalidGraphError describes a structural defect found at a node.
type InvalidGraphError struct {
	Node   NodeID
	Reason string
}

func (e *InvalidGraphError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("%v: %s", ErrInvalidGraph, e.Reason)
	}
	return fmt.Sprintf("%v: %s: %s", ErrInvalidGraph, e.Node, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidGraph) hold.
func (e *InvalidGraphError) Is(target error) bool {
	return target == ErrInvalidGraph
}
