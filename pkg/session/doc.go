/*
Package session implements machine management and persistence orchestration.

The engine is stateless: it maps a state and fired arrows to a new state.
A Manager is the caller that owns machine state. It loads a machine from a
ports.StateStore, resolves the arrows, and saves the result while holding a
per-machine lock, optionally backed by a ports.DistributedLocker so replicas
sharing a store do not interleave transitions of the same machine.
*/
package session
