package ports

import (
	"context"

	"github.com/aretw0/hfsm/pkg/domain"
)

// StateStore defines the interface for persisting machine state between transitions.
// This allows for durable machines, enabling "Stop & Resume" workflows.
type StateStore interface {
	// Save persists the state for a given machine ID.
	Save(ctx context.Context, machineID string, state domain.FSMState) error

	// Load retrieves the state for a given machine ID.
	// Returns domain.ErrMachineNotFound if the machine does not exist.
	Load(ctx context.Context, machineID string) (domain.FSMState, error)

	// Delete removes the state for a given machine ID.
	Delete(ctx context.Context, machineID string) error

	// List returns the IDs of all stored machines.
	List(ctx context.Context) ([]string, error)
}
