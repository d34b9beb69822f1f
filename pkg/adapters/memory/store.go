package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/hfsm/pkg/domain"
)

// Store implements ports.StateStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.FSMState
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.FSMState),
	}
}

// Save persists the state in memory.
func (s *Store) Save(ctx context.Context, machineID string, state domain.FSMState) error {
	// Copy to ensure isolation, similar to serialization
	copied := state.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[machineID] = copied
	return nil
}

// Load retrieves the state from memory.
func (s *Store) Load(ctx context.Context, machineID string) (domain.FSMState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.data[machineID]
	if !ok {
		return nil, domain.ErrMachineNotFound
	}

	// Create a copy on read so caller can't mutate store state directly
	return state.Clone(), nil
}

// Delete removes the state.
func (s *Store) Delete(ctx context.Context, machineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, machineID)
	return nil
}

// List returns the stored machines, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	machines := make([]string, 0, len(s.data))
	for id := range s.data {
		machines = append(machines, id)
	}
	sort.Strings(machines)
	return machines, nil
}
