package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/hfsm/internal/logging"
	"github.com/aretw0/hfsm/pkg/domain"
	"github.com/aretw0/hfsm/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates machine access, ensuring transitions of one machine
// never interleave. It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	engine ports.Engine
	store  ports.StateStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker      ports.DistributedLocker // Optional distributed locker
	lockTTL     time.Duration
	concurrency int
	logger      *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL of distributed locks (default DefaultLockTTL).
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithConcurrency limits how many machines Broadcast updates at once.
// Zero or less means no limit.
func WithConcurrency(n int) Option {
	return func(m *Manager) {
		m.concurrency = n
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager resolving with engine and persisting to store.
func NewManager(engine ports.Engine, store ports.StateStore, opts ...Option) *Manager {
	m := &Manager{
		engine:  engine,
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(machineID) after unlocking.
func (m *Manager) acquire(machineID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[machineID]
	if !exists {
		entry = &lockEntry{}
		m.locks[machineID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(machineID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[machineID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, machineID)
	}
}

// Outcome is the result of firing arrows into a stored machine.
type Outcome struct {
	MachineID string           `json:"machine_id"`
	Previous  domain.FSMState  `json:"previous"`
	State     domain.FSMState  `json:"state"`
	Diff      domain.StateDiff `json:"diff"`
}

// Load retrieves an existing machine from the store.
func (m *Manager) Load(ctx context.Context, machineID string) (domain.FSMState, error) {
	var state domain.FSMState
	err := m.WithLock(ctx, machineID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, machineID)
		return err
	})
	return state, err
}

// LoadOrStart tries to load a machine. If not found, it seeds a new one
// with the engine's initial state and persists it.
func (m *Manager) LoadOrStart(ctx context.Context, machineID string) (domain.FSMState, error) {
	var state domain.FSMState
	err := m.WithLock(ctx, machineID, func(ctx context.Context) error {
		var err error
		state, err = m.loadOrStart(ctx, machineID)
		return err
	})
	return state, err
}

func (m *Manager) loadOrStart(ctx context.Context, machineID string) (domain.FSMState, error) {
	state, err := m.store.Load(ctx, machineID)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, domain.ErrMachineNotFound) {
		return nil, fmt.Errorf("failed to check machine existence: %w", err)
	}

	state, err = m.engine.Initial(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize machine: %w", err)
	}
	// Persist immediately to reserve the ID
	if err := m.store.Save(ctx, machineID, state); err != nil {
		return nil, fmt.Errorf("failed to initialize machine: %w", err)
	}
	m.logger.Debug("machine started", "machine_id", machineID)
	return state, nil
}

// Save persists the machine state.
func (m *Manager) Save(ctx context.Context, machineID string, state domain.FSMState) error {
	return m.WithLock(ctx, machineID, func(ctx context.Context) error {
		return m.store.Save(ctx, machineID, state)
	})
}

// Delete removes the machine from the store.
func (m *Manager) Delete(ctx context.Context, machineID string) error {
	return m.WithLock(ctx, machineID, func(ctx context.Context) error {
		return m.store.Delete(ctx, machineID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying state store.
func (m *Manager) Store() ports.StateStore {
	return m.store
}

// Engine returns the engine transitions are resolved with.
func (m *Manager) Engine() ports.Engine {
	return m.engine
}

// Fire loads the machine (starting it if needed), applies arrows and saves
// the result, all under the machine's lock. A failed transition leaves the
// stored state untouched.
func (m *Manager) Fire(ctx context.Context, machineID string, arrows ...domain.Arrow) (*Outcome, error) {
	return m.FireFunc(ctx, machineID, func(domain.FSMState) ([]domain.Arrow, error) {
		return arrows, nil
	})
}

// FireFunc is Fire with the arrows chosen from the current state while the
// lock is held, so read-decide-write cycles cannot lose updates.
func (m *Manager) FireFunc(ctx context.Context, machineID string, choose func(domain.FSMState) ([]domain.Arrow, error)) (*Outcome, error) {
	var out *Outcome
	err := m.WithLock(ctx, machineID, func(ctx context.Context) error {
		current, err := m.loadOrStart(ctx, machineID)
		if err != nil {
			return err
		}
		arrows, err := choose(current.Clone())
		if err != nil {
			return err
		}

		next, err := m.engine.Transition(domain.ContextWithMachineID(ctx, machineID), current, arrows...)
		if err != nil {
			return err
		}
		if err := m.store.Save(ctx, machineID, next); err != nil {
			return fmt.Errorf("failed to save machine: %w", err)
		}

		out = &Outcome{
			MachineID: machineID,
			Previous:  current,
			State:     next,
			Diff:      domain.Diff(current, next),
		}
		return nil
	})
	return out, err
}

// Broadcast fires the same arrows into every listed machine concurrently.
// Each machine is still serialized by its own lock. The first failure cancels
// the machines not yet started and is returned; outcomes of machines that
// completed are returned either way.
func (m *Manager) Broadcast(ctx context.Context, machineIDs []string, arrows ...domain.Arrow) (map[string]*Outcome, error) {
	var mu sync.Mutex
	outcomes := make(map[string]*Outcome, len(machineIDs))

	g, ctx := errgroup.WithContext(ctx)
	if m.concurrency > 0 {
		g.SetLimit(m.concurrency)
	}
	for _, id := range machineIDs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := m.Fire(ctx, id, arrows...)
			if err != nil {
				return fmt.Errorf("machine %s: %w", id, err)
			}
			mu.Lock()
			outcomes[id] = out
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	return outcomes, err
}

// WithLock executes a function while holding the lock for the machine.
func (m *Manager) WithLock(ctx context.Context, machineID string, fn func(context.Context) error) error {
	entry := m.acquire(machineID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(machineID)
	}()

	// Distributed Locking
	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, machineID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"machine_id", machineID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
