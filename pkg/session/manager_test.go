package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/hfsm"
	"github.com/aretw0/hfsm/internal/testutils"
	"github.com/aretw0/hfsm/pkg/adapters/memory"
	"github.com/aretw0/hfsm/pkg/adapters/redis"
	"github.com/aretw0/hfsm/pkg/domain"
	"github.com/aretw0/hfsm/pkg/dsl"
	"github.com/aretw0/hfsm/pkg/session"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	inner *memory.Store
}

func NewSlowStore() *SlowStore {
	return &SlowStore{inner: memory.NewStore()}
}

func (s *SlowStore) Save(ctx context.Context, machineID string, state domain.FSMState) error {
	time.Sleep(2 * time.Millisecond) // Simulate IO
	return s.inner.Save(ctx, machineID, state)
}

func (s *SlowStore) Load(ctx context.Context, machineID string) (domain.FSMState, error) {
	time.Sleep(2 * time.Millisecond) // Simulate IO
	return s.inner.Load(ctx, machineID)
}

func (s *SlowStore) Delete(ctx context.Context, machineID string) error {
	return s.inner.Delete(ctx, machineID)
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	return s.inner.List(ctx)
}

const steps = 10

// counterEngine resolves a chain c:0 -> c:1 -> ... -> c:10 driven by "inc".
func counterEngine(t *testing.T) *hfsm.Engine {
	t.Helper()
	b := dsl.New("c")
	root := b.Graph("c").Entry("default", "c:0", "")
	for i := 0; i <= steps; i++ {
		id := domain.NodeID(fmt.Sprintf("c:%d", i))
		b.Leaf(id)
		if i < steps {
			root.Arrow(id, "inc", domain.NodeID(fmt.Sprintf("c:%d", i+1)), "")
		}
	}
	g, err := b.Build()
	require.NoError(t, err)

	eng, err := hfsm.FromGraph(g)
	require.NoError(t, err)
	return eng
}

func TestManager_FireFuncSerializesMachine(t *testing.T) {
	eng := counterEngine(t)
	manager := session.NewManager(eng, NewSlowStore())
	ctx := context.Background()
	id := "race-test"

	incFromActive := func(state domain.FSMState) ([]domain.Arrow, error) {
		leaves := state.ActiveLeaves(eng.Graph())
		if len(leaves) != 1 {
			return nil, fmt.Errorf("expected one active leaf, got %v", leaves)
		}
		return []domain.Arrow{domain.Bubble(leaves[0], "inc")}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < steps; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.FireFunc(ctx, id, incFromActive)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Each increment saw the previous one: no update was lost.
	state, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.FSMState{"c": "c:10"}, state)
}

func TestManager_LoadOrStart(t *testing.T) {
	eng, err := hfsm.FromGraph(testutils.SampleGraph(t))
	require.NoError(t, err)
	store := memory.NewStore()
	manager := session.NewManager(eng, store)
	ctx := context.Background()

	_, err = manager.Load(ctx, "m1")
	assert.ErrorIs(t, err, domain.ErrMachineNotFound)

	state, err := manager.LoadOrStart(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, domain.FSMState{"app": "app:home", "app:settings": "app:settings:audio"}, state)

	stored, err := store.Load(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, state, stored)

	require.NoError(t, manager.Save(ctx, "m1", domain.FSMState{"app": "app:settings", "app:settings": "app:settings:video"}))
	again, err := manager.LoadOrStart(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, domain.NodeID("app:settings:video"), again["app:settings"], "existing machines are not reseeded")

	ids, err := manager.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, ids)

	require.NoError(t, manager.Delete(ctx, "m1"))
	_, err = manager.Load(ctx, "m1")
	assert.ErrorIs(t, err, domain.ErrMachineNotFound)
}

func TestManager_Fire(t *testing.T) {
	var events []*domain.TransitionEvent
	eng, err := hfsm.FromGraph(testutils.SampleGraph(t), hfsm.WithLifecycleHooks(domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) { events = append(events, e) },
	}))
	require.NoError(t, err)
	manager := session.NewManager(eng, memory.NewStore())
	ctx := context.Background()

	out, err := manager.Fire(ctx, "m1", domain.Bubble("app:home", "open"))
	require.NoError(t, err)
	assert.Equal(t, "m1", out.MachineID)
	assert.Equal(t, domain.NodeID("app:home"), out.Previous["app"])
	assert.Equal(t, domain.NodeID("app:settings"), out.State["app"])
	assert.Equal(t, domain.Change{From: "app:home", To: "app:settings"}, out.Diff.Changed["app"])

	require.Len(t, events, 1)
	assert.Equal(t, "m1", events[0].MachineID)

	// A failing transition leaves the stored state alone.
	_, err = manager.Fire(ctx, "m1", domain.Bubble("app:settings:audio", "nope"))
	assert.ErrorIs(t, err, domain.ErrNoArrowFound)

	state, err := manager.Load(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, out.State, state)
}

func TestManager_FireFuncError(t *testing.T) {
	eng, err := hfsm.FromGraph(testutils.SampleGraph(t))
	require.NoError(t, err)
	manager := session.NewManager(eng, memory.NewStore())

	boom := errors.New("boom")
	_, err = manager.FireFunc(context.Background(), "m1", func(domain.FSMState) ([]domain.Arrow, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestManager_Broadcast(t *testing.T) {
	eng, err := hfsm.FromGraph(testutils.SampleGraph(t))
	require.NoError(t, err)
	manager := session.NewManager(eng, memory.NewStore(), session.WithConcurrency(2))
	ctx := context.Background()

	ids := []string{"a", "b", "c", "d"}
	outcomes, err := manager.Broadcast(ctx, ids, domain.Bubble("app:home", "open"))
	require.NoError(t, err)
	require.Len(t, outcomes, len(ids))
	for _, id := range ids {
		assert.Equal(t, domain.NodeID("app:settings"), outcomes[id].State["app"], id)
	}

	// No scope defines "missing", so every machine fails.
	_, err = manager.Broadcast(ctx, ids, domain.Bubble("app:home", "missing"))
	assert.ErrorIs(t, err, domain.ErrNoArrowFound)
}

func TestManager_DistributedLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	eng := counterEngine(t)
	store := redis.NewFromClient(client)
	locker := redis.NewLocker(client, "test:")
	manager := session.NewManager(eng, store, session.WithLocker(locker), session.WithLockTTL(5*time.Second))
	ctx := context.Background()

	out, err := manager.Fire(ctx, "m1", domain.Bubble("c:0", "inc"))
	require.NoError(t, err)
	assert.Equal(t, domain.FSMState{"c": "c:1"}, out.State)
	assert.False(t, mr.Exists("test:lock:m1"), "lock is released after the transition")

	// A held lock makes the manager wait until the context gives up.
	unlock, err := locker.Lock(ctx, "m1", 5*time.Second)
	require.NoError(t, err)
	defer unlock(ctx)

	short, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	_, err = manager.Fire(short, "m1", domain.Bubble("c:1", "inc"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
