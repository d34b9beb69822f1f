package ports

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/aretw0/hfsm/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	machineID := "contract-test-machine-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.FSMState{
			"app":          "app:settings",
			"app:settings": "app:settings:audio",
		}

		err := store.Save(ctx, machineID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, machineID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state, loaded)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, machineID, domain.FSMState{"app": "app:home"}))

		loaded, err := store.Load(ctx, machineID)
		require.NoError(t, err)
		assert.Equal(t, domain.FSMState{"app": "app:home"}, loaded, "Save replaces the state wholesale")
	})

	t.Run("Loaded State Is Isolated", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, machineID, domain.FSMState{"app": "app:home"}))

		loaded, err := store.Load(ctx, machineID)
		require.NoError(t, err)
		loaded["app"] = "app:tampered"

		again, err := store.Load(ctx, machineID)
		require.NoError(t, err)
		assert.Equal(t, domain.NodeID("app:home"), again["app"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+machineID)
		assert.ErrorIs(t, err, domain.ErrMachineNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, machineID, domain.FSMState{"app": "app:home"})
		require.NoError(t, err)

		err = store.Delete(ctx, machineID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, machineID)
		assert.ErrorIs(t, err, domain.ErrMachineNotFound, "Load after Delete should return ErrMachineNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := machineID + "-1"
		id2 := machineID + "-2"
		_ = store.Save(ctx, id1, domain.FSMState{"app": "app:home"})
		_ = store.Save(ctx, id2, domain.FSMState{"app": "app:home"})

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		machines, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, machines, id1)
		assert.Contains(t, machines, id2)
		assert.True(t, slices.IsSorted(machines), "List returns ids in sorted order: %v", machines)
	})

	t.Run("IDs Resembling Internal Keys", func(t *testing.T) {
		states := map[string]domain.FSMState{
			machineID:           {"app": "app:home"},
			"index":             {"app": "app:settings"},
			"idx":               {"app": "app:settings", "app:settings": "app:settings:video"},
			"lock:" + machineID: {"app": "app:settings", "app:settings": "app:settings:audio"},
			"m:" + machineID:    {"app": "app:other"},
		}
		defer func() {
			for id := range states {
				_ = store.Delete(ctx, id)
			}
		}()

		for id, state := range states {
			require.NoError(t, store.Save(ctx, id, state), "Save %q", id)
		}
		for id, want := range states {
			got, err := store.Load(ctx, id)
			require.NoError(t, err, "Load %q", id)
			assert.Equal(t, want, got, "machine %q", id)
		}

		machines, err := store.List(ctx)
		require.NoError(t, err)
		for id := range states {
			assert.Contains(t, machines, id)
		}
	})
}

// RunGraphLoaderContract verifies that a GraphLoader produces a graph rooted at
// wantRoot containing exactly wantIDs, and that loading twice is stable.
func RunGraphLoaderContract(t *testing.T, loader GraphLoader, wantRoot domain.NodeID, wantIDs []domain.NodeID) {
	t.Helper()
	ctx := context.Background()

	t.Run("Load", func(t *testing.T) {
		g, err := loader.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, g)
		assert.Equal(t, wantRoot, g.Root())
		assert.ElementsMatch(t, wantIDs, g.IDs())
	})

	t.Run("Load Is Repeatable", func(t *testing.T) {
		g1, err := loader.Load(ctx)
		require.NoError(t, err)
		g2, err := loader.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, g1.IDs(), g2.IDs())
	})
}
