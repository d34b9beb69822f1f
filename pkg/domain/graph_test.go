package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := NewGraph("app",
		NewGraphNode("app", "", nil, map[string]ArrowTarget{
			DefaultEntryPoint: {Target: "app:home", EntryPoint: DefaultEntryPoint},
		}),
		NewLeaf("app:home", "app"),
		NewComposite("app:player", "app", []NodeID{"app:player:audio", "app:player:video"}),
		NewGraphNode("app:player:audio", "app:player", nil, nil),
		NewLeaf("app:player:audio:on", "app:player:audio"),
		NewLeaf("app:player:video", "app:player"),
	)
	require.NoError(t, err)
	return g
}

func TestNewGraph_Rejects(t *testing.T) {
	_, err := NewGraph("missing", NewLeaf("a", ""))
	assert.True(t, errors.Is(err, ErrInvalidGraph))

	_, err = NewGraph("a", NewLeaf("a", ""), NewLeaf("a", ""))
	var ig *InvalidGraphError
	require.ErrorAs(t, err, &ig)
	assert.Equal(t, NodeID("a"), ig.Node)
	assert.Contains(t, ig.Reason, "duplicate")
}

func TestGraph_Lookup(t *testing.T) {
	g := sampleGraph(t)
	assert.Equal(t, NodeID("app"), g.Root())
	assert.Equal(t, 6, g.Len())

	n, err := g.Node("app:player")
	require.NoError(t, err)
	assert.Equal(t, KindComposite, n.Kind())

	_, err = g.Node("nope")
	assert.ErrorIs(t, err, ErrInvalidGraph)

	assert.Equal(t, []NodeID{"app:home", "app:player"}, g.Children("app"))
}

func TestFSMState_ActiveLeaves(t *testing.T) {
	g := sampleGraph(t)
	s := FSMState{"app": "app:player", "app:player:audio": "app:player:audio:on"}

	assert.Equal(t, []NodeID{"app:player:audio:on", "app:player:video"}, s.ActiveLeaves(g))
	assert.True(t, s.IsActive(g, "app:player:video"))
	assert.False(t, s.IsActive(g, "app:home"))
}

func TestFSMState_CloneIsolated(t *testing.T) {
	s := FSMState{"app": "app:home"}
	c := s.Clone()
	c["app"] = "app:player"
	assert.Equal(t, NodeID("app:home"), s["app"])
	assert.False(t, s.Equal(c))
	assert.True(t, s.Equal(FSMState{"app": "app:home"}))
	assert.NotNil(t, FSMState(nil).Clone())
}

func TestErrors_Is(t *testing.T) {
	assert.ErrorIs(t, &NoArrowFoundError{Arrow: Arrow{Step("a:b", "x")}}, ErrNoArrowFound)
	assert.ErrorIs(t, &ConflictError{Key: "a", Existing: "a:b", Incoming: "a:c"}, ErrConflictingStateUpdate)
	assert.NotErrorIs(t, &ConflictError{}, ErrNoArrowFound)
	assert.EqualError(t, &ConflictError{Key: "a", Existing: "a:b", Incoming: "a:c"},
		"conflicting state update: a is set to both a:b and a:c")
}
