package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/hfsm/pkg/domain"
)

func settingsBuilder() *Builder {
	b := New("app")
	b.Graph("app").
		Entry("default", "app:home", "").
		Resume("resume", "default").
		Arrow("app:home", "open", "app:settings", "default").
		Arrow("app:settings", "close", "app:home", "")
	b.Leaf("app:home")
	b.Graph("app:settings").
		Entry("default", "app:settings:audio", "").
		Arrow("app:settings:audio", "next", "app:settings:video", "")
	b.Leaf("app:settings:audio")
	b.Leaf("app:settings:video")
	return b
}

func TestBuilder_Build(t *testing.T) {
	g, err := settingsBuilder().Build()
	require.NoError(t, err)

	assert.Equal(t, domain.NodeID("app"), g.Root())
	assert.Equal(t, []domain.NodeID{"app", "app:home", "app:settings", "app:settings:audio", "app:settings:video"}, g.IDs())

	n, err := g.Node("app")
	require.NoError(t, err)
	app, ok := n.(*domain.GraphNode)
	require.True(t, ok)

	target, ok := app.Arrow("app:home", "open")
	require.True(t, ok)
	assert.Equal(t, domain.ArrowTarget{Target: "app:settings", EntryPoint: "default"}, target)

	resume, ok := app.EntryPoint("resume")
	require.True(t, ok)
	assert.True(t, app.IsRecent(resume.Target))

	leaf, err := g.Node("app:settings:audio")
	require.NoError(t, err)
	assert.Equal(t, domain.NodeID("app:settings"), leaf.Parent(), "parent is derived from the id")
}

func TestBuilder_DeclaredParentMatchingPrefix(t *testing.T) {
	b := settingsBuilder()
	b.Leaf("app:settings:video").Parent("app:settings")

	g, err := b.Build()
	require.NoError(t, err)
	leaf, err := g.Node("app:settings:video")
	require.NoError(t, err)
	assert.Equal(t, domain.NodeID("app:settings"), leaf.Parent())
}

func TestBuilder_AddReturnsExisting(t *testing.T) {
	b := New("app")
	first := b.Graph("app").Entry("default", "app:a", "")
	again := b.Graph("app")
	assert.Same(t, first, again)
	assert.Len(t, again.Spec().EntryPoints, 1)
}

func TestBuilder_NodesFuncIsLazy(t *testing.T) {
	b := New("app")
	var regions []domain.NodeID
	b.Composite("app").NodesFunc(func() []domain.NodeID { return regions })

	// Regions are declared after the composite.
	for _, id := range []domain.NodeID{"app:left", "app:right"} {
		b.Graph(id).Entry("default", id.Child("idle"), "")
		b.Leaf(id.Child("idle"))
		regions = append(regions, id)
	}

	g, err := b.Build()
	require.NoError(t, err)
	n, err := g.Node("app")
	require.NoError(t, err)
	assert.Equal(t, []domain.NodeID{"app:left", "app:right"}, n.(*domain.Composite).Children())
}

func TestBuilder_Errors(t *testing.T) {
	t.Run("Leaf With Arrows", func(t *testing.T) {
		b := New("app")
		b.Graph("app").Entry("default", "app:a", "")
		b.Leaf("app:a").Arrow("app:a", "x", "app:a", "")

		_, err := b.Build()
		assert.ErrorIs(t, err, domain.ErrInvalidGraph)
	})

	t.Run("Duplicate Arrow", func(t *testing.T) {
		b := New("app")
		b.Graph("app").
			Entry("default", "app:a", "").
			Arrow("app:a", "x", "app:a", "").
			Arrow("app:a", "x", "app:a", "")
		b.Leaf("app:a")

		_, err := b.Build()
		require.ErrorIs(t, err, domain.ErrInvalidGraph)
		assert.Contains(t, err.Error(), "declared twice")
	})

	t.Run("Missing Root", func(t *testing.T) {
		b := New("app")
		b.Leaf("other")

		_, err := b.Build()
		assert.ErrorIs(t, err, domain.ErrInvalidGraph)
	})

	t.Run("Fails Validation", func(t *testing.T) {
		b := New("app")
		b.Graph("app").Entry("default", "app:missing", "")
		b.Leaf("app:a")

		_, err := b.Build()
		require.ErrorIs(t, err, domain.ErrInvalidGraph)
		assert.Contains(t, err.Error(), "not a child")
	})

	t.Run("Declared Parent Not Prefix", func(t *testing.T) {
		b := New("app")
		b.Graph("app").Entry("default", "app:a", "")
		b.Graph("app:a").Entry("default", "app:a:x", "")
		b.Leaf("app:a:x").Parent("app")

		_, err := b.Compile()
		require.ErrorIs(t, err, domain.ErrInvalidGraph)
		assert.Contains(t, err.Error(), "declared parent 'app' is not the id's prefix 'app:a'")
	})

	t.Run("Compile Skips Validation", func(t *testing.T) {
		b := New("app")
		b.Graph("app").Entry("default", "app:missing", "")
		b.Leaf("app:a")

		g, err := b.Compile()
		require.NoError(t, err)
		assert.Equal(t, 2, g.Len())
	})
}
