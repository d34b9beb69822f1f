package graph_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/hfsm/internal/presentation/graph"
	"github.com/aretw0/hfsm/internal/testutils"
	"github.com/aretw0/hfsm/pkg/domain"
	"github.com/aretw0/hfsm/pkg/dsl"
)

func TestGenerateMermaid(t *testing.T) {
	got := graph.GenerateMermaid(testutils.SampleGraph(t), nil)

	for _, want := range []string{
		"graph TD\n",
		`subgraph app["app"]`,
		`subgraph app__settings["settings"]`,
		`app__home["home"]`,
		`app__settings__audio["audio"]`,
		`app__ep__resume -. "resume" .-> app__recent`,
		`app__recent(("H"))`,
		`app__ep__default -. "default" .-> app__home`,
		`app__home -- "open" --> app__settings`,
		`app__settings__audio -- "next" --> app__settings__video`,
	} {
		assert.Contains(t, got, want)
	}
	assert.NotContains(t, got, "classDef", "no overlay, no styles")
}

func TestGenerateMermaid_Composite(t *testing.T) {
	b := dsl.New("ui")
	b.Composite("ui").Nodes("ui:left", "ui:right")
	b.Leaf("ui:left")
	b.Leaf("ui:right")
	g, err := b.Build()
	require.NoError(t, err)

	got := graph.GenerateMermaid(g, nil)
	assert.Contains(t, got, "direction LR")
	assert.Contains(t, got, "style ui stroke-dasharray: 5 5")
	assert.Less(t, strings.Index(got, "ui__left"), strings.Index(got, "ui__right"), "regions keep declared order")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	g := testutils.SampleGraph(t)
	before := domain.FSMState{"app": "app:home", "app:settings": "app:settings:audio"}
	after := domain.FSMState{"app": "app:settings", "app:settings": "app:settings:audio"}
	diff := domain.Diff(before, after)

	got := graph.GenerateMermaid(g, graph.NewOverlay(after, &diff))
	assert.Contains(t, got, "class app active;")
	assert.Contains(t, got, "class app__settings changed;")
	assert.Contains(t, got, "class app__settings__audio active;")
	assert.NotContains(t, got, "class app__home ")
}

func TestRender(t *testing.T) {
	g := testutils.SampleGraph(t)

	out, err := graph.Render(g, graph.FormatMermaid, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph TD"))

	out, err = graph.Render(g, graph.FormatDOT, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "digraph hfsm")

	_, err = graph.Render(g, "svg", nil)
	assert.ErrorContains(t, err, `unsupported graph format "svg"`)
}
