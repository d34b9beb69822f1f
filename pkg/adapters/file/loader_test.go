package file_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/hfsm/internal/testutils"
	"github.com/aretw0/hfsm/pkg/adapters/file"
	"github.com/aretw0/hfsm/pkg/domain"
	"github.com/aretw0/hfsm/pkg/dsl"
	"github.com/aretw0/hfsm/pkg/ports"
)

const sampleJSON = `{
  "root": "app",
  "nodes": [
    {"id": "app", "entry_points": {"default": "app:home"}, "arrows": {"app:home": {"go": "app:away"}}},
    {"id": "app:home"},
    {"id": "app:away"}
  ]
}`

func TestFileLoader_Contract(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, map[string]string{
		"graph.yaml": testutils.SampleYAML,
		"graph.json": sampleJSON,
	})

	t.Run("YAML", func(t *testing.T) {
		ports.RunGraphLoaderContract(t, file.New(filepath.Join(dir, "graph.yaml")), "app", testutils.SampleIDs)
	})
	t.Run("JSON", func(t *testing.T) {
		ports.RunGraphLoaderContract(t, file.New(filepath.Join(dir, "graph.json")), "app", []domain.NodeID{"app", "app:home", "app:away"})
	})
}

func TestFileLoader_MatchesSampleDocument(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, map[string]string{"graph.yaml": testutils.SampleYAML})

	g, err := file.New(filepath.Join(dir, "graph.yaml")).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testutils.SampleGraph(t), g)
}

func TestFileLoader_Errors(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, map[string]string{
		"empty.yaml":   "",
		"unknown.yaml": "root: app\nextra: 1\nnodes: []\n",
		"broken.yaml":  "root: app\nnodes:\n  - id: app\n    entry_points:\n      default: app:ghost\n",
	})

	_, err := file.New(filepath.Join(dir, "missing.yaml")).Load(context.Background())
	assert.Error(t, err)

	_, err = file.New(filepath.Join(dir, "empty.yaml")).Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidGraph)

	_, err = file.New(filepath.Join(dir, "unknown.yaml")).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extra")

	_, err = file.New(filepath.Join(dir, "broken.yaml")).Load(context.Background())
	require.ErrorIs(t, err, domain.ErrInvalidGraph)
	assert.Contains(t, err.Error(), "broken.yaml")
}

func TestFileLoader_CustomHandlers(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, map[string]string{
		"graph.yaml": "root: app\nnodes:\n  - id: app\n    kind: leaf\n    note: ignored\n",
	})
	path := filepath.Join(dir, "graph.yaml")

	_, err := file.New(path).Load(context.Background())
	require.Error(t, err)

	dropNote := func(p dsl.Plan) (dsl.Plan, dsl.MakeFunc, error) {
		rest := dsl.Plan{}
		for k, v := range p {
			if k != "note" {
				rest[k] = v
			}
		}
		return rest, func(s dsl.NodeSpec) dsl.NodeSpec { return s }, nil
	}
	g, err := file.New(path, file.WithHandlers(append([]dsl.Handler{dropNote}, dsl.DefaultHandlers...)...)).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, g.Len())
}

func TestEncode_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, file.Encode(&buf, dsl.Export(testutils.SampleGraph(t))))

	doc, err := file.Decode(buf.Bytes())
	require.NoError(t, err)
	g, err := doc.Build()
	require.NoError(t, err)
	assert.Equal(t, testutils.SampleGraph(t), g)
}
