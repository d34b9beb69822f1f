package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/hfsm/pkg/domain"
	"github.com/aretw0/hfsm/pkg/dsl"
)

// SetupTestRepo creates a temporary directory and initializes a Loam repository in it.
// It returns the absolute path to the temp dir and the initialized repository.
// Versioning is off unless opts turn it back on.
// It fails the test immediately on error.
func SetupTestRepo(t *testing.T, opts ...loam.Option) (string, core.Repository) {
	t.Helper()

	tmpDir := t.TempDir()

	absPath, err := filepath.Abs(tmpDir)
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	opts = append([]loam.Option{loam.WithVersioning(false)}, opts...)
	repo, err := loam.Init(absPath, opts...)
	require.NoError(t, err, "Failed to init loam repo")

	return absPath, repo
}

// WriteFiles writes name -> content pairs under dir, creating parents.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// SampleIDs lists the nodes of SampleDocument.
var SampleIDs = []domain.NodeID{
	"app",
	"app:home",
	"app:settings",
	"app:settings:audio",
	"app:settings:video",
}

// SampleDocument is a small settings app:
//
//	app           graph     default -> home, resume -> recent
//	  home        leaf      open -> settings
//	  settings    graph     default -> audio, close -> home
//	    audio     leaf      next -> video
//	    video     leaf
func SampleDocument() dsl.Document {
	return dsl.Document{
		Root: "app",
		Nodes: []dsl.Plan{
			{
				"id": "app",
				"entry_points": map[string]any{
					"default": "app:home",
					"resume":  map[string]any{"target": "app:recent", "entry_point": "default"},
				},
				"arrows": map[string]any{
					"app:home":     map[string]any{"open": map[string]any{"target": "app:settings", "entry_point": "default"}},
					"app:settings": map[string]any{"close": "app:home"},
				},
			},
			{"id": "app:home"},
			{
				"id":           "app:settings",
				"entry_points": map[string]any{"default": "app:settings:audio"},
				"arrows": map[string]any{
					"app:settings:audio": map[string]any{"next": "app:settings:video"},
				},
			},
			{"id": "app:settings:audio"},
			{"id": "app:settings:video"},
		},
	}
}

// SampleYAML is SampleDocument as the document loader reads it.
const SampleYAML = `root: app
nodes:
  - id: app
    entry_points:
      default: app:home
      resume: {target: "app:recent", entry_point: default}
    arrows:
      "app:home":
        open: {target: "app:settings", entry_point: default}
      "app:settings":
        close: app:home
  - id: app:home
  - id: app:settings
    entry_points:
      default: app:settings:audio
    arrows:
      "app:settings:audio":
        next: app:settings:video
  - id: app:settings:audio
  - id: app:settings:video
`

// SampleGraph builds SampleDocument.
func SampleGraph(t testing.TB) *domain.Graph {
	t.Helper()
	g, err := SampleDocument().Build()
	require.NoError(t, err)
	return g
}
