package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/hfsm/pkg/domain"
)

func entry(target domain.NodeID, ep string) domain.ArrowTarget {
	return domain.ArrowTarget{Target: target, EntryPoint: ep}
}

func validGraph(t *testing.T) *domain.Graph {
	t.Helper()
	g, err := domain.NewGraph("app",
		domain.NewGraphNode("app", "",
			map[domain.NodeID]map[string]domain.ArrowTarget{
				"app:home": {"open": entry("app:panels", "default")},
			},
			map[string]domain.ArrowTarget{
				"default": entry("app:home", ""),
				"resume":  entry("app:recent", "default"),
			},
		),
		domain.NewLeaf("app:home", "app"),
		domain.NewComposite("app:panels", "app", []domain.NodeID{"app:panels:left", "app:panels:right"}),
		domain.NewGraphNode("app:panels:left", "app:panels", nil, map[string]domain.ArrowTarget{
			"default": entry("app:panels:left:a", ""),
		}),
		domain.NewLeaf("app:panels:left:a", "app:panels:left"),
		domain.NewGraphNode("app:panels:right", "app:panels", nil, map[string]domain.ArrowTarget{
			"default": entry("app:panels:right:b", ""),
		}),
		domain.NewLeaf("app:panels:right:b", "app:panels:right"),
	)
	require.NoError(t, err)
	return g
}

func TestValidateGraph(t *testing.T) {
	assert.NoError(t, ValidateGraph(validGraph(t)))
}

func TestValidateGraph_Nil(t *testing.T) {
	assert.ErrorIs(t, ValidateGraph(nil), domain.ErrInvalidGraph)
}

func TestValidateGraph_Problems(t *testing.T) {
	tests := []struct {
		name  string
		nodes []domain.Node
		want  string
	}{
		{
			name: "Missing Parent",
			nodes: []domain.Node{
				domain.NewGraphNode("app", "", nil, map[string]domain.ArrowTarget{"default": entry("app:a", "")}),
				domain.NewLeaf("app:a", "app"),
				domain.NewLeaf("app:ghost:x", "app:ghost"),
			},
			want: "'app:ghost:x': parent 'app:ghost' not defined",
		},
		{
			name: "Leaf Parent",
			nodes: []domain.Node{
				domain.NewGraphNode("app", "", nil, map[string]domain.ArrowTarget{"default": entry("app:a", "")}),
				domain.NewLeaf("app:a", "app"),
				domain.NewLeaf("app:a:b", "app:a"),
			},
			want: "parent 'app:a' is a leaf",
		},
		{
			name: "Second Root",
			nodes: []domain.Node{
				domain.NewGraphNode("app", "", nil, map[string]domain.ArrowTarget{"default": entry("app:a", "")}),
				domain.NewLeaf("app:a", "app"),
				domain.NewLeaf("other", ""),
			},
			want: "'other': only the root may omit a parent",
		},
		{
			name: "Parent Not Prefix",
			nodes: []domain.Node{
				domain.NewGraphNode("app", "", nil, map[string]domain.ArrowTarget{"default": entry("app:a", "")}),
				domain.NewLeaf("app:a", "app"),
				domain.NewLeaf("elsewhere", "app"),
			},
			want: "'elsewhere': parent 'app' is not the id's prefix",
		},
		{
			name: "Composite Does Not List Child",
			nodes: []domain.Node{
				domain.NewComposite("app", "", []domain.NodeID{"app:a"}),
				domain.NewLeaf("app:a", "app"),
				domain.NewLeaf("app:b", "app"),
			},
			want: "'app:b': not listed by composite parent 'app'",
		},
		{
			name: "Composite Lists Undefined Child",
			nodes: []domain.Node{
				domain.NewComposite("app", "", []domain.NodeID{"app:a", "app:ghost"}),
				domain.NewLeaf("app:a", "app"),
			},
			want: "child 'app:ghost' not defined",
		},
		{
			name: "Composite Lists Child Twice",
			nodes: []domain.Node{
				domain.NewComposite("app", "", []domain.NodeID{"app:a", "app:a"}),
				domain.NewLeaf("app:a", "app"),
			},
			want: "child 'app:a' listed twice",
		},
		{
			name: "Entry Point Targets Non Child",
			nodes: []domain.Node{
				domain.NewGraphNode("app", "", nil, map[string]domain.ArrowTarget{"default": entry("app:x:y", "")}),
				domain.NewLeaf("app:a", "app"),
			},
			want: "entry point 'default' targets 'app:x:y' which is not a child",
		},
		{
			name: "Arrow Targets Non Child",
			nodes: []domain.Node{
				domain.NewGraphNode("app",
					"",
					map[domain.NodeID]map[string]domain.ArrowTarget{"app:a": {"go": entry("nowhere", "")}},
					map[string]domain.ArrowTarget{"default": entry("app:a", "")},
				),
				domain.NewLeaf("app:a", "app"),
			},
			want: "arrow 'app:a/go' targets 'nowhere' which is not a child",
		},
		{
			name: "Arrow From Non Child",
			nodes: []domain.Node{
				domain.NewGraphNode("app",
					"",
					map[domain.NodeID]map[string]domain.ArrowTarget{"app:ghost": {"go": entry("app:a", "")}},
					map[string]domain.ArrowTarget{"default": entry("app:a", "")},
				),
				domain.NewLeaf("app:a", "app"),
			},
			want: "arrows leave 'app:ghost' which is not a child",
		},
		{
			name: "Arrow Uses Undefined Entry Point",
			nodes: []domain.Node{
				domain.NewGraphNode("app",
					"",
					map[domain.NodeID]map[string]domain.ArrowTarget{"app:a": {"go": entry("app:sub", "deep")}},
					map[string]domain.ArrowTarget{"default": entry("app:a", "")},
				),
				domain.NewLeaf("app:a", "app"),
				domain.NewGraphNode("app:sub", "app", nil, map[string]domain.ArrowTarget{"default": entry("app:sub:x", "")}),
				domain.NewLeaf("app:sub:x", "app:sub"),
			},
			want: "arrow 'app:a/go' enters 'app:sub' through undefined entry point 'deep'",
		},
		{
			name: "Recent Entry Needs Entry Point On Every Child",
			nodes: []domain.Node{
				domain.NewGraphNode("app", "", nil, map[string]domain.ArrowTarget{
					"default": entry("app:a", ""),
					"resume":  entry("app:recent", "resume"),
				}),
				domain.NewLeaf("app:a", "app"),
				domain.NewGraphNode("app:sub", "app", nil, map[string]domain.ArrowTarget{"default": entry("app:sub:x", "")}),
				domain.NewLeaf("app:sub:x", "app:sub"),
			},
			want: "entry point 'resume' resumes child 'app:sub' which lacks entry point 'resume'",
		},
		{
			name: "Entry Through Composite Needs Every Region",
			nodes: []domain.Node{
				domain.NewGraphNode("app", "", nil, map[string]domain.ArrowTarget{"default": entry("app:par", "default")}),
				domain.NewComposite("app:par", "app", []domain.NodeID{"app:par:l", "app:par:r"}),
				domain.NewGraphNode("app:par:l", "app:par", nil, map[string]domain.ArrowTarget{"default": entry("app:par:l:x", "")}),
				domain.NewLeaf("app:par:l:x", "app:par:l"),
				domain.NewGraphNode("app:par:r", "app:par", nil, map[string]domain.ArrowTarget{"other": entry("app:par:r:x", "")}),
				domain.NewLeaf("app:par:r:x", "app:par:r"),
			},
			want: "entry point 'default' enters 'app:par' through undefined entry point 'default'",
		},
		{
			name: "Empty Graph Node",
			nodes: []domain.Node{
				domain.NewGraphNode("app", "", nil, nil),
			},
			want: "'app': graph node has no children",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := domain.NewGraph(tt.nodes[0].ID(), tt.nodes...)
			require.NoError(t, err)

			err = ValidateGraph(g)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidGraph)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateGraph_ReportsEveryProblem(t *testing.T) {
	g, err := domain.NewGraph("app",
		domain.NewGraphNode("app", "", nil, map[string]domain.ArrowTarget{"default": entry("app:ghost", "")}),
		domain.NewLeaf("app:a", "app"),
		domain.NewLeaf("app:b:c", "app:b"),
	)
	require.NoError(t, err)

	err = ValidateGraph(g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "found 2 problems")
	assert.Contains(t, err.Error(), "targets 'app:ghost'")
	assert.Contains(t, err.Error(), "parent 'app:b' not defined")
}
