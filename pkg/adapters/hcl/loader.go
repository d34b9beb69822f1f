package hcl

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/aretw0/hfsm/pkg/adapters/file"
	"github.com/aretw0/hfsm/pkg/domain"
	"github.com/aretw0/hfsm/pkg/dsl"
)

// hclGraphFile represents the top-level structure of a graph file for decoding.
//
//	root = "app"
//
//	node "graph" "app" {
//	  entry "default" { target = "app:home" }
//	  arrow "open" {
//	    from        = "app:home"
//	    target      = "app:settings"
//	    entry_point = "default"
//	  }
//	}
//
//	node "leaf" "app:home" {}
type hclGraphFile struct {
	Root  string     `hcl:"root"`
	Nodes []*hclNode `hcl:"node,block"`
}

type hclNode struct {
	Kind    string      `hcl:"kind,label"`
	ID      string      `hcl:"id,label"`
	Parent  string      `hcl:"parent,optional"` // must equal the id's prefix
	Nodes   []string    `hcl:"nodes,optional"`
	Entries []*hclEntry `hcl:"entry,block"`
	Arrows  []*hclArrow `hcl:"arrow,block"`
}

type hclEntry struct {
	Name       string `hcl:"name,label"`
	Target     string `hcl:"target"`
	EntryPoint string `hcl:"entry_point,optional"`
}

type hclArrow struct {
	Name       string `hcl:"name,label"`
	From       string `hcl:"from"`
	Target     string `hcl:"target"`
	EntryPoint string `hcl:"entry_point,optional"`
}

// Loader reads a graph from an HCL file.
type Loader struct {
	path string
}

// New creates a loader for the HCL file at path.
func New(path string) *Loader {
	return &Loader{path: path}
}

// Load implements ports.GraphLoader.
func (l *Loader) Load(ctx context.Context) (*domain.Graph, error) {
	src, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read HCL file: %w", err)
	}
	doc, err := Parse(src, l.path)
	if err != nil {
		return nil, err
	}
	g, err := doc.Build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.path, err)
	}
	return g, nil
}

// Describe implements ports.Describer.
func (l *Loader) Describe() string {
	return l.path
}

// Parse decodes HCL source into a graph document.
func Parse(src []byte, filename string) (dsl.Document, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return dsl.Document{}, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var parsed hclGraphFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return dsl.Document{}, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	doc := dsl.Document{Root: domain.NodeID(parsed.Root)}
	for _, n := range parsed.Nodes {
		plan, err := n.plan()
		if err != nil {
			return dsl.Document{}, fmt.Errorf("%s: %w", filename, err)
		}
		doc.Nodes = append(doc.Nodes, plan)
	}
	return doc, nil
}

func (n *hclNode) plan() (dsl.Plan, error) {
	plan := dsl.Plan{
		dsl.KeyID:   n.ID,
		dsl.KeyKind: n.Kind,
	}
	if n.Parent != "" {
		plan[dsl.KeyParent] = n.Parent
	}
	if n.Nodes != nil {
		plan[dsl.KeyNodes] = n.Nodes
	}

	if len(n.Entries) > 0 {
		entries := make(map[string]any, len(n.Entries))
		for _, e := range n.Entries {
			if _, dup := entries[e.Name]; dup {
				return nil, &domain.InvalidGraphError{Node: domain.NodeID(n.ID), Reason: fmt.Sprintf("entry '%s' declared twice", e.Name)}
			}
			entries[e.Name] = target(e.Target, e.EntryPoint)
		}
		plan[dsl.KeyEntryPoints] = entries
	}

	if len(n.Arrows) > 0 {
		arrows := make(map[string]any)
		for _, a := range n.Arrows {
			byName, _ := arrows[a.From].(map[string]any)
			if byName == nil {
				byName = make(map[string]any)
				arrows[a.From] = byName
			}
			if _, dup := byName[a.Name]; dup {
				return nil, &domain.InvalidGraphError{Node: domain.NodeID(n.ID), Reason: fmt.Sprintf("arrow '%s/%s' declared twice", a.From, a.Name)}
			}
			byName[a.Name] = target(a.Target, a.EntryPoint)
		}
		plan[dsl.KeyArrows] = arrows
	}
	return plan, nil
}

func target(id, entryPoint string) map[string]any {
	t := map[string]any{"target": id}
	if entryPoint != "" {
		t["entry_point"] = entryPoint
	}
	return t
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	return file.WatchFile(ctx, l.path)
}
