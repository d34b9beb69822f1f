package graph

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/hfsm/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart for g.
// Containers become nested subgraphs and leaves become nodes:
// - Graph node: subgraph with one (( )) marker per entry point
// - Composite: subgraph drawn with a dashed border, laid out left to right
// - Recent-child entry: ((H)) history marker
// - Leaf: [Rectangle]
// It also applies overlay styles (active/changed) if provided.
func GenerateMermaid(g *domain.Graph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	root, _ := g.Lookup(g.Root())
	writeMermaidNode(&sb, g, root, 1)

	// Arrows are drawn after all nodes so subgraph ids are known.
	for _, n := range g.Nodes() {
		gn, ok := n.(*domain.GraphNode)
		if !ok {
			continue
		}
		arrows := gn.Arrows()
		for _, src := range slices.Sorted(maps.Keys(arrows)) {
			byName := arrows[src]
			for _, name := range slices.Sorted(maps.Keys(byName)) {
				t := byName[name]
				label := escapeLabel(name)
				if t.EntryPoint != "" && t.EntryPoint != domain.DefaultEntryPoint {
					label += " @" + escapeLabel(t.EntryPoint)
				}
				fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", sanitizeMermaidID(string(src)), label, sanitizeMermaidID(string(t.Target)))
			}
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef active fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef changed fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		for _, id := range g.IDs() {
			if !overlay.active(g, id) {
				continue
			}
			class := "active"
			if parent, ok := id.Parent(); ok && overlay.Changed[parent] {
				class = "changed"
			}
			fmt.Fprintf(&sb, "    class %s %s;\n", sanitizeMermaidID(string(id)), class)
		}
	}

	return sb.String()
}

func writeMermaidNode(sb *strings.Builder, g *domain.Graph, n domain.Node, depth int) {
	indent := strings.Repeat("    ", depth)
	safeID := sanitizeMermaidID(string(n.ID()))

	if _, isLeaf := n.(*domain.Leaf); isLeaf {
		fmt.Fprintf(sb, "%s%s[\"%s\"]\n", indent, safeID, n.ID().Name())
		return
	}

	fmt.Fprintf(sb, "%ssubgraph %s[\"%s\"]\n", indent, safeID, n.ID().Name())
	switch node := n.(type) {
	case *domain.Composite:
		fmt.Fprintf(sb, "%s    direction LR\n", indent)
	case *domain.GraphNode:
		eps := node.EntryPoints()
		for _, name := range slices.Sorted(maps.Keys(eps)) {
			ep := eps[name]
			marker := safeID + "__ep__" + sanitizeMermaidID(name)
			fmt.Fprintf(sb, "%s    %s((\" \"))\n", indent, marker)

			target := sanitizeMermaidID(string(ep.Target))
			if node.IsRecent(ep.Target) {
				target = safeID + "__recent"
				fmt.Fprintf(sb, "%s    %s((\"H\"))\n", indent, target)
			}
			fmt.Fprintf(sb, "%s    %s -. \"%s\" .-> %s\n", indent, marker, escapeLabel(name), target)
		}
	}

	for _, child := range children(g, n) {
		if c, ok := g.Lookup(child); ok {
			writeMermaidNode(sb, g, c, depth+1)
		}
	}
	fmt.Fprintf(sb, "%send\n", indent)

	if _, isComposite := n.(*domain.Composite); isComposite {
		fmt.Fprintf(sb, "%sstyle %s stroke-dasharray: 5 5\n", indent, safeID)
	}
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, domain.Separator, "__")
	s = strings.ReplaceAll(s, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
