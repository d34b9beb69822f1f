package validator

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/hfsm/pkg/domain"
)

// ValidateGraph checks the structural contract the resolvers rely on:
// parent links, composite child lists, arrow and entry point targets, and
// the entry points those targets must define.
// Every problem found is reported, not just the first one.
func ValidateGraph(g *domain.Graph) error {
	if g == nil {
		return fmt.Errorf("%w: graph is nil", domain.ErrInvalidGraph)
	}

	v := &checker{graph: g, entries: make(map[entryKey]bool)}
	v.checkRoot()
	for _, id := range g.IDs() {
		n, _ := g.Lookup(id)
		v.checkNode(n)
	}

	if len(v.problems) > 0 {
		return fmt.Errorf("%w: found %d problems:\n- %s", domain.ErrInvalidGraph, len(v.problems), strings.Join(v.problems, "\n- "))
	}
	return nil
}

type entryKey struct {
	node domain.NodeID
	name string
}

type checker struct {
	graph    *domain.Graph
	problems []string
	// entries memoizes acceptsEntry.
	entries map[entryKey]bool
}

func (v *checker) addf(id domain.NodeID, format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf("'%s': ", id)+fmt.Sprintf(format, args...))
}

func (v *checker) checkRoot() {
	root, _ := v.graph.Lookup(v.graph.Root())
	if root.Parent() != "" {
		v.addf(root.ID(), "root must not have a parent (has '%s')", root.Parent())
	}
}

func (v *checker) checkNode(n domain.Node) {
	id := n.ID()
	if !id.Valid() {
		v.addf(id, "malformed id")
	}

	if id != v.graph.Root() {
		v.checkParent(n)
	}

	switch node := n.(type) {
	case *domain.GraphNode:
		v.checkGraphNode(node)
	case *domain.Composite:
		v.checkComposite(node)
	}
}

func (v *checker) checkParent(n domain.Node) {
	id := n.ID()
	if n.Parent() == "" {
		v.addf(id, "only the root may omit a parent")
		return
	}

	if derived, ok := id.Parent(); !ok || derived != n.Parent() {
		v.addf(id, "parent '%s' is not the id's prefix", n.Parent())
	}

	parent, ok := v.graph.Lookup(n.Parent())
	if !ok {
		v.addf(id, "parent '%s' not defined", n.Parent())
		return
	}

	switch p := parent.(type) {
	case *domain.Leaf:
		v.addf(id, "parent '%s' is a leaf", p.ID())
	case *domain.Composite:
		if !slices.Contains(p.Children(), id) {
			v.addf(id, "not listed by composite parent '%s'", p.ID())
		}
	}

	// Containment must terminate at the root.
	cur := n
	for steps := 0; cur.Parent() != ""; steps++ {
		if steps > v.graph.Len() {
			v.addf(id, "containment cycle")
			return
		}
		next, ok := v.graph.Lookup(cur.Parent())
		if !ok {
			return
		}
		cur = next
	}
}

func (v *checker) checkComposite(c *domain.Composite) {
	seen := make(map[domain.NodeID]bool)
	for _, child := range c.Children() {
		if seen[child] {
			v.addf(c.ID(), "child '%s' listed twice", child)
			continue
		}
		seen[child] = true

		n, ok := v.graph.Lookup(child)
		if !ok {
			v.addf(c.ID(), "child '%s' not defined", child)
			continue
		}
		if n.Parent() != c.ID() {
			v.addf(c.ID(), "child '%s' records parent '%s'", child, n.Parent())
		}
	}
}

func (v *checker) checkGraphNode(g *domain.GraphNode) {
	children := v.graph.Children(g.ID())
	if len(children) == 0 {
		v.addf(g.ID(), "graph node has no children")
	}

	entryPoints := g.EntryPoints()
	for _, name := range slices.Sorted(maps.Keys(entryPoints)) {
		ep := entryPoints[name]
		if g.IsRecent(ep.Target) {
			for _, child := range children {
				if !v.acceptsEntry(child, ep.EntryPoint) {
					v.addf(g.ID(), "entry point '%s' resumes child '%s' which lacks entry point '%s'", name, child, ep.EntryPoint)
				}
			}
			continue
		}
		if !v.isChild(g, ep.Target) {
			v.addf(g.ID(), "entry point '%s' targets '%s' which is not a child", name, ep.Target)
			continue
		}
		if !v.acceptsEntry(ep.Target, ep.EntryPoint) {
			v.addf(g.ID(), "entry point '%s' enters '%s' through undefined entry point '%s'", name, ep.Target, ep.EntryPoint)
		}
	}

	arrows := g.Arrows()
	for _, src := range slices.Sorted(maps.Keys(arrows)) {
		if !v.isChild(g, src) {
			v.addf(g.ID(), "arrows leave '%s' which is not a child", src)
		}
		byName := arrows[src]
		for _, name := range slices.Sorted(maps.Keys(byName)) {
			t := byName[name]
			if !v.isChild(g, t.Target) {
				v.addf(g.ID(), "arrow '%s/%s' targets '%s' which is not a child", src, name, t.Target)
				continue
			}
			if !v.acceptsEntry(t.Target, t.EntryPoint) {
				v.addf(g.ID(), "arrow '%s/%s' enters '%s' through undefined entry point '%s'", src, name, t.Target, t.EntryPoint)
			}
		}
	}
}

func (v *checker) isChild(g *domain.GraphNode, id domain.NodeID) bool {
	n, ok := v.graph.Lookup(id)
	return ok && n.Parent() == g.ID()
}

// acceptsEntry reports whether entering id through the named entry point can
// succeed: leaves always accept, graphs must define it, composites need every
// region to accept it.
func (v *checker) acceptsEntry(id domain.NodeID, name string) bool {
	key := entryKey{node: id, name: name}
	if ok, done := v.entries[key]; done {
		return ok
	}
	// Seeded before recursing so containment loops terminate.
	v.entries[key] = true

	ok := true
	switch n := v.lookup(id).(type) {
	case nil:
		ok = false
	case *domain.GraphNode:
		_, ok = n.EntryPoint(name)
	case *domain.Composite:
		for _, child := range n.Children() {
			if !v.acceptsEntry(child, name) {
				ok = false
				break
			}
		}
	}
	v.entries[key] = ok
	return ok
}

func (v *checker) lookup(id domain.NodeID) domain.Node {
	n, ok := v.graph.Lookup(id)
	if !ok {
		return nil
	}
	return n
}
