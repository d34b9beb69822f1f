package graph

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/awalterschulze/gographviz"

	"github.com/aretw0/hfsm/pkg/domain"
)

const dotGraphName = "hfsm"

// GenerateDOT renders g as a Graphviz digraph. Containers become clusters
// holding a point-shaped anchor so arrows can target them (lhead).
func GenerateDOT(g *domain.Graph, overlay *Overlay) (string, error) {
	out := gographviz.NewGraph()
	if err := out.SetName(dotGraphName); err != nil {
		return "", err
	}
	if err := out.SetDir(true); err != nil {
		return "", err
	}
	for field, value := range map[string]string{"compound": "true", "rankdir": "TB"} {
		if err := out.AddAttr(dotGraphName, field, value); err != nil {
			return "", err
		}
	}

	d := &dotWriter{out: out, g: g, overlay: overlay}
	root, _ := g.Lookup(g.Root())
	if err := d.node(dotGraphName, root); err != nil {
		return "", err
	}
	if err := d.arrows(); err != nil {
		return "", err
	}
	return out.String(), nil
}

type dotWriter struct {
	out     *gographviz.Graph
	g       *domain.Graph
	overlay *Overlay
}

func (d *dotWriter) node(parent string, n domain.Node) error {
	id := n.ID()
	attrs := map[string]string{"label": strconv.Quote(id.Name())}
	if d.overlay.active(d.g, id) {
		attrs["style"] = `"filled"`
		attrs["fillcolor"] = `"#e1f5fe"`
		if p, ok := id.Parent(); ok && d.overlay.Changed[p] {
			attrs["fillcolor"] = `"#ffeb3b"`
		}
	}

	if _, isLeaf := n.(*domain.Leaf); isLeaf {
		attrs["shape"] = "box"
		return d.out.AddNode(parent, dotID(id), attrs)
	}

	cluster := clusterName(id)
	if _, isComposite := n.(*domain.Composite); isComposite {
		if s, ok := attrs["style"]; ok {
			attrs["style"] = strconv.Quote("dashed," + strings.Trim(s, `"`))
		} else {
			attrs["style"] = `"dashed"`
		}
	}
	if err := d.out.AddSubGraph(parent, cluster, attrs); err != nil {
		return err
	}
	if err := d.out.AddNode(cluster, dotID(id), map[string]string{"shape": "point", "style": "invis"}); err != nil {
		return err
	}

	if gn, ok := n.(*domain.GraphNode); ok {
		if err := d.entryPoints(cluster, gn); err != nil {
			return err
		}
	}
	for _, child := range children(d.g, n) {
		c, ok := d.g.Lookup(child)
		if !ok {
			continue
		}
		if err := d.node(cluster, c); err != nil {
			return err
		}
	}
	return nil
}

func (d *dotWriter) entryPoints(cluster string, gn *domain.GraphNode) error {
	eps := gn.EntryPoints()
	for _, name := range slices.Sorted(maps.Keys(eps)) {
		ep := eps[name]
		marker := strconv.Quote(fmt.Sprintf("%s>%s", gn.ID(), name))
		if err := d.out.AddNode(cluster, marker, map[string]string{"shape": "circle", "label": `""`, "width": "0.15"}); err != nil {
			return err
		}

		target := ep.Target
		if gn.IsRecent(target) {
			if err := d.out.AddNode(cluster, dotID(target), map[string]string{"shape": "circle", "label": `"H"`}); err != nil {
				return err
			}
		}
		attrs := map[string]string{"label": strconv.Quote(name), "style": "dashed"}
		if d.container(target) {
			attrs["lhead"] = clusterName(target)
		}
		if err := d.out.AddEdge(marker, dotID(target), true, attrs); err != nil {
			return err
		}
	}
	return nil
}

func (d *dotWriter) arrows() error {
	for _, n := range d.g.Nodes() {
		gn, ok := n.(*domain.GraphNode)
		if !ok {
			continue
		}
		arrows := gn.Arrows()
		for _, src := range slices.Sorted(maps.Keys(arrows)) {
			byName := arrows[src]
			for _, name := range slices.Sorted(maps.Keys(byName)) {
				t := byName[name]
				attrs := map[string]string{"label": strconv.Quote(name)}
				if d.container(src) {
					attrs["ltail"] = clusterName(src)
				}
				if d.container(t.Target) {
					attrs["lhead"] = clusterName(t.Target)
				}
				if err := d.out.AddEdge(dotID(src), dotID(t.Target), true, attrs); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (d *dotWriter) container(id domain.NodeID) bool {
	n, ok := d.g.Lookup(id)
	if !ok {
		return false
	}
	_, isLeaf := n.(*domain.Leaf)
	return !isLeaf
}

// dotID quotes the id: a bare ':' would read as a port.
func dotID(id domain.NodeID) string {
	return strconv.Quote(string(id))
}

func clusterName(id domain.NodeID) string {
	return "cluster_" + sanitizeMermaidID(string(id))
}
