package domain

// NodeKind tells the resolvers how to enter a node.
type NodeKind string

const (
	// KindLeaf has no children; entering it ends resolution.
	KindLeaf NodeKind = "leaf"
	// KindGraph is an exclusive-choice container: one child is active at a time.
	KindGraph NodeKind = "graph"
	// KindComposite is a parallel container: all children are active.
	KindComposite NodeKind = "composite"
)

// DefaultEntryPoint is the entry point used to seed a fresh machine.
const DefaultEntryPoint = "default"

// Node is one of *Leaf, *GraphNode or *Composite.
type Node interface {
	ID() NodeID
	// Parent is empty for the root.
	Parent() NodeID
	Kind() NodeKind

	node()
}

// ArrowTarget describes where an arrow or entry point leads and which entry
// point of the target to use.
type ArrowTarget struct {
	Target     NodeID `json:"target" yaml:"target" mapstructure:"target"`
	EntryPoint string `json:"entry_point,omitempty" yaml:"entry_point,omitempty" mapstructure:"entry_point"`
}

type nodeBase struct {
	id     NodeID
	parent NodeID
}

func (n nodeBase) ID() NodeID     { return n.id }
func (n nodeBase) Parent() NodeID { return n.parent }
func (nodeBase) node()            {}

// Leaf is a node without children.
type Leaf struct {
	nodeBase
}

// NewLeaf creates a leaf node.
func NewLeaf(id, parent NodeID) *Leaf {
	return &Leaf{nodeBase{id: id, parent: parent}}
}

// Kind implements Node.
func (*Leaf) Kind() NodeKind { return KindLeaf }

// GraphNode is an exclusive-choice container.
// Arrows are keyed by source child and arrow name; entry points by name.
type GraphNode struct {
	nodeBase
	arrows      map[NodeID]map[string]ArrowTarget
	entryPoints map[string]ArrowTarget
}

// NewGraphNode creates a graph node. The maps are copied.
func NewGraphNode(id, parent NodeID, arrows map[NodeID]map[string]ArrowTarget, entryPoints map[string]ArrowTarget) *GraphNode {
	g := &GraphNode{
		nodeBase:    nodeBase{id: id, parent: parent},
		arrows:      make(map[NodeID]map[string]ArrowTarget, len(arrows)),
		entryPoints: make(map[string]ArrowTarget, len(entryPoints)),
	}
	for src, byName := range arrows {
		inner := make(map[string]ArrowTarget, len(byName))
		for name, t := range byName {
			inner[name] = t
		}
		g.arrows[src] = inner
	}
	for name, t := range entryPoints {
		g.entryPoints[name] = t
	}
	return g
}

// Kind implements Node.
func (*GraphNode) Kind() NodeKind { return KindGraph }

// Arrow returns the arrow named name leaving the child source.
func (g *GraphNode) Arrow(source NodeID, name string) (ArrowTarget, bool) {
	t, ok := g.arrows[source][name]
	return t, ok
}

// EntryPoint returns the entry point called name.
func (g *GraphNode) EntryPoint(name string) (ArrowTarget, bool) {
	t, ok := g.entryPoints[name]
	return t, ok
}

// IsRecent reports whether target is this node's recent-child sentinel.
func (g *GraphNode) IsRecent(target NodeID) bool {
	return target == g.id.Recent()
}

// Arrows returns a copy of the arrow table.
func (g *GraphNode) Arrows() map[NodeID]map[string]ArrowTarget {
	out := make(map[NodeID]map[string]ArrowTarget, len(g.arrows))
	for src, byName := range g.arrows {
		inner := make(map[string]ArrowTarget, len(byName))
		for name, t := range byName {
			inner[name] = t
		}
		out[src] = inner
	}
	return out
}

// EntryPoints returns a copy of the entry point table.
func (g *GraphNode) EntryPoints() map[string]ArrowTarget {
	out := make(map[string]ArrowTarget, len(g.entryPoints))
	for name, t := range g.entryPoints {
		out[name] = t
	}
	return out
}

// Composite is a parallel container (orthogonal regions).
type Composite struct {
	nodeBase
	children []NodeID
}

// NewComposite creates a composite node. The child list is copied.
func NewComposite(id, parent NodeID, children []NodeID) *Composite {
	return &Composite{
		nodeBase: nodeBase{id: id, parent: parent},
		children: append([]NodeID(nil), children...),
	}
}

// Kind implements Node.
func (*Composite) Kind() NodeKind { return KindComposite }

// Children returns the regions in declaration order.
func (c *Composite) Children() []NodeID {
	return append([]NodeID(nil), c.children...)
}
