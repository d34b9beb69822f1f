package dsl

import (
	"fmt"

	"github.com/aretw0/hfsm/pkg/domain"
)

// NodesFunc produces the children of a composite. It is evaluated when the
// graph is built, so it may refer to nodes declared later.
type NodesFunc func() []domain.NodeID

// EmptyNodes is the child list of a composite that declares none.
func EmptyNodes() []domain.NodeID { return nil }

// ArrowSpec is one arrow declared on a graph node.
type ArrowSpec struct {
	From domain.NodeID
	Name string
	domain.ArrowTarget
}

// NodeSpec is the mutable description of a node before it is compiled.
// Plan handlers and node builders both write into it.
type NodeSpec struct {
	ID   domain.NodeID
	Kind domain.NodeKind
	// Parent is optional. When set it must equal the id's prefix.
	Parent      domain.NodeID
	EntryPoints map[string]domain.ArrowTarget
	Arrows      []ArrowSpec
	Nodes       NodesFunc
}

// compile turns the spec into a domain node. root marks the graph root,
// whose parent is always empty.
func (s NodeSpec) compile(root domain.NodeID) (domain.Node, error) {
	invalid := func(reason string) error {
		return &domain.InvalidGraphError{Node: s.ID, Reason: reason}
	}

	parent, _ := s.ID.Parent()
	switch {
	case s.ID == root:
		parent = ""
	case s.Parent != "" && s.Parent != parent:
		return nil, invalid(fmt.Sprintf("declared parent '%s' is not the id's prefix '%s'", s.Parent, parent))
	}

	var children []domain.NodeID
	if s.Nodes != nil {
		children = s.Nodes()
	}

	switch s.Kind {
	case domain.KindLeaf:
		if len(s.EntryPoints) > 0 || len(s.Arrows) > 0 || len(children) > 0 {
			return nil, invalid("a leaf declares no entry points, arrows or nodes")
		}
		return domain.NewLeaf(s.ID, parent), nil

	case domain.KindGraph:
		if len(children) > 0 {
			return nil, invalid("a graph node takes its children from their ids, not a node list")
		}
		arrows := make(map[domain.NodeID]map[string]domain.ArrowTarget)
		for _, a := range s.Arrows {
			if arrows[a.From] == nil {
				arrows[a.From] = make(map[string]domain.ArrowTarget)
			}
			if _, dup := arrows[a.From][a.Name]; dup {
				return nil, invalid(fmt.Sprintf("arrow '%s/%s' declared twice", a.From, a.Name))
			}
			arrows[a.From][a.Name] = a.ArrowTarget
		}
		return domain.NewGraphNode(s.ID, parent, arrows, s.EntryPoints), nil

	case domain.KindComposite:
		if len(s.EntryPoints) > 0 || len(s.Arrows) > 0 {
			return nil, invalid("a composite passes entry points through and declares none")
		}
		return domain.NewComposite(s.ID, parent, children), nil

	default:
		return nil, invalid(fmt.Sprintf("unknown kind '%s'", s.Kind))
	}
}
