package runtime

import (
	"fmt"

	"github.com/aretw0/hfsm/pkg/domain"
)

// upResult is the outcome of looking a fired arrow up through its scopes.
type upResult struct {
	update     domain.FSMState
	scope      domain.NodeID
	target     domain.NodeID
	entryPoint string
}

// followUp tries each step of arrow in order. A step resolves when the
// parent of its source is a graph node defining the named arrow from that
// source; the parent is then the scope and the only key updated.
func followUp(g *domain.Graph, arrow domain.Arrow) (upResult, error) {
	for _, step := range arrow {
		src, err := g.Node(step.Source)
		if err != nil {
			return upResult{}, err
		}
		parentID := src.Parent()
		if parentID == "" {
			// The root is not a child of anything, so no scope can define arrows from it.
			continue
		}
		parent, err := g.Node(parentID)
		if err != nil {
			return upResult{}, err
		}
		scope, ok := parent.(*domain.GraphNode)
		if !ok {
			continue
		}
		target, ok := scope.Arrow(step.Source, step.Name)
		if !ok {
			continue
		}
		return upResult{
			update:     domain.FSMState{parentID: target.Target},
			scope:      parentID,
			target:     target.Target,
			entryPoint: target.EntryPoint,
		}, nil
	}
	return upResult{}, &domain.NoArrowFoundError{Arrow: arrow}
}

// followDown expands entering target through entryPoint into the state
// updates it implies. state is only read, for recent-child resumes.
func followDown(state domain.FSMState, g *domain.Graph, target domain.NodeID, entryPoint string) (domain.FSMState, error) {
	return descend(state, g, target, entryPoint, 0)
}

func descend(state domain.FSMState, g *domain.Graph, target domain.NodeID, entryPoint string, depth int) (domain.FSMState, error) {
	if depth > g.Len() {
		return nil, &domain.InvalidGraphError{Node: target, Reason: "entry point chain does not terminate"}
	}

	n, err := g.Node(target)
	if err != nil {
		return nil, err
	}

	switch node := n.(type) {
	case *domain.Leaf:
		return domain.FSMState{}, nil

	case *domain.GraphNode:
		ep, ok := node.EntryPoint(entryPoint)
		if !ok {
			return nil, &domain.InvalidGraphError{Node: target, Reason: fmt.Sprintf("entry point %q not defined", entryPoint)}
		}
		child := ep.Target
		if node.IsRecent(child) {
			recent, ok := state[target]
			if !ok {
				return nil, &domain.InvalidGraphError{Node: target, Reason: "no recent child to resume"}
			}
			child = recent
		}
		below, err := descend(state, g, child, ep.EntryPoint, depth+1)
		if err != nil {
			return nil, err
		}
		return Merge(domain.FSMState{target: child}, below)

	case *domain.Composite:
		children := node.Children()
		updates := make([]domain.FSMState, 0, len(children))
		for _, c := range children {
			u, err := descend(state, g, c, entryPoint, depth+1)
			if err != nil {
				return nil, err
			}
			updates = append(updates, u)
		}
		return Merge(updates...)
	}

	return nil, &domain.InvalidGraphError{Node: target, Reason: "unknown node kind"}
}
