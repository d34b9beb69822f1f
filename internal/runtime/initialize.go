package runtime

import (
	"github.com/aretw0/hfsm/pkg/domain"
)

// Initialize builds the first state of a machine: the root is entered through
// entryPoint, then every graph node left unassigned that defines the same
// entry point gets that entry point's child, so a later recent-child resume
// into an inactive subtree has something to resume.
func Initialize(g *domain.Graph, entryPoint string) (domain.FSMState, error) {
	seeded, err := followDown(domain.FSMState{}, g, g.Root(), entryPoint)
	if err != nil {
		return nil, err
	}

	for _, n := range g.Nodes() {
		gn, ok := n.(*domain.GraphNode)
		if !ok {
			continue
		}
		if _, done := seeded[gn.ID()]; done {
			continue
		}
		ep, ok := gn.EntryPoint(entryPoint)
		if !ok || gn.IsRecent(ep.Target) {
			continue
		}
		seeded[gn.ID()] = ep.Target
	}
	return seeded, nil
}
