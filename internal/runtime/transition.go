package runtime

import (
	"github.com/aretw0/hfsm/pkg/domain"
)

// Resolution records how one fired arrow was resolved.
type Resolution struct {
	Arrow      domain.Arrow
	Scope      domain.NodeID
	Target     domain.NodeID
	EntryPoint string
}

// Transition computes the state reached from current when fired arrows fire
// together. Empty arrows are ignored. On error nothing is applied and no
// state is returned; current is never modified.
func Transition(g *domain.Graph, current domain.FSMState, fired []domain.Arrow) (domain.FSMState, error) {
	next, _, err := Resolve(g, current, fired)
	return next, err
}

// Resolve is Transition that also reports the scope each arrow resolved at.
func Resolve(g *domain.Graph, current domain.FSMState, fired []domain.Arrow) (domain.FSMState, []Resolution, error) {
	arrows := make([]domain.Arrow, 0, len(fired))
	for _, a := range fired {
		if !a.Empty() {
			arrows = append(arrows, a)
		}
	}

	ups := make([]upResult, 0, len(arrows))
	for _, a := range arrows {
		up, err := followUp(g, a)
		if err != nil {
			return nil, nil, err
		}
		ups = append(ups, up)
	}

	updates := make([]domain.FSMState, 0, 2*len(ups))
	for _, up := range ups {
		updates = append(updates, up.update)
	}
	for _, up := range ups {
		down, err := followDown(current, g, up.target, up.entryPoint)
		if err != nil {
			return nil, nil, err
		}
		updates = append(updates, down)
	}

	merged, err := Merge(updates...)
	if err != nil {
		return nil, nil, err
	}

	resolutions := make([]Resolution, len(ups))
	for i, up := range ups {
		resolutions[i] = Resolution{
			Arrow:      arrows[i],
			Scope:      up.scope,
			Target:     up.target,
			EntryPoint: up.entryPoint,
		}
	}
	return overlay(current, merged), resolutions, nil
}
