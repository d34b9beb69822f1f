package runtime

import "github.com/aretw0/hfsm/pkg/domain"

// Merge folds partial state updates left to right into a new state.
// Keys written by several updates must agree; a disagreement means two
// branches claim the same exclusive-choice node and fails with *domain.ConflictError.
func Merge(updates ...domain.FSMState) (domain.FSMState, error) {
	size := 0
	for _, u := range updates {
		size += len(u)
	}
	merged := make(domain.FSMState, size)
	for _, u := range updates {
		// Iterate in key order so the reported conflict is deterministic.
		for _, k := range u.Keys() {
			v := u[k]
			if existing, ok := merged[k]; ok && existing != v {
				return nil, &domain.ConflictError{Key: k, Existing: existing, Incoming: v}
			}
			merged[k] = v
		}
	}
	return merged, nil
}

// overlay returns a copy of base with every key of update written over it.
func overlay(base, update domain.FSMState) domain.FSMState {
	out := base.Clone()
	for k, v := range update {
		out[k] = v
	}
	return out
}
