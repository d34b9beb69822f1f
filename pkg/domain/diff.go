package domain

// Change records the old and new active child of one graph node.
type Change struct {
	From NodeID `json:"from"`
	To   NodeID `json:"to"`
}

// StateDiff represents the changes between two states.
// It is designed to be serialized to JSON for partial updates on the client.
type StateDiff struct {
	// Changed holds keys present in both states with different children.
	Changed map[NodeID]Change `json:"changed,omitempty"`

	// Added holds keys that only exist in the new state.
	Added map[NodeID]NodeID `json:"added,omitempty"`

	// Removed lists keys that only exist in the old state.
	// Transitions never drop keys, so this is only set for states produced elsewhere.
	Removed []NodeID `json:"removed,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// A nil oldState yields every key of newState as Added (initial load).
func Diff(oldState, newState FSMState) StateDiff {
	var diff StateDiff

	for _, k := range newState.Keys() {
		newVal := newState[k]
		oldVal, exists := oldState[k]
		switch {
		case !exists:
			if diff.Added == nil {
				diff.Added = make(map[NodeID]NodeID)
			}
			diff.Added[k] = newVal
		case oldVal != newVal:
			if diff.Changed == nil {
				diff.Changed = make(map[NodeID]Change)
			}
			diff.Changed[k] = Change{From: oldVal, To: newVal}
		}
	}

	for _, k := range oldState.Keys() {
		if _, exists := newState[k]; !exists {
			diff.Removed = append(diff.Removed, k)
		}
	}

	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d StateDiff) IsEmpty() bool {
	return len(d.Changed) == 0 && len(d.Added) == 0 && len(d.Removed) == 0
}
