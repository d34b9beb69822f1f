package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventArrowResolved   EventType = "arrow_resolved"
	EventTransition      EventType = "transition"
	EventTransitionError EventType = "transition_error"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	MachineID string    `json:"machine_id,omitempty"`
}

// ArrowEvent reports the scope at which a fired arrow was found.
type ArrowEvent struct {
	EventBase
	Arrow      Arrow  `json:"arrow"`
	Scope      NodeID `json:"scope"`
	Target     NodeID `json:"target"`
	EntryPoint string `json:"entry_point"`
}

// TransitionEvent reports a completed transition.
type TransitionEvent struct {
	EventBase
	Arrows   []Arrow       `json:"arrows"`
	Diff     StateDiff     `json:"diff"`
	Duration time.Duration `json:"duration"`
}

// ErrorEvent reports a transition that was aborted.
type ErrorEvent struct {
	EventBase
	Arrows []Arrow `json:"arrows"`
	Err    error   `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Any of them may be nil.
type LifecycleHooks struct {
	OnArrowResolved func(context.Context, *ArrowEvent)
	OnTransition    func(context.Context, *TransitionEvent)
	OnError         func(context.Context, *ErrorEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnArrowResolved: chain(h.OnArrowResolved, other.OnArrowResolved),
		OnTransition:    chain(h.OnTransition, other.OnTransition),
		OnError:         chain(h.OnError, other.OnError),
	}
}

func chain[E any](a, b func(context.Context, *E)) func(context.Context, *E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *E) {
		a(ctx, e)
		b(ctx, e)
	}
}

type machineIDKey struct{}

// ContextWithMachineID tags ctx with the machine a transition belongs to.
// The engine copies it into the events it emits.
func ContextWithMachineID(ctx context.Context, machineID string) context.Context {
	return context.WithValue(ctx, machineIDKey{}, machineID)
}

// MachineIDFromContext returns the machine id set by ContextWithMachineID.
func MachineIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(machineIDKey{}).(string)
	return id
}
