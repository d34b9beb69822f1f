package hfsm

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/hfsm/internal/logging"
	"github.com/aretw0/hfsm/internal/runtime"
	"github.com/aretw0/hfsm/pkg/domain"
	"github.com/aretw0/hfsm/pkg/ports"
)

// Engine is the high-level entry point for the hfsm library.
// It holds a loaded graph and resolves transitions against it; machine state
// is always passed in and returned, never kept.
type Engine struct {
	graph      *domain.Graph
	loader     ports.GraphLoader
	entryPoint string
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	now        func() time.Time
	Name       string
}

var _ ports.Engine = (*Engine)(nil)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
// Calling it more than once chains the hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLoader injects a custom GraphLoader, bypassing source detection.
func WithLoader(l ports.GraphLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithEntryPoint configures the entry point Initial enters the root through
// (default: "default").
func WithEntryPoint(name string) Option {
	return func(e *Engine) {
		e.entryPoint = name
	}
}

// New loads a graph and returns an engine for it.
// source is a YAML/JSON file, an HCL file or a Loam directory; see OpenLoader.
// If WithLoader is given, source only names the engine and may be empty.
func New(ctx context.Context, source string, opts ...Option) (*Engine, error) {
	eng := &Engine{
		entryPoint: domain.DefaultEntryPoint,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(eng)
	}

	if eng.loader == nil {
		if source == "" {
			return nil, fmt.Errorf("source is required when no custom loader is provided")
		}
		loader, err := OpenLoader(source)
		if err != nil {
			return nil, err
		}
		eng.loader = loader
	}
	if source != "" {
		eng.Name = filepath.Base(source)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("graph", eng.Name)
	}

	g, err := eng.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}
	eng.graph = g
	eng.logger.Debug("graph loaded", "root", g.Root(), "nodes", g.Len())

	return eng, nil
}

// FromGraph wraps an already built graph.
func FromGraph(g *domain.Graph, opts ...Option) (*Engine, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: graph is nil", domain.ErrInvalidGraph)
	}
	return New(context.Background(), "", append([]Option{WithLoader(staticLoader{g})}, opts...)...)
}

type staticLoader struct{ g *domain.Graph }

func (s staticLoader) Load(context.Context) (*domain.Graph, error) { return s.g, nil }

// Graph returns the graph the engine resolves against.
func (e *Engine) Graph() *domain.Graph {
	return e.graph
}

// Loader returns the underlying GraphLoader used by the engine.
func (e *Engine) Loader() ports.GraphLoader {
	return e.loader
}

// EntryPoint returns the entry point used by Initial.
func (e *Engine) EntryPoint() string {
	return e.entryPoint
}

// Initial returns the seeded state of a new machine.
func (e *Engine) Initial(ctx context.Context) (domain.FSMState, error) {
	state, err := runtime.Initialize(e.graph, e.entryPoint)
	if err != nil {
		e.logger.Warn("initialization failed", "entry_point", e.entryPoint, "error", err)
		return nil, err
	}
	return state, nil
}

// Result is the outcome of Step.
type Result struct {
	State       domain.FSMState
	Diff        domain.StateDiff
	Resolutions []Resolution
}

// Resolution records the scope a fired arrow was found at.
type Resolution = runtime.Resolution

// Transition computes the state reached when arrows fire together from state.
func (e *Engine) Transition(ctx context.Context, state domain.FSMState, arrows ...domain.Arrow) (domain.FSMState, error) {
	res, err := e.Step(ctx, state, arrows...)
	if err != nil {
		return nil, err
	}
	return res.State, nil
}

// Step is Transition with the diff and per-arrow resolutions.
// Lifecycle hooks fire here; the machine id comes from the context
// (see domain.ContextWithMachineID).
func (e *Engine) Step(ctx context.Context, state domain.FSMState, arrows ...domain.Arrow) (*Result, error) {
	start := e.now()
	machineID := domain.MachineIDFromContext(ctx)
	logger := e.logger
	if machineID != "" {
		logger = logger.With("machine_id", machineID)
	}

	next, resolutions, err := runtime.Resolve(e.graph, state, arrows)
	if err != nil {
		logger.Warn("transition failed", "arrows", len(arrows), "error", err)
		if e.hooks.OnError != nil {
			e.hooks.OnError(ctx, &domain.ErrorEvent{
				EventBase: e.event(domain.EventTransitionError, machineID),
				Arrows:    arrows,
				Err:       err,
			})
		}
		return nil, err
	}

	for _, r := range resolutions {
		logger.Debug("arrow resolved", "arrow", r.Arrow.String(), "scope", r.Scope, "target", r.Target)
		if e.hooks.OnArrowResolved != nil {
			e.hooks.OnArrowResolved(ctx, &domain.ArrowEvent{
				EventBase:  e.event(domain.EventArrowResolved, machineID),
				Arrow:      r.Arrow,
				Scope:      r.Scope,
				Target:     r.Target,
				EntryPoint: r.EntryPoint,
			})
		}
	}

	diff := domain.Diff(state, next)
	logger.Debug("transition applied", "arrows", len(resolutions), "changed", len(diff.Changed)+len(diff.Added))
	if e.hooks.OnTransition != nil {
		e.hooks.OnTransition(ctx, &domain.TransitionEvent{
			EventBase: e.event(domain.EventTransition, machineID),
			Arrows:    arrows,
			Diff:      diff,
			Duration:  e.now().Sub(start),
		})
	}

	return &Result{State: next, Diff: diff, Resolutions: resolutions}, nil
}

func (e *Engine) event(t domain.EventType, machineID string) domain.EventBase {
	return domain.EventBase{Timestamp: e.now(), Type: t, MachineID: machineID}
}

// Transition resolves fired arrows against g without an Engine.
func Transition(g *domain.Graph, current domain.FSMState, fired ...domain.Arrow) (domain.FSMState, error) {
	return runtime.Transition(g, current, fired)
}

// Merge combines partial state updates, failing on conflicting writes.
func Merge(updates ...domain.FSMState) (domain.FSMState, error) {
	return runtime.Merge(updates...)
}

// Initialize builds the first state of a machine entered through entryPoint.
func Initialize(g *domain.Graph, entryPoint string) (domain.FSMState, error) {
	return runtime.Initialize(g, entryPoint)
}
