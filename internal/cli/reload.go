package cli

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/aretw0/hfsm"
	"github.com/aretw0/hfsm/internal/logging"
	"github.com/aretw0/hfsm/pkg/domain"
	"github.com/aretw0/hfsm/pkg/ports"
)

// Reloader is a ports.Engine that swaps in a freshly opened engine whenever
// the graph source changes. Calls in flight finish on the engine they started with.
type Reloader struct {
	open    func(context.Context) (*hfsm.Engine, error)
	logger  *slog.Logger
	current atomic.Pointer[hfsm.Engine]
}

var _ ports.Engine = (*Reloader)(nil)

// NewReloader opens the first engine.
func NewReloader(ctx context.Context, open func(context.Context) (*hfsm.Engine, error), logger *slog.Logger) (*Reloader, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Reloader{open: open, logger: logger}
	if err := r.Reload(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Engine returns the engine currently in use.
func (r *Reloader) Engine() *hfsm.Engine {
	return r.current.Load()
}

// Reload opens a new engine. On failure the previous one stays in use.
func (r *Reloader) Reload(ctx context.Context) error {
	engine, err := r.open(ctx)
	if err != nil {
		return err
	}
	r.current.Store(engine)
	return nil
}

// Run reloads on every change until ctx is done or changes is closed.
func (r *Reloader) Run(ctx context.Context, changes <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-changes:
			if !ok {
				return
			}
			if err := r.Reload(ctx); err != nil {
				r.logger.Error("Graph reload failed, keeping the previous graph", "changed", id, "err", err)
				continue
			}
			r.logger.Info("Graph reloaded", "changed", id, "nodes", r.Graph().Len())
		}
	}
}

// Initial implements ports.Engine.
func (r *Reloader) Initial(ctx context.Context) (domain.FSMState, error) {
	return r.Engine().Initial(ctx)
}

// Transition implements ports.Engine.
func (r *Reloader) Transition(ctx context.Context, state domain.FSMState, arrows ...domain.Arrow) (domain.FSMState, error) {
	return r.Engine().Transition(ctx, state, arrows...)
}

// Graph implements ports.Engine.
func (r *Reloader) Graph() *domain.Graph {
	return r.Engine().Graph()
}
