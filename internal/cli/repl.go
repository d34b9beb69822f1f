package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/hfsm"
	"github.com/aretw0/hfsm/internal/logging"
	"github.com/aretw0/hfsm/internal/presentation/tui"
	"github.com/aretw0/hfsm/pkg/domain"
	"github.com/aretw0/hfsm/pkg/ports"
	"github.com/aretw0/hfsm/pkg/session"
)

// REPL drives one stored machine from lines of input. Each line fires the
// arrows it lists (";" between arrows, "," between steps of one arrow).
type REPL struct {
	In        io.Reader
	Out       io.Writer
	Renderer  *tui.Renderer
	Logger    *slog.Logger
	MachineID string
	Store     ports.StateStore

	// Open loads the engine; it is called again after every graph change
	// when Watch is set.
	Open  func(ctx context.Context) (*hfsm.Engine, error)
	Watch bool
}

const replHelp = `Commands:
  <source>/<name>[,<source>/<name>...][; ...]  fire arrows
  state    print the active configuration
  reset    restart the machine from the initial state
  help     show this message
  quit     leave`

// Run loops until input ends, "quit" is read or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	if r.Logger == nil {
		r.Logger = logging.NewNop()
	}
	if r.Renderer == nil {
		r.Renderer = tui.NewPlainRenderer()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.In)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		reload, err := r.iteration(ctx, lines)
		if err != nil || !reload {
			return err
		}
		r.Logger.Info("Graph changed, reloading", "machine_id", r.MachineID)
	}
}

// iteration runs against one loaded engine and reports whether a reload was requested.
func (r *REPL) iteration(ctx context.Context, lines <-chan string) (bool, error) {
	iterCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	engine, err := r.Open(iterCtx)
	if err != nil {
		if !r.Watch {
			return false, err
		}
		fmt.Fprintf(r.Out, ">>> %v\n>>> Waiting for changes...\n", err)
		select {
		case <-ctx.Done():
			return false, nil
		case <-time.After(2 * time.Second):
			return true, nil
		}
	}

	var changes <-chan string
	if r.Watch {
		if w, ok := engine.Loader().(ports.Watchable); ok {
			if changes, err = w.Watch(iterCtx); err != nil {
				r.Logger.Warn("Watch unavailable", "err", err)
			}
		} else {
			r.Logger.Warn("Graph source cannot be watched", "graph", engine.Name)
		}
	}

	manager := session.NewManager(engine, r.Store, session.WithLogger(r.Logger))
	state, err := r.start(iterCtx, manager, engine)
	if err != nil {
		return false, err
	}
	fmt.Fprint(r.Out, r.Renderer.State(engine.Graph(), state, nil))

	for {
		fmt.Fprint(r.Out, "> ")
		select {
		case <-ctx.Done():
			return false, nil
		case event, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			fmt.Fprintf(r.Out, "\n>>> Change detected in '%s'.\n", event)
			return true, nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(r.Out)
				return false, nil
			}
			stop, err := r.handle(iterCtx, manager, engine, strings.TrimSpace(line))
			if err != nil {
				return false, err
			}
			if stop {
				return false, nil
			}
		}
	}
}

// start loads the machine, restarting it when the stored state no longer
// fits the graph (a reload removed its nodes).
func (r *REPL) start(ctx context.Context, m *session.Manager, engine *hfsm.Engine) (domain.FSMState, error) {
	state, err := m.LoadOrStart(ctx, r.MachineID)
	if err != nil {
		return nil, err
	}
	for _, key := range state.Keys() {
		missing := key
		if _, ok := engine.Graph().Lookup(key); ok {
			if _, ok := engine.Graph().Lookup(state[key]); ok {
				continue
			}
			missing = state[key]
		}
		r.Logger.Warn("Stored state does not match graph, restarting machine", "machine_id", r.MachineID, "missing", missing)
		fmt.Fprintf(r.Out, ">>> Machine '%s' restarted: '%s' is no longer in the graph.\n", r.MachineID, missing)
		if err := m.Delete(ctx, r.MachineID); err != nil {
			return nil, err
		}
		return m.LoadOrStart(ctx, r.MachineID)
	}
	return state, nil
}

func (r *REPL) handle(ctx context.Context, m *session.Manager, engine *hfsm.Engine, line string) (bool, error) {
	switch line {
	case "":
		return false, nil
	case "quit", "exit":
		fmt.Fprintln(r.Out, "Bye!")
		return true, nil
	case "help":
		fmt.Fprintln(r.Out, replHelp)
		return false, nil
	case "state":
		state, err := m.Load(ctx, r.MachineID)
		if err != nil {
			return false, err
		}
		fmt.Fprint(r.Out, r.Renderer.State(engine.Graph(), state, nil))
		return false, nil
	case "reset":
		if err := m.Delete(ctx, r.MachineID); err != nil {
			return false, err
		}
		state, err := m.LoadOrStart(ctx, r.MachineID)
		if err != nil {
			return false, err
		}
		fmt.Fprint(r.Out, r.Renderer.State(engine.Graph(), state, nil))
		return false, nil
	}

	arrows, err := domain.ParseArrows(strings.Split(line, ";")...)
	if err != nil {
		fmt.Fprintf(r.Out, "error: %v\n", err)
		return false, nil
	}
	out, err := m.Fire(ctx, r.MachineID, arrows...)
	if err != nil {
		// Rejected transitions leave the machine as it was; keep going.
		if errors.Is(err, domain.ErrNoArrowFound) || errors.Is(err, domain.ErrConflictingStateUpdate) || errors.Is(err, domain.ErrInvalidGraph) {
			fmt.Fprintf(r.Out, "error: %v\n", err)
			return false, nil
		}
		return false, err
	}
	fmt.Fprint(r.Out, r.Renderer.Diff(out.Diff))
	fmt.Fprint(r.Out, r.Renderer.State(engine.Graph(), out.State, &out.Diff))
	return false, nil
}
