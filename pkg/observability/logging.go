package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/hfsm/pkg/domain"
)

// LogHooks returns lifecycle hooks that write one structured record per event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnArrowResolved: func(ctx context.Context, e *domain.ArrowEvent) {
			logger.InfoContext(ctx, "arrow_resolved",
				"machine_id", e.MachineID,
				"arrow", e.Arrow.String(),
				"scope", e.Scope,
				"target", e.Target,
				"entry_point", e.EntryPoint,
			)
		},
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.InfoContext(ctx, "transition",
				"machine_id", e.MachineID,
				"arrows", len(e.Arrows),
				"changed", len(e.Diff.Changed),
				"added", len(e.Diff.Added),
				"duration", e.Duration,
			)
		},
		OnError: func(ctx context.Context, e *domain.ErrorEvent) {
			logger.WarnContext(ctx, "transition_error",
				"machine_id", e.MachineID,
				"kind", ErrorKind(e.Err),
				"err", e.Err,
			)
		},
	}
}
