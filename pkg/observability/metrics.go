package observability

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/hfsm/pkg/domain"
)

// Metrics records engine activity as Prometheus collectors.
type Metrics struct {
	Transitions   *prometheus.CounterVec
	ArrowsByScope *prometheus.CounterVec
	Duration      prometheus.Histogram
	ChangedNodes  prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg skips registration.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hfsm_transitions_total",
				Help: "Transitions by result (ok, no_arrow, conflict, invalid_graph, not_found, error).",
			},
			[]string{"result"},
		),
		ArrowsByScope: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hfsm_arrows_resolved_total",
				Help: "Fired arrows by the graph node that defined them.",
			},
			[]string{"scope"},
		),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hfsm_transition_duration_seconds",
			Help:    "Time spent resolving a transition.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		ChangedNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hfsm_transition_changed_nodes",
			Help:    "State keys changed or added by a transition.",
			Buckets: prometheus.LinearBuckets(0, 1, 10),
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.Transitions, m.ArrowsByScope, m.Duration, m.ChangedNodes} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnArrowResolved: func(_ context.Context, e *domain.ArrowEvent) {
			m.ArrowsByScope.WithLabelValues(e.Scope.String()).Inc()
		},
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.Transitions.WithLabelValues("ok").Inc()
			m.Duration.Observe(e.Duration.Seconds())
			m.ChangedNodes.Observe(float64(len(e.Diff.Changed) + len(e.Diff.Added)))
		},
		OnError: func(_ context.Context, e *domain.ErrorEvent) {
			m.Transitions.WithLabelValues(ErrorKind(e.Err)).Inc()
		},
	}
}

// ErrorKind classifies a transition error for labels and status codes.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoArrowFound):
		return "no_arrow"
	case errors.Is(err, domain.ErrConflictingStateUpdate):
		return "conflict"
	case errors.Is(err, domain.ErrInvalidGraph):
		return "invalid_graph"
	case errors.Is(err, domain.ErrMachineNotFound):
		return "not_found"
	default:
		return "error"
	}
}
