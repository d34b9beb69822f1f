package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/hfsm/pkg/domain"
	"github.com/aretw0/hfsm/pkg/ports"
)

type metricsMiddleware struct {
	next     ports.StateStore
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetricsMiddleware counts and times store operations by op and result.
// A nil registerer skips registration.
func NewMetricsMiddleware(reg prometheus.Registerer) (Middleware, error) {
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hfsm_store_operations_total",
		Help: "State store operations by operation and result.",
	}, []string{"op", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hfsm_store_operation_duration_seconds",
		Help:    "State store latency by operation.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"op"})

	if reg != nil {
		for _, c := range []prometheus.Collector{ops, duration} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}

	return func(next ports.StateStore) ports.StateStore {
		return &metricsMiddleware{next: next, ops: ops, duration: duration}
	}, nil
}

func (m *metricsMiddleware) observe(op string, start time.Time, err error) {
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	result := "ok"
	switch {
	case errors.Is(err, domain.ErrMachineNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	m.ops.WithLabelValues(op, result).Inc()
}

func (m *metricsMiddleware) Save(ctx context.Context, machineID string, state domain.FSMState) (err error) {
	defer func(start time.Time) { m.observe("save", start, err) }(time.Now())
	return m.next.Save(ctx, machineID, state)
}

func (m *metricsMiddleware) Load(ctx context.Context, machineID string) (state domain.FSMState, err error) {
	defer func(start time.Time) { m.observe("load", start, err) }(time.Now())
	return m.next.Load(ctx, machineID)
}

func (m *metricsMiddleware) Delete(ctx context.Context, machineID string) (err error) {
	defer func(start time.Time) { m.observe("delete", start, err) }(time.Now())
	return m.next.Delete(ctx, machineID)
}

func (m *metricsMiddleware) List(ctx context.Context) (ids []string, err error) {
	defer func(start time.Time) { m.observe("list", start, err) }(time.Now())
	return m.next.List(ctx)
}
