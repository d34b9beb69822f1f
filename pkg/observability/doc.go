/*
Package observability turns engine lifecycle hooks into Prometheus metrics
and structured log records.

	metrics, _ := observability.NewMetrics(prometheus.DefaultRegisterer)
	eng, _ := hfsm.New(ctx, "graph.yaml",
		hfsm.WithLifecycleHooks(metrics.Hooks()),
		hfsm.WithLifecycleHooks(observability.LogHooks(logger)),
	)
*/
package observability
