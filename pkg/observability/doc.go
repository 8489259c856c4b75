/*
Package observability turns run lifecycle events into logs, Prometheus
metrics and OpenTelemetry spans.

Each constructor returns a domain.LifecycleHooks set; combine them with
domain.MergeHooks and pass the result to conductor.WithLifecycleHooks:

	metrics, err := observability.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	hooks := domain.MergeHooks(
		observability.LoggingHooks(logger),
		metrics.Hooks(),
		observability.NewTracing(otel.Tracer("conductor")).Hooks(),
	)
*/
package observability
