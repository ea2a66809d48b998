/*
Package observability turns session lifecycle hooks into Prometheus metrics
and structured log lines.

	metrics := observability.NewMetrics("basiceq")
	metrics.MustRegister(prometheus.DefaultRegisterer)
	hooks := observability.ComposeHooks(metrics.Hooks(), observability.LogHooks(logger))
*/
package observability
