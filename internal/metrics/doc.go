// Package metrics provides the observability hooks for the state store and its components.
//
// Components receive a Recorder through their options and default to NoopRecorder, so call
// sites never need nil checks. The host process swaps in a PrometheusRecorder when the
// diagnostics server is enabled:
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	store := state.New(state.WithRecorder(rec))
//	mux.Handle("/metrics", metrics.HTTPHandler(reg))
package metrics
