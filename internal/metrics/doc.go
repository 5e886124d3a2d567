// Package metrics provides observability hooks for the construction simulator.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so resource admission and phase execution never need nil
// checks:
//
//	reg := prom.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	registry, _ := resource.NewRegistry(caps, resource.WithRecorder(rec))
//	http.Handle("/metrics", metrics.HTTPHandler(reg))
//
// The resource_holders gauge makes admission control visible: for every
// resource it never exceeds the configured capacity.
package metrics
