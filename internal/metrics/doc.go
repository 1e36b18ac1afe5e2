// Package metrics records build, stage and per-task metrics for assetbuilder.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics collection never needs nil checks:
//
//	runner := pipeline.NewRunner(pipeline.WithRecorder(metrics.NoopRecorder{}))
//
// PrometheusRecorder registers its collectors on a caller-supplied registry.
// One-shot builds export the registry with WriteTextfile (node_exporter
// textfile collector format); watch mode serves it with HTTPHandler.
package metrics
