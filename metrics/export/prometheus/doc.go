// Package prometheus exposes tokenguard metrics as a Prometheus collector.
//
// [NewPrometheusExporter] wraps an engine; the exporter implements
// prometheus.Collector and reads [tokenguard.Engine.MetricsSnapshot] on
// every scrape. [PrometheusExporter.Handler] serves a private registry
// holding only this collector. Counters are named tokenguard_*_total; the
// latency histograms are tokenguard_{authenticate,renew}_latency_seconds.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
