// Package otel binds tokenguard counters and latency histograms to an
// OpenTelemetry meter.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter and,
// per histogram, a cumulative bucket gauge keyed by an "le" attribute plus
// a _count gauge. A single callback reads
// [tokenguard.Engine.MetricsSnapshot] on each collection cycle.
//
// The caller owns the MeterProvider; the exporter never mutates engine
// state.
package otel
