// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the collector.
//
// Metrics cover the three ingest surfaces (OTLP signals, GitHub webhooks,
// change log reloads) plus graph size gauges and retrieval latency. All
// metric operations are thread-safe via Prometheus's internal locking, and
// everything is exposed on /metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const metricsNamespace = "rootscout"

// Subsystem for collector metrics
const collectorSubsystem = "collector"

// CollectorMetrics holds all Prometheus metrics for the collector service.
// Initialize once at startup via InitMetrics().
type CollectorMetrics struct {
	// RecordsIngestedTotal counts normalized telemetry records by signal.
	// Labels: signal (trace, metric, log)
	RecordsIngestedTotal *prometheus.CounterVec

	// DecodeFailuresTotal counts OTLP payloads that failed to decode.
	// Labels: signal, content_type
	DecodeFailuresTotal *prometheus.CounterVec

	// WebhookEventsTotal counts GitHub webhook deliveries by event type
	// and outcome. Labels: event_type, status (accepted, rejected, error)
	WebhookEventsTotal *prometheus.CounterVec

	// GraphNodes tracks the current node count of the dependency graph.
	GraphNodes prometheus.Gauge

	// GraphEdges tracks the current edge count of the dependency graph.
	GraphEdges prometheus.Gauge

	// RetrievalDurationSeconds measures context packet assembly time,
	// enrichment included. Labels: status (success, not_found)
	RetrievalDurationSeconds *prometheus.HistogramVec

	// ChangeEventsLoaded tracks how many change events the watcher holds
	// after its latest reload.
	ChangeEventsLoaded prometheus.Gauge
}

// DefaultMetrics is the singleton instance of CollectorMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *CollectorMetrics

// InitMetrics creates and registers all Prometheus metrics. Call once at
// application startup; calling twice panics on duplicate registration.
func InitMetrics() *CollectorMetrics {
	DefaultMetrics = &CollectorMetrics{
		RecordsIngestedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: collectorSubsystem,
				Name:      "records_ingested_total",
				Help:      "Total normalized telemetry records by signal",
			},
			[]string{"signal"},
		),

		DecodeFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: collectorSubsystem,
				Name:      "decode_failures_total",
				Help:      "Total OTLP payloads that failed to decode",
			},
			[]string{"signal", "content_type"},
		),

		WebhookEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: collectorSubsystem,
				Name:      "webhook_events_total",
				Help:      "Total GitHub webhook deliveries by event type and outcome",
			},
			[]string{"event_type", "status"},
		),

		GraphNodes: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: collectorSubsystem,
				Name:      "graph_nodes",
				Help:      "Current node count of the dependency graph",
			},
		),

		GraphEdges: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: collectorSubsystem,
				Name:      "graph_edges",
				Help:      "Current edge count of the dependency graph",
			},
		),

		RetrievalDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: collectorSubsystem,
				Name:      "retrieval_duration_seconds",
				Help:      "Context packet assembly time in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"status"},
		),

		ChangeEventsLoaded: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: collectorSubsystem,
				Name:      "change_events_loaded",
				Help:      "Change events held in memory after the latest reload",
			},
		),
	}

	return DefaultMetrics
}

// RecordIngest adds count records for a signal.
func (m *CollectorMetrics) RecordIngest(signal string, count int) {
	m.RecordsIngestedTotal.WithLabelValues(signal).Add(float64(count))
}

// RecordDecodeFailure counts one undecodable OTLP payload.
func (m *CollectorMetrics) RecordDecodeFailure(signal, contentType string) {
	m.DecodeFailuresTotal.WithLabelValues(signal, contentType).Inc()
}

// RecordWebhook counts one webhook delivery outcome.
func (m *CollectorMetrics) RecordWebhook(eventType, status string) {
	m.WebhookEventsTotal.WithLabelValues(eventType, status).Inc()
}

// SetGraphSize updates the node and edge gauges.
func (m *CollectorMetrics) SetGraphSize(nodes, edges int) {
	m.GraphNodes.Set(float64(nodes))
	m.GraphEdges.Set(float64(edges))
}

// SetChangeEventsLoaded updates the in-memory change event gauge.
func (m *CollectorMetrics) SetChangeEventsLoaded(count int) {
	m.ChangeEventsLoaded.Set(float64(count))
}

// RecordRetrieval records one context retrieval.
func (m *CollectorMetrics) RecordRetrieval(seconds float64, found bool) {
	status := "success"
	if !found {
		status = "not_found"
	}
	m.RetrievalDurationSeconds.WithLabelValues(status).Observe(seconds)
}
