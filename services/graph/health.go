// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"strings"
	"sync"

	"github.com/AleutianAI/rootscout/services/ingest"
)

// Health derivation thresholds.
const (
	// errorRateThreshold marks a service failing above 5% errors.
	errorRateThreshold = 0.05

	// highLatencyThresholdMillis flags an individual latency/duration
	// point. The unit is assumed from context, not checked.
	highLatencyThresholdMillis = 1000

	// highLatencyCountThreshold marks a service failing once this many
	// points exceeded the latency threshold.
	highLatencyCountThreshold = 10

	// errorLogTruncateLen bounds the message copied into a node event.
	errorLogTruncateLen = 200
)

// errorSeverities are the log severities counted as errors.
var errorSeverities = map[string]bool{
	"ERROR":    true,
	"FATAL":    true,
	"CRITICAL": true,
}

// HealthAggregator folds metric and log records into rolling per-service
// counters and derives each service's status into the Store.
//
// Counter classification is substring-based on the metric name
// (case-insensitive): "error"/"5xx" feed the error count, "request"/"rpc"
// the request count, and "latency"/"duration" points above the threshold
// increment the high-latency count by one each.
//
// The derived status overwrites whatever the span adapter last wrote; the
// two paths race by design (last write wins, no causal ordering).
type HealthAggregator struct {
	store *Store

	mu       sync.Mutex
	counters map[string]*HealthCounters
}

// NewHealthAggregator creates an aggregator writing status into store.
func NewHealthAggregator(store *Store) *HealthAggregator {
	return &HealthAggregator{
		store:    store,
		counters: make(map[string]*HealthCounters),
	}
}

// IngestMetric folds one metric record into the counters and re-derives the
// service status. Records without a service name are dropped.
func (h *HealthAggregator) IngestMetric(rec ingest.MetricRecord) {
	if blankName(rec.Service) {
		return
	}

	name := strings.ToLower(rec.Name)

	h.mu.Lock()
	c := h.countersLocked(rec.Service)

	// A metric name can match more than one class; each match counts.
	if strings.Contains(name, "error") || strings.Contains(name, "5xx") {
		for _, p := range rec.Points {
			c.ErrorCount += p.Value
		}
	}
	if strings.Contains(name, "request") || strings.Contains(name, "rpc") {
		for _, p := range rec.Points {
			c.RequestCount += p.Value
		}
	}
	if strings.Contains(name, "latency") || strings.Contains(name, "duration") {
		for _, p := range rec.Points {
			if p.Value > highLatencyThresholdMillis {
				c.HighLatencyCount++
			}
		}
	}

	status := deriveStatus(*c)
	h.mu.Unlock()

	h.store.SetStatus(rec.Service, status)
}

// IngestLog counts ERROR/FATAL/CRITICAL log records as errors, records an
// error_log event on the node, and re-derives the service status. Other
// severities are ignored.
func (h *HealthAggregator) IngestLog(rec ingest.LogRecord) {
	if blankName(rec.Service) {
		return
	}
	if !errorSeverities[rec.SeverityText] {
		return
	}

	h.mu.Lock()
	c := h.countersLocked(rec.Service)
	c.ErrorCount++
	status := deriveStatus(*c)
	h.mu.Unlock()

	h.store.AppendEvent(rec.Service, Event{
		Type:      EventTypeErrorLog,
		Severity:  rec.SeverityText,
		Message:   truncate(rec.Body.String(), errorLogTruncateLen),
		Timestamp: float64(rec.TimeUnixNano) / 1e9,
		TraceID:   rec.TraceID,
	})
	h.store.SetStatus(rec.Service, status)
}

// Snapshot returns a copy of every service's counters, for diagnostics.
func (h *HealthAggregator) Snapshot() map[string]HealthCounters {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string]HealthCounters, len(h.counters))
	for name, c := range h.counters {
		out[name] = *c
	}
	return out
}

// countersLocked returns the counters for service, creating them if absent.
// Caller holds h.mu.
func (h *HealthAggregator) countersLocked(service string) *HealthCounters {
	c, ok := h.counters[service]
	if !ok {
		c = &HealthCounters{}
		h.counters[service] = c
	}
	return c
}

// deriveStatus applies the status thresholds to a counter snapshot:
// error when the error rate exceeds 5%, when errors exist with no request
// signal at all (error logs only), or when too many high-latency points
// accumulated; ok once requests have been seen; otherwise unknown.
func deriveStatus(c HealthCounters) Status {
	errorRate := 0.0
	if c.RequestCount > 0 {
		errorRate = c.ErrorCount / c.RequestCount
	}

	switch {
	case errorRate > errorRateThreshold,
		c.ErrorCount > 0 && c.RequestCount == 0,
		c.HighLatencyCount > highLatencyCountThreshold:
		return StatusError
	case c.RequestCount > 0:
		return StatusOK
	default:
		return StatusUnknown
	}
}

// truncate bounds s to max runes.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
