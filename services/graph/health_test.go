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
	"testing"

	"github.com/AleutianAI/rootscout/services/ingest"
)

func metricRecord(service, name string, values ...float64) ingest.MetricRecord {
	points := make([]ingest.MetricPoint, len(values))
	for i, v := range values {
		points[i] = ingest.MetricPoint{Value: v}
	}
	return ingest.MetricRecord{
		RecordMeta: ingest.RecordMeta{Service: service},
		Name:       name,
		Points:     points,
	}
}

func TestHealthErrorRateAboveThreshold(t *testing.T) {
	s := NewStore()
	h := NewHealthAggregator(s)

	// 100 requests, 15 errors: 15% > 5%.
	h.IngestMetric(metricRecord("checkout", "http_requests_total", 100))
	h.IngestMetric(metricRecord("checkout", "http_errors_total", 15))

	info, _ := s.Node("checkout")
	if info.Status != StatusError {
		t.Errorf("status = %v, want error", info.Status)
	}
}

func TestHealthOKWhenRequestsAndNoErrors(t *testing.T) {
	s := NewStore()
	h := NewHealthAggregator(s)

	h.IngestMetric(metricRecord("checkout", "http_requests_total", 200))

	info, _ := s.Node("checkout")
	if info.Status != StatusOK {
		t.Errorf("status = %v, want ok", info.Status)
	}
}

func TestHealthErrorsWithoutRequestSignal(t *testing.T) {
	s := NewStore()
	h := NewHealthAggregator(s)

	// Errors and not a single request metric: the service only ever
	// reported failure, so it is failing.
	h.IngestMetric(metricRecord("worker", "job_errors_total", 3))

	info, _ := s.Node("worker")
	if info.Status != StatusError {
		t.Errorf("status = %v, want error", info.Status)
	}
}

func TestHealthLatencyCounter(t *testing.T) {
	s := NewStore()
	h := NewHealthAggregator(s)

	h.IngestMetric(metricRecord("checkout", "http_requests_total", 1000))

	// 11 points above 1000ms crosses the threshold of 10.
	slow := make([]float64, 11)
	for i := range slow {
		slow[i] = 1500
	}
	h.IngestMetric(metricRecord("checkout", "request_latency_ms", slow...))

	info, _ := s.Node("checkout")
	if info.Status != StatusError {
		t.Errorf("status = %v, want error after latency spike", info.Status)
	}

	counters := h.Snapshot()["checkout"]
	if counters.HighLatencyCount != 11 {
		t.Errorf("high latency count = %d, want 11", counters.HighLatencyCount)
	}
}

func TestHealthLatencyBelowThresholdIgnored(t *testing.T) {
	s := NewStore()
	h := NewHealthAggregator(s)

	h.IngestMetric(metricRecord("checkout", "request_duration", 999, 1000))

	counters := h.Snapshot()["checkout"]
	if counters.HighLatencyCount != 0 {
		t.Errorf("points at or below threshold counted: %d", counters.HighLatencyCount)
	}
}

// A name like "rpc_error_rate" matches both the error and request classes;
// both counters move.
func TestHealthMetricNameMatchesMultipleClasses(t *testing.T) {
	s := NewStore()
	h := NewHealthAggregator(s)

	h.IngestMetric(metricRecord("gateway", "rpc_error_total", 4))

	counters := h.Snapshot()["gateway"]
	if counters.ErrorCount != 4 {
		t.Errorf("error count = %v, want 4", counters.ErrorCount)
	}
	if counters.RequestCount != 4 {
		t.Errorf("request count = %v, want 4", counters.RequestCount)
	}
}

func TestHealthMetricCaseInsensitive(t *testing.T) {
	s := NewStore()
	h := NewHealthAggregator(s)

	h.IngestMetric(metricRecord("checkout", "HTTP_Requests_Total", 10))

	if h.Snapshot()["checkout"].RequestCount != 10 {
		t.Error("uppercase metric name not matched")
	}
}

func TestHealthIngestLogSeverityFilter(t *testing.T) {
	s := NewStore()
	h := NewHealthAggregator(s)

	for _, sev := range []string{"INFO", "WARN", "DEBUG", "error"} {
		h.IngestLog(ingest.LogRecord{
			RecordMeta:   ingest.RecordMeta{Service: "auth"},
			SeverityText: sev,
			Body:         ingest.StringValue("noise"),
		})
	}

	if c := h.Snapshot()["auth"]; c.ErrorCount != 0 {
		t.Errorf("non-error severities counted: %v", c.ErrorCount)
	}

	for _, sev := range []string{"ERROR", "FATAL", "CRITICAL"} {
		h.IngestLog(ingest.LogRecord{
			RecordMeta:   ingest.RecordMeta{Service: "auth"},
			SeverityText: sev,
			Body:         ingest.StringValue("boom"),
		})
	}

	if c := h.Snapshot()["auth"]; c.ErrorCount != 3 {
		t.Errorf("error count = %v, want 3", c.ErrorCount)
	}
	info, _ := s.Node("auth")
	if info.Status != StatusError {
		t.Errorf("status = %v, want error", info.Status)
	}
	if len(info.Events) != 3 {
		t.Errorf("expected 3 error_log events, got %d", len(info.Events))
	}
}

func TestHealthIngestLogEventFields(t *testing.T) {
	s := NewStore()
	h := NewHealthAggregator(s)

	h.IngestLog(ingest.LogRecord{
		RecordMeta:   ingest.RecordMeta{Service: "auth"},
		SeverityText: "FATAL",
		Body:         ingest.StringValue("token validation failed"),
		TimeUnixNano: 1_700_000_000_500_000_000,
		TraceID:      "abc123",
	})

	info, _ := s.Node("auth")
	if len(info.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(info.Events))
	}
	ev := info.Events[0]
	if ev.Type != EventTypeErrorLog {
		t.Errorf("event type = %v", ev.Type)
	}
	if ev.Message != "token validation failed" {
		t.Errorf("message = %q", ev.Message)
	}
	if ev.Severity != "FATAL" {
		t.Errorf("severity = %q", ev.Severity)
	}
	if ev.TraceID != "abc123" {
		t.Errorf("trace id = %q", ev.TraceID)
	}
	if ev.Timestamp != 1_700_000_000.5 {
		t.Errorf("timestamp = %v, want 1700000000.5", ev.Timestamp)
	}
}

func TestHealthIngestLogTruncatesMessage(t *testing.T) {
	s := NewStore()
	h := NewHealthAggregator(s)

	long := strings.Repeat("x", 500)
	h.IngestLog(ingest.LogRecord{
		RecordMeta:   ingest.RecordMeta{Service: "auth"},
		SeverityText: "ERROR",
		Body:         ingest.StringValue(long),
	})

	info, _ := s.Node("auth")
	if got := len(info.Events[0].Message); got != 200 {
		t.Errorf("message length = %d, want 200", got)
	}
}

func TestHealthBlankServiceDropped(t *testing.T) {
	s := NewStore()
	h := NewHealthAggregator(s)

	h.IngestMetric(metricRecord("", "http_requests_total", 10))
	h.IngestLog(ingest.LogRecord{SeverityText: "ERROR", Body: ingest.StringValue("x")})

	if s.Len() != 0 {
		t.Errorf("blank-service records created nodes: %d", s.Len())
	}
}

func TestDeriveStatusBoundaries(t *testing.T) {
	tests := []struct {
		name string
		c    HealthCounters
		want Status
	}{
		{"exactly 5 percent is not error", HealthCounters{ErrorCount: 5, RequestCount: 100}, StatusOK},
		{"just above 5 percent", HealthCounters{ErrorCount: 6, RequestCount: 100}, StatusError},
		{"exactly 10 slow points is not error", HealthCounters{RequestCount: 1, HighLatencyCount: 10}, StatusOK},
		{"11 slow points", HealthCounters{RequestCount: 1, HighLatencyCount: 11}, StatusError},
		{"nothing seen", HealthCounters{}, StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deriveStatus(tt.c); got != tt.want {
				t.Errorf("deriveStatus(%+v) = %v, want %v", tt.c, got, tt.want)
			}
		})
	}
}
