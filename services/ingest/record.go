// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ingest converts OTLP export requests into canonical telemetry
// records.
//
// # Description
//
// The normalizer is the first stage of the RootScout pipeline. It walks the
// resource/scope/signal nesting of an OTLP message and flattens each span,
// metric, and log record into a self-contained record carrying the resource
// identity fields (service name, version, environment) that every downstream
// consumer keys on.
//
// Normalization is a pure transform: it never mutates its input, holds no
// locks, and a structurally valid message never produces an error. Malformed
// wire bytes are rejected earlier, at the decode boundary (see decode.go).
package ingest

import "time"

// Signal identifies which telemetry signal a record was derived from.
type Signal string

const (
	// SignalTrace marks records derived from spans.
	SignalTrace Signal = "trace"

	// SignalMetric marks records derived from metric data points.
	SignalMetric Signal = "metric"

	// SignalLog marks records derived from log records.
	SignalLog Signal = "log"
)

// RecordMeta carries the fields shared by every normalized record.
//
// Service, ServiceVersion, and Environment come from the OTLP resource
// attributes (service.name, service.version, deployment.environment.name).
// Absence of any of them leaves the field empty; it is never an error.
// A record with an empty Service is non-actionable and is dropped by the
// graph sink rather than creating an anonymous node.
type RecordMeta struct {
	// ReceivedAt is when the export request reached this process.
	ReceivedAt time.Time `json:"received_at"`

	// Service is the emitting service name (resource service.name).
	Service string `json:"service,omitempty"`

	// ServiceVersion is the deploy identifier (resource service.version).
	ServiceVersion string `json:"service_version,omitempty"`

	// Environment is the deployment environment
	// (resource deployment.environment.name).
	Environment string `json:"environment,omitempty"`

	// ScopeName and ScopeVersion identify the instrumentation scope.
	ScopeName    string `json:"scope_name,omitempty"`
	ScopeVersion string `json:"scope_version,omitempty"`
}

// SpanStatus is the normalized span outcome.
type SpanStatus int

const (
	// SpanStatusUnset maps from OTLP status code 0.
	SpanStatusUnset SpanStatus = iota

	// SpanStatusOK maps from OTLP status code 1.
	SpanStatusOK

	// SpanStatusError maps from OTLP status code 2.
	SpanStatusError
)

// String returns the wire-friendly name of the status.
func (s SpanStatus) String() string {
	switch s {
	case SpanStatusOK:
		return "OK"
	case SpanStatusError:
		return "ERROR"
	default:
		return "UNSET"
	}
}

// TraceRecord is one normalized span.
type TraceRecord struct {
	RecordMeta

	// TraceID, SpanID, and ParentSpanID are lowercase hex strings,
	// empty when the corresponding bytes were absent.
	TraceID      string `json:"trace_id,omitempty"`
	SpanID       string `json:"span_id,omitempty"`
	ParentSpanID string `json:"parent_span_id,omitempty"`

	// Name is the span name.
	Name string `json:"name"`

	// Kind is the raw OTLP span kind value.
	Kind int32 `json:"kind"`

	// StartTimeUnixNano and EndTimeUnixNano bound the span.
	StartTimeUnixNano uint64 `json:"start_time_unix_nano"`
	EndTimeUnixNano   uint64 `json:"end_time_unix_nano"`

	// Status is the normalized span outcome; StatusMessage is the
	// accompanying free-form message, usually empty unless Status is ERROR.
	Status        SpanStatus `json:"status"`
	StatusMessage string     `json:"status_message,omitempty"`

	// Attributes are the decoded span attributes.
	Attributes map[string]Value `json:"attributes,omitempty"`
}

// LatencyMillis returns the span duration in milliseconds, or 0 when the
// timestamps are missing or inverted.
func (r TraceRecord) LatencyMillis() float64 {
	if r.EndTimeUnixNano <= r.StartTimeUnixNano {
		return 0
	}
	return float64(r.EndTimeUnixNano-r.StartTimeUnixNano) / 1e6
}

// Signal implements Record.
func (r TraceRecord) Signal() Signal { return SignalTrace }

// MetricType classifies the data shape of a metric.
type MetricType int

const (
	// MetricTypeUnknown tags data types the normalizer does not expand
	// (exponential histogram, summary, or absent data). The record is
	// still emitted, with no points.
	MetricTypeUnknown MetricType = iota

	// MetricTypeGauge is an instantaneous value.
	MetricTypeGauge

	// MetricTypeSum is a cumulative or delta sum.
	MetricTypeSum

	// MetricTypeHistogram is a bucketed distribution.
	MetricTypeHistogram
)

// String returns the lowercase type tag.
func (t MetricType) String() string {
	switch t {
	case MetricTypeGauge:
		return "gauge"
	case MetricTypeSum:
		return "sum"
	case MetricTypeHistogram:
		return "histogram"
	default:
		return "unknown"
	}
}

// MetricPoint is one data point of a metric.
//
// Number points (gauge, sum) populate Value. Histogram points populate
// Count, Sum, BucketCounts, and ExplicitBounds; those fields are carried
// through unmodified for downstream use, never summarized here.
type MetricPoint struct {
	TimeUnixNano      uint64           `json:"time_unix_nano"`
	StartTimeUnixNano uint64           `json:"start_time_unix_nano"`
	Attributes        map[string]Value `json:"attributes,omitempty"`

	// Value holds the numeric value of a gauge or sum point.
	// Integer points are widened to float64.
	Value float64 `json:"value,omitempty"`

	// Histogram summary fields.
	Count          uint64    `json:"count,omitempty"`
	Sum            *float64  `json:"sum,omitempty"`
	BucketCounts   []uint64  `json:"bucket_counts,omitempty"`
	ExplicitBounds []float64 `json:"explicit_bounds,omitempty"`
}

// MetricRecord is one normalized metric with its points.
type MetricRecord struct {
	RecordMeta

	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Unit        string        `json:"unit,omitempty"`
	Type        MetricType    `json:"type"`
	Points      []MetricPoint `json:"points"`
}

// Signal implements Record.
func (r MetricRecord) Signal() Signal { return SignalMetric }

// LogRecord is one normalized log entry.
type LogRecord struct {
	RecordMeta

	TimeUnixNano         uint64 `json:"time_unix_nano"`
	ObservedTimeUnixNano uint64 `json:"observed_time_unix_nano"`

	SeverityText   string `json:"severity_text,omitempty"`
	SeverityNumber int32  `json:"severity_number"`

	// Body is the decoded log body; may be any Value shape.
	Body Value `json:"body"`

	// TraceID and SpanID correlate the log to a trace, when present.
	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`

	Attributes map[string]Value `json:"attributes,omitempty"`
}

// Signal implements Record.
func (r LogRecord) Signal() Signal { return SignalLog }

// Record is the union of the three normalized record variants.
type Record interface {
	Signal() Signal
}

// IngestResult summarizes one export request after normalization.
type IngestResult struct {
	// ReceivedAt is the shared receipt timestamp stamped on every record
	// produced from the request.
	ReceivedAt time.Time `json:"received_at"`

	// Kind names the signal that was ingested ("traces", "metrics", "logs").
	Kind string `json:"kind"`

	// Count is the number of records emitted.
	Count int `json:"count"`
}
