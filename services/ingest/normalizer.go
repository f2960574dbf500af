// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ingest

import (
	"log/slog"
	"time"

	collogpb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	colmetricpb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	metricpb "go.opentelemetry.io/proto/otlp/metrics/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
)

// Resource attribute keys carried into RecordMeta.
const (
	attrServiceName    = "service.name"
	attrServiceVersion = "service.version"
	attrEnvironment    = "deployment.environment.name"
)

// Sink receives normalized records as they are produced.
//
// Implementations must be safe for concurrent use; the normalizer itself is
// stateless and is shared across ingestion handlers.
type Sink interface {
	Emit(rec Record) error
}

// Normalizer flattens OTLP export requests into canonical records and pushes
// them to a Sink one at a time, so a large export never has to be fully
// materialized.
//
// All records produced from one request share a single ReceivedAt timestamp.
type Normalizer struct {
	sink Sink
	now  func() time.Time
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithClock overrides the receipt-timestamp source. Tests use this to get
// deterministic ReceivedAt values.
func WithClock(now func() time.Time) NormalizerOption {
	return func(n *Normalizer) {
		n.now = now
	}
}

// NewNormalizer creates a Normalizer emitting to sink.
func NewNormalizer(sink Sink, opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		sink: sink,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// IngestTraces normalizes every span in the request.
func (n *Normalizer) IngestTraces(req *coltracepb.ExportTraceServiceRequest) IngestResult {
	receivedAt := n.now().UTC()
	count := 0

	for _, rs := range req.GetResourceSpans() {
		meta := n.resourceMeta(receivedAt, rs.GetResource().GetAttributes())

		for _, ss := range rs.GetScopeSpans() {
			scoped := meta
			scoped.ScopeName = ss.GetScope().GetName()
			scoped.ScopeVersion = ss.GetScope().GetVersion()

			for _, span := range ss.GetSpans() {
				rec := TraceRecord{
					RecordMeta:        scoped,
					TraceID:           hexOrEmpty(span.GetTraceId()),
					SpanID:            hexOrEmpty(span.GetSpanId()),
					ParentSpanID:      hexOrEmpty(span.GetParentSpanId()),
					Name:              span.GetName(),
					Kind:              int32(span.GetKind()),
					StartTimeUnixNano: span.GetStartTimeUnixNano(),
					EndTimeUnixNano:   span.GetEndTimeUnixNano(),
					Status:            spanStatus(span.GetStatus().GetCode()),
					StatusMessage:     span.GetStatus().GetMessage(),
					Attributes:        decodeAttributes(span.GetAttributes()),
				}
				n.emit(rec)
				count++
			}
		}
	}

	return IngestResult{ReceivedAt: receivedAt, Kind: "traces", Count: count}
}

// IngestMetrics normalizes every metric in the request.
//
// Gauge, sum, and histogram data are expanded into points. Any other data
// type still produces a record, tagged MetricTypeUnknown with no points,
// rather than failing.
func (n *Normalizer) IngestMetrics(req *colmetricpb.ExportMetricsServiceRequest) IngestResult {
	receivedAt := n.now().UTC()
	count := 0

	for _, rm := range req.GetResourceMetrics() {
		meta := n.resourceMeta(receivedAt, rm.GetResource().GetAttributes())

		for _, sm := range rm.GetScopeMetrics() {
			scoped := meta
			scoped.ScopeName = sm.GetScope().GetName()
			scoped.ScopeVersion = sm.GetScope().GetVersion()

			for _, metric := range sm.GetMetrics() {
				rec := MetricRecord{
					RecordMeta:  scoped,
					Name:        metric.GetName(),
					Description: metric.GetDescription(),
					Unit:        metric.GetUnit(),
				}

				switch data := metric.GetData().(type) {
				case *metricpb.Metric_Gauge:
					rec.Type = MetricTypeGauge
					rec.Points = numberPoints(data.Gauge.GetDataPoints())
				case *metricpb.Metric_Sum:
					rec.Type = MetricTypeSum
					rec.Points = numberPoints(data.Sum.GetDataPoints())
				case *metricpb.Metric_Histogram:
					rec.Type = MetricTypeHistogram
					rec.Points = histogramPoints(data.Histogram.GetDataPoints())
				default:
					rec.Type = MetricTypeUnknown
				}

				n.emit(rec)
				count++
			}
		}
	}

	return IngestResult{ReceivedAt: receivedAt, Kind: "metrics", Count: count}
}

// IngestLogs normalizes every log record in the request.
func (n *Normalizer) IngestLogs(req *collogpb.ExportLogsServiceRequest) IngestResult {
	receivedAt := n.now().UTC()
	count := 0

	for _, rl := range req.GetResourceLogs() {
		meta := n.resourceMeta(receivedAt, rl.GetResource().GetAttributes())

		for _, sl := range rl.GetScopeLogs() {
			scoped := meta
			scoped.ScopeName = sl.GetScope().GetName()
			scoped.ScopeVersion = sl.GetScope().GetVersion()

			for _, lr := range sl.GetLogRecords() {
				rec := LogRecord{
					RecordMeta:           scoped,
					TimeUnixNano:         lr.GetTimeUnixNano(),
					ObservedTimeUnixNano: lr.GetObservedTimeUnixNano(),
					SeverityText:         lr.GetSeverityText(),
					SeverityNumber:       int32(lr.GetSeverityNumber()),
					Body:                 decodeAnyValue(lr.GetBody()),
					TraceID:              hexOrEmpty(lr.GetTraceId()),
					SpanID:               hexOrEmpty(lr.GetSpanId()),
					Attributes:           decodeAttributes(lr.GetAttributes()),
				}
				n.emit(rec)
				count++
			}
		}
	}

	return IngestResult{ReceivedAt: receivedAt, Kind: "logs", Count: count}
}

// resourceMeta extracts the identity fields from resource attributes.
// Missing attributes leave fields empty; never an error.
func (n *Normalizer) resourceMeta(receivedAt time.Time, attrs []*commonpb.KeyValue) RecordMeta {
	meta := RecordMeta{ReceivedAt: receivedAt}
	for _, a := range attrs {
		switch a.GetKey() {
		case attrServiceName:
			meta.Service = decodeAnyValue(a.GetValue()).AsString()
		case attrServiceVersion:
			meta.ServiceVersion = decodeAnyValue(a.GetValue()).AsString()
		case attrEnvironment:
			meta.Environment = decodeAnyValue(a.GetValue()).AsString()
		}
	}
	return meta
}

// emit pushes one record to the sink. Sink failures are logged and do not
// interrupt normalization of the remaining records.
func (n *Normalizer) emit(rec Record) {
	if n.sink == nil {
		return
	}
	if err := n.sink.Emit(rec); err != nil {
		slog.Warn("telemetry sink rejected record",
			"signal", rec.Signal(),
			"error", err,
		)
	}
}

// spanStatus maps OTLP status codes 0/1/2 to UNSET/OK/ERROR.
func spanStatus(code tracepb.Status_StatusCode) SpanStatus {
	switch code {
	case tracepb.Status_STATUS_CODE_OK:
		return SpanStatusOK
	case tracepb.Status_STATUS_CODE_ERROR:
		return SpanStatusError
	default:
		return SpanStatusUnset
	}
}

// numberPoints expands gauge/sum data points.
func numberPoints(points []*metricpb.NumberDataPoint) []MetricPoint {
	out := make([]MetricPoint, 0, len(points))
	for _, p := range points {
		mp := MetricPoint{
			TimeUnixNano:      p.GetTimeUnixNano(),
			StartTimeUnixNano: p.GetStartTimeUnixNano(),
			Attributes:        decodeAttributes(p.GetAttributes()),
		}
		switch v := p.GetValue().(type) {
		case *metricpb.NumberDataPoint_AsInt:
			mp.Value = float64(v.AsInt)
		case *metricpb.NumberDataPoint_AsDouble:
			mp.Value = v.AsDouble
		}
		out = append(out, mp)
	}
	return out
}

// histogramPoints expands histogram data points, carrying the bucket data
// through unmodified.
func histogramPoints(points []*metricpb.HistogramDataPoint) []MetricPoint {
	out := make([]MetricPoint, 0, len(points))
	for _, p := range points {
		mp := MetricPoint{
			TimeUnixNano:      p.GetTimeUnixNano(),
			StartTimeUnixNano: p.GetStartTimeUnixNano(),
			Attributes:        decodeAttributes(p.GetAttributes()),
			Count:             p.GetCount(),
			BucketCounts:      p.GetBucketCounts(),
			ExplicitBounds:    p.GetExplicitBounds(),
		}
		if p.Sum != nil {
			sum := p.GetSum()
			mp.Sum = &sum
		}
		out = append(out, mp)
	}
	return out
}
