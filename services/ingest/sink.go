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
	"sync"
)

// SlogSink logs every record at debug level. Useful when bringing up a new
// telemetry source against a collector.
type SlogSink struct {
	Logger *slog.Logger
}

// Emit implements Sink.
func (s *SlogSink) Emit(rec Record) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("normalized record", "signal", rec.Signal(), "record", rec)
	return nil
}

// ComposedSink fans a record out to multiple sinks. A failing sink is logged
// and skipped; it never blocks delivery to the others.
type ComposedSink struct {
	sinks []Sink
}

// NewComposedSink builds a fan-out over the given sinks.
func NewComposedSink(sinks ...Sink) *ComposedSink {
	return &ComposedSink{sinks: sinks}
}

// Emit implements Sink.
func (s *ComposedSink) Emit(rec Record) error {
	for _, sink := range s.sinks {
		if err := sink.Emit(rec); err != nil {
			slog.Warn("composed sink delivery failed",
				"signal", rec.Signal(),
				"error", err,
			)
		}
	}
	return nil
}

// CaptureSink collects records in memory. Intended for tests.
type CaptureSink struct {
	mu      sync.Mutex
	records []Record
}

// Emit implements Sink.
func (s *CaptureSink) Emit(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Records returns a copy of everything captured so far.
func (s *CaptureSink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}
