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
	"github.com/AleutianAI/rootscout/services/ingest"
)

// Sink routes normalized records into the graph: traces to the span adapter,
// metrics and logs to the health aggregator. It is the wiring between the
// normalizer and the graph store.
type Sink struct {
	adapter *Adapter
	health  *HealthAggregator
}

// NewSink builds the routing sink over one store.
func NewSink(store *Store) *Sink {
	return &Sink{
		adapter: NewAdapter(store),
		health:  NewHealthAggregator(store),
	}
}

// Adapter exposes the span adapter (for direct span ingestion in replays).
func (s *Sink) Adapter() *Adapter { return s.adapter }

// Health exposes the health aggregator (for counter diagnostics).
func (s *Sink) Health() *HealthAggregator { return s.health }

// Emit implements ingest.Sink.
func (s *Sink) Emit(rec ingest.Record) error {
	switch r := rec.(type) {
	case ingest.TraceRecord:
		s.adapter.IngestTrace(r)
	case ingest.MetricRecord:
		s.health.IngestMetric(r)
	case ingest.LogRecord:
		s.health.IngestLog(r)
	}
	return nil
}
