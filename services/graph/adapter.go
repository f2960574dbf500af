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

	"github.com/AleutianAI/rootscout/services/ingest"
)

// Span attributes consulted when resolving the calling service.
const (
	attrPeerService = "peer.service"
	attrHTTPTarget  = "http.target"
	attrRPCService  = "rpc.service"
)

// Span is the simplified view of a trace span the graph cares about:
// who ran it, who called it, how it went, and how long it took.
type Span struct {
	ServiceName   string
	ParentService string
	Status        ingest.SpanStatus
	LatencyMillis float64
	Name          string
	TraceID       string
	SpanID        string
}

// Adapter turns normalized trace records into graph mutations.
type Adapter struct {
	store *Store
}

// NewAdapter creates an Adapter writing into store.
func NewAdapter(store *Store) *Adapter {
	return &Adapter{store: store}
}

// IngestTrace resolves a trace record into a Span and applies it.
// Records without a service name are non-actionable and dropped.
func (a *Adapter) IngestTrace(rec ingest.TraceRecord) {
	if blankName(rec.Service) {
		return
	}
	a.IngestSpan(Span{
		ServiceName:   rec.Service,
		ParentService: ResolveParentService(rec),
		Status:        rec.Status,
		LatencyMillis: rec.LatencyMillis(),
		Name:          rec.Name,
		TraceID:       rec.TraceID,
		SpanID:        rec.SpanID,
	})
}

// IngestSpan upserts the span's service node, records its outcome, and, when
// a distinct parent service is known, the caller→callee edge with the span's
// latency.
//
// The per-span status write is deliberately last-write-wins with no
// aggregation across spans; the health aggregator writes the same field from
// the metric/log path and the two race (a known limitation, preserved).
func (a *Adapter) IngestSpan(span Span) {
	name := span.ServiceName
	if blankName(name) {
		return
	}

	a.store.EnsureNode(name)

	if span.Status == ingest.SpanStatusError {
		a.store.SetStatus(name, StatusError)
	} else {
		a.store.SetStatus(name, StatusOK)
	}

	parent := span.ParentService
	if blankName(parent) || parent == name {
		// Root span, or the resolution heuristic folded back onto the
		// span's own service. Either way: no edge.
		return
	}

	a.store.EnsureNode(parent)
	a.store.UpsertEdge(parent, name, span.LatencyMillis)
}

// ResolveParentService extracts the calling service from a span's
// attributes, best effort. Resolution order:
//
//  1. explicit peer.service attribute
//  2. first path segment of http.target
//  3. rpc.service attribute
//  4. first non-generic path segment of the span name
//
// Returns "" when nothing matches (root span). In degenerate attribute data
// this heuristic can resolve the span's own service; IngestSpan filters that
// case rather than recording a self-loop.
func ResolveParentService(rec ingest.TraceRecord) string {
	if v, ok := rec.Attributes[attrPeerService]; ok {
		if peer := v.AsString(); peer != "" {
			return peer
		}
	}

	if v, ok := rec.Attributes[attrHTTPTarget]; ok {
		if seg := firstPathSegment(v.AsString()); seg != "" {
			return seg
		}
	}

	if v, ok := rec.Attributes[attrRPCService]; ok {
		if svc := v.AsString(); svc != "" {
			return svc
		}
	}

	// Last resort: infer from the span name, e.g. "GET /auth/login".
	if strings.Contains(rec.Name, "/") {
		for _, part := range strings.Split(rec.Name, "/") {
			if part == "" || genericSegment(part) {
				continue
			}
			return part
		}
	}

	return ""
}

// firstPathSegment returns the first segment of an HTTP target path,
// e.g. "/api/auth/login" -> "api".
func firstPathSegment(target string) string {
	trimmed := strings.Trim(target, "/")
	if trimmed == "" {
		return ""
	}
	if i := strings.Index(trimmed, "/"); i >= 0 {
		return trimmed[:i]
	}
	return trimmed
}

// genericSegment reports whether a span-name segment is too generic to name
// a service ("api", version prefixes like "v1").
func genericSegment(part string) bool {
	return strings.HasPrefix(part, "api") || strings.HasPrefix(part, "v")
}
