// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph maintains the live service-dependency graph and answers
// "what is relevant to this failing service" queries.
//
// # Description
//
// The Store is the single shared mutable resource of the RootScout core.
// Concurrent ingestion handlers feed it through two writers: the span
// Adapter (topology and per-span outcome) and the HealthAggregator (rolling
// counters and derived status). The Retriever reads it to produce bounded
// context packets for root-cause investigation.
//
// # Thread Safety
//
// All Store operations serialize on one RWMutex, so topology traversals
// always observe a consistent snapshot: never a half-inserted edge or a
// partially appended event list.
package graph

import (
	"strings"
	"time"
)

// Status is the health state of a service node.
type Status int

const (
	// StatusUnknown is the lazy-creation default; no signal seen yet.
	StatusUnknown Status = iota

	// StatusOK indicates the service looks healthy.
	StatusOK

	// StatusError indicates the service is failing.
	StatusError
)

// String returns the lowercase status name used on the wire and in prompts.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the status as its string form.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON parses the string form back into a Status. Unrecognized
// values map to StatusUnknown so packets from newer writers still load.
func (s *Status) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "ok":
		*s = StatusOK
	case "error":
		*s = StatusError
	default:
		*s = StatusUnknown
	}
	return nil
}

// EventType tags the variants of a node event.
type EventType string

const (
	// EventTypeDeployment records a deploy/change landing on a service.
	EventTypeDeployment EventType = "deployment"

	// EventTypeErrorLog records an ERROR-or-worse log line from a service.
	EventTypeErrorLog EventType = "error_log"
)

// Event is one entry in a node's recent-event history.
//
// Events are append-only and owned exclusively by their node; readers always
// get copies. Deployment events populate Commit and Summary; error-log
// events populate Severity, Message, and TraceID.
type Event struct {
	Type EventType `json:"type"`

	// Timestamp is unix seconds (fractional) of the underlying occurrence,
	// not of ingestion.
	Timestamp float64 `json:"timestamp"`

	// Deployment fields.
	Commit  string `json:"commit,omitempty"`
	Summary string `json:"summary,omitempty"`

	// Error-log fields.
	Severity string `json:"severity,omitempty"`
	Message  string `json:"message,omitempty"`
	TraceID  string `json:"trace_id,omitempty"`
}

// Envelope is the source-agnostic event form presented to consumers of a
// context packet. Node events and external change events both flatten into
// this shape so a packet's event list stays uniform.
type Envelope struct {
	// Source names the producing system ("telemetry", "github", ...).
	Source string `json:"source"`

	// Kind is the source-specific event kind ("deployment", "error_log",
	// "code_change", "change_meta", ...).
	Kind string `json:"kind"`

	// Timestamp orders envelopes; zero when the source had none.
	Timestamp time.Time `json:"timestamp"`

	// Summary is a one-line human/LLM-readable description.
	Summary string `json:"summary,omitempty"`

	// Payload carries source-specific details (file name, diff status,
	// patch text, severity, ...).
	Payload map[string]any `json:"payload,omitempty"`
}

// Envelope converts a node event into the shared envelope form.
func (e Event) Envelope() Envelope {
	var ts time.Time
	if e.Timestamp > 0 {
		sec := int64(e.Timestamp)
		nsec := int64((e.Timestamp - float64(sec)) * 1e9)
		ts = time.Unix(sec, nsec).UTC()
	}

	env := Envelope{
		Source:    "telemetry",
		Kind:      string(e.Type),
		Timestamp: ts,
	}

	switch e.Type {
	case EventTypeDeployment:
		env.Summary = e.Summary
		env.Payload = map[string]any{
			"commit": e.Commit,
		}
	case EventTypeErrorLog:
		env.Summary = e.Message
		env.Payload = map[string]any{
			"severity": e.Severity,
			"message":  e.Message,
		}
		if e.TraceID != "" {
			env.Payload["trace_id"] = e.TraceID
		}
	default:
		env.Summary = e.Summary
	}

	return env
}

// HealthCounters are the rolling per-service counters maintained by the
// HealthAggregator. Monotonically increasing; reset only on process restart.
type HealthCounters struct {
	ErrorCount       float64 `json:"error_count"`
	RequestCount     float64 `json:"request_count"`
	HighLatencyCount int     `json:"high_latency_count"`
}

// NodeInfo is a read-only copy of one service node.
type NodeInfo struct {
	Service  string            `json:"service"`
	Status   Status            `json:"status"`
	Version  string            `json:"version,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Events   []Event           `json:"recent_events"`
}

// EdgeInfo is a read-only copy of one dependency edge.
type EdgeInfo struct {
	From string `json:"from"`
	To   string `json:"to"`

	// LatencyMillis is the last-observed call latency, not an aggregate.
	LatencyMillis float64 `json:"latency_ms"`
}

// NodeSummary is one node's contribution to a context packet.
type NodeSummary struct {
	Service string     `json:"service"`
	Status  Status     `json:"status"`
	Version string     `json:"version"`
	Events  []Envelope `json:"events"`
}

// ContextPacket is the evidence bundle handed to the RCA collaborator.
//
// RelatedNodes is ordered by BFS visitation from the focus service, focus
// first. That ordering is a contract: downstream consumers present the list
// to a human or an LLM and expect the focus service at the top.
type ContextPacket struct {
	FocusService string        `json:"focus_service"`
	RelatedNodes []NodeSummary `json:"related_nodes"`
}
