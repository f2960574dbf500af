// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package changes

import (
	"fmt"
	"sort"
	"time"

	"github.com/AleutianAI/rootscout/services/graph"
)

// Enrichment defaults, matching the observed operational settings.
const (
	// DefaultLookback is one week.
	DefaultLookback = 168 * time.Hour

	// DefaultMaxPerService caps envelopes attached to one node.
	DefaultMaxPerService = 25
)

// Enricher joins change events onto context packets.
type Enricher struct {
	now func() time.Time
}

// EnricherOption configures an Enricher.
type EnricherOption func(*Enricher)

// WithNow overrides the clock used for the lookback cutoff.
func WithNow(now func() time.Time) EnricherOption {
	return func(e *Enricher) {
		e.now = now
	}
}

// NewEnricher creates an Enricher.
func NewEnricher(opts ...EnricherOption) *Enricher {
	e := &Enricher{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich appends change-event envelopes to the matching node summaries of
// packet and returns the result as a new packet; the input is not modified.
//
// Events older than now-lookback or without a service id are dropped. The
// rest expand into per-file envelopes, grouped by service id, sorted newest
// first, and truncated to maxPerService (<=0 means no cap). Matching is by
// node service name; events and nodes without a partner on the other side
// are silently ignored.
func (e *Enricher) Enrich(packet graph.ContextPacket, events []ChangeEvent, lookback time.Duration, maxPerService int) graph.ContextPacket {
	cutoff := e.now().Add(-lookback)

	byService := make(map[string][]graph.Envelope)
	for _, ev := range events {
		if ev.ServiceID == "" {
			continue
		}
		if !ev.IngestedAt.IsZero() && ev.IngestedAt.Before(cutoff) {
			continue
		}
		byService[ev.ServiceID] = append(byService[ev.ServiceID], Envelopes(ev)...)
	}

	for svc, envs := range byService {
		sort.SliceStable(envs, func(i, j int) bool {
			return envs[i].Timestamp.After(envs[j].Timestamp)
		})
		if maxPerService > 0 && len(envs) > maxPerService {
			byService[svc] = envs[:maxPerService]
		}
	}

	out := graph.ContextPacket{
		FocusService: packet.FocusService,
		RelatedNodes: make([]graph.NodeSummary, len(packet.RelatedNodes)),
	}

	for i, node := range packet.RelatedNodes {
		enriched := node
		additions := byService[node.Service]
		enriched.Events = make([]graph.Envelope, 0, len(node.Events)+len(additions))
		enriched.Events = append(enriched.Events, node.Events...)
		enriched.Events = append(enriched.Events, additions...)
		out.RelatedNodes[i] = enriched
	}

	return out
}

// Envelopes expands one change event into envelope form: one envelope per
// changed file, or a single meta envelope when the event carries no file
// list.
func Envelopes(ev ChangeEvent) []graph.Envelope {
	meta := map[string]any{
		"event_type":        ev.EventType,
		"service_id":        ev.ServiceID,
		"watch_path_prefix": ev.WatchPathPrefix,
		"commit_sha":        ev.CommitSHA,
		"pr_number":         ev.PRNumber,
		"title":             ev.Title,
		"url":               ev.URL,
	}
	if repo := ev.Repo(); repo != "" {
		meta["repo"] = repo
	}

	if len(ev.Files) == 0 {
		eventType := ev.EventType
		if eventType == "" {
			eventType = "change"
		}
		return []graph.Envelope{{
			Source:    "github",
			Kind:      "change_meta",
			Timestamp: ev.IngestedAt,
			Summary:   fmt.Sprintf("%s observed (no files list)", eventType),
			Payload:   meta,
		}}
	}

	out := make([]graph.Envelope, 0, len(ev.Files))
	for _, f := range ev.Files {
		filename := f.Filename
		if filename == "" {
			filename = "unknown"
		}
		status := f.Status
		if status == "" {
			status = "unknown"
		}

		payload := map[string]any{
			"filename":  filename,
			"status":    status,
			"additions": f.Additions,
			"deletions": f.Deletions,
			"_meta":     meta,
		}
		if f.Patch != "" {
			payload["patch"] = f.Patch
		}

		out = append(out, graph.Envelope{
			Source:    "github",
			Kind:      "code_change",
			Timestamp: ev.IngestedAt,
			Summary:   fmt.Sprintf("%s: %s (+%d/-%d)", status, filename, f.Additions, f.Deletions),
			Payload:   payload,
		})
	}
	return out
}
