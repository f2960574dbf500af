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

import "fmt"

// Retriever answers "what is relevant to this failing service" queries
// against the Store.
type Retriever struct {
	store *Store
}

// NewRetriever creates a Retriever reading from store.
func NewRetriever(store *Store) *Retriever {
	return &Retriever{store: store}
}

// Context collects the focus service and everything reachable from it into
// a fresh ContextPacket.
//
// RelatedNodes is ordered by BFS visitation, focus first. Every summary
// carries copies of the node's events (as envelopes), so the packet is
// immune to later graph writes. Returns ErrServiceNotFound (wrapped with
// the name) when the focus service has never been seen.
func (r *Retriever) Context(focusService string) (ContextPacket, error) {
	reachable := r.store.ReachableSet(focusService)
	if len(reachable) == 0 {
		return ContextPacket{}, fmt.Errorf("%w: %q", ErrServiceNotFound, focusService)
	}

	packet := ContextPacket{
		FocusService: focusService,
		RelatedNodes: make([]NodeSummary, 0, len(reachable)),
	}

	for _, name := range reachable {
		info, ok := r.store.Node(name)
		if !ok {
			// Unreachable; the store never deletes nodes.
			continue
		}

		version := info.Version
		if version == "" {
			version = "unknown"
		}

		events := make([]Envelope, 0, len(info.Events))
		for _, ev := range info.Events {
			events = append(events, ev.Envelope())
		}

		packet.RelatedNodes = append(packet.RelatedNodes, NodeSummary{
			Service: name,
			Status:  info.Status,
			Version: version,
			Events:  events,
		})
	}

	return packet, nil
}
