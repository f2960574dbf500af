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
	"sort"
	"strings"
	"sync"
)

// DefaultMaxRecentEvents caps a node's recent-event history. The original
// system kept this unbounded; a long-running collector cannot.
const DefaultMaxRecentEvents = 100

// edge is one directed caller→callee dependency.
type edge struct {
	to            string
	latencyMillis float64
}

// node is the internal representation of a service.
type node struct {
	status   Status
	version  string
	metadata map[string]string
	events   []Event

	// out holds outgoing edges in first-insertion order; outIndex gives
	// O(1) upsert. Successor ordering is part of the traversal contract.
	out      []*edge
	outIndex map[string]*edge
}

// Store is the mutable directed service-dependency graph.
//
// Nodes are keyed by service name and created lazily on first reference with
// status unknown. Nothing is ever deleted; the graph is in-memory and
// rebuildable from a telemetry replay.
//
// Construct one Store at process start and pass it by reference to every
// ingestion and query component. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	nodes map[string]*node

	maxRecentEvents int
	edgeCount       int
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithMaxRecentEvents sets the per-node event-history cap. Zero disables the
// cap (matching the original behavior; not recommended for long-lived
// processes).
func WithMaxRecentEvents(n int) StoreOption {
	return func(s *Store) {
		s.maxRecentEvents = n
	}
}

// NewStore creates an empty graph.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		nodes:           make(map[string]*node),
		maxRecentEvents: DefaultMaxRecentEvents,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// blankName reports whether name must be absorbed as a no-op. The graph
// never holds an empty-string node.
func blankName(name string) bool {
	return strings.TrimSpace(name) == ""
}

// ensureLocked returns the node for name, creating it with default
// attributes if absent. Caller holds the write lock.
func (s *Store) ensureLocked(name string) *node {
	n, ok := s.nodes[name]
	if !ok {
		n = &node{
			status:   StatusUnknown,
			outIndex: make(map[string]*edge),
		}
		s.nodes[name] = n
	}
	return n
}

// EnsureNode creates the node if absent. Idempotent: an existing node's
// status, version, and events are left untouched.
func (s *Store) EnsureNode(name string) {
	if blankName(name) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(name)
}

// UpsertEdge ensures both endpoints exist and sets the caller→callee edge's
// latency, overwriting any previous value (last write wins, no duplicate
// edges). Self-edges are dropped: a span resolving its own service as its
// parent is a construction error, not a dependency.
func (s *Store) UpsertEdge(caller, callee string, latencyMillis float64) {
	if blankName(caller) || blankName(callee) || caller == callee {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.ensureLocked(caller)
	s.ensureLocked(callee)

	if e, ok := from.outIndex[callee]; ok {
		e.latencyMillis = latencyMillis
		return
	}
	e := &edge{to: callee, latencyMillis: latencyMillis}
	from.out = append(from.out, e)
	from.outIndex[callee] = e
	s.edgeCount++
}

// SetStatus ensures the node exists and overwrites its status.
func (s *Store) SetStatus(name string, status Status) {
	if blankName(name) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(name).status = status
}

// SetVersion ensures the node exists and overwrites its version tag.
func (s *Store) SetVersion(name, version string) {
	if blankName(name) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(name).version = version
}

// SetMetadata ensures the node exists and sets one metadata key.
func (s *Store) SetMetadata(name, key, value string) {
	if blankName(name) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.ensureLocked(name)
	if n.metadata == nil {
		n.metadata = make(map[string]string)
	}
	n.metadata[key] = value
}

// AppendEvent ensures the node exists and appends to its event history.
// Append-only, newest last; when the history cap is reached the oldest
// entries are dropped, never reordered.
func (s *Store) AppendEvent(name string, ev Event) {
	if blankName(name) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.ensureLocked(name)
	n.events = append(n.events, ev)
	if s.maxRecentEvents > 0 && len(n.events) > s.maxRecentEvents {
		overflow := len(n.events) - s.maxRecentEvents
		n.events = append(n.events[:0], n.events[overflow:]...)
	}
}

// Successors returns the directly dependent service names of name, in edge
// insertion order. Empty when the node is absent.
func (s *Store) Successors(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[name]
	if !ok {
		return nil
	}
	out := make([]string, len(n.out))
	for i, e := range n.out {
		out[i] = e.to
	}
	return out
}

// ReachableSet returns the breadth-first traversal order from name along
// caller→callee edges: name itself first, each node at most once. Empty when
// name is absent.
func (s *Store) ReachableSet(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[name]; !ok {
		return nil
	}

	visited := map[string]bool{name: true}
	order := []string{name}
	queue := []string{name}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, e := range s.nodes[current].out {
			if visited[e.to] {
				continue
			}
			visited[e.to] = true
			order = append(order, e.to)
			queue = append(queue, e.to)
		}
	}

	return order
}

// Node returns a deep copy of one node, or ok=false when absent.
func (s *Store) Node(name string) (NodeInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[name]
	if !ok {
		return NodeInfo{}, false
	}
	return s.copyLocked(name, n), true
}

// Services returns all known service names, sorted for stable output.
func (s *Store) Services() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.nodes))
	for name := range s.nodes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Edges returns copies of every edge, ordered by caller then insertion.
func (s *Store) Edges() []EdgeInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.nodes))
	for name := range s.nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]EdgeInfo, 0, s.edgeCount)
	for _, name := range names {
		for _, e := range s.nodes[name].out {
			out = append(out, EdgeInfo{From: name, To: e.to, LatencyMillis: e.latencyMillis})
		}
	}
	return out
}

// Len returns the number of nodes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// EdgeCount returns the number of distinct edges.
func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.edgeCount
}

// copyLocked deep-copies a node. Caller holds at least the read lock.
func (s *Store) copyLocked(name string, n *node) NodeInfo {
	info := NodeInfo{
		Service: name,
		Status:  n.status,
		Version: n.version,
	}
	if len(n.metadata) > 0 {
		info.Metadata = make(map[string]string, len(n.metadata))
		for k, v := range n.metadata {
			info.Metadata[k] = v
		}
	}
	info.Events = make([]Event, len(n.events))
	copy(info.Events, n.events)
	return info
}
