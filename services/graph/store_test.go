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
	"fmt"
	"reflect"
	"sync"
	"testing"
)

func TestEnsureNodeIdempotent(t *testing.T) {
	s := NewStore()

	s.EnsureNode("frontend")
	s.SetStatus("frontend", StatusError)
	s.SetVersion("frontend", "v2")
	s.AppendEvent("frontend", Event{Type: EventTypeDeployment, Commit: "abc"})

	s.EnsureNode("frontend")

	info, ok := s.Node("frontend")
	if !ok {
		t.Fatal("node missing after EnsureNode")
	}
	if info.Status != StatusError {
		t.Errorf("status reset: got %v", info.Status)
	}
	if info.Version != "v2" {
		t.Errorf("version reset: got %q", info.Version)
	}
	if len(info.Events) != 1 {
		t.Errorf("events reset: got %d", len(info.Events))
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 node, got %d", s.Len())
	}
}

func TestEnsureNodeBlankNameDropped(t *testing.T) {
	s := NewStore()
	s.EnsureNode("")
	s.EnsureNode("   ")
	if s.Len() != 0 {
		t.Errorf("blank names created nodes: %d", s.Len())
	}
}

func TestUpsertEdgeLastWriteWins(t *testing.T) {
	s := NewStore()

	s.UpsertEdge("frontend", "cart", 10)
	s.UpsertEdge("frontend", "cart", 25)

	edges := s.Edges()
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(edges))
	}
	if edges[0].LatencyMillis != 25 {
		t.Errorf("latency not overwritten: got %v", edges[0].LatencyMillis)
	}
	if s.EdgeCount() != 1 {
		t.Errorf("edge count wrong: %d", s.EdgeCount())
	}
}

func TestUpsertEdgeCreatesEndpoints(t *testing.T) {
	s := NewStore()
	s.UpsertEdge("frontend", "cart", 5)

	for _, name := range []string{"frontend", "cart"} {
		if _, ok := s.Node(name); !ok {
			t.Errorf("endpoint %q not created", name)
		}
	}
}

func TestUpsertEdgeRejectsSelfAndBlank(t *testing.T) {
	s := NewStore()

	s.UpsertEdge("cart", "cart", 5)
	s.UpsertEdge("", "cart", 5)
	s.UpsertEdge("cart", " ", 5)

	if s.EdgeCount() != 0 {
		t.Errorf("invalid edges stored: %d", s.EdgeCount())
	}
}

func TestReachableSetBFSOrderAndDedup(t *testing.T) {
	s := NewStore()

	// frontend -> cart -> auth -> redis, cart -> redis.
	// redis is reachable twice but must appear once, at its BFS depth.
	s.UpsertEdge("frontend", "cart", 1)
	s.UpsertEdge("cart", "auth", 1)
	s.UpsertEdge("cart", "redis", 1)
	s.UpsertEdge("auth", "redis", 1)

	got := s.ReachableSet("frontend")
	want := []string{"frontend", "cart", "auth", "redis"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReachableSet = %v, want %v", got, want)
	}
}

func TestReachableSetSiblingOrderIsInsertionOrder(t *testing.T) {
	s := NewStore()
	s.UpsertEdge("gw", "svc-b", 1)
	s.UpsertEdge("gw", "svc-a", 1)
	s.UpsertEdge("gw", "svc-c", 1)

	got := s.ReachableSet("gw")
	want := []string{"gw", "svc-b", "svc-a", "svc-c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("sibling order = %v, want %v", got, want)
	}
}

func TestReachableSetUnknownService(t *testing.T) {
	s := NewStore()
	s.EnsureNode("frontend")

	if got := s.ReachableSet("nonexistent"); got != nil {
		t.Errorf("expected nil for unknown service, got %v", got)
	}
}

func TestSuccessorsInsertionOrder(t *testing.T) {
	s := NewStore()
	s.UpsertEdge("gw", "svc-b", 1)
	s.UpsertEdge("gw", "svc-a", 1)
	s.UpsertEdge("gw", "svc-c", 1)
	s.UpsertEdge("svc-a", "db", 1)

	want := []string{"svc-b", "svc-a", "svc-c"}
	if got := s.Successors("gw"); !reflect.DeepEqual(got, want) {
		t.Errorf("Successors(gw) = %v, want %v", got, want)
	}

	// Re-upserting an existing edge must not move it.
	s.UpsertEdge("gw", "svc-b", 9)
	if got := s.Successors("gw"); !reflect.DeepEqual(got, want) {
		t.Errorf("Successors(gw) after re-upsert = %v, want %v", got, want)
	}

	if got := s.Successors("db"); len(got) != 0 {
		t.Errorf("Successors(db) = %v, want empty", got)
	}
	if got := s.Successors("nope"); got != nil {
		t.Errorf("Successors(nope) = %v, want nil", got)
	}
}

func TestAppendEventCapDropsOldest(t *testing.T) {
	s := NewStore(WithMaxRecentEvents(3))

	for i := 0; i < 5; i++ {
		s.AppendEvent("auth", Event{Type: EventTypeDeployment, Commit: fmt.Sprintf("c%d", i)})
	}

	info, _ := s.Node("auth")
	if len(info.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(info.Events))
	}
	for i, want := range []string{"c2", "c3", "c4"} {
		if info.Events[i].Commit != want {
			t.Errorf("event %d commit = %q, want %q", i, info.Events[i].Commit, want)
		}
	}
}

func TestAppendEventUnboundedWhenZero(t *testing.T) {
	s := NewStore(WithMaxRecentEvents(0))

	for i := 0; i < 250; i++ {
		s.AppendEvent("auth", Event{Type: EventTypeErrorLog})
	}
	info, _ := s.Node("auth")
	if len(info.Events) != 250 {
		t.Errorf("expected 250 events, got %d", len(info.Events))
	}
}

func TestNodeReturnsDeepCopy(t *testing.T) {
	s := NewStore()
	s.SetMetadata("auth", "team", "identity")
	s.AppendEvent("auth", Event{Type: EventTypeDeployment, Commit: "abc"})

	info, _ := s.Node("auth")
	info.Metadata["team"] = "mutated"
	info.Events[0].Commit = "mutated"

	fresh, _ := s.Node("auth")
	if fresh.Metadata["team"] != "identity" {
		t.Error("metadata copy is shared with the store")
	}
	if fresh.Events[0].Commit != "abc" {
		t.Error("events copy is shared with the store")
	}
}

func TestServicesSorted(t *testing.T) {
	s := NewStore()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		s.EnsureNode(name)
	}

	got := s.Services()
	want := []string{"alpha", "mid", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Services = %v, want %v", got, want)
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				from := fmt.Sprintf("svc-%d", i)
				to := fmt.Sprintf("svc-%d", (i+1)%8)
				s.UpsertEdge(from, to, float64(j))
				s.SetStatus(from, StatusOK)
				s.AppendEvent(from, Event{Type: EventTypeErrorLog})
				s.ReachableSet(from)
				s.Node(to)
			}
		}(i)
	}
	wg.Wait()

	if s.Len() != 8 {
		t.Errorf("expected 8 nodes, got %d", s.Len())
	}
}
