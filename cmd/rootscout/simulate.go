// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/rootscout/services/changes"
	"github.com/AleutianAI/rootscout/services/graph"
	"github.com/AleutianAI/rootscout/services/ingest"
	"github.com/AleutianAI/rootscout/services/rca"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the full pipeline in-process on a synthetic incident",
	Long: `Builds a small service topology, injects an erroring dependency with a
recent code change, then retrieves, enriches, and analyzes the context
packet for the alerted service. No server or credentials needed.`,
	Run: runSimulateCommand,
}

func runSimulateCommand(cmd *cobra.Command, args []string) {
	store := graph.NewStore()
	adapter := graph.NewAdapter(store)
	health := graph.NewHealthAggregator(store)
	now := time.Now().UTC()

	// Topology: frontend -> cart -> auth, cart -> redis.
	spans := []graph.Span{
		{ServiceName: "frontend", Status: ingest.SpanStatusOK, LatencyMillis: 40, Name: "GET /"},
		{ServiceName: "cart", ParentService: "frontend", Status: ingest.SpanStatusOK, LatencyMillis: 22, Name: "GET /cart"},
		{ServiceName: "auth", ParentService: "cart", Status: ingest.SpanStatusError, LatencyMillis: 900, Name: "POST /verify"},
		{ServiceName: "redis", ParentService: "cart", Status: ingest.SpanStatusOK, LatencyMillis: 2, Name: "GET key"},
	}
	for _, s := range spans {
		adapter.IngestSpan(s)
	}

	// auth is failing loudly in its logs.
	health.IngestLog(ingest.LogRecord{
		RecordMeta:   ingest.RecordMeta{Service: "auth"},
		SeverityText: "ERROR",
		Body:         ingest.StringValue("token validation panic: nil deref in session cache"),
		TimeUnixNano: uint64(now.UnixNano()),
	})

	store.SetVersion("auth", "c4a7f2d")

	// A change landed on auth within the lookback window.
	events := []changes.ChangeEvent{{
		IngestedAt: now.Add(-2 * time.Hour),
		EventType:  "commit",
		RepoOwner:  "acme",
		RepoName:   "platform",
		ServiceID:  "auth",
		CommitSHA:  "c4a7f2d",
		Title:      "refactor session cache locking",
		Files: []changes.ChangeFile{
			{Filename: "services/auth/cache.go", Status: "modified", Additions: 31, Deletions: 12},
		},
	}}

	retriever := graph.NewRetriever(store)
	packet, err := retriever.Context("frontend")
	if err != nil {
		log.Fatalf("Retrieval failed: %v", err)
	}
	packet = changes.NewEnricher().Enrich(packet, events,
		changes.DefaultLookback, changes.DefaultMaxPerService)

	fmt.Println("=== Context packet for frontend ===")
	out, _ := json.MarshalIndent(packet, "", "  ")
	fmt.Println(string(out))

	agent := rca.NewAgent(nil)
	report, err := agent.Analyze(context.Background(), packet)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	fmt.Println("\n=== Root cause report ===")
	out, _ = json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))
}
