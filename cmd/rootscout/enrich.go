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
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/rootscout/services/changes"
	"github.com/AleutianAI/rootscout/services/collector"
	"github.com/AleutianAI/rootscout/services/graph"
)

var (
	enrichPacketPath string

	enrichCmd = &cobra.Command{
		Use:   "enrich [service]",
		Short: "Join logged change events onto a context packet, offline",
		Long: `Reads the configured change log and joins its events onto a context
packet without a running collector. The packet comes from --packet (a
JSON file, e.g. saved from "rootscout query"); without one, a minimal
packet holding only the named service is used, which shows what change
history would attach to it.`,
		Args: cobra.ExactArgs(1),
		Run:  runEnrichCommand,
	}
)

func init() {
	enrichCmd.Flags().StringVar(&enrichPacketPath, "packet", "",
		"path to a context packet JSON to enrich (empty builds a bare one)")
}

func runEnrichCommand(cmd *cobra.Command, args []string) {
	cfg, err := collector.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	packet, err := loadPacket(enrichPacketPath, args[0])
	if err != nil {
		log.Fatalf("Error loading packet: %v", err)
	}

	events, err := changes.NewLogReader(cfg.ChangeLog).ReadAll()
	if err != nil {
		log.Fatalf("Error reading change log %s: %v", cfg.ChangeLog, err)
	}

	packet = changes.NewEnricher().Enrich(packet, events,
		cfg.Lookback(), cfg.MaxPerService)

	out, err := json.Marshal(packet)
	if err != nil {
		log.Fatalf("Error encoding packet: %v", err)
	}
	printJSON(out)
}

// loadPacket reads a context packet from a JSON file, or builds a minimal
// single-node packet for service when path is empty. A file packet without
// a focus service is focused on the named service.
func loadPacket(path, service string) (graph.ContextPacket, error) {
	if path == "" {
		return graph.ContextPacket{
			FocusService: service,
			RelatedNodes: []graph.NodeSummary{
				{Service: service, Status: graph.StatusUnknown, Version: "unknown"},
			},
		}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return graph.ContextPacket{}, fmt.Errorf("read packet: %w", err)
	}
	var packet graph.ContextPacket
	if err := json.Unmarshal(raw, &packet); err != nil {
		return graph.ContextPacket{}, fmt.Errorf("parse packet: %w", err)
	}
	if packet.FocusService == "" {
		packet.FocusService = service
	}
	return packet, nil
}
