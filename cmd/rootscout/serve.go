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
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/rootscout/services/collector"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the collector: OTLP receivers, GitHub webhook, and query API",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := collector.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := collector.Run(ctx, cfg); err != nil {
		log.Fatalf("Collector exited with error: %v", err)
	}
}
