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
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/rootscout/services/changes"
	"github.com/AleutianAI/rootscout/services/collector"
)

var (
	backfillLimit int

	backfillCmd = &cobra.Command{
		Use:   "backfill [owner/repo]",
		Short: "Seed the change log from a repo's recently updated pull requests",
		Long: `Fetches the most recently updated pull requests from GitHub and appends
their change events to the configured change log. Useful on a fresh
deployment so the enricher has history to correlate against.`,
		Args: cobra.ExactArgs(1),
		Run:  runBackfillCommand,
	}
)

func init() {
	backfillCmd.Flags().IntVar(&backfillLimit, "limit", 30,
		"maximum pull requests to backfill")
}

func runBackfillCommand(cmd *cobra.Command, args []string) {
	owner, repo, ok := strings.Cut(args[0], "/")
	if !ok || owner == "" || repo == "" {
		log.Fatalf("Expected owner/repo, got %q", args[0])
	}

	cfg, err := collector.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	if len(cfg.GitHub.WatchRules) == 0 {
		log.Fatalf("No watch rules configured; nothing would match")
	}

	sink := changes.NewFileSink(cfg.ChangeLog)
	client := changes.NewGitHubClient(cfg.GitHub.Token)
	ingester := changes.NewGitHubIngester(client, sink, cfg.GitHub.WatchRules)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	n, err := ingester.BackfillPullRequests(ctx, owner, repo, backfillLimit)
	if err != nil {
		log.Fatalf("Backfill failed: %v", err)
	}
	log.Printf("Backfilled %d change events into %s", n, cfg.ChangeLog)
}
