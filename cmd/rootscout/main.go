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
	"log"

	"github.com/spf13/cobra"
)

var (
	configPath string
	serverURL  string

	rootCmd = &cobra.Command{
		Use:   "rootscout",
		Short: "A CLI to run and query the RootScout dependency collector",
		Long: `RootScout ingests OTLP telemetry and GitHub change events, maintains a
live service dependency graph, and assembles root-cause context packets
for incident investigation.`,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to the collector config YAML (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:12400",
		"base URL of a running collector, for query commands")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(rcaCmd)
	rootCmd.AddCommand(enrichCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(simulateCmd)
}
