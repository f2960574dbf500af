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
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	queryCmd = &cobra.Command{
		Use:   "query [service]",
		Short: "Fetch the enriched context packet for a service from a running collector",
		Args:  cobra.ExactArgs(1),
		Run:   runQueryCommand,
	}

	rcaCmd = &cobra.Command{
		Use:   "rca [service]",
		Short: "Run root cause analysis for a service on a running collector",
		Args:  cobra.ExactArgs(1),
		Run:   runRCACommand,
	}
)

func runQueryCommand(cmd *cobra.Command, args []string) {
	url := fmt.Sprintf("%s/v1/context/%s", strings.TrimRight(serverURL, "/"), args[0])
	body := doRequest(http.MethodGet, url)
	printJSON(body)
}

func runRCACommand(cmd *cobra.Command, args []string) {
	url := fmt.Sprintf("%s/v1/rca/%s", strings.TrimRight(serverURL, "/"), args[0])
	body := doRequest(http.MethodPost, url)
	printJSON(body)
}

func doRequest(method, url string) []byte {
	client := &http.Client{Timeout: 60 * time.Second}
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		log.Fatalf("Error building request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("Error contacting collector at %s: %v", serverURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Error reading response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("Collector responded %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body
}

func printJSON(body []byte) {
	var pretty map[string]any
	if err := json.Unmarshal(body, &pretty); err != nil {
		fmt.Println(string(body))
		return
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		fmt.Println(string(body))
		return
	}
	fmt.Fprintln(os.Stdout, string(out))
}
