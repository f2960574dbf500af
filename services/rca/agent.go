// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rca turns a dependency context packet into a root cause report.
// The agent linearizes the packet into a prompt, asks an LLM backend for a
// structured verdict, and decodes the reply.
package rca

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AleutianAI/rootscout/services/graph"
	"github.com/AleutianAI/rootscout/services/llm"
)

// Report is the structured verdict returned by the model. When the model
// replies with something that is not valid JSON, Raw carries the reply
// verbatim and the other fields stay zero.
type Report struct {
	RootCauseService  string  `json:"root_cause_service"`
	Confidence        float64 `json:"confidence"`
	Reasoning         string  `json:"reasoning"`
	RecommendedAction string  `json:"recommended_action"`
	Raw               string  `json:"raw_response,omitempty"`
}

// Agent drives one analysis round trip.
type Agent struct {
	client llm.Client
	logger *slog.Logger
}

// NewAgent builds an agent over the given backend. A nil client falls back
// to the offline mock so demos work without credentials.
func NewAgent(client llm.Client) *Agent {
	if client == nil {
		client = llm.NewMockClient()
	}
	return &Agent{
		client: client,
		logger: slog.Default().With("component", "rca_agent"),
	}
}

// Analyze builds the prompt for the packet, calls the backend, and decodes
// the reply into a Report.
func (a *Agent) Analyze(ctx context.Context, packet graph.ContextPacket) (Report, error) {
	prompt := BuildPrompt(packet)
	a.logger.Debug("prompt constructed", "focus_service", packet.FocusService,
		"related_nodes", len(packet.RelatedNodes))

	reply, err := a.client.Generate(ctx, prompt, llm.GenerationParams{})
	if err != nil {
		return Report{}, fmt.Errorf("llm generate: %w", err)
	}

	return decodeReport(reply), nil
}

// BuildPrompt linearizes a context packet into the investigation prompt.
// Error nodes are marked [ERROR] so both models and the offline mock can
// spot them.
func BuildPrompt(packet graph.ContextPacket) string {
	var b strings.Builder

	b.WriteString("You are an SRE agent called RootScout.\n")
	fmt.Fprintf(&b, "You are investigating an alert on service: %s.\n\n", packet.FocusService)
	b.WriteString("Topology Context:\n")

	for _, node := range packet.RelatedNodes {
		marker := "[OK]"
		if node.Status == graph.StatusError {
			marker = "[ERROR]"
		}
		fmt.Fprintf(&b, "- Service: %s %s (version %s)\n", node.Service, marker, node.Version)
		for _, ev := range node.Events {
			fmt.Fprintf(&b, "  - Event: %s", ev.Kind)
			if commit := envelopeCommit(ev); commit != "" {
				fmt.Fprintf(&b, " (Commit: %s)", commit)
			}
			fmt.Fprintf(&b, " at %s", ev.Timestamp.UTC().Format(time.RFC3339))
			if ev.Summary != "" {
				fmt.Fprintf(&b, ": %s", ev.Summary)
			}
			b.WriteByte('\n')
		}
	}

	b.WriteString(`
Task:
Identify the root cause of the failure.
Look for recent changes (deployments, code changes) in dependencies that correlate with the error.
Return a JSON object with:
- root_cause_service: <name>
- confidence: <0-1>
- reasoning: <explanation>
- recommended_action: <action>
`)
	return b.String()
}

// decodeReport strips optional markdown code fences and decodes the model
// reply. Non-JSON replies are preserved verbatim in Raw.
func decodeReport(reply string) Report {
	cleaned := strings.TrimSpace(reply)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var report Report
	if err := json.Unmarshal([]byte(cleaned), &report); err != nil {
		return Report{Raw: reply}
	}
	return report
}

// envelopeCommit digs a commit sha out of an event envelope payload.
func envelopeCommit(ev graph.Envelope) string {
	if ev.Payload == nil {
		return ""
	}
	if sha, ok := ev.Payload["commit"].(string); ok {
		return sha
	}
	if meta, ok := ev.Payload["_meta"].(map[string]any); ok {
		if sha, ok := meta["commit_sha"].(string); ok {
			return sha
		}
	}
	return ""
}
