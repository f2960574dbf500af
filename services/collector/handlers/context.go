// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/rootscout/services/changes"
	"github.com/AleutianAI/rootscout/services/collector/observability"
	"github.com/AleutianAI/rootscout/services/graph"
	"github.com/AleutianAI/rootscout/services/rca"
)

// ContextDeps bundles what the query endpoints need to assemble an
// enriched context packet.
type ContextDeps struct {
	Retriever *graph.Retriever
	Enricher  *changes.Enricher
	Watcher   *changes.Watcher

	// Lookback and MaxPerService tune enrichment; zero values fall back
	// to the package defaults.
	Lookback      time.Duration
	MaxPerService int
}

func (d ContextDeps) lookback() time.Duration {
	if d.Lookback > 0 {
		return d.Lookback
	}
	return changes.DefaultLookback
}

func (d ContextDeps) maxPerService() int {
	if d.MaxPerService > 0 {
		return d.MaxPerService
	}
	return changes.DefaultMaxPerService
}

// packet assembles the enriched context packet for one service.
func (d ContextDeps) packet(service string) (graph.ContextPacket, error) {
	start := time.Now()
	packet, err := d.Retriever.Context(service)
	if err != nil {
		if observability.DefaultMetrics != nil {
			observability.DefaultMetrics.RecordRetrieval(time.Since(start).Seconds(), false)
		}
		return graph.ContextPacket{}, err
	}

	if d.Enricher != nil && d.Watcher != nil {
		packet = d.Enricher.Enrich(packet, d.Watcher.Events(), d.lookback(), d.maxPerService())
	}

	if observability.DefaultMetrics != nil {
		observability.DefaultMetrics.RecordRetrieval(time.Since(start).Seconds(), true)
	}
	return packet, nil
}

// HandleGetContext serves GET /v1/context/:service. The packet is the BFS
// neighborhood of the service with telemetry and change events attached.
func HandleGetContext(deps ContextDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		service := c.Param("service")

		packet, err := deps.packet(service)
		if err != nil {
			if errors.Is(err, graph.ErrServiceNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, packet)
	}
}

// HandleAnalyze serves POST /v1/rca/:service. It assembles the enriched
// packet and runs the root cause agent over it.
func HandleAnalyze(deps ContextDeps, agent *rca.Agent) gin.HandlerFunc {
	return func(c *gin.Context) {
		service := c.Param("service")

		packet, err := deps.packet(service)
		if err != nil {
			if errors.Is(err, graph.ErrServiceNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		report, err := agent.Analyze(c.Request.Context(), packet)
		if err != nil {
			slog.Error("root cause analysis failed", "service", service, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"focus_service": service,
			"report":        report,
		})
	}
}
