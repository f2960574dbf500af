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
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/rootscout/services/collector/observability"
	"github.com/AleutianAI/rootscout/services/graph"
)

// HandleListServices serves GET /v1/graph/services.
func HandleListServices(store *graph.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"services": store.Services()})
	}
}

// HandleGetNode serves GET /v1/graph/services/:service.
func HandleGetNode(store *graph.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		service := c.Param("service")
		info, ok := store.Node(service)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": graph.ErrServiceNotFound.Error()})
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

// HandleNodeSuccessors serves GET /v1/graph/services/:service/successors:
// the direct callees of one service, in edge insertion order.
func HandleNodeSuccessors(store *graph.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		service := c.Param("service")
		if _, ok := store.Node(service); !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": graph.ErrServiceNotFound.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"service":    service,
			"successors": store.Successors(service),
		})
	}
}

// HandleNodeReachable serves GET /v1/graph/services/:service/reachable:
// the BFS closure along caller→callee edges, the service itself first.
func HandleNodeReachable(store *graph.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		service := c.Param("service")
		reachable := store.ReachableSet(service)
		if reachable == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": graph.ErrServiceNotFound.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"service":   service,
			"reachable": reachable,
		})
	}
}

// HandleListEdges serves GET /v1/graph/edges.
func HandleListEdges(store *graph.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"edges": store.Edges()})
	}
}

// HandleGraphSummary serves GET /v1/graph/summary and refreshes the size
// gauges as a side effect.
func HandleGraphSummary(store *graph.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		nodes := store.Len()
		edges := store.EdgeCount()
		if observability.DefaultMetrics != nil {
			observability.DefaultMetrics.SetGraphSize(nodes, edges)
		}
		c.JSON(http.StatusOK, gin.H{
			"nodes": nodes,
			"edges": edges,
		})
	}
}

// HealthCheck serves GET /health for liveness probes.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
