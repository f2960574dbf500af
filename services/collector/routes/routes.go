// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/rootscout/services/changes"
	"github.com/AleutianAI/rootscout/services/collector/handlers"
	"github.com/AleutianAI/rootscout/services/collector/middleware"
	"github.com/AleutianAI/rootscout/services/graph"
	"github.com/AleutianAI/rootscout/services/ingest"
	"github.com/AleutianAI/rootscout/services/rca"
)

// Deps carries everything the route tree needs.
type Deps struct {
	Normalizer    *ingest.Normalizer
	Store         *graph.Store
	Ingester      *changes.GitHubIngester
	Agent         *rca.Agent
	Context       handlers.ContextDeps
	WebhookSecret string
}

func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.Use(middleware.RequestID())

	// OTLP/HTTP receivers. Paths follow the OTLP spec so standard SDK
	// exporters can point straight at the collector.
	v1 := router.Group("/v1")
	{
		v1.POST("/traces", handlers.HandleTraces(deps.Normalizer))
		v1.POST("/metrics", handlers.HandleMetrics(deps.Normalizer))
		v1.POST("/logs", handlers.HandleLogs(deps.Normalizer))

		v1.GET("/context/:service", handlers.HandleGetContext(deps.Context))
		v1.POST("/rca/:service", handlers.HandleAnalyze(deps.Context, deps.Agent))

		// Graph administration routes
		graphAdmin := v1.Group("/graph")
		{
			graphAdmin.GET("/services", handlers.HandleListServices(deps.Store))
			graphAdmin.GET("/services/:service", handlers.HandleGetNode(deps.Store))
			graphAdmin.GET("/services/:service/successors", handlers.HandleNodeSuccessors(deps.Store))
			graphAdmin.GET("/services/:service/reachable", handlers.HandleNodeReachable(deps.Store))
			graphAdmin.GET("/edges", handlers.HandleListEdges(deps.Store))
			graphAdmin.GET("/summary", handlers.HandleGraphSummary(deps.Store))
		}
	}

	webhook := router.Group("/webhook")
	webhook.Use(middleware.VerifyGitHubSignature(deps.WebhookSecret))
	{
		webhook.POST("/github", handlers.HandleGitHubWebhook(deps.Ingester))
	}
}
