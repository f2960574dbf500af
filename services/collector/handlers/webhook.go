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
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/rootscout/services/changes"
	"github.com/AleutianAI/rootscout/services/collector/observability"
)

// eventTypeHeader names the delivery's event type ("push", "pull_request",
// "deployment_status", ...).
const eventTypeHeader = "X-GitHub-Event"

// HandleGitHubWebhook accepts GitHub webhook deliveries on /webhook/github.
// Signature verification happens in middleware before this runs. Unknown
// event types are acknowledged with 200 so GitHub does not retry them.
func HandleGitHubWebhook(ingester *changes.GitHubIngester) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventType := c.GetHeader(eventTypeHeader)
		if eventType == "" {
			recordWebhook("missing", "rejected")
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing " + eventTypeHeader + " header"})
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			recordWebhook(eventType, "rejected")
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
			return
		}

		if err := ingester.HandleEvent(c.Request.Context(), eventType, body); err != nil {
			recordWebhook(eventType, "error")
			slog.Error("webhook handling failed", "event_type", eventType, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		recordWebhook(eventType, "accepted")
		c.JSON(http.StatusOK, gin.H{"status": "accepted"})
	}
}

func recordWebhook(eventType, status string) {
	if observability.DefaultMetrics != nil {
		observability.DefaultMetrics.RecordWebhook(eventType, status)
	}
}
