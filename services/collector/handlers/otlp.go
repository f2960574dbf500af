// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the collector's HTTP endpoints.
package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/rootscout/services/collector/observability"
	"github.com/AleutianAI/rootscout/services/ingest"
)

// countHeader reports how many records a payload normalized into. Load
// generators use it to confirm nothing was silently dropped.
const countHeader = "X-RootScout-Count"

// maxOTLPBody bounds OTLP request bodies. The OTLP spec has no limit, but
// a single export beyond this is almost certainly a misconfigured batcher.
const maxOTLPBody = 32 << 20

// HandleTraces accepts OTLP trace exports on /v1/traces, protobuf or JSON.
func HandleTraces(n *ingest.Normalizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := readBody(c)
		if !ok {
			return
		}

		req, err := ingest.DecodeTraces(c.ContentType(), body)
		if err != nil {
			rejectDecode(c, err)
			return
		}

		result := n.IngestTraces(req)
		respondIngest(c, result)
	}
}

// HandleMetrics accepts OTLP metric exports on /v1/metrics.
func HandleMetrics(n *ingest.Normalizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := readBody(c)
		if !ok {
			return
		}

		req, err := ingest.DecodeMetrics(c.ContentType(), body)
		if err != nil {
			rejectDecode(c, err)
			return
		}

		result := n.IngestMetrics(req)
		respondIngest(c, result)
	}
}

// HandleLogs accepts OTLP log exports on /v1/logs.
func HandleLogs(n *ingest.Normalizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := readBody(c)
		if !ok {
			return
		}

		req, err := ingest.DecodeLogs(c.ContentType(), body)
		if err != nil {
			rejectDecode(c, err)
			return
		}

		result := n.IngestLogs(req)
		respondIngest(c, result)
	}
}

func readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxOTLPBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
		return nil, false
	}
	return body, true
}

func rejectDecode(c *gin.Context, err error) {
	var decodeErr *ingest.DecodeError
	if errors.As(err, &decodeErr) && observability.DefaultMetrics != nil {
		observability.DefaultMetrics.RecordDecodeFailure(
			string(decodeErr.Signal), decodeErr.ContentType)
	}
	slog.Warn("rejected OTLP payload", "error", err)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func respondIngest(c *gin.Context, result ingest.IngestResult) {
	if observability.DefaultMetrics != nil {
		observability.DefaultMetrics.RecordIngest(result.Kind, result.Count)
	}
	c.Header(countHeader, strconv.Itoa(result.Count))
	c.JSON(http.StatusOK, result)
}
