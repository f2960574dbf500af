// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides HTTP middleware for the collector service.
package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// signatureHeader is the GitHub HMAC header added to every delivery when
// the webhook has a secret configured.
const signatureHeader = "X-Hub-Signature-256"

// VerifyGitHubSignature validates the delivery body against the configured
// webhook secret. An empty secret disables verification so local setups
// without a secret keep working; production deployments should always set
// one.
//
// The body is read fully and restored on the request so downstream
// handlers can bind it as usual.
func VerifyGitHubSignature(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		sig := c.GetHeader(signatureHeader)
		if !validSignature(secret, body, sig) {
			slog.Warn("rejected webhook delivery with bad signature",
				"remote", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}

		c.Next()
	}
}

// validSignature checks a "sha256=<hex>" header value against the HMAC of
// the body. Comparison is constant time.
func validSignature(secret string, body []byte, header string) bool {
	const prefix = "sha256="
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	want, err := hex.DecodeString(header[len(prefix):])
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}
