// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package changes ingests source-control change events and joins them onto
// context packets.
//
// # Description
//
// Change events arrive from a source-control collaborator (the GitHub
// ingester here, or anything else that appends to the change log). The core
// treats the log as opaque and append-only: the reader tolerates malformed
// lines, the watcher keeps a warm in-memory view, and the enricher performs
// a best-effort, time-windowed join onto the node summaries of a context
// packet. Zero matches is a normal outcome, never an error.
package changes

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// ChangeFile is one changed file within a change event.
type ChangeFile struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`

	// Patch is the unified-diff hunk text, when the source supplied it.
	Patch string `json:"patch,omitempty"`
}

// ChangeEvent is one normalized source-control change.
type ChangeEvent struct {
	// IngestedAt is when the change-tracking collaborator recorded the
	// event (RFC 3339). It drives the enrichment lookback window.
	IngestedAt time.Time `json:"ingested_at"`

	// EventType is the source's event kind ("push", "pull_request",
	// "deployment", ...).
	EventType string `json:"event_type"`

	RepoOwner string `json:"repo_owner,omitempty"`
	RepoName  string `json:"repo_name,omitempty"`

	// ServiceID is the join key against graph node names.
	ServiceID string `json:"service_id"`

	WatchPathPrefix string `json:"watch_path_prefix,omitempty"`

	CommitSHA string `json:"commit_sha,omitempty"`
	PRNumber  int    `json:"pr_number,omitempty"`

	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`

	// Files are the changed files, filtered to the watched path prefix.
	Files []ChangeFile `json:"files,omitempty"`
}

// Repo returns "owner/name", or "" when either half is missing.
func (e ChangeEvent) Repo() string {
	if e.RepoOwner == "" || e.RepoName == "" {
		return ""
	}
	return e.RepoOwner + "/" + e.RepoName
}

// ChangeSink receives change events as they are ingested.
type ChangeSink interface {
	Emit(ev ChangeEvent) error
}

// SlogSink logs each change event. Useful when no change log is configured.
type SlogSink struct {
	Logger *slog.Logger
}

// Emit implements ChangeSink.
func (s *SlogSink) Emit(ev ChangeEvent) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("change event",
		"event_type", ev.EventType,
		"service_id", ev.ServiceID,
		"repo", ev.Repo(),
		"files", len(ev.Files),
	)
	return nil
}

// FileSink appends change events to a JSONL log, one event per line. This
// is the producer side of the log the reader and watcher consume.
type FileSink struct {
	mu   sync.Mutex
	path string
}

// NewFileSink creates a sink appending to path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Emit implements ChangeSink.
func (s *FileSink) Emit(ev ChangeEvent) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("open change log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append change event: %w", err)
	}
	return nil
}
