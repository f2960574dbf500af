// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package changes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher keeps a warm in-memory view of the change log so the query path
// never reads the file. It reloads on filesystem notifications; the log is
// append-only and small relative to telemetry volume, so a full re-read per
// notification is the simplest correct behavior (and also covers truncation
// and atomic rename rewrites).
type Watcher struct {
	path     string
	reader   *LogReader
	logger   *slog.Logger
	onReload func(count int)

	mu     sync.RWMutex
	events []ChangeEvent
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithOnReload registers a callback invoked with the in-memory event count
// after every reload, including the initial load. Used to feed gauges.
func WithOnReload(fn func(count int)) WatcherOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// NewWatcher creates a watcher over the change log at path.
func NewWatcher(path string, logger *slog.Logger, opts ...WatcherOption) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{
		path:   path,
		reader: NewLogReader(path),
		logger: logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Events returns a copy of the current in-memory view.
func (w *Watcher) Events() []ChangeEvent {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]ChangeEvent, len(w.events))
	copy(out, w.events)
	return out
}

// Run loads the log and then blocks, reloading on every notification that
// touches it, until ctx is cancelled. The parent directory is watched (not
// the file itself) so creations and renames are seen.
func (w *Watcher) Run(ctx context.Context) error {
	w.reload()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create change log watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	w.logger.Info("watching change log", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				w.reload()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("change log watch error", "error", err)
		}
	}
}

// reload replaces the in-memory view with the log's current contents.
// A missing file resets the view to empty; that is the log's initial state,
// not a failure.
func (w *Watcher) reload() {
	events, err := w.reader.ReadAll()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.logger.Warn("change log reload failed", "path", w.path, "error", err)
			return
		}
		events = nil
	}

	w.mu.Lock()
	w.events = events
	w.mu.Unlock()

	if w.onReload != nil {
		w.onReload(len(events))
	}
	w.logger.Debug("change log reloaded", "path", w.path, "events", len(events))
}
