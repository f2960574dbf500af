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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherInitialLoadAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changes.jsonl")
	sink := NewFileSink(path)
	require.NoError(t, sink.Emit(ChangeEvent{EventType: "commit", ServiceID: "auth"}))

	w := NewWatcher(path, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(w.Events()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, sink.Emit(ChangeEvent{EventType: "commit", ServiceID: "cart"}))

	require.Eventually(t, func() bool {
		return len(w.Events()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWatcherReloadCallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changes.jsonl")
	sink := NewFileSink(path)
	require.NoError(t, sink.Emit(ChangeEvent{EventType: "commit", ServiceID: "auth"}))
	require.NoError(t, sink.Emit(ChangeEvent{EventType: "commit", ServiceID: "cart"}))

	var counts []int
	w := NewWatcher(path, nil, WithOnReload(func(count int) {
		counts = append(counts, count)
	}))

	w.reload()
	require.Equal(t, []int{2}, counts)

	require.NoError(t, sink.Emit(ChangeEvent{EventType: "commit", ServiceID: "redis"}))
	w.reload()
	assert.Equal(t, []int{2, 3}, counts)
}

func TestWatcherMissingLogIsEmpty(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "changes.jsonl"), nil)
	w.reload()
	assert.Empty(t, w.Events())
}

func TestWatcherEventsReturnsCopy(t *testing.T) {
	w := NewWatcher("unused", nil)
	w.events = []ChangeEvent{{ServiceID: "auth"}}

	got := w.Events()
	got[0].ServiceID = "mutated"

	assert.Equal(t, "auth", w.events[0].ServiceID)
}
