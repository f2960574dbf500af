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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/rootscout/services/graph"
)

// memorySink collects emitted events.
type memorySink struct {
	events []ChangeEvent
}

func (s *memorySink) Emit(ev ChangeEvent) error {
	s.events = append(s.events, ev)
	return nil
}

var ingestNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func testIngester(responses map[string]mockResponse, rules []WatchRule, opts ...IngesterOption) (*GitHubIngester, *memorySink) {
	client, _ := mockedClient(responses)
	sink := &memorySink{}
	opts = append(opts, WithIngesterClock(func() time.Time { return ingestNow }))
	return NewGitHubIngester(client, sink, rules, opts...), sink
}

func TestWatchRuleID(t *testing.T) {
	assert.Equal(t, "auth", WatchRule{PathPrefix: "services/auth/"}.ID())
	assert.Equal(t, "auth", WatchRule{PathPrefix: "services/auth"}.ID())
	assert.Equal(t, "login", WatchRule{PathPrefix: "services/auth/", ServiceID: "login"}.ID())
}

func TestHandlePushSplitsByRule(t *testing.T) {
	ing, sink := testIngester(map[string]mockResponse{
		"https://gh.test/repos/acme/platform/commits/abc123": {
			status: 200,
			body: `{
				"sha": "abc123",
				"html_url": "https://github.com/acme/platform/commit/abc123",
				"commit": {"message": "touch both services\n\ndetails"},
				"files": [
					{"filename": "services/auth/db.go", "status": "modified", "additions": 3, "deletions": 1},
					{"filename": "services/cart/api.go", "status": "added", "additions": 10, "deletions": 0},
					{"filename": "docs/README.md", "status": "modified", "additions": 1, "deletions": 0}
				]
			}`,
		},
	}, []WatchRule{
		{PathPrefix: "services/auth/"},
		{PathPrefix: "services/cart/"},
	})

	body := []byte(`{
		"repository": {"name": "platform", "owner": {"login": "acme"}},
		"commits": [{"id": "abc123"}]
	}`)
	require.NoError(t, ing.HandleEvent(context.Background(), EventPush, body))

	require.Len(t, sink.events, 2)

	auth := sink.events[0]
	assert.Equal(t, "commit", auth.EventType)
	assert.Equal(t, "auth", auth.ServiceID)
	assert.Equal(t, "services/auth/", auth.WatchPathPrefix)
	assert.Equal(t, "abc123", auth.CommitSHA)
	assert.Equal(t, "touch both services", auth.Title)
	assert.Equal(t, ingestNow, auth.IngestedAt)
	require.Len(t, auth.Files, 1)
	assert.Equal(t, "services/auth/db.go", auth.Files[0].Filename)

	cart := sink.events[1]
	assert.Equal(t, "cart", cart.ServiceID)
	require.Len(t, cart.Files, 1)
	assert.Equal(t, "services/cart/api.go", cart.Files[0].Filename)
}

func TestHandlePushSkipsFailedCommitFetch(t *testing.T) {
	ing, sink := testIngester(map[string]mockResponse{
		"https://gh.test/repos/acme/platform/commits/good": {
			status: 200,
			body:   `{"sha": "good", "commit": {"message": "ok"}, "files": [{"filename": "services/auth/x.go", "status": "modified"}]}`,
		},
		// "bad" is unmapped and 404s.
	}, []WatchRule{{PathPrefix: "services/auth/"}})

	body := []byte(`{
		"repository": {"name": "platform", "owner": {"login": "acme"}},
		"commits": [{"id": "bad"}, {"id": "good"}]
	}`)
	require.NoError(t, ing.HandleEvent(context.Background(), EventPush, body))

	require.Len(t, sink.events, 1)
	assert.Equal(t, "good", sink.events[0].CommitSHA)
}

func TestHandlePullRequestActionFilter(t *testing.T) {
	ing, sink := testIngester(map[string]mockResponse{
		"https://gh.test/repos/acme/platform/pulls/7/files?per_page=100": {
			status: 200,
			body:   `[{"filename": "services/auth/handler.go", "status": "modified", "additions": 5, "deletions": 2}]`,
		},
	}, []WatchRule{{PathPrefix: "services/auth/"}})

	prBody := func(action string) []byte {
		return []byte(`{
			"action": "` + action + `",
			"repository": {"name": "platform", "owner": {"login": "acme"}},
			"pull_request": {
				"number": 7,
				"title": "Harden auth handler",
				"html_url": "https://github.com/acme/platform/pull/7",
				"head": {"sha": "feedbeef"}
			}
		}`)
	}

	require.NoError(t, ing.HandleEvent(context.Background(), EventPullRequest, prBody("labeled")))
	assert.Empty(t, sink.events)

	require.NoError(t, ing.HandleEvent(context.Background(), EventPullRequest, prBody("synchronize")))
	require.Len(t, sink.events, 1)

	ev := sink.events[0]
	assert.Equal(t, "pull_request", ev.EventType)
	assert.Equal(t, 7, ev.PRNumber)
	assert.Equal(t, "feedbeef", ev.CommitSHA)
	assert.Equal(t, "Harden auth handler", ev.Title)
}

func TestHandleDeploymentUpdatesGraph(t *testing.T) {
	store := graph.NewStore()
	ing, sink := testIngester(nil, nil, WithGraphStore(store))

	body := []byte(`{
		"deployment_status": {"state": "success"},
		"deployment": {
			"sha": "0123456789abcdef0123",
			"environment": "production",
			"payload": {"service": "auth"}
		},
		"repository": {"name": "platform", "owner": {"login": "acme"}}
	}`)
	require.NoError(t, ing.HandleEvent(context.Background(), EventDeployment, body))

	node, ok := store.Node("auth")
	require.True(t, ok)
	assert.Equal(t, "0123456789ab", node.Version)
	require.Len(t, node.Events, 1)
	assert.Equal(t, graph.EventTypeDeployment, node.Events[0].Type)
	assert.Equal(t, "deployed 0123456789ab to production", node.Events[0].Summary)

	require.Len(t, sink.events, 1)
	assert.Equal(t, "deployment", sink.events[0].EventType)
	assert.Equal(t, "auth", sink.events[0].ServiceID)
}

func TestHandleDeploymentFallsBackToEnvironment(t *testing.T) {
	ing, sink := testIngester(nil, nil)

	body := []byte(`{
		"deployment_status": {"state": "success"},
		"deployment": {"sha": "abc", "environment": "checkout-prod"},
		"repository": {"name": "platform", "owner": {"login": "acme"}}
	}`)
	require.NoError(t, ing.HandleEvent(context.Background(), EventDeployment, body))

	require.Len(t, sink.events, 1)
	assert.Equal(t, "checkout-prod", sink.events[0].ServiceID)
}

func TestHandleDeploymentIgnoresNonSuccess(t *testing.T) {
	ing, sink := testIngester(nil, nil)

	body := []byte(`{"deployment_status": {"state": "failure"}, "deployment": {"sha": "abc", "environment": "prod"}}`)
	require.NoError(t, ing.HandleEvent(context.Background(), EventDeployment, body))
	assert.Empty(t, sink.events)
}

func TestHandleEventUnknownTypeIgnored(t *testing.T) {
	ing, sink := testIngester(nil, nil)
	require.NoError(t, ing.HandleEvent(context.Background(), "star", []byte(`{}`)))
	assert.Empty(t, sink.events)
}

func TestBackfillPullRequests(t *testing.T) {
	ing, sink := testIngester(map[string]mockResponse{
		"https://gh.test/repos/acme/platform/pulls?state=all&sort=updated&direction=desc&per_page=2": {
			status: 200,
			body: `[
				{"number": 41, "title": "Add retry", "html_url": "https://x/41"},
				{"number": 40, "title": "Docs only", "html_url": "https://x/40"}
			]`,
		},
		"https://gh.test/repos/acme/platform/pulls/41/files?per_page=100": {
			status: 200,
			body:   `[{"filename": "services/auth/retry.go", "status": "added", "additions": 20}]`,
		},
		"https://gh.test/repos/acme/platform/pulls/40/files?per_page=100": {
			status: 200,
			body:   `[{"filename": "docs/README.md", "status": "modified", "additions": 2}]`,
		},
	}, []WatchRule{{PathPrefix: "services/auth/"}})

	n, err := ing.BackfillPullRequests(context.Background(), "acme", "platform", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, sink.events, 1)
	assert.Equal(t, 41, sink.events[0].PRNumber)
	assert.Equal(t, "auth", sink.events[0].ServiceID)
}

func TestEmitByRuleRecomputesPatchCounts(t *testing.T) {
	ing, sink := testIngester(nil, []WatchRule{{PathPrefix: "services/auth/"}})

	ing.emitByRule(ChangeEvent{EventType: "commit"}, []ChangeFile{
		{Filename: "services/auth/pool.go", Status: "modified", Patch: samplePatch},
	})

	require.Len(t, sink.events, 1)
	f := sink.events[0].Files[0]
	assert.Equal(t, 2, f.Additions)
	assert.Equal(t, 1, f.Deletions)
}
