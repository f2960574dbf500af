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
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHTTP routes requests by URL and records what was asked for.
type mockHTTP struct {
	responses map[string]mockResponse
	requests  []*http.Request
}

type mockResponse struct {
	status int
	body   string
	link   string
}

func (m *mockHTTP) Do(req *http.Request) (*http.Response, error) {
	m.requests = append(m.requests, req)

	r, ok := m.responses[req.URL.String()]
	if !ok {
		r = mockResponse{status: http.StatusNotFound, body: `{"message":"Not Found"}`}
	}

	header := http.Header{}
	if r.link != "" {
		header.Set("Link", r.link)
	}
	return &http.Response{
		StatusCode: r.status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(r.body)),
	}, nil
}

func mockedClient(responses map[string]mockResponse) (*GitHubClient, *mockHTTP) {
	m := &mockHTTP{responses: responses}
	c := NewGitHubClient("test-token",
		WithHTTPClient(m),
		WithBaseURL("https://gh.test"),
	)
	return c, m
}

func TestCommitFetch(t *testing.T) {
	client, m := mockedClient(map[string]mockResponse{
		"https://gh.test/repos/acme/platform/commits/abc123": {
			status: 200,
			body: `{
				"sha": "abc123",
				"html_url": "https://github.com/acme/platform/commit/abc123",
				"commit": {"message": "fix pool leak\n\nlonger body"},
				"files": [{"filename": "services/auth/db.go", "status": "modified", "additions": 3, "deletions": 1}]
			}`,
		},
	})

	detail, err := client.Commit(context.Background(), "acme", "platform", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", detail.SHA)
	assert.Equal(t, "fix pool leak\n\nlonger body", detail.Commit.Message)
	require.Len(t, detail.Files, 1)
	assert.Equal(t, "services/auth/db.go", detail.Files[0].Filename)

	req := m.requests[0]
	assert.Equal(t, "Bearer test-token", req.Header.Get("Authorization"))
	assert.Equal(t, "application/vnd.github+json", req.Header.Get("Accept"))
}

func TestCommitFetchError(t *testing.T) {
	client, _ := mockedClient(map[string]mockResponse{
		"https://gh.test/repos/acme/platform/commits/bad": {
			status: 422, body: `{"message":"No commit found"}`,
		},
	})

	_, err := client.Commit(context.Background(), "acme", "platform", "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "No commit found")
}

func TestPullRequestFilesPagination(t *testing.T) {
	first := "https://gh.test/repos/acme/platform/pulls/7/files?per_page=100"
	second := "https://gh.test/repos/acme/platform/pulls/7/files?page=2&per_page=100"

	client, m := mockedClient(map[string]mockResponse{
		first: {
			status: 200,
			body:   `[{"filename": "a.go"}, {"filename": "b.go"}]`,
			link:   `<` + second + `>; rel="next", <` + second + `>; rel="last"`,
		},
		second: {
			status: 200,
			body:   `[{"filename": "c.go"}]`,
		},
	})

	files, err := client.PullRequestFiles(context.Background(), "acme", "platform", 7)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "c.go", files[2].Filename)
	assert.Len(t, m.requests, 2)
}

func TestRecentPullRequests(t *testing.T) {
	client, _ := mockedClient(map[string]mockResponse{
		"https://gh.test/repos/acme/platform/pulls?state=all&sort=updated&direction=desc&per_page=30": {
			status: 200,
			body:   `[{"number": 41, "title": "Add retry", "state": "closed", "html_url": "https://github.com/acme/platform/pull/41"}]`,
		},
	})

	prs, err := client.RecentPullRequests(context.Background(), "acme", "platform", 30)
	require.NoError(t, err)
	require.Len(t, prs, 1)
	assert.Equal(t, 41, prs[0].Number)
	assert.Equal(t, "closed", prs[0].State)
}

func TestNextLink(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{``, ""},
		{`<https://x/next>; rel="next"`, "https://x/next"},
		{`<https://x/prev>; rel="prev", <https://x/next>; rel="next"`, "https://x/next"},
		{`<https://x/last>; rel="last"`, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextLink(tt.header), "header %q", tt.header)
	}
}
