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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// GitHub API defaults.
const (
	defaultGitHubBaseURL = "https://api.github.com"
	githubUserAgent      = "rootscout-github-ingester"
	githubPageSize       = 100

	// githubRequestsPerSecond keeps the ingester comfortably under the
	// authenticated REST quota even during a PR backfill.
	githubRequestsPerSecond = 5
	githubBurst             = 10
)

// HTTPClient allows injecting mock HTTP clients for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// GitHubClient is a minimal GitHub REST wrapper: token auth, Link-header
// pagination, and a client-side rate limit. Only the two endpoints the
// ingester needs are implemented.
type GitHubClient struct {
	token      string
	baseURL    string
	httpClient HTTPClient
	limiter    *rate.Limiter
}

// GitHubClientOption configures a GitHubClient.
type GitHubClientOption func(*GitHubClient)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c HTTPClient) GitHubClientOption {
	return func(g *GitHubClient) {
		g.httpClient = c
	}
}

// WithBaseURL points the client at a different API root (GitHub Enterprise,
// test servers).
func WithBaseURL(base string) GitHubClientOption {
	return func(g *GitHubClient) {
		g.baseURL = strings.TrimRight(base, "/")
	}
}

// NewGitHubClient creates a client. An empty token sends unauthenticated
// requests (fine for public repos, heavily rate limited by GitHub).
func NewGitHubClient(token string, opts ...GitHubClientOption) *GitHubClient {
	g := &GitHubClient{
		token:      token,
		baseURL:    defaultGitHubBaseURL,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(githubRequestsPerSecond), githubBurst),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CommitDetail is the subset of GET /repos/{o}/{r}/commits/{sha} we use.
type CommitDetail struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
	} `json:"commit"`
	HTMLURL string       `json:"html_url"`
	Files   []ChangeFile `json:"files"`
}

// Commit fetches one commit with its changed files and patches.
func (g *GitHubClient) Commit(ctx context.Context, owner, repo, sha string) (*CommitDetail, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/commits/%s", g.baseURL, owner, repo, sha)

	var out CommitDetail
	if _, err := g.getJSON(ctx, url, &out); err != nil {
		return nil, fmt.Errorf("get commit %s: %w", sha, err)
	}
	return &out, nil
}

// PullRequestFiles fetches the changed files of a pull request, following
// pagination.
func (g *GitHubClient) PullRequestFiles(ctx context.Context, owner, repo string, number int) ([]ChangeFile, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/files?per_page=%d",
		g.baseURL, owner, repo, number, githubPageSize)

	var files []ChangeFile
	for url != "" {
		var page []ChangeFile
		next, err := g.getJSON(ctx, url, &page)
		if err != nil {
			return nil, fmt.Errorf("list pull request %d files: %w", number, err)
		}
		files = append(files, page...)
		url = next
	}
	return files, nil
}

// PullRequestSummary is the subset of GET /repos/{o}/{r}/pulls we use.
type PullRequestSummary struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	HTMLURL string `json:"html_url"`
	State   string `json:"state"`
}

// RecentPullRequests lists the most recently updated pull requests (any
// state), one page.
func (g *GitHubClient) RecentPullRequests(ctx context.Context, owner, repo string, limit int) ([]PullRequestSummary, error) {
	if limit <= 0 || limit > githubPageSize {
		limit = githubPageSize
	}
	url := fmt.Sprintf("%s/repos/%s/%s/pulls?state=all&sort=updated&direction=desc&per_page=%d",
		g.baseURL, owner, repo, limit)

	var out []PullRequestSummary
	if _, err := g.getJSON(ctx, url, &out); err != nil {
		return nil, fmt.Errorf("list pull requests: %w", err)
	}
	return out, nil
}

// getJSON performs one rate-limited GET, decodes the body into out, and
// returns the rel="next" pagination URL when present.
func (g *GitHubClient) getJSON(ctx context.Context, url string, out any) (next string, err error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", githubUserAgent)
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("github responded %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return "", fmt.Errorf("decode github response: %w", err)
	}

	return nextLink(resp.Header.Get("Link")), nil
}

// nextLink extracts the rel="next" URL from a GitHub Link header, "" when
// there is no next page.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		left := strings.Index(part, "<")
		right := strings.Index(part, ">")
		if left >= 0 && right > left {
			return part[left+1 : right]
		}
	}
	return ""
}
