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
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/AleutianAI/rootscout/services/graph"
)

// Webhook event types the ingester understands.
const (
	EventPush        = "push"
	EventPullRequest = "pull_request"
	EventDeployment  = "deployment_status"
)

// meaningfulPRActions are the pull_request actions that change code or
// surface a PR worth correlating; everything else (labeled, assigned,
// review events) is ignored.
var meaningfulPRActions = map[string]bool{
	"opened":           true,
	"reopened":         true,
	"synchronize":      true,
	"ready_for_review": true,
	"edited":           true,
}

// WatchRule maps a repository path prefix to the service it belongs to.
// An empty ServiceID derives the id from the last prefix segment.
type WatchRule struct {
	PathPrefix string `yaml:"path_prefix" validate:"required"`
	ServiceID  string `yaml:"service_id"`
}

// ID returns the rule's service id, deriving it from the prefix when unset.
func (r WatchRule) ID() string {
	if r.ServiceID != "" {
		return r.ServiceID
	}
	return path.Base(strings.TrimRight(r.PathPrefix, "/"))
}

// GitHubIngester converts GitHub webhook payloads into ChangeEvents and
// writes them to a ChangeSink. Deployments additionally update the
// dependency graph so node versions track what is actually running.
type GitHubIngester struct {
	client *GitHubClient
	sink   ChangeSink
	store  *graph.Store
	rules  []WatchRule
	logger *slog.Logger
	now    func() time.Time
}

// IngesterOption configures a GitHubIngester.
type IngesterOption func(*GitHubIngester)

// WithGraphStore lets deployment events update node versions and events.
func WithGraphStore(s *graph.Store) IngesterOption {
	return func(g *GitHubIngester) {
		g.store = s
	}
}

// WithIngesterClock overrides the ingestion timestamp source for tests.
func WithIngesterClock(now func() time.Time) IngesterOption {
	return func(g *GitHubIngester) {
		g.now = now
	}
}

// NewGitHubIngester creates an ingester. rules decide which paths map to
// which services; files outside every rule are dropped.
func NewGitHubIngester(client *GitHubClient, sink ChangeSink, rules []WatchRule, opts ...IngesterOption) *GitHubIngester {
	g := &GitHubIngester{
		client: client,
		sink:   sink,
		rules:  rules,
		logger: slog.Default().With("component", "github_ingester"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// pushPayload is the subset of the push webhook we use.
type pushPayload struct {
	Repository struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
			Name  string `json:"name"`
		} `json:"owner"`
	} `json:"repository"`
	Commits []struct {
		ID string `json:"id"`
	} `json:"commits"`
	HeadCommit *struct {
		ID string `json:"id"`
	} `json:"head_commit"`
}

// prPayload is the subset of the pull_request webhook we use.
type prPayload struct {
	Action     string `json:"action"`
	Repository struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
	PullRequest struct {
		Number  int    `json:"number"`
		Title   string `json:"title"`
		HTMLURL string `json:"html_url"`
		Head    struct {
			SHA string `json:"sha"`
		} `json:"head"`
	} `json:"pull_request"`
}

// deployPayload is the subset of the deployment_status webhook we use.
type deployPayload struct {
	DeploymentStatus struct {
		State string `json:"state"`
	} `json:"deployment_status"`
	Deployment struct {
		SHA         string          `json:"sha"`
		Environment string          `json:"environment"`
		Payload     json.RawMessage `json:"payload"`
	} `json:"deployment"`
	Repository struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
}

// HandleEvent routes one webhook delivery by its X-GitHub-Event type.
// Unknown event types are ignored without error; the webhook endpoint
// should still return 200 for them.
func (g *GitHubIngester) HandleEvent(ctx context.Context, eventType string, body []byte) error {
	switch eventType {
	case EventPush:
		return g.handlePush(ctx, body)
	case EventPullRequest:
		return g.handlePullRequest(ctx, body)
	case EventDeployment:
		return g.handleDeployment(ctx, body)
	default:
		g.logger.Debug("ignoring github event", "event_type", eventType)
		return nil
	}
}

func (g *GitHubIngester) handlePush(ctx context.Context, body []byte) error {
	var p pushPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return fmt.Errorf("decode push payload: %w", err)
	}

	owner := p.Repository.Owner.Login
	if owner == "" {
		owner = p.Repository.Owner.Name
	}
	repo := p.Repository.Name
	if owner == "" || repo == "" {
		return fmt.Errorf("push payload missing repository identity")
	}

	for _, c := range p.Commits {
		if c.ID == "" {
			continue
		}
		detail, err := g.client.Commit(ctx, owner, repo, c.ID)
		if err != nil {
			g.logger.Warn("skipping commit, fetch failed",
				"owner", owner, "repo", repo, "sha", c.ID, "error", err)
			continue
		}
		g.emitByRule(ChangeEvent{
			IngestedAt: g.now().UTC(),
			EventType:  "commit",
			RepoOwner:  owner,
			RepoName:   repo,
			CommitSHA:  detail.SHA,
			Title:      firstLine(detail.Commit.Message),
			URL:        detail.HTMLURL,
		}, detail.Files)
	}
	return nil
}

func (g *GitHubIngester) handlePullRequest(ctx context.Context, body []byte) error {
	var p prPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return fmt.Errorf("decode pull_request payload: %w", err)
	}
	if !meaningfulPRActions[p.Action] {
		g.logger.Debug("ignoring pull_request action", "action", p.Action)
		return nil
	}

	owner := p.Repository.Owner.Login
	repo := p.Repository.Name
	files, err := g.client.PullRequestFiles(ctx, owner, repo, p.PullRequest.Number)
	if err != nil {
		return fmt.Errorf("fetch pull request files: %w", err)
	}

	g.emitByRule(ChangeEvent{
		IngestedAt: g.now().UTC(),
		EventType:  "pull_request",
		RepoOwner:  owner,
		RepoName:   repo,
		CommitSHA:  p.PullRequest.Head.SHA,
		PRNumber:   p.PullRequest.Number,
		Title:      p.PullRequest.Title,
		URL:        p.PullRequest.HTMLURL,
	}, files)
	return nil
}

func (g *GitHubIngester) handleDeployment(ctx context.Context, body []byte) error {
	var p deployPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return fmt.Errorf("decode deployment payload: %w", err)
	}
	if p.DeploymentStatus.State != "success" {
		g.logger.Debug("ignoring deployment state", "state", p.DeploymentStatus.State)
		return nil
	}

	// The deployment payload names the service when the deploy tooling
	// sets {"service": "..."}; fall back to the environment name.
	service := deploymentService(p.Deployment.Payload)
	if service == "" {
		service = p.Deployment.Environment
	}
	if service == "" {
		return fmt.Errorf("deployment payload names no service")
	}

	sha := p.Deployment.SHA
	version := sha
	if len(version) > 12 {
		version = version[:12]
	}

	if g.store != nil {
		g.store.EnsureNode(service)
		g.store.SetVersion(service, version)
		g.store.AppendEvent(service, graph.Event{
			Type:      graph.EventTypeDeployment,
			Timestamp: float64(g.now().UTC().UnixNano()) / 1e9,
			Commit:    sha,
			Summary:   fmt.Sprintf("deployed %s to %s", version, p.Deployment.Environment),
		})
	}

	return g.sink.Emit(ChangeEvent{
		IngestedAt: g.now().UTC(),
		EventType:  "deployment",
		RepoOwner:  p.Repository.Owner.Login,
		RepoName:   p.Repository.Name,
		ServiceID:  service,
		CommitSHA:  sha,
		Title:      fmt.Sprintf("deployment of %s", service),
	})
}

// BackfillPullRequests seeds the change log from the most recently updated
// pull requests so a fresh deployment has history to correlate against.
func (g *GitHubIngester) BackfillPullRequests(ctx context.Context, owner, repo string, limit int) (int, error) {
	prs, err := g.client.RecentPullRequests(ctx, owner, repo, limit)
	if err != nil {
		return 0, err
	}

	emitted := 0
	for _, pr := range prs {
		files, err := g.client.PullRequestFiles(ctx, owner, repo, pr.Number)
		if err != nil {
			g.logger.Warn("skipping pull request, files fetch failed",
				"number", pr.Number, "error", err)
			continue
		}
		before := emitted
		emitted += g.emitByRule(ChangeEvent{
			IngestedAt: g.now().UTC(),
			EventType:  "pull_request",
			RepoOwner:  owner,
			RepoName:   repo,
			PRNumber:   pr.Number,
			Title:      pr.Title,
			URL:        pr.HTMLURL,
		}, files)
		if emitted > before {
			g.logger.Info("backfilled pull request", "number", pr.Number)
		}
	}
	return emitted, nil
}

// emitByRule splits files across watch rules and writes one event per
// matched service. Files outside every rule are dropped. Returns the
// number of events written.
func (g *GitHubIngester) emitByRule(base ChangeEvent, files []ChangeFile) int {
	written := 0
	for _, rule := range g.rules {
		var matched []ChangeFile
		for _, f := range files {
			if strings.HasPrefix(f.Filename, rule.PathPrefix) {
				matched = append(matched, f)
			}
		}
		if len(matched) == 0 {
			continue
		}
		matched = fillPatchStats(matched)

		ev := base
		ev.ServiceID = rule.ID()
		ev.WatchPathPrefix = rule.PathPrefix
		ev.Files = matched
		if err := g.sink.Emit(ev); err != nil {
			g.logger.Warn("change sink write failed",
				"service_id", ev.ServiceID, "error", err)
			continue
		}
		written++
	}
	return written
}

// deploymentService pulls "service" out of a deployment payload blob.
func deploymentService(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var p struct {
		Service string `json:"service"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return ""
	}
	return p.Service
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
