// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package collector wires the ingest, graph, and changes services behind one
// HTTP surface: OTLP receivers, the GitHub webhook, and the query API.
package collector

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/rootscout/services/changes"
)

// Config is the collector's full runtime configuration, loaded from YAML
// with environment overrides applied on top.
type Config struct {
	// Port the HTTP server listens on.
	Port int `yaml:"port" validate:"min=1,max=65535"`

	// MaxRecentEvents bounds the per-node event ring in the graph store.
	// Zero keeps every event.
	MaxRecentEvents int `yaml:"max_recent_events" validate:"min=0"`

	// ChangeLog is the JSONL file change events are appended to and read
	// back from during enrichment.
	ChangeLog string `yaml:"change_log"`

	// Enrichment tuning. LookbackHours is in whole hours.
	LookbackHours int `yaml:"lookback_hours" validate:"min=1"`
	MaxPerService int `yaml:"max_per_service" validate:"min=1"`

	// GitHub webhook and API settings.
	GitHub GitHubConfig `yaml:"github"`

	// LLMBackend selects the RCA backend: "openai" or "mock".
	LLMBackend string `yaml:"llm_backend" validate:"oneof=openai mock"`

	// OTLPEndpoint is where the collector exports its own traces.
	// Empty disables self-tracing.
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// LogDir enables file logging next to stderr when set.
	LogDir string `yaml:"log_dir"`
}

// GitHubConfig configures webhook verification and the REST client.
type GitHubConfig struct {
	// WebhookSecret verifies X-Hub-Signature-256. Empty disables
	// verification; only do that in local development.
	WebhookSecret string `yaml:"webhook_secret"`

	// Token authenticates REST calls for commit and PR file fetches.
	Token string `yaml:"token"`

	// WatchRules map repository path prefixes to service ids.
	WatchRules []changes.WatchRule `yaml:"watch_rules" validate:"dive"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Port:            12400,
		MaxRecentEvents: 100,
		ChangeLog:       "data/changes.jsonl",
		LookbackHours:   int(changes.DefaultLookback / time.Hour),
		MaxPerService:   changes.DefaultMaxPerService,
		LLMBackend:      "mock",
	}
}

// Lookback returns the enrichment window as a duration.
func (c Config) Lookback() time.Duration {
	return time.Duration(c.LookbackHours) * time.Hour
}

// LoadConfig reads the YAML file at path (when non-empty), applies
// environment overrides, and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnv layers ROOTSCOUT_* environment variables over the file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("ROOTSCOUT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("ROOTSCOUT_CHANGE_LOG"); v != "" {
		cfg.ChangeLog = v
	}
	if v := os.Getenv("ROOTSCOUT_GITHUB_WEBHOOK_SECRET"); v != "" {
		cfg.GitHub.WebhookSecret = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" && cfg.GitHub.Token == "" {
		cfg.GitHub.Token = v
	}
	if v := os.Getenv("ROOTSCOUT_LLM_BACKEND"); v != "" {
		cfg.LLMBackend = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTLPEndpoint = v
	}
}
