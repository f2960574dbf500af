// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/AleutianAI/rootscout/pkg/logging"
	"github.com/AleutianAI/rootscout/services/changes"
	"github.com/AleutianAI/rootscout/services/collector/handlers"
	"github.com/AleutianAI/rootscout/services/collector/observability"
	"github.com/AleutianAI/rootscout/services/collector/routes"
	"github.com/AleutianAI/rootscout/services/graph"
	"github.com/AleutianAI/rootscout/services/ingest"
	"github.com/AleutianAI/rootscout/services/llm"
	"github.com/AleutianAI/rootscout/services/rca"
)

const serviceName = "rootscout-collector"

// initTracer exports the collector's own traces over OTLP/gRPC. Returns a
// shutdown func. Skipped entirely when no endpoint is configured.
func initTracer(endpoint string) (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// Run wires the whole pipeline and serves until ctx is canceled. This is
// the body of the `rootscout serve` command.
func Run(ctx context.Context, cfg Config) error {
	appLogger, err := logging.New(logging.Config{
		JSON:    true,
		LogDir:  cfg.LogDir,
		Service: serviceName,
	})
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer appLogger.Close()
	logger := appLogger.Logger
	slog.SetDefault(logger)

	observability.InitMetrics()

	if cfg.OTLPEndpoint != "" {
		cleanup, err := initTracer(cfg.OTLPEndpoint)
		if err != nil {
			return fmt.Errorf("setup OTLP tracer: %w", err)
		}
		defer cleanup(context.Background())
	}

	// Graph side: store, span adapter, health aggregation. The graph
	// sink fans telemetry records into both.
	store := graph.NewStore(graph.WithMaxRecentEvents(cfg.MaxRecentEvents))
	graphSink := graph.NewSink(store)
	normalizer := ingest.NewNormalizer(ingest.NewComposedSink(graphSink, &ingest.SlogSink{}))

	// Change side: webhook ingester appending to the JSONL log, watcher
	// reloading it on writes. The watcher needs the parent directory to
	// exist before it can subscribe.
	if dir := filepath.Dir(cfg.ChangeLog); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create change log dir: %w", err)
		}
	}
	changeSink := changes.NewFileSink(cfg.ChangeLog)
	ghClient := changes.NewGitHubClient(cfg.GitHub.Token)
	ingester := changes.NewGitHubIngester(ghClient, changeSink, cfg.GitHub.WatchRules,
		changes.WithGraphStore(store))
	watcher := changes.NewWatcher(cfg.ChangeLog, logger,
		changes.WithOnReload(func(count int) {
			if observability.DefaultMetrics != nil {
				observability.DefaultMetrics.SetChangeEventsLoaded(count)
			}
		}))

	var llmClient llm.Client
	switch cfg.LLMBackend {
	case "openai":
		var err error
		llmClient, err = llm.NewOpenAIClient()
		if err != nil {
			return fmt.Errorf("init LLM client: %w", err)
		}
		slog.Info("Using OpenAI LLM backend")
	default:
		llmClient = llm.NewMockClient()
		slog.Info("Using mock LLM backend")
	}
	agent := rca.NewAgent(llmClient)

	router := gin.Default()
	router.Use(otelgin.Middleware(serviceName))

	routes.SetupRoutes(router, routes.Deps{
		Normalizer: normalizer,
		Store:      store,
		Ingester:   ingester,
		Agent:      agent,
		Context: handlers.ContextDeps{
			Retriever:     graph.NewRetriever(store),
			Enricher:      changes.NewEnricher(),
			Watcher:       watcher,
			Lookback:      cfg.Lookback(),
			MaxPerService: cfg.MaxPerService,
		},
		WebhookSecret: cfg.GitHub.WebhookSecret,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return watcher.Run(ctx)
	})

	g.Go(func() error {
		slog.Info("starting collector server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
