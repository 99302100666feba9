package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Karan96Kaushik/gen-grafana-ai/internal/analytics"
	"github.com/Karan96Kaushik/gen-grafana-ai/internal/client"
	"github.com/Karan96Kaushik/gen-grafana-ai/internal/config"
	"github.com/Karan96Kaushik/gen-grafana-ai/internal/handler/tools"
	"github.com/Karan96Kaushik/gen-grafana-ai/internal/logger"
	"github.com/Karan96Kaushik/gen-grafana-ai/internal/manager"
	mcpserver "github.com/Karan96Kaushik/gen-grafana-ai/internal/mcp-server"
	"github.com/Karan96Kaushik/gen-grafana-ai/internal/search"
	"github.com/Karan96Kaushik/gen-grafana-ai/internal/store"
	"github.com/Karan96Kaushik/gen-grafana-ai/internal/telemetry"
	"github.com/Karan96Kaushik/gen-grafana-ai/pkg/prompts"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(logger.LogLevel(cfg.Log.Level))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, cfg); err != nil {
		log.Fatal("Server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, log *zap.Logger, cfg *config.Config) error {
	shutdown, err := telemetry.Init(ctx, log, telemetry.Config{
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      mcpserver.ServerVersion,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Warn("Failed to flush telemetry", zap.Error(err))
		}
	}()

	metrics, err := telemetry.NewMetrics(nil)
	if err != nil {
		return err
	}

	st, err := store.Open(log, cfg.Store.Path, cfg.Store.CacheSize)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	index, err := search.New(log)
	if err != nil {
		return err
	}
	defer func() { _ = index.Close() }()

	records, err := st.List(ctx)
	if err != nil {
		return err
	}
	if err := index.Reindex(ctx, records); err != nil {
		log.Warn("Failed to build search index", zap.Error(err))
	}

	tracker, err := analytics.New(log, cfg.Analytics.SegmentKey, analytics.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = tracker.Close() }()

	llmOpts := client.Options{
		BaseURL:           cfg.LLM.BaseURL,
		APIKey:            cfg.LLM.APIKey,
		Model:             cfg.LLM.Model,
		Temperature:       cfg.LLM.Temperature,
		MaxTokens:         cfg.LLM.MaxTokens,
		Timeout:           cfg.LLM.Timeout,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
		Metrics:           metrics,
	}
	var defaultLLM manager.Completer
	if cfg.LLM.APIKey != "" {
		defaultLLM = client.NewClient(log, llmOpts)
	} else {
		log.Warn("No LLM API key configured, analyze/modify/generate need a per-request key")
	}

	catalog := prompts.NewCatalog()
	mgr := manager.New(log, st, catalog, manager.Options{
		Columns: cfg.Layout.Columns,
		Index:   index,
		Metrics: metrics,
	})

	handler, err := tools.NewHandler(log, mgr, st, tools.Options{
		Index:   index,
		Catalog: catalog,
		Metrics: metrics,
		Tracker: tracker,
		LLM:     defaultLLM,
		NewLLM: func(apiKey string) manager.Completer {
			opts := llmOpts
			opts.APIKey = apiKey
			return client.NewClient(log, opts)
		},
		Columns: cfg.Layout.Columns,
	})
	if err != nil {
		return err
	}

	return mcpserver.NewMCPServer(log, handler, cfg).Start(ctx)
}
