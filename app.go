package main

import (
	"context"
	"fmt"
	"log/slog"

	"fundamental/analyst-app/artifact"
	"fundamental/analyst-app/config"
	"fundamental/analyst-app/core"
	"fundamental/analyst-app/crew"
	"fundamental/analyst-app/gemini"
	"fundamental/analyst-app/openaichat"
	"fundamental/analyst-app/services/report_service"
	"fundamental/analyst-app/tools"
)

type app struct {
	reports *report_service.Service
	watcher *crew.DefinitionsWatcher
}

func (a *app) Close() {
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	store, err := artifact.NewFileStore(cfg.Pipeline.OutputDir)
	if err != nil {
		return nil, err
	}
	runner, err := newRunner(ctx, cfg, store)
	if err != nil {
		return nil, err
	}

	a := &app{}
	var defs crew.DefinitionsSource
	if dir := cfg.Pipeline.DefinitionsDir; dir != "" {
		w, err := crew.NewDefinitionsWatcher(dir)
		if err != nil {
			return nil, fmt.Errorf("load definitions: %w", err)
		}
		w.Start(ctx)
		a.watcher = w
		defs = w
	} else {
		d, err := crew.DefaultDefinitions()
		if err != nil {
			return nil, err
		}
		defs = crew.Static(d)
	}

	// Keys supplied through the web UI get a runner of their own for that request.
	factory := func(ctx context.Context, creds report_service.Credentials) (report_service.Pipeline, error) {
		return newRunner(ctx, withCredentials(cfg, creds), store)
	}
	a.reports = report_service.NewService(runner, store, defs, report_service.WithPipelineFactory(factory))
	core.Logger().Info("analyst ready",
		slog.String("llm", cfg.LLM.Provider),
		slog.String("model", cfg.LLM.Model),
		slog.String("search", cfg.SearchProvider()),
		slog.String("reports", store.Root()),
	)
	return a, nil
}

func newRunner(ctx context.Context, cfg config.Config, store *artifact.FileStore) (*crew.Runner, error) {
	llm, err := newLLM(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}

	registry := core.NewToolRegistry()
	webSearch := tools.NewWebSearch(newSearcher(cfg), cfg.Search.Results)
	if err := core.RegisterInbuiltTools(registry, webSearch, tools.NewPageReader(cfg.Search.Timeout)); err != nil {
		return nil, err
	}

	return crew.NewRunner(
		crew.NewLLMExecutor(llm, registry, cfg.LLM.MaxIterations),
		store,
		crew.WithConcurrency(cfg.Pipeline.Concurrent),
		crew.WithMaxParallel(cfg.Pipeline.MaxParallel),
	), nil
}

// withCredentials overlays caller keys on cfg. A search key selects Serper.
func withCredentials(cfg config.Config, creds report_service.Credentials) config.Config {
	if creds.LLMAPIKey != "" {
		cfg.LLM.APIKey = creds.LLMAPIKey
	}
	if creds.SearchAPIKey != "" {
		cfg.Search.Provider = "serper"
		cfg.Search.APIKey = creds.SearchAPIKey
	}
	return cfg
}

func newLLM(ctx context.Context, cfg config.LLMConfig) (core.LLM, error) {
	switch cfg.Provider {
	case "openai":
		return openaichat.NewOpenAI(cfg.APIKey, cfg.Model)
	default:
		return gemini.NewGemini(ctx, cfg.APIKey, cfg.Model)
	}
}

func newSearcher(cfg config.Config) tools.Searcher {
	if cfg.SearchProvider() == "serper" {
		return tools.NewSerperSearcher(cfg.Search.APIKey, cfg.Search.SerperURL, cfg.Search.Timeout)
	}
	if cfg.Search.Provider == "serper" {
		core.Logger().Warn("SERPER_API_KEY not set, using DuckDuckGo search")
	}
	return tools.NewDuckDuckGoSearcher("", cfg.Search.Timeout)
}
