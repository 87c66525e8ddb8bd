package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/covercount/insights-cli/internal/generate"
	"github.com/covercount/insights-cli/internal/store"
	"github.com/covercount/insights-cli/pkg/anthropic"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.SQLitePath
		if dsn == "" {
			dsn = "insights.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initOrchestrator(st store.Store) (*generate.Orchestrator, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key is required (INSIGHTS_ANTHROPIC_KEY)")
	}

	provider := generate.NewAnthropicProvider(anthropic.NewClient(cfg.Anthropic.Key))
	return generate.NewOrchestrator(st, provider, generate.Config{
		Model:        cfg.Anthropic.Model,
		MaxTokens:    cfg.Anthropic.MaxTokens,
		FactsMaxAge:  time.Duration(cfg.Facts.StalenessHours) * time.Hour,
		WindowMonths: cfg.Facts.WindowMonths,
	}), nil
}
