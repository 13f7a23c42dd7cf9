package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/anomaly"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/config"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/processing"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/retrieval"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/storage"
)

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func closeStorage(store *storage.SQLiteStorage) {
	if err := store.Close(); err != nil {
		slog.Error("failed to close storage", "error", err)
	}
}

func newProcessor(cfg *config.Config, store *storage.SQLiteStorage) (*processing.Processor, error) {
	return processing.NewProcessor(processing.Deps{
		Files:     store,
		Fragments: store,
		Alerts:    store,
		Detector:  anomaly.NewDetector(cfg.Detector()),
	}, cfg.Processing.Concurrency)
}

// newGateway returns the retrieval client. Without an endpoint retrieval is disabled and
// queries are grounded on the current date alone.
func newGateway(cfg *config.Config) (retrieval.Gateway, error) {
	if cfg.Retrieval.Endpoint == "" {
		return retrieval.Disabled{}, nil
	}
	gw, err := retrieval.NewHTTPGateway(cfg.HTTPGateway())
	if err != nil {
		return nil, err
	}
	return retrieval.WithRetry(gw, cfg.RetrievalRetry()), nil
}

// parseDay parses a YYYY-MM-DD flag value. An empty value means today.
func parseDay(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return now, nil
	}
	day, err := time.ParseInLocation(model.DateLayout, value, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", value, err)
	}
	return day, nil
}
