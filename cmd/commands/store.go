package commands

import (
	"context"
	"fmt"
	"xrpl-listing-bot/internal/features/detector"
	"xrpl-listing-bot/internal/infra/config"
	"xrpl-listing-bot/internal/infra/db"
	storage "xrpl-listing-bot/internal/infra/fs"
	logging "xrpl-listing-bot/internal/infra/log"

	"go.uber.org/zap"
)

// openStore returns the seen-token store selected by storage.driver
func openStore(ctx context.Context, cfg *config.Config) (detector.Store, error) {
	switch cfg.Storage.Driver {
	case "memory":
		logging.LogWarn("Using in-memory seen token store, every restart alerts again on listed tokens")
		return detector.NewMemoryStore(), nil
	case "file":
		logging.LogInfo("Using file seen token store", zap.String("path", cfg.Storage.Path))
		return storage.NewSeenTokensFile(cfg.Storage.Path), nil
	case "postgres":
		store, err := db.OpenSeenTokenStore(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logging.LogInfo("Using postgres seen token store")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// openDetector opens the store and hydrates a detector from it
func openDetector(ctx context.Context, cfg *config.Config) (*detector.Detector, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open seen token store: %w", err)
	}
	det, err := detector.New(ctx, store, detector.WithSeedOnFirstPoll(cfg.App.SeedOnFirstPoll))
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	total := 0
	for _, n := range det.Counts() {
		total += n
	}
	logging.LogInfo("Seen tokens loaded", zap.Int("count", total), zap.Bool("seedOnFirstPoll", cfg.App.SeedOnFirstPoll))
	return det, nil
}
