package app

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"horse.fit/showlist/internal/cli"
	"horse.fit/showlist/internal/config"
	"horse.fit/showlist/internal/db"
	"horse.fit/showlist/internal/ingest"
	"horse.fit/showlist/internal/logging"
	"horse.fit/showlist/internal/notify"
	"horse.fit/showlist/internal/similarity"
)

// loadRuntime loads .env, config and logger. It prints its own errors.
func loadRuntime(envLoader *cli.EnvLoader) (*config.Config, zerolog.Logger, bool) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, zerolog.Nop(), false
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return nil, zerolog.Nop(), false
	}
	return cfg, logger, true
}

func openPool(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*db.Pool, bool) {
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return nil, false
	}
	return pool, true
}

// newIngestService wires the scorer, notifier and event timezone from config.
func newIngestService(cfg *config.Config, pool *db.Pool, logger zerolog.Logger) (*ingest.Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	scorer := similarity.Default()
	if path := cfg.OpenerPatternsFile; path != "" {
		patterns, err := similarity.LoadOpenerPatterns(path)
		if err != nil {
			return nil, err
		}
		openers, err := similarity.CompileOpeners(patterns)
		if err != nil {
			return nil, err
		}
		scorer = similarity.NewScorer(openers)
		logger.Info().Str("file", path).Int("patterns", len(patterns)).Msg("loaded opener patterns")
	}

	notifier, err := notify.New(cfg.AnomalyWebhookURL, cfg.AnomalyWebhookTimeout, logger)
	if err != nil {
		return nil, fmt.Errorf("anomaly notifier: %w", err)
	}

	return ingest.NewService(pool, notifier, logger, ingest.Options{
		Scorer:   scorer,
		Location: loc,
	}), nil
}
