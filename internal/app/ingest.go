package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"horse.fit/showlist/internal/cli"
	"horse.fit/showlist/internal/ingest"
	batchschema "horse.fit/showlist/schema"
)

func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")
	file := fs.String("file", "", "Path to a scrape batch JSON file (required)")
	sourceSlug := fs.String("source", "", "Source slug (overrides the batch's source)")
	venueRef := fs.String("venue", "", "Venue id or slug (overrides the batch's venue_id)")
	defaultAge := fs.String("default-age", "", "Age restriction for events that carry none (overrides the batch's default)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*file) == "" {
		fmt.Fprintln(os.Stderr, "--file is required")
		return 2
	}

	raw, err := os.ReadFile(strings.TrimSpace(*file))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid batch: %v\n", err)
		return 2
	}
	batch, err := batchschema.ValidateScrapeBatch(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid batch: %v\n", err)
		return 2
	}

	cfg, logger, ok := loadRuntime(envLoader)
	if !ok {
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, ok := openPool(ctx, cfg, logger)
	if !ok {
		return 1
	}
	defer pool.Close()

	source, err := pool.GetSourceBySlug(ctx, firstNonBlank(*sourceSlug, batch.Source))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		return 1
	}
	venue, err := pool.GetVenue(ctx, firstNonBlank(*venueRef, batch.VenueID))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		return 1
	}

	svc, err := newIngestService(cfg, pool, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize ingest: %v\n", err)
		return 1
	}

	loc, _ := cfg.Location()
	result, err := svc.SaveEvents(ctx, batch.ScrapedEvents(loc), venue, source, ingest.SaveOptions{
		DefaultAgeRestriction: firstNonBlank(*defaultAge, batch.DefaultAgeRestriction),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		return 1
	}

	fmt.Printf(
		"run_id=%d source=%s venue=%s saved=%d updated=%d skipped=%d filtered=%d canceled=%d suspicious=%d\n",
		result.RunID,
		source.Slug,
		venue.Slug,
		result.Saved,
		result.Updated,
		result.Skipped,
		result.Filtered,
		result.Canceled,
		result.SuspiciousPairs,
	)
	return 0
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
