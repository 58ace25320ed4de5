package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"horse.fit/showlist/internal/cli"
	"horse.fit/showlist/internal/db"
	"horse.fit/showlist/internal/globaltime"
)

func runSources(args []string) int {
	fs := flag.NewFlagSet("sources", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Second, "Command timeout")
	pausedOnly := fs.Bool("paused", false, "Only list sources with paused notifications")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, logger, ok := loadRuntime(envLoader)
	if !ok {
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, ok := openPool(ctx, cfg, logger)
	if !ok {
		return 1
	}
	defer pool.Close()

	sources, err := pool.ListSources(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "List sources failed: %v\n", err)
		return 1
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tCATEGORY\tPRIORITY\tLAST RUN\tSTATUS\tNOTIFICATIONS")
	for _, src := range sources {
		if *pausedOnly && !src.NotificationsPaused {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			src.Slug,
			src.Category,
			src.Priority,
			formatOptionalTime(src.LastRunAt),
			derefOr(src.LastRunStatus, "-"),
			notificationState(src),
		)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Write output failed: %v\n", err)
		return 1
	}
	return 0
}

func runResume(args []string) int {
	fs := flag.NewFlagSet("resume", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Second, "Command timeout")
	sourceSlug := fs.String("source", "", "Source slug (required)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	slug := strings.TrimSpace(*sourceSlug)
	if slug == "" {
		fmt.Fprintln(os.Stderr, "--source is required")
		return 2
	}

	cfg, logger, ok := loadRuntime(envLoader)
	if !ok {
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, ok := openPool(ctx, cfg, logger)
	if !ok {
		return 1
	}
	defer pool.Close()

	source, err := pool.GetSourceBySlug(ctx, slug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Resume failed: %v\n", err)
		return 1
	}

	resumed, err := pool.ResumeSourceNotifications(ctx, source.SourceID, globaltime.UTC())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Resume failed: %v\n", err)
		return 1
	}
	if !resumed {
		fmt.Printf("source=%s notifications were not paused\n", source.Slug)
		return 0
	}

	logger.Info().Str("source_id", source.SourceID).Str("source", source.Slug).Msg("source notifications resumed")
	fmt.Printf("source=%s notifications resumed\n", source.Slug)
	return 0
}

func notificationState(src db.Source) string {
	if !src.NotificationsPaused {
		return "active"
	}
	state := "paused"
	if src.NotificationsPausedAt != nil {
		state += " since " + src.NotificationsPausedAt.UTC().Format(time.RFC3339)
	}
	if reason := derefOr(src.NotificationsPausedReason, ""); reason != "" {
		state += " (" + reason + ")"
	}
	return state
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func derefOr(s *string, fallback string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return fallback
	}
	return *s
}
