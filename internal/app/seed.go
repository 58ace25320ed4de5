package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"horse.fit/showlist/internal/cli"
	"horse.fit/showlist/internal/db"
	"horse.fit/showlist/internal/validation"
)

// catalog is the seed file layout:
//
//	regions:
//	  - slug: la
//	    name: Los Angeles
//	    venues:
//	      - slug: the-roxy
//	        name: The Roxy
//	sources:
//	  - slug: roxy-site
//	    name: The Roxy website
//	    category: VENUE
type catalog struct {
	Regions []catalogRegion `yaml:"regions" json:"regions" validate:"dive"`
	Sources []catalogSource `yaml:"sources" json:"sources" validate:"dive"`
}

type catalogRegion struct {
	Slug   string         `yaml:"slug" json:"slug" validate:"required,max=128"`
	Name   string         `yaml:"name" json:"name" validate:"required"`
	Venues []catalogVenue `yaml:"venues" json:"venues" validate:"dive"`
}

type catalogVenue struct {
	Slug string `yaml:"slug" json:"slug" validate:"required,max=128"`
	Name string `yaml:"name" json:"name" validate:"required"`
}

type catalogSource struct {
	Slug     string `yaml:"slug" json:"slug" validate:"required,max=128"`
	Name     string `yaml:"name" json:"name" validate:"required"`
	Category string `yaml:"category" json:"category" validate:"omitempty,oneof=VENUE TICKETING AGGREGATOR OTHER"`
	Priority *int   `yaml:"priority" json:"priority" validate:"omitempty,min=0"`
}

type seeder interface {
	UpsertRegion(ctx context.Context, slug, name string) (string, error)
	UpsertVenue(ctx context.Context, regionID, slug, name string) (string, error)
	UpsertSource(ctx context.Context, slug, name, category string, priority int) (string, error)
}

type seedResult struct {
	Regions int
	Venues  int
	Sources int
}

func runSeed(args []string) int {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	file := fs.String("file", "catalog.yaml", "Path to the YAML catalog of regions, venues and sources")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cat, err := loadCatalog(strings.TrimSpace(*file))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid catalog: %v\n", err)
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

	result, err := applyCatalog(ctx, pool, cat)
	if err != nil {
		logger.Error().Err(err).Msg("seed failed")
		fmt.Fprintf(os.Stderr, "Seed failed: %v\n", err)
		return 1
	}

	logger.Info().
		Int("regions", result.Regions).
		Int("venues", result.Venues).
		Int("sources", result.Sources).
		Msg("catalog seeded")
	fmt.Printf("seed regions=%d venues=%d sources=%d\n", result.Regions, result.Venues, result.Sources)
	return 0
}

func loadCatalog(path string) (*catalog, error) {
	if path == "" {
		return nil, fmt.Errorf("catalog path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %q: %w", path, err)
	}

	var cat catalog
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return nil, fmt.Errorf("decode catalog %q: %w", path, err)
	}
	for i := range cat.Sources {
		cat.Sources[i].Category = strings.ToUpper(strings.TrimSpace(cat.Sources[i].Category))
	}
	if err := validation.Struct(&cat); err != nil {
		return nil, fmt.Errorf("catalog %q: %w", path, err)
	}
	if len(cat.Regions) == 0 && len(cat.Sources) == 0 {
		return nil, fmt.Errorf("catalog %q: nothing to seed", path)
	}
	return &cat, nil
}

// applyCatalog upserts every entry. Sources without a priority get the category default.
func applyCatalog(ctx context.Context, store seeder, cat *catalog) (seedResult, error) {
	var result seedResult
	for _, region := range cat.Regions {
		regionID, err := store.UpsertRegion(ctx, strings.TrimSpace(region.Slug), strings.TrimSpace(region.Name))
		if err != nil {
			return result, err
		}
		result.Regions++

		for _, venue := range region.Venues {
			if _, err := store.UpsertVenue(ctx, regionID, strings.TrimSpace(venue.Slug), strings.TrimSpace(venue.Name)); err != nil {
				return result, err
			}
			result.Venues++
		}
	}

	for _, src := range cat.Sources {
		category := src.Category
		if category == "" {
			category = db.SourceCategoryOther
		}
		priority := db.DefaultPriority(category)
		if src.Priority != nil {
			priority = *src.Priority
		}
		if _, err := store.UpsertSource(ctx, strings.TrimSpace(src.Slug), strings.TrimSpace(src.Name), category, priority); err != nil {
			return result, err
		}
		result.Sources++
	}
	return result, nil
}
