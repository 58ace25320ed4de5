package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

func (p *Pool) GetSourceBySlug(ctx context.Context, slug string) (Source, error) {
	var rows []Source
	err := p.gdb.WithContext(ctx).Where("slug = ?", strings.TrimSpace(slug)).Limit(1).Find(&rows).Error
	if err != nil {
		return Source{}, fmt.Errorf("get source %q: %w", slug, err)
	}
	if len(rows) == 0 {
		return Source{}, fmt.Errorf("source %q: %w", slug, ErrNotFound)
	}
	return rows[0], nil
}

func (p *Pool) GetSource(ctx context.Context, sourceID string) (Source, error) {
	var rows []Source
	err := p.gdb.WithContext(ctx).Where("source_id = ?", sourceID).Limit(1).Find(&rows).Error
	if err != nil {
		return Source{}, fmt.Errorf("get source %s: %w", sourceID, err)
	}
	if len(rows) == 0 {
		return Source{}, fmt.Errorf("source %s: %w", sourceID, ErrNotFound)
	}
	return rows[0], nil
}

func (p *Pool) ListSources(ctx context.Context) ([]Source, error) {
	var rows []Source
	if err := p.gdb.WithContext(ctx).Order("priority ASC, slug ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return rows, nil
}

func (p *Pool) GetVenue(ctx context.Context, venueID string) (Venue, error) {
	var rows []Venue
	err := p.gdb.WithContext(ctx).
		Where("venue_id = ? OR slug = ?", venueID, venueID).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return Venue{}, fmt.Errorf("get venue %s: %w", venueID, err)
	}
	if len(rows) == 0 {
		return Venue{}, fmt.Errorf("venue %s: %w", venueID, ErrNotFound)
	}
	return rows[0], nil
}

// PauseSourceNotifications flips the pause flag. It reports false when the source was already paused.
func (p *Pool) PauseSourceNotifications(ctx context.Context, sourceID, reason string, at time.Time) (bool, error) {
	const q = `
UPDATE listings.sources
SET
	notifications_paused = true,
	notifications_paused_at = $2,
	notifications_paused_reason = $3,
	updated_at = $2
WHERE source_id = $1
  AND notifications_paused = false
`
	tag, err := p.Exec(ctx, q, sourceID, at.UTC(), reason)
	if err != nil {
		return false, fmt.Errorf("pause source notifications: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ResumeSourceNotifications clears the pause flag. It reports false when the source was not paused.
func (p *Pool) ResumeSourceNotifications(ctx context.Context, sourceID string, at time.Time) (bool, error) {
	const q = `
UPDATE listings.sources
SET
	notifications_paused = false,
	notifications_paused_at = NULL,
	notifications_paused_reason = NULL,
	updated_at = $2
WHERE source_id = $1
  AND notifications_paused = true
`
	tag, err := p.Exec(ctx, q, sourceID, at.UTC())
	if err != nil {
		return false, fmt.Errorf("resume source notifications: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpsertRegion inserts or renames a region keyed by slug and returns its id.
func (p *Pool) UpsertRegion(ctx context.Context, slug, name string) (string, error) {
	const q = `
INSERT INTO listings.regions (region_id, slug, name, created_at, updated_at)
VALUES ($1, $2, $3, now(), now())
ON CONFLICT (slug) DO UPDATE
SET name = EXCLUDED.name, updated_at = now()
RETURNING region_id
`
	var id string
	if err := p.QueryRow(ctx, q, uuid.NewString(), slug, name).Scan(&id); err != nil {
		return "", fmt.Errorf("upsert region %q: %w", slug, err)
	}
	return id, nil
}

func (p *Pool) UpsertVenue(ctx context.Context, regionID, slug, name string) (string, error) {
	const q = `
INSERT INTO listings.venues (venue_id, region_id, slug, name, created_at, updated_at)
VALUES ($1, $2, $3, $4, now(), now())
ON CONFLICT (slug) DO UPDATE
SET region_id = EXCLUDED.region_id, name = EXCLUDED.name, updated_at = now()
RETURNING venue_id
`
	var id string
	if err := p.QueryRow(ctx, q, uuid.NewString(), regionID, slug, name).Scan(&id); err != nil {
		return "", fmt.Errorf("upsert venue %q: %w", slug, err)
	}
	return id, nil
}

func (p *Pool) UpsertSource(ctx context.Context, slug, name, category string, priority int) (string, error) {
	const q = `
INSERT INTO listings.sources (source_id, slug, name, category, priority, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, now(), now())
ON CONFLICT (slug) DO UPDATE
SET name = EXCLUDED.name, category = EXCLUDED.category, priority = EXCLUDED.priority, updated_at = now()
RETURNING source_id
`
	var id string
	if err := p.QueryRow(ctx, q, uuid.NewString(), slug, name, category, priority).Scan(&id); err != nil {
		return "", fmt.Errorf("upsert source %q: %w", slug, err)
	}
	return id, nil
}
