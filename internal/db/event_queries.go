package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// EventContent is the source-reported payload written onto a canonical event.
type EventContent struct {
	Title          string
	Description    *string
	StartTime      time.Time
	EndTime        *time.Time
	DoorsTime      *time.Time
	CoverCharge    *string
	TicketURL      *string
	ImageURL       *string
	AgeRestriction *string
	Genres         datatypes.JSON
}

// EventOwner identifies the source that owns canonical data for an event.
type EventOwner struct {
	SourceID      string
	SourceEventID *string
	SourceURL     *string
}

// EventPatch carries fill-only updates. Nil fields are left untouched.
type EventPatch struct {
	Description *string
	ImageURL    *string
	CoverCharge *string
	TicketURL   *string
	DoorsTime   *time.Time
	EndTime     *time.Time
}

func (p EventPatch) IsEmpty() bool {
	return p.Description == nil &&
		p.ImageURL == nil &&
		p.CoverCharge == nil &&
		p.TicketURL == nil &&
		p.DoorsTime == nil &&
		p.EndTime == nil
}

// Columns returns the column assignments for the non-nil fields.
func (p EventPatch) Columns() map[string]any {
	cols := make(map[string]any, 6)
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.ImageURL != nil {
		cols["image_url"] = *p.ImageURL
	}
	if p.CoverCharge != nil {
		cols["cover_charge"] = *p.CoverCharge
	}
	if p.TicketURL != nil {
		cols["ticket_url"] = *p.TicketURL
	}
	if p.DoorsTime != nil {
		cols["doors_time"] = p.DoorsTime.UTC()
	}
	if p.EndTime != nil {
		cols["end_time"] = p.EndTime.UTC()
	}
	return cols
}

// EventCandidate is an event on a venue's calendar along with its owner's priority.
type EventCandidate struct {
	Event
	OwnerPriority int
}

// FindEventBySourceEventID looks up the event a source owns under its own identifier.
func (p *Pool) FindEventBySourceEventID(ctx context.Context, sourceID, sourceEventID string) (Event, bool, error) {
	var rows []Event
	err := p.gdb.WithContext(ctx).
		Where("source_id = ? AND source_event_id = ?", sourceID, sourceEventID).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return Event{}, false, fmt.Errorf("find event by source event id: %w", err)
	}
	if len(rows) == 0 {
		return Event{}, false, nil
	}
	return rows[0], true, nil
}

// OverwriteEvent replaces an event's content and ownership and clears its cancelled flag.
// Optional fields absent from content keep their stored values.
func (p *Pool) OverwriteEvent(ctx context.Context, eventID string, owner EventOwner, content EventContent, seenAt time.Time) error {
	const q = `
UPDATE listings.events
SET
	source_id = $2,
	source_event_id = $3,
	source_url = $4,
	title = $5,
	description = COALESCE($6, description),
	start_time = $7,
	end_time = COALESCE($8, end_time),
	doors_time = COALESCE($9, doors_time),
	cover_charge = COALESCE($10, cover_charge),
	ticket_url = COALESCE($11, ticket_url),
	image_url = COALESCE($12, image_url),
	age_restriction = COALESCE($13, age_restriction),
	genres = COALESCE($14::jsonb, genres),
	is_cancelled = false,
	last_seen_at = $15,
	updated_at = $15
WHERE event_id = $1
`
	tag, err := p.Exec(ctx, q,
		eventID,
		owner.SourceID,
		owner.SourceEventID,
		owner.SourceURL,
		content.Title,
		content.Description,
		content.StartTime.UTC(),
		utcPtr(content.EndTime),
		utcPtr(content.DoorsTime),
		content.CoverCharge,
		content.TicketURL,
		content.ImageURL,
		content.AgeRestriction,
		jsonText(content.Genres),
		seenAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("overwrite event %s: %w", eventID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("overwrite event %s: %w", eventID, ErrNotFound)
	}
	return nil
}

// ListVenueEventsBetween returns events at a venue starting in [from, to), oldest first.
func (p *Pool) ListVenueEventsBetween(ctx context.Context, venueID string, from, to time.Time) ([]EventCandidate, error) {
	var events []Event
	err := p.gdb.WithContext(ctx).
		Where("venue_id = ? AND start_time >= ? AND start_time < ?", venueID, from.UTC(), to.UTC()).
		Order("created_at ASC, event_id ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list venue events: %w", err)
	}
	if len(events) == 0 {
		return nil, nil
	}

	ownerIDs := make([]string, 0, len(events))
	seen := make(map[string]struct{}, len(events))
	for _, ev := range events {
		if _, ok := seen[ev.SourceID]; ok {
			continue
		}
		seen[ev.SourceID] = struct{}{}
		ownerIDs = append(ownerIDs, ev.SourceID)
	}

	var owners []Source
	if err := p.gdb.WithContext(ctx).Where("source_id IN ?", ownerIDs).Find(&owners).Error; err != nil {
		return nil, fmt.Errorf("load event owners: %w", err)
	}
	priorities := make(map[string]int, len(owners))
	for _, s := range owners {
		priorities[s.SourceID] = s.Priority
	}

	out := make([]EventCandidate, 0, len(events))
	for _, ev := range events {
		priority, ok := priorities[ev.SourceID]
		if !ok {
			priority = DefaultPriority(SourceCategoryOther)
		}
		out = append(out, EventCandidate{Event: ev, OwnerPriority: priority})
	}
	return out, nil
}

// PatchEvent applies fill-only updates to an event.
func (p *Pool) PatchEvent(ctx context.Context, eventID string, patch EventPatch, seenAt time.Time) error {
	if patch.IsEmpty() {
		return nil
	}
	cols := patch.Columns()
	cols["last_seen_at"] = seenAt.UTC()
	cols["updated_at"] = seenAt.UTC()

	res := p.gdb.WithContext(ctx).Model(&Event{}).Where("event_id = ?", eventID).Updates(cols)
	if res.Error != nil {
		return fmt.Errorf("patch event %s: %w", eventID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("patch event %s: %w", eventID, ErrNotFound)
	}
	return nil
}

func (p *Pool) CreateEvent(ctx context.Context, ev *Event) error {
	if ev == nil || strings.TrimSpace(ev.EventID) == "" {
		return fmt.Errorf("event id is required")
	}
	if err := p.gdb.WithContext(ctx).Create(ev).Error; err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// UpsertEventSource records that a source reported an event, keyed by (event, source).
func (p *Pool) UpsertEventSource(ctx context.Context, es EventSource) error {
	const q = `
INSERT INTO listings.event_sources (
	event_source_id,
	event_id,
	source_id,
	source_event_id,
	source_url,
	raw_payload,
	last_scraped_at,
	created_at,
	updated_at
)
VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $7, $7)
ON CONFLICT (event_id, source_id) DO UPDATE
SET
	source_event_id = EXCLUDED.source_event_id,
	source_url = EXCLUDED.source_url,
	raw_payload = EXCLUDED.raw_payload,
	last_scraped_at = EXCLUDED.last_scraped_at,
	updated_at = EXCLUDED.updated_at
`
	_, err := p.Exec(ctx, q,
		es.EventSourceID,
		es.EventID,
		es.SourceID,
		es.SourceEventID,
		es.SourceURL,
		jsonText(es.RawPayload),
		es.LastScrapedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert event source: %w", err)
	}
	return nil
}

// ListCancellationCandidates returns future, live events a source owns at a venue
// under a source-assigned identifier.
func (p *Pool) ListCancellationCandidates(ctx context.Context, sourceID, venueID string, after time.Time) ([]Event, error) {
	var events []Event
	err := p.gdb.WithContext(ctx).
		Where("source_id = ? AND venue_id = ?", sourceID, venueID).
		Where("start_time > ?", after.UTC()).
		Where("is_cancelled = ?", false).
		Where("source_event_id IS NOT NULL").
		Order("start_time ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list cancellation candidates: %w", err)
	}
	return events, nil
}

func (p *Pool) MarkEventsCancelled(ctx context.Context, eventIDs []string, at time.Time) (int64, error) {
	if len(eventIDs) == 0 {
		return 0, nil
	}
	res := p.gdb.WithContext(ctx).
		Model(&Event{}).
		Where("event_id IN ? AND is_cancelled = ?", eventIDs, false).
		Updates(map[string]any{"is_cancelled": true, "updated_at": at.UTC()})
	if res.Error != nil {
		return 0, fmt.Errorf("mark events cancelled: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ListEventsCreatedSince returns events a source created at a venue at or after since.
func (p *Pool) ListEventsCreatedSince(ctx context.Context, sourceID, venueID string, since time.Time) ([]Event, error) {
	var events []Event
	err := p.gdb.WithContext(ctx).
		Where("source_id = ? AND venue_id = ? AND created_at >= ?", sourceID, venueID, since.UTC()).
		Order("created_at ASC, event_id ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list events created since: %w", err)
	}
	return events, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func jsonText(raw datatypes.JSON) *string {
	if len(raw) == 0 {
		return nil
	}
	s := string(raw)
	return &s
}
