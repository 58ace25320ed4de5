package ingest

import (
	"context"
	"errors"
	"time"

	"horse.fit/showlist/internal/db"
	"horse.fit/showlist/internal/metrics"
)

var (
	ErrInvalidEvent     = errors.New("invalid scraped event")
	ErrDuplicateInBatch = errors.New("source event id already seen in this batch")
)

// ScrapedEvent is one listing as a scraper reported it.
type ScrapedEvent struct {
	Title          string     `json:"title" validate:"required,max=500"`
	Description    string     `json:"description,omitempty"`
	StartTime      time.Time  `json:"start_time" validate:"required"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	DoorsTime      *time.Time `json:"doors_time,omitempty"`
	CoverCharge    string     `json:"cover_charge,omitempty" validate:"max=200"`
	TicketURL      string     `json:"ticket_url,omitempty"`
	SourceURL      string     `json:"source_url,omitempty"`
	ImageURL       string     `json:"image_url,omitempty"`
	SourceEventID  string     `json:"source_event_id,omitempty" validate:"max=255"`
	AgeRestriction string     `json:"age_restriction,omitempty" validate:"max=50"`
	Genres         []string   `json:"genres,omitempty" validate:"max=32,dive,max=64"`
}

// Scraper is anything that can produce one source's batch for a venue.
type Scraper interface {
	Scrape(ctx context.Context, venue db.Venue) ([]ScrapedEvent, error)
}

type SaveOptions struct {
	DefaultAgeRestriction string
}

// SaveResult is the per-batch tally. Filtered counts events rejected by the date check.
type SaveResult struct {
	RunID           int64 `json:"run_id"`
	Saved           int   `json:"saved"`
	Skipped         int   `json:"skipped"`
	Updated         int   `json:"updated"`
	Filtered        int   `json:"filtered"`
	Canceled        int   `json:"canceled"`
	SuspiciousPairs int   `json:"suspicious_pairs"`
}

type outcome string

const (
	outcomeCreated  outcome = metrics.OutcomeCreated
	outcomeUpdated  outcome = metrics.OutcomeUpdated
	outcomeSkipped  outcome = metrics.OutcomeSkipped
	outcomeFiltered outcome = metrics.OutcomeFiltered
)

// Store is the persistence surface the ingest pipeline needs. *db.Pool satisfies it.
type Store interface {
	FindEventBySourceEventID(ctx context.Context, sourceID, sourceEventID string) (db.Event, bool, error)
	OverwriteEvent(ctx context.Context, eventID string, owner db.EventOwner, content db.EventContent, seenAt time.Time) error
	ListVenueEventsBetween(ctx context.Context, venueID string, from, to time.Time) ([]db.EventCandidate, error)
	PatchEvent(ctx context.Context, eventID string, patch db.EventPatch, seenAt time.Time) error
	CreateEvent(ctx context.Context, ev *db.Event) error
	UpsertEventSource(ctx context.Context, es db.EventSource) error

	ListCancellationCandidates(ctx context.Context, sourceID, venueID string, after time.Time) ([]db.Event, error)
	MarkEventsCancelled(ctx context.Context, eventIDs []string, at time.Time) (int64, error)

	ListEventsCreatedSince(ctx context.Context, sourceID, venueID string, since time.Time) ([]db.Event, error)
	PauseSourceNotifications(ctx context.Context, sourceID, reason string, at time.Time) (bool, error)
	ResumeSourceNotifications(ctx context.Context, sourceID string, at time.Time) (bool, error)

	StartIngestRun(ctx context.Context, sourceID, venueID string, startedAt time.Time, received int) (int64, error)
	FinishIngestRun(ctx context.Context, runID int64, sourceID string, out db.RunOutcome) error
}

var _ Store = (*db.Pool)(nil)
