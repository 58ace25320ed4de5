package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/showlist/internal/db"
	"horse.fit/showlist/internal/globaltime"
	"horse.fit/showlist/internal/metrics"
	"horse.fit/showlist/internal/notify"
	"horse.fit/showlist/internal/similarity"
)

const (
	nativeIDConfidence    = 1.0
	compositeIDConfidence = 0.9
)

type Service struct {
	store    Store
	notifier notify.Notifier
	scorer   *similarity.Scorer
	loc      *time.Location
	now      func() time.Time
	logger   zerolog.Logger
}

type Options struct {
	// Scorer defaults to similarity.Default().
	Scorer *similarity.Scorer
	// Location defines calendar days for matching and composite keys. Defaults to UTC.
	Location *time.Location
	// Now defaults to globaltime.Now.
	Now func() time.Time
}

func NewService(store Store, notifier notify.Notifier, logger zerolog.Logger, opts Options) *Service {
	s := &Service{
		store:    store,
		notifier: notifier,
		scorer:   opts.Scorer,
		loc:      opts.Location,
		now:      opts.Now,
		logger:   logger,
	}
	if s.notifier == nil {
		s.notifier = notify.NewLogNotifier(logger)
	}
	if s.scorer == nil {
		s.scorer = similarity.Default()
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = globaltime.Now
	}
	return s
}

// SaveEvents ingests one source's batch for one venue. Events are processed in
// order; a failing event is counted as skipped and the batch continues. Only a
// failure to open the run ledger, or ctx ending mid-batch, is returned as an error.
func (s *Service) SaveEvents(ctx context.Context, events []ScrapedEvent, venue db.Venue, source db.Source, opts SaveOptions) (SaveResult, error) {
	if s == nil || s.store == nil {
		return SaveResult{}, fmt.Errorf("ingest service is not initialized")
	}

	runStart := s.now()
	runID, err := s.store.StartIngestRun(ctx, source.SourceID, venue.VenueID, runStart, len(events))
	if err != nil {
		return SaveResult{}, fmt.Errorf("start ingest run: %w", err)
	}

	log := s.logger.With().
		Int64("run_id", runID).
		Str("source_id", source.SourceID).
		Str("venue_id", venue.VenueID).
		Logger()

	result := SaveResult{RunID: runID}
	observed := NewObservedIDs()
	failures := 0
	var runErr error

	for i := range events {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		out, err := s.saveOne(ctx, events[i], venue, source, opts, observed)
		if err != nil {
			out = outcomeSkipped
			if !errors.Is(err, ErrDuplicateInBatch) {
				failures++
			}
			log.Warn().Err(err).Str("title", events[i].Title).Msg("event skipped")
		}
		result.add(out)
		metrics.RecordOutcome(string(out))
	}

	if runErr == nil {
		canceled, err := s.DetectCancellations(ctx, observed, source.SourceID, venue.VenueID, s.now())
		if err != nil {
			failures++
			log.Warn().Err(err).Msg("cancellation check failed")
		}
		result.Canceled = canceled
		metrics.RecordCancelled(canceled)

		pairs, err := s.AuditRun(ctx, venue, source, runStart, result)
		if err != nil {
			log.Warn().Err(err).Msg("duplicate audit failed")
		}
		result.SuspiciousPairs = len(pairs)
	}

	finishedAt := s.now()
	metrics.ObserveRun(finishedAt.Sub(runStart))
	if err := s.store.FinishIngestRun(context.WithoutCancel(ctx), runID, source.SourceID, runOutcome(result, failures, runErr, finishedAt)); err != nil {
		log.Warn().Err(err).Msg("failed to close ingest run")
	}

	log.Info().
		Int("received", len(events)).
		Int("saved", result.Saved).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("filtered", result.Filtered).
		Int("canceled", result.Canceled).
		Msg("ingest run finished")

	if runErr != nil {
		return result, fmt.Errorf("ingest run %d interrupted: %w", runID, runErr)
	}
	return result, nil
}

// ScrapeAndSave pulls one batch from scraper and saves it. A scrape failure is
// recorded as a failed run so the source's last-run status reflects it.
func (s *Service) ScrapeAndSave(ctx context.Context, scraper Scraper, venue db.Venue, source db.Source, opts SaveOptions) (SaveResult, error) {
	if scraper == nil {
		return SaveResult{}, fmt.Errorf("scraper is nil")
	}
	events, err := scraper.Scrape(ctx, venue)
	if err != nil {
		scrapeErr := fmt.Errorf("scrape %s for venue %s: %w", source.Slug, venue.VenueID, err)
		s.recordFailedRun(ctx, venue, source, scrapeErr)
		return SaveResult{}, scrapeErr
	}
	return s.SaveEvents(ctx, events, venue, source, opts)
}

func (s *Service) recordFailedRun(ctx context.Context, venue db.Venue, source db.Source, runErr error) {
	ctx = context.WithoutCancel(ctx)
	log := s.logger.With().Str("source_id", source.SourceID).Str("venue_id", venue.VenueID).Logger()

	runID, err := s.store.StartIngestRun(ctx, source.SourceID, venue.VenueID, s.now(), 0)
	if err != nil {
		log.Warn().Err(err).Msg("failed to open ingest run for scrape failure")
		return
	}
	if err := s.store.FinishIngestRun(ctx, runID, source.SourceID, runOutcome(SaveResult{}, 0, runErr, s.now())); err != nil {
		log.Warn().Err(err).Msg("failed to close ingest run")
	}
	log.Warn().Err(runErr).Int64("run_id", runID).Msg("scrape failed")
}

func (s *Service) saveOne(ctx context.Context, ev ScrapedEvent, venue db.Venue, source db.Source, opts SaveOptions, observed *ObservedIDs) (outcome, error) {
	now := s.now()
	prepared, err := s.prepare(ev, venue.VenueID, opts, now)
	if err != nil {
		return outcomeSkipped, err
	}
	if !prepared.verdict.Valid {
		s.logger.Debug().
			Str("title", ev.Title).
			Time("start_time", ev.StartTime).
			Str("reason", string(prepared.verdict.Reason)).
			Msg("event filtered by date check")
		return outcomeFiltered, nil
	}
	if prepared.verdict.Corrected {
		metrics.RecordDateCorrection(prepared.verdict.YearShift)
		s.logger.Info().
			Str("title", prepared.content.Title).
			Time("scraped_start", ev.StartTime).
			Time("corrected_start", prepared.content.StartTime).
			Msg("start date year corrected")
	}

	if !observed.Add(prepared.sourceEventID) {
		return outcomeSkipped, fmt.Errorf("%w: %s", ErrDuplicateInBatch, prepared.sourceEventID)
	}

	owner := db.EventOwner{
		SourceID:      source.SourceID,
		SourceEventID: &prepared.sourceEventID,
		SourceURL:     prepared.sourceURL,
	}

	existing, found, err := s.store.FindEventBySourceEventID(ctx, source.SourceID, prepared.sourceEventID)
	if err != nil {
		return outcomeSkipped, err
	}
	if found {
		return s.updateExact(ctx, existing.EventID, owner, prepared, now)
	}

	match, err := s.FindDuplicate(ctx, prepared.content.Title, prepared.content.StartTime, venue.VenueID, source)
	if err != nil {
		return outcomeSkipped, err
	}
	if match.IsDuplicate {
		return s.mergeDuplicate(ctx, match, owner, prepared, now)
	}

	return s.create(ctx, venue, owner, prepared, now)
}

func (s *Service) updateExact(ctx context.Context, eventID string, owner db.EventOwner, prepared preparedEvent, now time.Time) (outcome, error) {
	if err := s.store.OverwriteEvent(ctx, eventID, owner, prepared.content, now); err != nil {
		return outcomeSkipped, err
	}
	if err := s.store.UpsertEventSource(ctx, eventSourceRow(eventID, owner, prepared, now)); err != nil {
		return outcomeSkipped, err
	}
	metrics.RecordDuplicateMatch(strategyExactMatch)
	return outcomeUpdated, nil
}

func (s *Service) mergeDuplicate(ctx context.Context, match DuplicateMatch, owner db.EventOwner, prepared preparedEvent, now time.Time) (outcome, error) {
	eventID := match.ExistingEventID()
	metrics.RecordDuplicateMatch(match.Strategy)

	if err := s.store.UpsertEventSource(ctx, eventSourceRow(eventID, owner, prepared, now)); err != nil {
		return outcomeSkipped, err
	}

	if match.ShouldUpdateCanonical {
		if err := s.store.OverwriteEvent(ctx, eventID, owner, prepared.content, now); err != nil {
			return outcomeSkipped, err
		}
		if match.Existing.SourceID != owner.SourceID {
			s.logger.Info().
				Str("event_id", eventID).
				Str("from_source_id", match.Existing.SourceID).
				Str("to_source_id", owner.SourceID).
				Float64("similarity", match.Similarity).
				Msg("canonical ownership transferred")
		}
		return outcomeUpdated, nil
	}

	patch := MergeEventData(match.Existing, prepared.content)
	if patch.IsEmpty() {
		return outcomeSkipped, nil
	}
	if err := s.store.PatchEvent(ctx, eventID, patch, now); err != nil {
		return outcomeSkipped, err
	}
	return outcomeUpdated, nil
}

func (s *Service) create(ctx context.Context, venue db.Venue, owner db.EventOwner, prepared preparedEvent, now time.Time) (outcome, error) {
	confidence := compositeIDConfidence
	if prepared.nativeID {
		confidence = nativeIDConfidence
	}

	ev := &db.Event{
		EventID:         uuid.NewString(),
		VenueID:         venue.VenueID,
		RegionID:        venue.RegionID,
		SourceID:        owner.SourceID,
		SourceEventID:   owner.SourceEventID,
		SourceURL:       owner.SourceURL,
		Title:           prepared.content.Title,
		Description:     prepared.content.Description,
		StartTime:       prepared.content.StartTime,
		EndTime:         prepared.content.EndTime,
		DoorsTime:       prepared.content.DoorsTime,
		CoverCharge:     prepared.content.CoverCharge,
		TicketURL:       prepared.content.TicketURL,
		ImageURL:        prepared.content.ImageURL,
		AgeRestriction:  prepared.content.AgeRestriction,
		Genres:          prepared.content.Genres,
		ReviewStatus:    db.ReviewStatusPending,
		ConfidenceScore: confidence,
		LastSeenAt:      now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.store.CreateEvent(ctx, ev); err != nil {
		if !db.IsUniqueViolation(err) {
			return outcomeSkipped, err
		}
		// Another writer created (source, source event id) between lookup and insert.
		existing, found, findErr := s.store.FindEventBySourceEventID(ctx, owner.SourceID, *owner.SourceEventID)
		if findErr != nil || !found {
			return outcomeSkipped, err
		}
		return s.updateExact(ctx, existing.EventID, owner, prepared, now)
	}

	if err := s.store.UpsertEventSource(ctx, eventSourceRow(ev.EventID, owner, prepared, now)); err != nil {
		return outcomeSkipped, err
	}
	return outcomeCreated, nil
}

func eventSourceRow(eventID string, owner db.EventOwner, prepared preparedEvent, now time.Time) db.EventSource {
	return db.EventSource{
		EventSourceID: uuid.NewString(),
		EventID:       eventID,
		SourceID:      owner.SourceID,
		SourceEventID: owner.SourceEventID,
		SourceURL:     owner.SourceURL,
		RawPayload:    prepared.rawPayload,
		LastScrapedAt: now,
	}
}

func (r *SaveResult) add(out outcome) {
	switch out {
	case outcomeCreated:
		r.Saved++
	case outcomeUpdated:
		r.Updated++
	case outcomeFiltered:
		r.Filtered++
	default:
		r.Skipped++
	}
}

func runOutcome(result SaveResult, failures int, runErr error, finishedAt time.Time) db.RunOutcome {
	out := db.RunOutcome{
		Status:       db.RunStatusCompleted,
		SourceStatus: db.SourceRunSuccess,
		FinishedAt:   finishedAt,
		Saved:        result.Saved,
		Updated:      result.Updated,
		Skipped:      result.Skipped,
		Filtered:     result.Filtered,
		Cancelled:    result.Canceled,
	}
	switch {
	case runErr != nil:
		out.Status = db.RunStatusFailed
		out.SourceStatus = db.SourceRunFailed
		out.ErrorMessage = runErr.Error()
	case failures > 0:
		out.SourceStatus = db.SourceRunPartial
	}
	return out
}
