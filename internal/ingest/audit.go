package ingest

import (
	"context"
	"fmt"
	"time"

	"horse.fit/showlist/internal/db"
	"horse.fit/showlist/internal/globaltime"
	"horse.fit/showlist/internal/metrics"
	"horse.fit/showlist/internal/notify"
	"horse.fit/showlist/internal/similarity"
)

const (
	criticalPairCount = 3
	maxSampleTitles   = 5
)

// SuspiciousPair is an event created this run that resembles one that already existed.
type SuspiciousPair struct {
	Created    db.Event
	Existing   db.Event
	Similarity float64
}

// AuditRun re-checks the events a source created since runStart against events
// that existed before the run. On any hit it pauses the source's anomaly
// notifications and sends one alert; a source that is already paused is only logged.
// If the alert cannot be delivered the pause is lifted again.
func (s *Service) AuditRun(ctx context.Context, venue db.Venue, source db.Source, runStart time.Time, result SaveResult) ([]SuspiciousPair, error) {
	created, err := s.store.ListEventsCreatedSince(ctx, source.SourceID, venue.VenueID, runStart)
	if err != nil {
		return nil, fmt.Errorf("list events created this run: %w", err)
	}

	var pairs []SuspiciousPair
	for _, day := range groupByDay(created, s.loc) {
		candidates, err := s.store.ListVenueEventsBetween(ctx, venue.VenueID, day.from, day.to)
		if err != nil {
			return nil, fmt.Errorf("load same-day events: %w", err)
		}
		for _, ev := range day.events {
			for _, c := range candidates {
				if c.EventID == ev.EventID || !c.CreatedAt.Before(runStart) {
					continue
				}
				if score := s.scorer.Score(ev.Title, c.Title); score >= similarity.MatchThreshold {
					pairs = append(pairs, SuspiciousPair{Created: ev, Existing: c.Event, Similarity: score})
				}
			}
		}
	}
	if len(pairs) == 0 {
		return nil, nil
	}

	anomaly := buildAnomaly(venue, source, pairs, result, s.now())
	metrics.RecordAnomaly(anomaly.Severity)

	log := s.logger.With().
		Str("source_id", source.SourceID).
		Str("venue_id", venue.VenueID).
		Int("pairs", len(pairs)).
		Str("severity", anomaly.Severity).
		Strs("sample_titles", anomaly.SampleTitles).
		Logger()

	paused, err := s.store.PauseSourceNotifications(ctx, source.SourceID, anomaly.Message, anomaly.Timestamp)
	if err != nil {
		return pairs, fmt.Errorf("pause source notifications: %w", err)
	}
	if !paused {
		log.Warn().Msg("suspicious duplicates detected; notifications already paused")
		return pairs, nil
	}

	log.Warn().Msg("suspicious duplicates detected; pausing notifications and alerting")
	if err := s.notifier.Notify(ctx, anomaly); err != nil {
		// Undelivered alert: lift the pause so the next run alerts again.
		if _, resumeErr := s.store.ResumeSourceNotifications(context.WithoutCancel(ctx), source.SourceID, s.now()); resumeErr != nil {
			log.Error().Err(resumeErr).Msg("failed to lift notification pause after undelivered alert")
		}
		return pairs, fmt.Errorf("send anomaly alert: %w", err)
	}
	return pairs, nil
}

type dayGroup struct {
	from, to time.Time
	events   []db.Event
}

// groupByDay buckets events by calendar day in loc, keeping first-seen day order.
func groupByDay(events []db.Event, loc *time.Location) []dayGroup {
	var groups []dayGroup
	index := make(map[int64]int)
	for _, ev := range events {
		from, to := globaltime.DayBounds(ev.StartTime, loc)
		i, ok := index[from.Unix()]
		if !ok {
			i = len(groups)
			index[from.Unix()] = i
			groups = append(groups, dayGroup{from: from, to: to})
		}
		groups[i].events = append(groups[i].events, ev)
	}
	return groups
}

func buildAnomaly(venue db.Venue, source db.Source, pairs []SuspiciousPair, result SaveResult, now time.Time) notify.Anomaly {
	severity := notify.SeverityWarning
	if len(pairs) >= criticalPairCount {
		severity = notify.SeverityCritical
	}

	samples := make([]string, 0, min(len(pairs), maxSampleTitles))
	for _, p := range pairs[:min(len(pairs), maxSampleTitles)] {
		samples = append(samples, fmt.Sprintf("%q ~ %q (%.2f)", p.Created.Title, p.Existing.Title, p.Similarity))
	}

	return notify.Anomaly{
		SourceID:      source.SourceID,
		SourceName:    source.Name,
		VenueName:     venue.Name,
		AnomalyType:   notify.AnomalyDuplicateSpike,
		Severity:      severity,
		Message:       fmt.Sprintf("%d suspicious duplicate(s) created by %s at %s", len(pairs), source.Name, venue.Name),
		SampleTitles:  samples,
		EventsCreated: result.Saved,
		EventsUpdated: result.Updated,
		EventsSkipped: result.Skipped,
		Timestamp:     now.UTC(),
	}
}
