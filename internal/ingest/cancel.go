package ingest

import (
	"context"
	"fmt"
	"time"
)

// A batch must carry at least this many ids before absences are read as cancellations.
const minObservedForCancellation = 3

// ObservedIDs accumulates the source event ids resolved during one run.
type ObservedIDs struct {
	ids map[string]struct{}
}

func NewObservedIDs() *ObservedIDs {
	return &ObservedIDs{ids: make(map[string]struct{})}
}

// Add records id and reports whether it was new.
func (o *ObservedIDs) Add(id string) bool {
	if _, ok := o.ids[id]; ok {
		return false
	}
	o.ids[id] = struct{}{}
	return true
}

func (o *ObservedIDs) Contains(id string) bool {
	_, ok := o.ids[id]
	return ok
}

func (o *ObservedIDs) Len() int {
	if o == nil {
		return 0
	}
	return len(o.ids)
}

// DetectCancellations marks future events this source owns at the venue as
// cancelled when they are missing from observed.
func (s *Service) DetectCancellations(ctx context.Context, observed *ObservedIDs, sourceID, venueID string, now time.Time) (int, error) {
	log := s.logger.With().Str("source_id", sourceID).Str("venue_id", venueID).Logger()

	switch n := observed.Len(); {
	case n == 0:
		log.Info().Msg("no events observed, likely a scrape failure; skipping cancellation check")
		return 0, nil
	case n < minObservedForCancellation:
		log.Info().Int("observed", n).Msg("too few events observed to infer cancellations; skipping")
		return 0, nil
	}

	candidates, err := s.store.ListCancellationCandidates(ctx, sourceID, venueID, now)
	if err != nil {
		return 0, fmt.Errorf("list cancellation candidates: %w", err)
	}

	missing := make([]string, 0)
	for _, ev := range candidates {
		if ev.SourceEventID == nil || observed.Contains(*ev.SourceEventID) {
			continue
		}
		missing = append(missing, ev.EventID)
		log.Info().
			Str("event_id", ev.EventID).
			Str("title", ev.Title).
			Time("start_time", ev.StartTime).
			Msg("event no longer listed; marking cancelled")
	}
	if len(missing) == 0 {
		return 0, nil
	}

	n, err := s.store.MarkEventsCancelled(ctx, missing, now)
	if err != nil {
		return 0, fmt.Errorf("mark events cancelled: %w", err)
	}
	return int(n), nil
}
