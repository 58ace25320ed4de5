package ingest

import (
	"context"
	"fmt"
	"time"

	"horse.fit/showlist/internal/db"
	"horse.fit/showlist/internal/globaltime"
	"horse.fit/showlist/internal/similarity"
)

const (
	// Same-day listings further apart than this are distinct shows (matinee and
	// evening) unless their titles are near-identical.
	maxStartGap        = 2 * time.Hour
	startGapOverride   = 0.95
	strategyExactMatch = "exact_source_id"
)

// DuplicateMatch is the Duplicate Finder's decision for one scraped event.
type DuplicateMatch struct {
	IsDuplicate           bool
	Existing              db.Event
	ShouldUpdateCanonical bool
	Similarity            float64
	Strategy              string
}

func (m DuplicateMatch) ExistingEventID() string {
	return m.Existing.EventID
}

// FindDuplicate searches the venue's calendar day around start for an event
// with a matching title.
func (s *Service) FindDuplicate(ctx context.Context, title string, start time.Time, venueID string, source db.Source) (DuplicateMatch, error) {
	from, to := globaltime.DayBounds(start, s.loc)
	candidates, err := s.store.ListVenueEventsBetween(ctx, venueID, from, to)
	if err != nil {
		return DuplicateMatch{}, fmt.Errorf("load same-day candidates: %w", err)
	}
	return matchCandidates(s.scorer, title, start, source, candidates), nil
}

// matchCandidates accepts the first candidate, in the given order, that clears
// the similarity threshold and the start-gap rule.
func matchCandidates(scorer *similarity.Scorer, title string, start time.Time, source db.Source, candidates []db.EventCandidate) DuplicateMatch {
	for _, c := range candidates {
		score, strategy := scorer.Best(title, c.Title)
		if score < similarity.MatchThreshold {
			continue
		}
		if absDuration(start.Sub(c.StartTime)) > maxStartGap && score < startGapOverride {
			continue
		}
		return DuplicateMatch{
			IsDuplicate:           true,
			Existing:              c.Event,
			ShouldUpdateCanonical: c.SourceID == source.SourceID || source.Priority < c.OwnerPriority,
			Similarity:            score,
			Strategy:              strategy,
		}
	}
	return DuplicateMatch{}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
