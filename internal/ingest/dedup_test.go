package ingest

import (
	"strings"
	"testing"
	"time"

	"horse.fit/showlist/internal/db"
	"horse.fit/showlist/internal/similarity"
)

func candidate(id, title string, owner db.Source, start time.Time) db.EventCandidate {
	return db.EventCandidate{
		Event:         db.Event{EventID: id, Title: title, SourceID: owner.SourceID, StartTime: start},
		OwnerPriority: owner.Priority,
	}
}

func TestMatchCandidates_FirstAcceptedWins(t *testing.T) {
	t.Parallel()

	start := at(time.December, 25, 20)
	cands := []db.EventCandidate{
		candidate("a", "Comedy Night", venueSource, start),
		candidate("b", "The Rolling Stones", venueSource, start),
		candidate("c", "Rolling Stones", venueSource, start),
	}

	m := matchCandidates(similarity.Default(), "Rolling Stones", start, aggregatorSource, cands)
	if !m.IsDuplicate || m.ExistingEventID() != "b" {
		t.Fatalf("match = %+v, want first accepted candidate b", m)
	}
}

func TestMatchCandidates_CanonicalDecision(t *testing.T) {
	t.Parallel()

	start := at(time.December, 25, 20)
	cases := []struct {
		name   string
		owner  db.Source
		source db.Source
		want   bool
	}{
		{name: "same source rescrape", owner: aggregatorSource, source: aggregatorSource, want: true},
		{name: "more trusted source", owner: aggregatorSource, source: venueSource, want: true},
		{name: "less trusted source", owner: venueSource, source: ticketingSource, want: false},
		{name: "equal priority other source", owner: ticketingSource, source: db.Source{SourceID: "x", Priority: 20}, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			m := matchCandidates(similarity.Default(), "Khruangbin", start, tc.source,
				[]db.EventCandidate{candidate("e", "Khruangbin", tc.owner, start)})
			if !m.IsDuplicate {
				t.Fatalf("expected duplicate")
			}
			if m.ShouldUpdateCanonical != tc.want {
				t.Fatalf("ShouldUpdateCanonical = %v, want %v", m.ShouldUpdateCanonical, tc.want)
			}
		})
	}
}

func TestMatchCandidates_StartGap(t *testing.T) {
	t.Parallel()

	evening := at(time.December, 25, 20)
	cands := []db.EventCandidate{candidate("e", "The Rolling Stones", venueSource, evening)}

	if m := matchCandidates(similarity.Default(), "Rolling Stones", evening.Add(-2*time.Hour), venueSource, cands); !m.IsDuplicate {
		t.Fatalf("exactly two hours apart should still match")
	}
	if m := matchCandidates(similarity.Default(), "Rolling Stones", evening.Add(-3*time.Hour), venueSource, cands); m.IsDuplicate {
		t.Fatalf("three hours apart with imperfect title should not match")
	}
	if m := matchCandidates(similarity.Default(), "The Rolling Stones", evening.Add(-6*time.Hour), venueSource, cands); !m.IsDuplicate {
		t.Fatalf("identical title should match despite gap")
	}
}

func TestCompositeKey(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 12, 26, 3, 30, 0, 0, time.UTC)
	if got, want := CompositeKey("venue-1", start, "Simon &amp; Garfunkel!", nil), "venue-1:2025-12-26:03:30:simon-garfunkel"; got != want {
		t.Fatalf("CompositeKey() = %q, want %q", got, want)
	}

	la, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	got := CompositeKey("venue-1", start, "Late Show", la)
	if !strings.HasPrefix(got, "venue-1:2025-12-25:19:30:") {
		t.Fatalf("CompositeKey() in LA = %q, want previous local day", got)
	}
}

func TestDescriptionText(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "  plain   text &amp; more ", want: "plain text & more"},
		{in: "<div>Line one<br>Line   two</div><style>p{}</style>", want: "Line one\nLine two"},
		{in: "<ul><li>A</li><li>B &amp; C</li></ul>", want: "A\nB & C"},
	}
	for _, tc := range cases {
		if got := descriptionText(tc.in); got != tc.want {
			t.Fatalf("descriptionText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
