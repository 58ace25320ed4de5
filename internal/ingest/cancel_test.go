package ingest

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestDetectCancellations_Gate(t *testing.T) {
	t.Parallel()

	for observedCount := 0; observedCount <= 4; observedCount++ {
		t.Run(fmt.Sprintf("observed_%d", observedCount), func(t *testing.T) {
			t.Parallel()

			f := newFixture()
			f.store.seed(existingEvent("missing", "Missing Show", venueSource, at(time.December, 28, 20)))

			observed := NewObservedIDs()
			for i := 0; i < observedCount; i++ {
				observed.Add(fmt.Sprintf("seen-%d", i))
			}

			n, err := f.svc.DetectCancellations(context.Background(), observed, venueSource.SourceID, testVenue.VenueID, testNow)
			if err != nil {
				t.Fatalf("DetectCancellations() error = %v", err)
			}

			wantCancelled := observedCount >= minObservedForCancellation
			if got := f.store.event("missing").IsCancelled; got != wantCancelled {
				t.Fatalf("cancelled = %v, want %v", got, wantCancelled)
			}
			if wantCancelled && n != 1 {
				t.Fatalf("count = %d, want 1", n)
			}
			if !wantCancelled && n != 0 {
				t.Fatalf("count = %d, want 0", n)
			}
		})
	}
}

func TestDetectCancellations_OnlyFutureLiveIdentifiedEvents(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.store.seed(existingEvent("past", "Past Show", venueSource, testNow.Add(-48*time.Hour)))
	already := existingEvent("already", "Already Cancelled", venueSource, at(time.December, 28, 20))
	already.IsCancelled = true
	f.store.seed(already)
	noID := existingEvent("noid", "No Id", venueSource, at(time.December, 28, 21))
	noID.SourceEventID = nil
	f.store.seed(noID)
	f.store.seed(existingEvent("kept", "Kept Show", venueSource, at(time.December, 29, 20)))
	f.store.seed(existingEvent("dropped", "Dropped Show", venueSource, at(time.December, 30, 20)))

	observed := NewObservedIDs()
	for _, id := range []string{"seid-kept", "a", "b"} {
		observed.Add(id)
	}

	n, err := f.svc.DetectCancellations(context.Background(), observed, venueSource.SourceID, testVenue.VenueID, testNow)
	if err != nil {
		t.Fatalf("DetectCancellations() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
	for id, want := range map[string]bool{"past": false, "already": true, "noid": false, "kept": false, "dropped": true} {
		if got := f.store.event(id).IsCancelled; got != want {
			t.Fatalf("%s cancelled = %v, want %v", id, got, want)
		}
	}
}

func TestObservedIDs(t *testing.T) {
	t.Parallel()

	o := NewObservedIDs()
	if !o.Add("a") || o.Add("a") {
		t.Fatalf("Add should report only the first insertion")
	}
	if !o.Contains("a") || o.Contains("b") || o.Len() != 1 {
		t.Fatalf("unexpected accumulator state")
	}
	var nilSet *ObservedIDs
	if nilSet.Len() != 0 {
		t.Fatalf("nil accumulator length should be 0")
	}
}
