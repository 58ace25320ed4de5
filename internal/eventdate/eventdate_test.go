package eventdate

import (
	"testing"
	"time"
)

var now = time.Date(2025, 12, 10, 12, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 20, 0, 0, 0, time.UTC)
}

func TestCheck_NearFutureIsValid(t *testing.T) {
	t.Parallel()

	start := day(2026, time.January, 15)
	v := Check(start, now)
	if !v.Valid || v.Corrected {
		t.Fatalf("expected valid unmodified verdict, got %+v", v)
	}
	if !v.Date.Equal(start) {
		t.Fatalf("unexpected date: got %s want %s", v.Date, start)
	}
}

func TestCheck_FarFutureOutsideCorrectionWindowIsFiltered(t *testing.T) {
	t.Parallel()

	// 2026-11-01 is >300 days out; one year earlier is 39 days in the past.
	v := Check(day(2026, time.November, 1), now)
	if v.Valid {
		t.Fatalf("expected rejection, got %+v", v)
	}
	if v.Reason != ReasonTooFarFuture {
		t.Fatalf("unexpected reason: got %q want %q", v.Reason, ReasonTooFarFuture)
	}
}

func TestCheck_FarFutureCorrectedBackOneYear(t *testing.T) {
	t.Parallel()

	// A scraper that reads "Dec 1" on Dec 10 and rolls it into next year.
	v := Check(day(2026, time.December, 1), now)
	if !v.Valid || !v.Corrected || v.YearShift != -1 {
		t.Fatalf("expected backward correction, got %+v", v)
	}
	if want := day(2025, time.December, 1); !v.Date.Equal(want) {
		t.Fatalf("unexpected corrected date: got %s want %s", v.Date, want)
	}
}

func TestCheck_RecentPastRejected(t *testing.T) {
	t.Parallel()

	v := Check(day(2025, time.December, 1), now)
	if v.Valid || v.Reason != ReasonRecentPast {
		t.Fatalf("expected recent past rejection, got %+v", v)
	}
}

func TestCheck_YearWrapCorrectedForward(t *testing.T) {
	t.Parallel()

	// "January 15" scraped in December and stamped with the current year.
	v := Check(day(2025, time.January, 15), now)
	if !v.Valid || !v.Corrected || v.YearShift != 1 {
		t.Fatalf("expected forward correction, got %+v", v)
	}
	if want := day(2026, time.January, 15); !v.Date.Equal(want) {
		t.Fatalf("unexpected corrected date: got %s want %s", v.Date, want)
	}
}

func TestCheck_StaleListingNotResurrected(t *testing.T) {
	t.Parallel()

	// June is six months "ahead" of December; outside the year-wrap window.
	v := Check(day(2025, time.June, 20), now)
	if v.Valid || v.Reason != ReasonPastEvent {
		t.Fatalf("expected past event rejection, got %+v", v)
	}
}

func TestCheck_YearWrapBeyondWindowRejected(t *testing.T) {
	t.Parallel()

	// January is three months after October, but Jan 31 next year is 122 days out.
	oct := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	v := Check(day(2025, time.January, 31), oct)
	if v.Valid {
		t.Fatalf("expected rejection, got %+v", v)
	}
	if v.Reason != ReasonPastEvent {
		t.Fatalf("unexpected reason: %q", v.Reason)
	}
}

func TestCheck_ZeroDate(t *testing.T) {
	t.Parallel()

	if v := Check(time.Time{}, now); v.Valid || v.Reason != ReasonMissingDate {
		t.Fatalf("expected missing date rejection, got %+v", v)
	}
}

func TestVerdict_ShiftCompanionTimes(t *testing.T) {
	t.Parallel()

	v := Check(day(2025, time.January, 15), now)
	doors := time.Date(2025, 1, 15, 19, 0, 0, 0, time.UTC)
	shifted := v.Shift(&doors)
	if shifted == nil || shifted.Year() != 2026 {
		t.Fatalf("expected doors time shifted to 2026, got %v", shifted)
	}

	plain := Check(day(2026, time.January, 15), now)
	if got := plain.Shift(&doors); got != &doors {
		t.Fatalf("expected uncorrected verdict to return the same pointer")
	}
	if got := v.Shift(nil); got != nil {
		t.Fatalf("expected nil passthrough")
	}
}
