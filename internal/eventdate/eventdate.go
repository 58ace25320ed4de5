// Package eventdate screens scraped start times and repairs the year-inference
// mistakes scrapers make around the new year.
package eventdate

import "time"

const (
	maxFutureDays       = 300
	recentPastDays      = 14
	yearWrapMaxFuture   = 120
	yearWrapMinMonthGap = 1
	yearWrapMaxMonthGap = 3

	correctionBackward = -1
	correctionForward  = 1
)

type Reason string

const (
	ReasonNone         Reason = ""
	ReasonTooFarFuture Reason = "too far in future"
	ReasonRecentPast   Reason = "recent past"
	ReasonPastEvent    Reason = "past event"
	ReasonMissingDate  Reason = "missing date"
)

// Verdict is the outcome of Check. When Corrected is true, Date holds the
// start time shifted by YearShift years; otherwise Date is the input.
type Verdict struct {
	Valid     bool
	Corrected bool
	Date      time.Time
	YearShift int
	Reason    Reason
}

// Check classifies start relative to now.
//
//   - 0..300 days ahead: valid as-is.
//   - more than 300 days ahead: one year earlier is accepted if that lands in [-14, 300] days.
//   - up to 14 days ago: rejected as recent past.
//   - further back: if the month is 1-3 months after now's month (a January date read
//     in December), one year later is accepted if that lands in [0, 120] days.
//   - anything else is a past event.
func Check(start, now time.Time) Verdict {
	if start.IsZero() {
		return Verdict{Reason: ReasonMissingDate}
	}

	days := daysBetween(now, start)
	switch {
	case days >= 0 && days <= maxFutureDays:
		return Verdict{Valid: true, Date: start}

	case days > maxFutureDays:
		corrected := start.AddDate(correctionBackward, 0, 0)
		cd := daysBetween(now, corrected)
		if cd >= -recentPastDays && cd <= maxFutureDays {
			return Verdict{Valid: true, Corrected: true, Date: corrected, YearShift: correctionBackward}
		}
		return Verdict{Date: start, Reason: ReasonTooFarFuture}

	case days >= -recentPastDays:
		return Verdict{Date: start, Reason: ReasonRecentPast}
	}

	if gap := monthsAhead(now.Month(), start.In(now.Location()).Month()); gap >= yearWrapMinMonthGap && gap <= yearWrapMaxMonthGap {
		corrected := start.AddDate(correctionForward, 0, 0)
		cd := daysBetween(now, corrected)
		if cd >= 0 && cd <= yearWrapMaxFuture {
			return Verdict{Valid: true, Corrected: true, Date: corrected, YearShift: correctionForward}
		}
	}
	return Verdict{Date: start, Reason: ReasonPastEvent}
}

// Shift moves an optional companion timestamp (end, doors) by the same number
// of years as a corrected start time.
func (v Verdict) Shift(t *time.Time) *time.Time {
	if t == nil || !v.Corrected || v.YearShift == 0 {
		return t
	}
	shifted := t.AddDate(v.YearShift, 0, 0)
	return &shifted
}

func daysBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24
}

// monthsAhead is how many calendar months m lies after ref, modulo 12.
func monthsAhead(ref, m time.Month) int {
	return (int(m) - int(ref) + 12) % 12
}
