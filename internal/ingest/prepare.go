package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/net/html"
	"gorm.io/datatypes"

	"horse.fit/showlist/internal/db"
	"horse.fit/showlist/internal/eventdate"
	"horse.fit/showlist/internal/similarity"
	"horse.fit/showlist/internal/validation"
)

// preparedEvent is a scraped event after cleaning and date screening.
type preparedEvent struct {
	content       db.EventContent
	sourceEventID string
	nativeID      bool
	sourceURL     *string
	rawPayload    datatypes.JSON
	verdict       eventdate.Verdict
}

func (s *Service) prepare(ev ScrapedEvent, venueID string, opts SaveOptions, now time.Time) (preparedEvent, error) {
	cleaned := ev
	cleaned.Title = similarity.CleanTitle(ev.Title)
	cleaned.SourceEventID = strings.TrimSpace(ev.SourceEventID)
	if err := validation.Struct(cleaned); err != nil {
		return preparedEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if cleaned.StartTime.IsZero() {
		return preparedEvent{}, fmt.Errorf("%w: start_time is missing", ErrInvalidEvent)
	}

	verdict := eventdate.Check(cleaned.StartTime, now)
	prepared := preparedEvent{verdict: verdict}
	if !verdict.Valid {
		return prepared, nil
	}

	raw, err := json.Marshal(ev)
	if err != nil {
		return preparedEvent{}, fmt.Errorf("%w: encode raw payload: %v", ErrInvalidEvent, err)
	}
	genres, err := encodeGenres(cleaned.Genres)
	if err != nil {
		return preparedEvent{}, fmt.Errorf("%w: encode genres: %v", ErrInvalidEvent, err)
	}

	age := optionalString(cleaned.AgeRestriction)
	if age == nil {
		age = optionalString(opts.DefaultAgeRestriction)
	}

	prepared.content = db.EventContent{
		Title:          cleaned.Title,
		Description:    optionalString(descriptionText(cleaned.Description)),
		StartTime:      verdict.Date,
		EndTime:        verdict.Shift(cleaned.EndTime),
		DoorsTime:      verdict.Shift(cleaned.DoorsTime),
		CoverCharge:    optionalString(cleaned.CoverCharge),
		TicketURL:      optionalString(cleaned.TicketURL),
		ImageURL:       optionalString(cleaned.ImageURL),
		AgeRestriction: age,
		Genres:         genres,
	}
	prepared.sourceURL = optionalString(cleaned.SourceURL)
	prepared.rawPayload = datatypes.JSON(raw)

	if cleaned.SourceEventID != "" {
		prepared.sourceEventID = cleaned.SourceEventID
		prepared.nativeID = true
	} else {
		prepared.sourceEventID = CompositeKey(venueID, verdict.Date, cleaned.Title, s.loc)
	}
	return prepared, nil
}

// CompositeKey synthesizes a stable id for sources that do not assign one:
// venue, local date, 24h start time and the normalized title.
func CompositeKey(venueID string, start time.Time, title string, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	local := start.In(loc)
	slug := strings.ReplaceAll(similarity.Normalize(title), " ", "-")
	return fmt.Sprintf("%s:%s:%s:%s", venueID, local.Format("2006-01-02"), local.Format("15:04"), slug)
}

func encodeGenres(genres []string) (datatypes.JSON, error) {
	seen := make(map[string]struct{}, len(genres))
	out := make([]string, 0, len(genres))
	for _, g := range genres {
		g = strings.TrimSpace(g)
		key := strings.ToLower(g)
		if g == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, g)
	}
	if len(out) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// descriptionText reduces an HTML fragment to plain text. Plain input passes
// through with whitespace tidied.
func descriptionText(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.ContainsRune(raw, '<') {
		return collapseLines(html.UnescapeString(raw))
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(raw))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return collapseLines(b.String())
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				skip++
			case "br", "p", "div", "li", "h1", "h2", "h3", "h4", "tr":
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				if skip > 0 {
					skip--
				}
			case "p", "div", "li", "h1", "h2", "h3", "h4", "tr":
				b.WriteByte('\n')
			}
		}
	}
}

func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
