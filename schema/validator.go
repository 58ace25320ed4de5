package batchschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"horse.fit/showlist/internal/ingest"
)

//go:embed scrape_batch.schema.json
var scrapeBatchSchemaJSON string

// Batch is one scraper run for one source and venue. Event fields are kept as
// scraped; per-event problems surface during ingest, not here.
type Batch struct {
	PayloadVersion        string       `json:"payload_version"`
	Source                string       `json:"source"`
	VenueID               string       `json:"venue_id"`
	ScrapedAt             *string      `json:"scraped_at,omitempty"`
	DefaultAgeRestriction string       `json:"default_age_restriction,omitempty"`
	Events                []BatchEvent `json:"events"`
}

type BatchEvent struct {
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	StartTime      string      `json:"start_time"`
	EndTime        string      `json:"end_time"`
	DoorsTime      string      `json:"doors_time"`
	CoverCharge    string      `json:"cover_charge"`
	TicketURL      string      `json:"ticket_url"`
	SourceURL      string      `json:"source_url"`
	ImageURL       string      `json:"image_url"`
	SourceEventID  looseID     `json:"source_event_id"`
	AgeRestriction string      `json:"age_restriction"`
	Genres         []string    `json:"genres"`
}

// looseID accepts a source event id written as a string or a bare number.
type looseID string

func (id *looseID) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	switch {
	case bytes.Equal(raw, []byte("null")):
		*id = ""
	case len(raw) > 0 && raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*id = looseID(s)
	default:
		*id = looseID(raw)
	}
	return nil
}

// Local layouts accepted when a scraper emits wall-clock times without an offset.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

func ValidateScrapeBatch(payload []byte) (*Batch, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode batch JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var batch Batch
	if err := json.Unmarshal(bytes.TrimSpace(payload), &batch); err != nil {
		return nil, fmt.Errorf("unmarshal batch: %w", err)
	}
	if strings.TrimSpace(batch.Source) == "" {
		return nil, fmt.Errorf("source must not be empty")
	}
	if strings.TrimSpace(batch.VenueID) == "" {
		return nil, fmt.Errorf("venue_id must not be empty")
	}
	return &batch, nil
}

// ScrapedEvents converts the batch into ingest input. Times without an offset
// are read in loc. An unparseable start time is left zero so ingest skips that event.
func (b *Batch) ScrapedEvents(loc *time.Location) []ingest.ScrapedEvent {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]ingest.ScrapedEvent, 0, len(b.Events))
	for _, ev := range b.Events {
		start, _ := parseTime(ev.StartTime, loc)
		out = append(out, ingest.ScrapedEvent{
			Title:          ev.Title,
			Description:    ev.Description,
			StartTime:      start,
			EndTime:        optionalTime(ev.EndTime, loc),
			DoorsTime:      optionalTime(ev.DoorsTime, loc),
			CoverCharge:    ev.CoverCharge,
			TicketURL:      ev.TicketURL,
			SourceURL:      ev.SourceURL,
			ImageURL:       ev.ImageURL,
			SourceEventID:  string(ev.SourceEventID),
			AgeRestriction: ev.AgeRestriction,
			Genres:         ev.Genres,
		})
	}
	return out
}

func parseTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("time is empty")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", raw)
}

func optionalTime(raw string, loc *time.Location) *time.Time {
	t, err := parseTime(raw, loc)
	if err != nil {
		return nil
	}
	return &t
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("scrape_batch.schema.json", strings.NewReader(scrapeBatchSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, compiledSchemaErr = compiler.Compile("scrape_batch.schema.json")
		if compiledSchemaErr != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", compiledSchemaErr)
		}
	})
	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}
	return value, nil
}
