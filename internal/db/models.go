package db

import (
	"time"

	"gorm.io/datatypes"
)

const (
	SourceCategoryVenue      = "VENUE"
	SourceCategoryTicketing  = "TICKETING"
	SourceCategoryAggregator = "AGGREGATOR"
	SourceCategoryOther      = "OTHER"

	ReviewStatusPending  = "PENDING"
	ReviewStatusApproved = "APPROVED"
	ReviewStatusRejected = "REJECTED"

	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"

	SourceRunSuccess = "success"
	SourceRunPartial = "partial"
	SourceRunFailed  = "failed"
)

// DefaultPriority maps a source category to its trust rank. Lower is more trusted.
func DefaultPriority(category string) int {
	switch category {
	case SourceCategoryVenue:
		return 10
	case SourceCategoryTicketing:
		return 20
	case SourceCategoryAggregator:
		return 30
	default:
		return 40
	}
}

// Region maps listings.regions.
type Region struct {
	RegionID  string    `gorm:"column:region_id;type:text;primaryKey"`
	Slug      string    `gorm:"column:slug;type:text;not null;unique"`
	Name      string    `gorm:"column:name;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Region) TableName() string { return "listings.regions" }

// Venue maps listings.venues.
type Venue struct {
	VenueID   string    `gorm:"column:venue_id;type:text;primaryKey"`
	RegionID  string    `gorm:"column:region_id;type:text;not null;index"`
	Slug      string    `gorm:"column:slug;type:text;not null;unique"`
	Name      string    `gorm:"column:name;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Venue) TableName() string { return "listings.venues" }

// Source maps listings.sources.
type Source struct {
	SourceID                  string     `gorm:"column:source_id;type:text;primaryKey"`
	Slug                      string     `gorm:"column:slug;type:text;not null;unique"`
	Name                      string     `gorm:"column:name;type:text;not null"`
	Category                  string     `gorm:"column:category;type:text;not null;default:OTHER"`
	Priority                  int        `gorm:"column:priority;type:integer;not null;default:40"`
	LastRunAt                 *time.Time `gorm:"column:last_run_at;type:timestamptz"`
	LastRunStatus             *string    `gorm:"column:last_run_status;type:text"`
	NotificationsPaused       bool       `gorm:"column:notifications_paused;type:boolean;not null;default:false"`
	NotificationsPausedAt     *time.Time `gorm:"column:notifications_paused_at;type:timestamptz"`
	NotificationsPausedReason *string    `gorm:"column:notifications_paused_reason;type:text"`
	CreatedAt                 time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt                 time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Source) TableName() string { return "listings.sources" }

// Event maps listings.events, the canonical catalog row.
type Event struct {
	EventID         string         `gorm:"column:event_id;type:text;primaryKey"`
	VenueID         string         `gorm:"column:venue_id;type:text;not null"`
	RegionID        string         `gorm:"column:region_id;type:text;not null"`
	SourceID        string         `gorm:"column:source_id;type:text;not null"`
	SourceEventID   *string        `gorm:"column:source_event_id;type:text"`
	SourceURL       *string        `gorm:"column:source_url;type:text"`
	Title           string         `gorm:"column:title;type:text;not null"`
	Description     *string        `gorm:"column:description;type:text"`
	StartTime       time.Time      `gorm:"column:start_time;type:timestamptz;not null"`
	EndTime         *time.Time     `gorm:"column:end_time;type:timestamptz"`
	DoorsTime       *time.Time     `gorm:"column:doors_time;type:timestamptz"`
	CoverCharge     *string        `gorm:"column:cover_charge;type:text"`
	TicketURL       *string        `gorm:"column:ticket_url;type:text"`
	ImageURL        *string        `gorm:"column:image_url;type:text"`
	AgeRestriction  *string        `gorm:"column:age_restriction;type:text"`
	Genres          datatypes.JSON `gorm:"column:genres;type:jsonb"`
	IsCancelled     bool           `gorm:"column:is_cancelled;type:boolean;not null;default:false"`
	ReviewStatus    string         `gorm:"column:review_status;type:text;not null;default:PENDING"`
	ConfidenceScore float64        `gorm:"column:confidence_score;type:double precision;not null;default:1"`
	LastSeenAt      time.Time      `gorm:"column:last_seen_at;type:timestamptz;not null;default:now()"`
	CreatedAt       time.Time      `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Event) TableName() string { return "listings.events" }

// EventSource maps listings.event_sources: one row per source that has reported an event.
type EventSource struct {
	EventSourceID string         `gorm:"column:event_source_id;type:text;primaryKey"`
	EventID       string         `gorm:"column:event_id;type:text;not null"`
	SourceID      string         `gorm:"column:source_id;type:text;not null"`
	SourceEventID *string        `gorm:"column:source_event_id;type:text"`
	SourceURL     *string        `gorm:"column:source_url;type:text"`
	RawPayload    datatypes.JSON `gorm:"column:raw_payload;type:jsonb"`
	LastScrapedAt time.Time      `gorm:"column:last_scraped_at;type:timestamptz;not null"`
	CreatedAt     time.Time      `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (EventSource) TableName() string { return "listings.event_sources" }

// IngestRun maps listings.ingest_runs.
type IngestRun struct {
	RunID          int64      `gorm:"column:run_id;primaryKey;autoIncrement"`
	SourceID       string     `gorm:"column:source_id;type:text;not null"`
	VenueID        string     `gorm:"column:venue_id;type:text;not null"`
	StartedAt      time.Time  `gorm:"column:started_at;type:timestamptz;not null;default:now()"`
	FinishedAt     *time.Time `gorm:"column:finished_at;type:timestamptz"`
	Status         string     `gorm:"column:status;type:text;not null;default:running"`
	EventsReceived int        `gorm:"column:events_received;type:integer;not null;default:0"`
	Saved          int        `gorm:"column:saved;type:integer;not null;default:0"`
	Updated        int        `gorm:"column:updated;type:integer;not null;default:0"`
	Skipped        int        `gorm:"column:skipped;type:integer;not null;default:0"`
	Filtered       int        `gorm:"column:filtered;type:integer;not null;default:0"`
	Cancelled      int        `gorm:"column:cancelled;type:integer;not null;default:0"`
	ErrorMessage   *string    `gorm:"column:error_message;type:text"`
}

func (IngestRun) TableName() string { return "listings.ingest_runs" }

func autoMigrateModels() []any {
	return []any{
		&Region{},
		&Venue{},
		&Source{},
		&Event{},
		&EventSource{},
		&IngestRun{},
	}
}
