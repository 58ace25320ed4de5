package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"horse.fit/showlist/internal/db"
	"horse.fit/showlist/internal/globaltime"
	"horse.fit/showlist/internal/ingest"
	batchschema "horse.fit/showlist/schema"
)

type sourceItem struct {
	SourceID                  string     `json:"source_id"`
	Slug                      string     `json:"slug"`
	Name                      string     `json:"name"`
	Category                  string     `json:"category"`
	Priority                  int        `json:"priority"`
	LastRunAt                 *time.Time `json:"last_run_at,omitempty"`
	LastRunStatus             *string    `json:"last_run_status,omitempty"`
	NotificationsPaused       bool       `json:"notifications_paused"`
	NotificationsPausedAt     *time.Time `json:"notifications_paused_at,omitempty"`
	NotificationsPausedReason *string    `json:"notifications_paused_reason,omitempty"`
}

type sourceListQuery struct {
	Category string `query:"category" json:"category" validate:"omitempty,oneof=VENUE TICKETING AGGREGATOR OTHER"`
	Paused   string `query:"paused" json:"paused" validate:"omitempty,oneof=true false"`
}

func (s *Server) handleHealth(c echo.Context) error {
	if err := s.catalog.Ping(c.Request().Context()); err != nil {
		s.logger.Error().Err(err).Msg("health check failed")
		return c.JSON(http.StatusServiceUnavailable, jsendResponse{
			Status:  "error",
			Message: "database unavailable",
			Code:    http.StatusServiceUnavailable,
		})
	}
	return success(c, map[string]any{
		"service": "showlist",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleIngest(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Failed to read request body", nil)
	}
	batch, err := batchschema.ValidateScrapeBatch(body)
	if err != nil {
		return failBatch(c, err)
	}

	source, err := s.catalog.GetSourceBySlug(ctx, strings.TrimSpace(batch.Source))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return failNotFound(c, "Unknown source "+batch.Source)
		}
		s.logger.Error().Err(err).Str("source", batch.Source).Msg("load source failed")
		return internalError(c, "Failed to load source")
	}
	venue, err := s.catalog.GetVenue(ctx, strings.TrimSpace(batch.VenueID))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return failNotFound(c, "Unknown venue "+batch.VenueID)
		}
		s.logger.Error().Err(err).Str("venue_id", batch.VenueID).Msg("load venue failed")
		return internalError(c, "Failed to load venue")
	}

	events := batch.ScrapedEvents(s.opts.Location)
	result, err := s.ingester.SaveEvents(ctx, events, venue, source, ingest.SaveOptions{
		DefaultAgeRestriction: batch.DefaultAgeRestriction,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("source_id", source.SourceID).Str("venue_id", venue.VenueID).Msg("batch ingest failed")
		return internalError(c, "Batch ingest failed")
	}

	return successIngest(c, ingestSummary{
		Source:   source.Slug,
		Venue:    venue.VenueID,
		Received: len(events),
		Result:   result,
	})
}

func (s *Server) handleSources(c echo.Context) error {
	var q sourceListQuery
	if err := c.Bind(&q); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid query parameters", nil)
	}
	q.Category = strings.ToUpper(strings.TrimSpace(q.Category))
	if err := c.Validate(&q); err != nil {
		if fields, ok := validationFields(err); ok {
			return failValidation(c, fields)
		}
		return fail(c, http.StatusBadRequest, err.Error(), nil)
	}

	sources, err := s.catalog.ListSources(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list sources failed")
		return internalError(c, "Failed to list sources")
	}

	items := make([]sourceItem, 0, len(sources))
	for _, src := range sources {
		if q.Category != "" && src.Category != q.Category {
			continue
		}
		if q.Paused != "" && src.NotificationsPaused != (q.Paused == "true") {
			continue
		}
		items = append(items, sourceItem{
			SourceID:                  src.SourceID,
			Slug:                      src.Slug,
			Name:                      src.Name,
			Category:                  src.Category,
			Priority:                  src.Priority,
			LastRunAt:                 src.LastRunAt,
			LastRunStatus:             src.LastRunStatus,
			NotificationsPaused:       src.NotificationsPaused,
			NotificationsPausedAt:     src.NotificationsPausedAt,
			NotificationsPausedReason: src.NotificationsPausedReason,
		})
	}
	return success(c, map[string]any{"sources": items})
}

func (s *Server) handleResume(c echo.Context) error {
	ctx := c.Request().Context()
	slug := strings.TrimSpace(c.Param("slug"))

	source, err := s.catalog.GetSourceBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return failNotFound(c, "Unknown source "+slug)
		}
		s.logger.Error().Err(err).Str("source", slug).Msg("load source failed")
		return internalError(c, "Failed to load source")
	}

	resumed, err := s.catalog.ResumeSourceNotifications(ctx, source.SourceID, globaltime.UTC())
	if err != nil {
		s.logger.Error().Err(err).Str("source_id", source.SourceID).Msg("resume notifications failed")
		return internalError(c, "Failed to resume notifications")
	}
	if resumed {
		s.logger.Info().Str("source_id", source.SourceID).Str("source", source.Slug).Msg("source notifications resumed")
	}
	return success(c, map[string]any{
		"source":  source.Slug,
		"resumed": resumed,
	})
}
