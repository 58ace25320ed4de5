//go:build integration

package db_test

import (
	"context"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"horse.fit/showlist/internal/config"
	"horse.fit/showlist/internal/db"
	"horse.fit/showlist/internal/ingest"
)

func startPostgres(t *testing.T) *db.Pool {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if exec.CommandContext(ctx, "docker", "info").Run() != nil {
		t.Skip("docker not available")
	}

	ctx = context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "showlist",
				"POSTGRES_PASSWORD": "showlist",
				"POSTGRES_DB":       "showlist",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	cfg := &config.Config{
		Environment: "test",
		LogLevel:    "silent",
		DatabaseURL: fmt.Sprintf("postgres://showlist:showlist@%s:%s/showlist?sslmode=disable", host, port.Port()),
		DBMinConns:  1,
		DBMaxConns:  4,
	}
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

func TestPool_ScenarioAAgainstPostgres(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()

	regionID, err := pool.UpsertRegion(ctx, "la", "Los Angeles")
	if err != nil {
		t.Fatalf("UpsertRegion() error = %v", err)
	}
	venueID, err := pool.UpsertVenue(ctx, regionID, "the-roxy", "The Roxy")
	if err != nil {
		t.Fatalf("UpsertVenue() error = %v", err)
	}
	if _, err := pool.UpsertSource(ctx, "roxy-site", "Roxy Site", db.SourceCategoryVenue, 10); err != nil {
		t.Fatalf("UpsertSource() error = %v", err)
	}
	if _, err := pool.UpsertSource(ctx, "gig-guide", "Gig Guide", db.SourceCategoryAggregator, 30); err != nil {
		t.Fatalf("UpsertSource() error = %v", err)
	}

	venue, err := pool.GetVenue(ctx, venueID)
	if err != nil {
		t.Fatalf("GetVenue() error = %v", err)
	}
	roxy, err := pool.GetSourceBySlug(ctx, "roxy-site")
	if err != nil {
		t.Fatalf("GetSourceBySlug() error = %v", err)
	}
	guide, err := pool.GetSourceBySlug(ctx, "gig-guide")
	if err != nil {
		t.Fatalf("GetSourceBySlug() error = %v", err)
	}

	start := time.Now().UTC().AddDate(0, 0, 15).Truncate(24 * time.Hour).Add(20 * time.Hour)
	svc := ingest.NewService(pool, nil, zerolog.Nop(), ingest.Options{})

	first, err := svc.SaveEvents(ctx, []ingest.ScrapedEvent{
		{Title: "The Rolling Stones", StartTime: start, SourceEventID: "roxy-1"},
	}, venue, roxy, ingest.SaveOptions{})
	if err != nil || first.Saved != 1 {
		t.Fatalf("first SaveEvents() = %+v, %v; want saved=1", first, err)
	}

	second, err := svc.SaveEvents(ctx, []ingest.ScrapedEvent{
		{Title: "Rolling Stones", StartTime: start, ImageURL: "https://img.example/stones.jpg"},
	}, venue, guide, ingest.SaveOptions{})
	if err != nil || second.Saved != 0 || second.Updated != 1 {
		t.Fatalf("second SaveEvents() = %+v, %v; want updated=1", second, err)
	}

	from := start.Truncate(24 * time.Hour)
	events, err := pool.ListVenueEventsBetween(ctx, venueID, from, from.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ListVenueEventsBetween() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].SourceID != roxy.SourceID || events[0].OwnerPriority != 10 {
		t.Fatalf("event owner = %s/%d, want roxy/10", events[0].SourceID, events[0].OwnerPriority)
	}
	if events[0].ImageURL == nil {
		t.Fatalf("image should be filled by the lower-priority source")
	}

	var rows int64
	if err := pool.GORM().Model(&db.EventSource{}).Where("event_id = ?", events[0].EventID).Count(&rows).Error; err != nil {
		t.Fatalf("count event sources: %v", err)
	}
	if rows != 2 {
		t.Fatalf("event source rows = %d, want 2", rows)
	}

	src, err := pool.GetSource(ctx, guide.SourceID)
	if err != nil {
		t.Fatalf("GetSource() error = %v", err)
	}
	if src.LastRunStatus == nil || *src.LastRunStatus != db.SourceRunSuccess {
		t.Fatalf("last run status = %v, want success", src.LastRunStatus)
	}
}

func TestPool_CreateEventUniqueViolation(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()

	seid := "dup-1"
	ev := db.Event{
		EventID:       "evt-a",
		VenueID:       "v",
		RegionID:      "r",
		SourceID:      "s",
		SourceEventID: &seid,
		Title:         "A",
		StartTime:     time.Now().UTC(),
		ReviewStatus:  db.ReviewStatusPending,
	}
	if err := pool.CreateEvent(ctx, &ev); err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	ev.EventID = "evt-b"
	err := pool.CreateEvent(ctx, &ev)
	if !db.IsUniqueViolation(err) {
		t.Fatalf("CreateEvent() error = %v, want unique violation", err)
	}
}
