package db

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "pg unique", err: &pgconn.PgError{Code: "23505"}, want: true},
		{name: "wrapped pg unique", err: fmt.Errorf("create event: %w", &pgconn.PgError{Code: "23505"}), want: true},
		{name: "pg other", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "gorm translated", err: gorm.ErrDuplicatedKey, want: true},
		{name: "plain", err: errors.New("boom"), want: false},
	}
	for _, tc := range cases {
		if got := IsUniqueViolation(tc.err); got != tc.want {
			t.Fatalf("%s: IsUniqueViolation() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestDefaultPriority(t *testing.T) {
	t.Parallel()

	want := map[string]int{
		SourceCategoryVenue:      10,
		SourceCategoryTicketing:  20,
		SourceCategoryAggregator: 30,
		SourceCategoryOther:      40,
		"PODCAST":                40,
	}
	for category, priority := range want {
		if got := DefaultPriority(category); got != priority {
			t.Fatalf("DefaultPriority(%q) = %d, want %d", category, got, priority)
		}
	}
}

func TestEventPatchColumns(t *testing.T) {
	t.Parallel()

	if !(EventPatch{}).IsEmpty() || len((EventPatch{}).Columns()) != 0 {
		t.Fatalf("zero patch should be empty")
	}

	img := "https://img.example/a.jpg"
	doors := time.Date(2025, 12, 20, 19, 0, 0, 0, time.FixedZone("PST", -8*3600))
	p := EventPatch{ImageURL: &img, DoorsTime: &doors}
	if p.IsEmpty() {
		t.Fatalf("patch should not be empty")
	}
	cols := p.Columns()
	if len(cols) != 2 || cols["image_url"] != img {
		t.Fatalf("columns = %v", cols)
	}
	if got := cols["doors_time"].(time.Time); got.Location() != time.UTC || !got.Equal(doors) {
		t.Fatalf("doors_time = %v, want same instant in UTC", got)
	}
}

func TestResolveGormLogLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		level, env string
		want       logger.LogLevel
	}{
		{level: "debug", want: logger.Info},
		{level: "info", want: logger.Warn},
		{level: "", want: logger.Warn},
		{level: "error", want: logger.Error},
		{level: "silent", want: logger.Silent},
		{level: "bogus", env: "local", want: logger.Warn},
		{level: "bogus", env: "production", want: logger.Error},
	}
	for _, tc := range cases {
		if got := resolveGormLogLevel(tc.level, tc.env); got != tc.want {
			t.Fatalf("resolveGormLogLevel(%q, %q) = %v, want %v", tc.level, tc.env, got, tc.want)
		}
	}
}
