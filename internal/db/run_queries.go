package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RunOutcome is the final tally of an ingest run.
type RunOutcome struct {
	Status       string
	SourceStatus string
	FinishedAt   time.Time
	Saved        int
	Updated      int
	Skipped      int
	Filtered     int
	Cancelled    int
	ErrorMessage string
}

func (p *Pool) StartIngestRun(ctx context.Context, sourceID, venueID string, startedAt time.Time, received int) (int64, error) {
	const q = `
INSERT INTO listings.ingest_runs (source_id, venue_id, started_at, status, events_received)
VALUES ($1, $2, $3, $4, $5)
RETURNING run_id
`
	var runID int64
	if err := p.QueryRow(ctx, q, sourceID, venueID, startedAt.UTC(), RunStatusRunning, received).Scan(&runID); err != nil {
		return 0, fmt.Errorf("insert ingest run: %w", err)
	}
	return runID, nil
}

// FinishIngestRun closes the run row and stamps the source's last-run bookkeeping together.
func (p *Pool) FinishIngestRun(ctx context.Context, runID int64, sourceID string, out RunOutcome) error {
	tx, err := p.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var errMsg *string
	if trimmed := strings.TrimSpace(out.ErrorMessage); trimmed != "" {
		errMsg = &trimmed
	}

	const updateRun = `
UPDATE listings.ingest_runs
SET
	status = $2,
	finished_at = $3,
	saved = $4,
	updated = $5,
	skipped = $6,
	filtered = $7,
	cancelled = $8,
	error_message = $9
WHERE run_id = $1
`
	if _, err := tx.Exec(ctx, updateRun,
		runID,
		out.Status,
		out.FinishedAt.UTC(),
		out.Saved,
		out.Updated,
		out.Skipped,
		out.Filtered,
		out.Cancelled,
		errMsg,
	); err != nil {
		return fmt.Errorf("update ingest run %d: %w", runID, err)
	}

	const updateSource = `
UPDATE listings.sources
SET
	last_run_at = $2,
	last_run_status = $3,
	updated_at = $2
WHERE source_id = $1
`
	if _, err := tx.Exec(ctx, updateSource, sourceID, out.FinishedAt.UTC(), out.SourceStatus); err != nil {
		return fmt.Errorf("stamp source last run: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
