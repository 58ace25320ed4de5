package ingest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"horse.fit/showlist/internal/db"
	"horse.fit/showlist/internal/notify"
)

// memStore is an in-memory Store with just enough query semantics for the pipeline.
type memStore struct {
	mu sync.Mutex

	events       map[string]*db.Event
	seq          map[string]int
	nextSeq      int
	sources      map[string]db.Source
	eventSources map[string]db.EventSource

	runs    map[int64]db.RunOutcome
	nextRun int64

	failCreate  map[string]error
	hideOnce    map[string]bool
	pauseCalls   int
	cancelCalls  int
	betweenCalls int
}

func newMemStore(sources ...db.Source) *memStore {
	m := &memStore{
		events:       map[string]*db.Event{},
		seq:          map[string]int{},
		sources:      map[string]db.Source{},
		eventSources: map[string]db.EventSource{},
		runs:         map[int64]db.RunOutcome{},
		failCreate:   map[string]error{},
		hideOnce:     map[string]bool{},
	}
	for _, s := range sources {
		m.sources[s.SourceID] = s
	}
	return m
}

func (m *memStore) seed(ev db.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := ev
	m.events[ev.EventID] = &cp
	m.nextSeq++
	m.seq[ev.EventID] = m.nextSeq
}

func (m *memStore) event(id string) db.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.events[id]
}

func (m *memStore) all() []db.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]db.Event, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, *ev)
	}
	sort.Slice(out, func(i, j int) bool { return m.seq[out[i].EventID] < m.seq[out[j].EventID] })
	return out
}

func (m *memStore) eventSource(eventID, sourceID string) (db.EventSource, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	es, ok := m.eventSources[eventID+"|"+sourceID]
	return es, ok
}

func (m *memStore) source(id string) db.Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sources[id]
}

func (m *memStore) lastRun() db.RunOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs[m.nextRun]
}

func (m *memStore) FindEventBySourceEventID(_ context.Context, sourceID, sourceEventID string) (db.Event, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hideOnce[sourceEventID] {
		delete(m.hideOnce, sourceEventID)
		return db.Event{}, false, nil
	}
	for _, ev := range m.events {
		if ev.SourceID == sourceID && ev.SourceEventID != nil && *ev.SourceEventID == sourceEventID {
			return *ev, true, nil
		}
	}
	return db.Event{}, false, nil
}

func (m *memStore) OverwriteEvent(_ context.Context, eventID string, owner db.EventOwner, content db.EventContent, seenAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[eventID]
	if !ok {
		return db.ErrNotFound
	}
	ev.SourceID = owner.SourceID
	ev.SourceEventID = owner.SourceEventID
	ev.SourceURL = owner.SourceURL
	ev.Title = content.Title
	ev.StartTime = content.StartTime
	ev.Description = keepString(content.Description, ev.Description)
	ev.EndTime = keepTime(content.EndTime, ev.EndTime)
	ev.DoorsTime = keepTime(content.DoorsTime, ev.DoorsTime)
	ev.CoverCharge = keepString(content.CoverCharge, ev.CoverCharge)
	ev.TicketURL = keepString(content.TicketURL, ev.TicketURL)
	ev.ImageURL = keepString(content.ImageURL, ev.ImageURL)
	ev.AgeRestriction = keepString(content.AgeRestriction, ev.AgeRestriction)
	if len(content.Genres) > 0 {
		ev.Genres = content.Genres
	}
	ev.IsCancelled = false
	ev.LastSeenAt = seenAt
	ev.UpdatedAt = seenAt
	return nil
}

func keepString(incoming, stored *string) *string {
	if incoming == nil {
		return stored
	}
	return incoming
}

func keepTime(incoming, stored *time.Time) *time.Time {
	if incoming == nil {
		return stored
	}
	return incoming
}

func (m *memStore) ListVenueEventsBetween(_ context.Context, venueID string, from, to time.Time) ([]db.EventCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.betweenCalls++
	var out []db.EventCandidate
	for _, ev := range m.events {
		if ev.VenueID != venueID || ev.StartTime.Before(from) || !ev.StartTime.Before(to) {
			continue
		}
		priority := db.DefaultPriority(db.SourceCategoryOther)
		if s, ok := m.sources[ev.SourceID]; ok {
			priority = s.Priority
		}
		out = append(out, db.EventCandidate{Event: *ev, OwnerPriority: priority})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return m.seq[out[i].EventID] < m.seq[out[j].EventID]
	})
	return out, nil
}

func (m *memStore) PatchEvent(_ context.Context, eventID string, patch db.EventPatch, seenAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[eventID]
	if !ok {
		return db.ErrNotFound
	}
	if patch.Description != nil {
		ev.Description = patch.Description
	}
	if patch.ImageURL != nil {
		ev.ImageURL = patch.ImageURL
	}
	if patch.CoverCharge != nil {
		ev.CoverCharge = patch.CoverCharge
	}
	if patch.TicketURL != nil {
		ev.TicketURL = patch.TicketURL
	}
	if patch.DoorsTime != nil {
		ev.DoorsTime = patch.DoorsTime
	}
	if patch.EndTime != nil {
		ev.EndTime = patch.EndTime
	}
	ev.LastSeenAt = seenAt
	return nil
}

func (m *memStore) CreateEvent(_ context.Context, ev *db.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failCreate[ev.Title]; ok {
		return err
	}
	for _, existing := range m.events {
		if existing.SourceID == ev.SourceID && existing.SourceEventID != nil && ev.SourceEventID != nil &&
			*existing.SourceEventID == *ev.SourceEventID {
			return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
		}
	}
	cp := *ev
	m.events[ev.EventID] = &cp
	m.nextSeq++
	m.seq[ev.EventID] = m.nextSeq
	return nil
}

func (m *memStore) UpsertEventSource(_ context.Context, es db.EventSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := es.EventID + "|" + es.SourceID
	if prev, ok := m.eventSources[key]; ok {
		es.EventSourceID = prev.EventSourceID
	}
	m.eventSources[key] = es
	return nil
}

func (m *memStore) ListCancellationCandidates(_ context.Context, sourceID, venueID string, after time.Time) ([]db.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.Event
	for _, ev := range m.events {
		if ev.SourceID == sourceID && ev.VenueID == venueID && ev.StartTime.After(after) &&
			!ev.IsCancelled && ev.SourceEventID != nil {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (m *memStore) MarkEventsCancelled(_ context.Context, eventIDs []string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelCalls++
	var n int64
	for _, id := range eventIDs {
		if ev, ok := m.events[id]; ok && !ev.IsCancelled {
			ev.IsCancelled = true
			ev.UpdatedAt = at
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListEventsCreatedSince(_ context.Context, sourceID, venueID string, since time.Time) ([]db.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.Event
	for _, ev := range m.events {
		if ev.SourceID == sourceID && ev.VenueID == venueID && !ev.CreatedAt.Before(since) {
			out = append(out, *ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.seq[out[i].EventID] < m.seq[out[j].EventID] })
	return out, nil
}

func (m *memStore) PauseSourceNotifications(_ context.Context, sourceID, reason string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseCalls++
	s, ok := m.sources[sourceID]
	if !ok {
		return false, db.ErrNotFound
	}
	if s.NotificationsPaused {
		return false, nil
	}
	s.NotificationsPaused = true
	s.NotificationsPausedAt = &at
	s.NotificationsPausedReason = &reason
	m.sources[sourceID] = s
	return true, nil
}

func (m *memStore) ResumeSourceNotifications(_ context.Context, sourceID string, _ time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sources[sourceID]
	if !ok {
		return false, db.ErrNotFound
	}
	if !s.NotificationsPaused {
		return false, nil
	}
	s.NotificationsPaused = false
	s.NotificationsPausedAt = nil
	s.NotificationsPausedReason = nil
	m.sources[sourceID] = s
	return true, nil
}

func (m *memStore) StartIngestRun(_ context.Context, _, _ string, _ time.Time, _ int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRun++
	m.runs[m.nextRun] = db.RunOutcome{Status: db.RunStatusRunning}
	return m.nextRun, nil
}

func (m *memStore) FinishIngestRun(_ context.Context, runID int64, sourceID string, out db.RunOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[runID]; !ok {
		return errors.New("unknown run")
	}
	m.runs[runID] = out
	if s, ok := m.sources[sourceID]; ok {
		at := out.FinishedAt
		status := out.SourceStatus
		s.LastRunAt = &at
		s.LastRunStatus = &status
		m.sources[sourceID] = s
	}
	return nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	anomalies []notify.Anomaly
	attempts  int
	err       error
}

func (n *recordingNotifier) Notify(_ context.Context, a notify.Anomaly) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.attempts++
	if n.err != nil {
		return n.err
	}
	n.anomalies = append(n.anomalies, a)
	return nil
}

func (n *recordingNotifier) failWith(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

func (n *recordingNotifier) attemptCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.attempts
}

func (n *recordingNotifier) sent() []notify.Anomaly {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Anomaly(nil), n.anomalies...)
}
