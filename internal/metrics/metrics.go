package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "showlist"

const (
	OutcomeCreated  = "created"
	OutcomeUpdated  = "updated"
	OutcomeSkipped  = "skipped"
	OutcomeFiltered = "filtered"
)

var (
	IngestEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_events_total",
			Help:      "Scraped events processed, by outcome.",
		},
		[]string{"outcome"},
	)

	EventsCancelledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_cancelled_total",
			Help:      "Events marked cancelled after disappearing from their source.",
		},
	)

	DateCorrectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "date_corrections_total",
			Help:      "Start dates shifted by one year, by direction.",
		},
		[]string{"direction"},
	)

	DuplicateMatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_matches_total",
			Help:      "Scraped events resolved against an existing event, by strategy.",
		},
		[]string{"strategy"},
	)

	AnomaliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomalies_total",
			Help:      "Suspicious duplicate detections, by severity.",
		},
		[]string{"severity"},
	)

	IngestRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_run_duration_seconds",
			Help:      "Wall time of one source batch.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)

func RecordOutcome(outcome string) {
	IngestEventsTotal.WithLabelValues(outcome).Inc()
}

func RecordDateCorrection(yearShift int) {
	direction := "forward"
	if yearShift < 0 {
		direction = "backward"
	}
	DateCorrectionsTotal.WithLabelValues(direction).Inc()
}

func RecordDuplicateMatch(strategy string) {
	DuplicateMatchesTotal.WithLabelValues(strategy).Inc()
}

func RecordCancelled(n int) {
	if n > 0 {
		EventsCancelledTotal.Add(float64(n))
	}
}

func RecordAnomaly(severity string) {
	AnomaliesTotal.WithLabelValues(severity).Inc()
}

func ObserveRun(d time.Duration) {
	IngestRunDuration.Observe(d.Seconds())
}
