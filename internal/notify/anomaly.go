package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	AnomalyDuplicateSpike = "duplicate_spike"

	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Anomaly is the alert payload raised when a source produces suspicious duplicates.
type Anomaly struct {
	SourceID      string    `json:"sourceId"`
	SourceName    string    `json:"sourceName"`
	VenueName     string    `json:"venueName"`
	AnomalyType   string    `json:"anomalyType"`
	Severity      string    `json:"severity"`
	Message       string    `json:"message"`
	SampleTitles  []string  `json:"sampleTitles"`
	EventsCreated int       `json:"eventsCreated"`
	EventsUpdated int       `json:"eventsUpdated"`
	EventsSkipped int       `json:"eventsSkipped"`
	Timestamp     time.Time `json:"timestamp"`
}

type Notifier interface {
	Notify(ctx context.Context, anomaly Anomaly) error
}

// LogNotifier writes anomalies to the log. It is the fallback when no webhook is configured.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, anomaly Anomaly) error {
	n.logger.Warn().
		Str("source_id", anomaly.SourceID).
		Str("source_name", anomaly.SourceName).
		Str("venue_name", anomaly.VenueName).
		Str("anomaly_type", anomaly.AnomalyType).
		Str("severity", anomaly.Severity).
		Strs("sample_titles", anomaly.SampleTitles).
		Msg(anomaly.Message)
	return nil
}

// New picks the webhook notifier when a URL is configured and the log notifier otherwise.
func New(webhookURL string, timeout time.Duration, logger zerolog.Logger) (Notifier, error) {
	if webhookURL == "" {
		return NewLogNotifier(logger), nil
	}
	return NewWebhookNotifier(webhookURL, timeout, logger)
}
