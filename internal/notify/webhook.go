package notify

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"strings"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

const (
	eventSource      = "showlist://ingest"
	eventTypePrefix  = "fit.horse.showlist.anomaly."
	breakerTripAfter = 3
	breakerCooldown  = time.Minute
)

var ErrDeliveryRejected = errors.New("anomaly webhook rejected event")

// WebhookNotifier posts anomalies as CloudEvents in binary HTTP mode.
type WebhookNotifier struct {
	client  cloudevents.Client
	target  string
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  zerolog.Logger
}

func NewWebhookNotifier(target string, timeout time.Duration, logger zerolog.Logger) (*WebhookNotifier, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, fmt.Errorf("webhook target is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client, err := cloudevents.NewClientHTTP(
		cehttp.WithTarget(target),
		cehttp.WithClient(nethttp.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("create cloudevents client: %w", err)
	}

	n := &WebhookNotifier{
		client: client,
		target: target,
		logger: logger,
	}
	n.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "anomaly-webhook",
		MaxRequests: 1,
		Timeout:     breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("anomaly webhook breaker state change")
		},
	})
	return n, nil
}

func (n *WebhookNotifier) Notify(ctx context.Context, anomaly Anomaly) error {
	event, err := buildEvent(anomaly)
	if err != nil {
		return err
	}

	_, err = n.breaker.Execute(func() (struct{}, error) {
		res := n.client.Send(ctx, event)
		if cloudevents.IsUndelivered(res) {
			return struct{}{}, fmt.Errorf("deliver anomaly to %s: %w", n.target, res)
		}
		if !cloudevents.IsACK(res) {
			return struct{}{}, fmt.Errorf("%w: %v", ErrDeliveryRejected, res)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return err
	}

	n.logger.Info().
		Str("source_id", anomaly.SourceID).
		Str("severity", anomaly.Severity).
		Str("event_id", event.ID()).
		Msg("anomaly delivered")
	return nil
}

func buildEvent(anomaly Anomaly) (cloudevents.Event, error) {
	ts := anomaly.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetSource(eventSource)
	event.SetType(eventTypePrefix + anomaly.AnomalyType)
	event.SetSubject(anomaly.SourceID)
	event.SetTime(ts)
	event.SetExtension("severity", anomaly.Severity)
	if err := event.SetData(cloudevents.ApplicationJSON, anomaly); err != nil {
		return cloudevents.Event{}, fmt.Errorf("encode anomaly payload: %w", err)
	}
	return event, nil
}
