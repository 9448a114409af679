package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/events"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Worker relays outbox records to the broker as CloudEvents, keyed by
// property so one property's events stay ordered on a partition.
type Worker struct {
	Store       Store
	Producer    Producer
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
	Logger      *slog.Logger
	// BatchSize caps the records relayed per tick.
	BatchSize int
}

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Drain(ctx); err != nil && !errors.Is(err, context.Canceled) && w.Logger != nil {
				w.Logger.Error("outbox relay failed", "worker", w.ID, "error", err)
			}
		}
	}
}

// Drain relays due records until none is left or the batch is full. It
// returns how many were sent.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	sent := 0
	for range w.batchSize() {
		ok, err := w.processOnce(ctx)
		if err != nil {
			return sent, err
		}
		if !ok {
			return sent, nil
		}
		sent++
	}
	return sent, nil
}

// processOnce reports whether a record was claimed; failed deliveries are
// rescheduled, not returned.
func (w *Worker) processOnce(ctx context.Context) (bool, error) {
	doc, err := w.Store.Claim(ctx, w.workerID())
	if err != nil || doc == nil {
		return false, err
	}
	topic := w.topicFor(doc.Name)
	payload, headers, err := w.formatPayload(doc)
	if err != nil {
		return true, w.fail(ctx, doc, err)
	}
	if err := w.Producer.Publish(ctx, topic, doc.Aggregate, payload, headers); err != nil {
		return true, w.fail(ctx, doc, err)
	}
	return true, w.Store.MarkSent(ctx, doc.ID)
}

func (w *Worker) fail(ctx context.Context, doc *Record, cause error) error {
	if w.Logger != nil {
		w.Logger.Warn("outbox delivery failed", "event_id", doc.ID, "event", doc.Name, "attempts", doc.Attempts+1, "error", cause)
	}
	return w.Store.MarkFailed(ctx, doc.ID, w.nextRetry(doc.Attempts), cause.Error())
}

// cloudEvent is the structured-mode CloudEvents 1.0 envelope.
type cloudEvent struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	Subject         string          `json:"subject"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	TraceParent     string          `json:"traceparent,omitempty"`
	Data            json.RawMessage `json:"data"`
}

var errInvalidPayload = errors.New("outbox: record payload is not valid JSON")

// formatPayload wraps the record in a CloudEvent. The ce_ headers repeat the
// envelope id and type so consumers can dedupe without decoding the body.
func (w *Worker) formatPayload(doc *Record) ([]byte, map[string]string, error) {
	if !json.Valid(doc.Payload) {
		return nil, nil, errInvalidPayload
	}
	evt := cloudEvent{
		SpecVersion:     "1.0",
		ID:              doc.ID,
		Type:            events.WireType(doc.Name),
		Source:          w.source(),
		Subject:         doc.Aggregate,
		Time:            doc.OccurredAt.UTC(),
		DataContentType: "application/json",
		TraceParent:     doc.Headers["traceparent"],
		Data:            json.RawMessage(doc.Payload),
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := make(map[string]string, len(doc.Headers)+3)
	for k, v := range doc.Headers {
		headers[k] = v
	}
	headers["content-type"] = "application/cloudevents+json"
	headers["ce_id"] = evt.ID
	headers["ce_type"] = evt.Type
	return payload, headers, nil
}

func (w *Worker) topicFor(name string) string {
	return Topic(w.TopicPrefix, name)
}

// Topic maps "interval.created" to "<prefix>interval.events.v1".
func Topic(prefix, eventName string) string {
	return prefix + events.Family(eventName) + ".events." + events.SchemaVersion
}

func (w *Worker) workerID() string {
	if w.ID != "" {
		return w.ID
	}
	return uuid.NewString()
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) batchSize() int {
	if w.BatchSize <= 0 {
		return 100
	}
	return w.BatchSize
}

// nextRetry walks the backoff schedule and stays on its last step.
func (w *Worker) nextRetry(attempts int) time.Time {
	delay := 5 * time.Second
	if n := len(w.Backoff); n > 0 {
		delay = w.Backoff[min(attempts, n-1)]
	}
	return time.Now().Add(delay)
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://waiwahost/availability"
}
