package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/IBM/sarama"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/middleware"
	"github.com/andresg0412/waiwahost-plataforma/internal/infra/broker/kafka"
)

var ErrMissingEventID = errors.New("inbox: message carries no event id")

// CacheInvalidator drops cached availability reads whenever another instance
// reports a committed interval change. Each event is acted on once per
// consumer.
type CacheInvalidator struct {
	Inbox  Store
	Cache  middleware.QueryCache
	Logger *slog.Logger
}

type cloudEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Subject string `json:"subject"`
}

func (h CacheInvalidator) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	evt, err := decodeEvent(msg)
	if err != nil {
		h.log(slog.LevelWarn, "dropping undecodable event", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		return nil
	}
	if h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, evt.ID)
		if err != nil {
			return err
		}
		if seen {
			h.log(slog.LevelDebug, "duplicate event skipped", "event_id", evt.ID)
			return nil
		}
	}
	if h.Cache == nil {
		return nil
	}
	if err := h.Cache.Invalidate(ctx); err != nil {
		return err
	}
	h.log(slog.LevelDebug, "availability cache invalidated", "event_id", evt.ID, "type", evt.Type, "subject", evt.Subject)
	return nil
}

// decodeEvent prefers the ce_id header and falls back to the body.
func decodeEvent(msg *sarama.ConsumerMessage) (cloudEvent, error) {
	var evt cloudEvent
	if len(msg.Value) > 0 {
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return cloudEvent{}, err
		}
	}
	if id := kafka.Header(msg, "ce_id"); id != "" {
		evt.ID = id
	}
	if evt.ID == "" {
		return cloudEvent{}, ErrMissingEventID
	}
	return evt, nil
}

func (h CacheInvalidator) log(level slog.Level, msg string, args ...any) {
	if h.Logger != nil {
		h.Logger.Log(context.Background(), level, msg, args...)
	}
}
