package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

type MessageHandlerFunc func(ctx context.Context, msg *sarama.ConsumerMessage) error

func (f MessageHandlerFunc) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	return f(ctx, msg)
}

// Consumer feeds a group's messages to one handler. It starts from the newest
// offset: the events it serves only matter while the process is running.
type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	logger  *slog.Logger
	// RetryDelay is the pause after a failed session before joining again.
	RetryDelay time.Duration
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler, logger *slog.Logger) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if cfg == nil {
		cfg = NewConfig("")
	}
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	cfg.Consumer.Return.Errors = false
	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	return NewConsumerFrom(group, handler, logger), nil
}

// NewConsumerFrom wraps an existing consumer group, such as a mock.
func NewConsumerFrom(group sarama.ConsumerGroup, handler MessageHandler, logger *slog.Logger) *Consumer {
	return &Consumer{group: group, handler: handler, logger: logger, RetryDelay: 5 * time.Second}
}

// Run joins the group until ctx ends or the group is closed. Each rebalance
// ends a session; a failed session is logged and retried after RetryDelay.
func (c *Consumer) Run(ctx context.Context, topics []string) error {
	session := groupSession{handler: c.handler, logger: c.logger}
	for {
		err := c.group.Consume(ctx, topics, session)
		switch {
		case errors.Is(err, sarama.ErrClosedConsumerGroup):
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			if c.logger != nil {
				c.logger.Warn("kafka session failed", "topics", topics, "error", err)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.RetryDelay):
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type groupSession struct {
	handler MessageHandler
	logger  *slog.Logger
}

func (s groupSession) Setup(sess sarama.ConsumerGroupSession) error {
	if s.logger != nil {
		s.logger.Debug("kafka partitions assigned", "claims", sess.Claims(), "generation", sess.GenerationID())
	}
	return nil
}

func (groupSession) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim commits only handled messages. A failed one is logged and
// left unmarked; later marks on the partition still move the offset past it.
func (s groupSession) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-sess.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := s.handler.Handle(sess.Context(), msg); err != nil {
				if s.logger != nil {
					s.logger.Warn("kafka message not handled",
						"topic", msg.Topic,
						"partition", msg.Partition,
						"offset", msg.Offset,
						"error", err)
				}
				continue
			}
			sess.MarkMessage(msg, "")
		}
	}
}
