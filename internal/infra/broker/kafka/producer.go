package kafka

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/IBM/sarama"
)

var ErrNoBrokers = errors.New("kafka: no brokers configured")

// NewConfig returns the client settings the relay and the cache consumer
// share. Producer and consumer specifics are layered on by their
// constructors.
func NewConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	if clientID != "" {
		cfg.ClientID = clientID
	}
	return cfg
}

// Producer sends one record at a time and waits for every in-sync replica.
// Records with the same key land on the same partition, in order.
type Producer struct {
	sp sarama.SyncProducer
}

func NewProducer(brokers []string, cfg *sarama.Config) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if cfg == nil {
		cfg = NewConfig("")
	}
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	// Idempotent writes need a single in-flight request per connection.
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	sp, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return &Producer{sp: sp}, nil
}

// NewProducerFrom wraps an existing sync producer, such as a mock.
func NewProducerFrom(sp sarama.SyncProducer) *Producer {
	return &Producer{sp: sp}
}

func (p *Producer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic:   topic,
		Key:     sarama.StringEncoder(key),
		Value:   sarama.ByteEncoder(payload),
		Headers: recordHeaders(headers),
	}
	if _, _, err := p.sp.SendMessage(msg); err != nil {
		return fmt.Errorf("kafka publish to %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p == nil || p.sp == nil {
		return nil
	}
	return p.sp.Close()
}

// recordHeaders orders headers by name so equal inputs produce equal records.
func recordHeaders(headers map[string]string) []sarama.RecordHeader {
	if len(headers) == 0 {
		return nil
	}
	names := make([]string, 0, len(headers))
	for k := range headers {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make([]sarama.RecordHeader, 0, len(names))
	for _, k := range names {
		out = append(out, sarama.RecordHeader{Key: []byte(k), Value: []byte(headers[k])})
	}
	return out
}

// Header returns the value of the named record header, or "".
func Header(msg *sarama.ConsumerMessage, name string) string {
	for _, h := range msg.Headers {
		if h != nil && string(h.Key) == name {
			return string(h.Value)
		}
	}
	return ""
}
