// Package kafka publishes run events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/cortex/pkg/eventstream"
	"github.com/papercomputeco/cortex/pkg/logger"
)

// Writer is the subset of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is the list of bootstrap broker addresses.
	Brokers []string

	// Topic receives every envelope.
	Topic string

	// WriteTimeout bounds a single publish. Defaults to 10s.
	WriteTimeout time.Duration

	Logger *slog.Logger
}

// Publisher writes run event envelopes as JSON messages keyed by run id.
type Publisher struct {
	writer  Writer
	topic   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewPublisher creates a publisher backed by a kafka-go Writer that hashes
// message keys to partitions, keeping the events of one run in order.
func NewPublisher(c Config) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if c.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
	}

	return NewPublisherWithWriter(w, c), nil
}

// NewPublisherWithWriter creates a publisher on an existing writer.
func NewPublisherWithWriter(w Writer, c Config) *Publisher {
	timeout := c.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	l := c.Logger
	if l == nil {
		l = logger.Nop()
	}

	return &Publisher{
		writer:  w,
		topic:   c.Topic,
		timeout: timeout,
		logger:  l,
	}
}

// PublishRunEvent encodes event and writes it to the topic.
func (p *Publisher) PublishRunEvent(ctx context.Context, event *eventstream.RunEventEnvelope) error {
	if event == nil {
		return eventstream.ErrNilRunEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling run event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafkago.Message{
		Key:   []byte(event.Key()),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "kind", Value: []byte(event.Kind)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing run event to %s: %w", p.topic, err)
	}

	p.logger.Debug("published run event",
		"topic", p.topic,
		"event_id", event.EventID,
		"kind", event.Kind,
	)

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
