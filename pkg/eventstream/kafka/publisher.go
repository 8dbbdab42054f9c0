// Package kafka provides an eventstream publisher backed by a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/opshelm/worklog/pkg/eventstream"
	"github.com/opshelm/worklog/pkg/logger"
)

// Config is the configuration options for the Kafka publisher.
type Config struct {
	// Brokers is the list of Kafka broker addresses. At least one is required.
	Brokers []string

	// Topic is the topic change events are written to. Required.
	Topic string

	// Logger receives publish diagnostics. Defaults to a no-op logger.
	Logger *slog.Logger
}

// Publisher writes change events to a Kafka topic. Events are keyed by
// table name so changes to the same table preserve their relative order
// within a partition.
type Publisher struct {
	writer *kafka.Writer
	log    *slog.Logger
}

// NewPublisher creates a Kafka publisher from the given config.
func NewPublisher(c Config) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if c.Topic == "" {
		return nil, errors.New("topic is required")
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafka.Hash{},
		Compression:            kafka.Snappy,
		AllowAutoTopicCreation: true,
	}

	return &Publisher{
		writer: writer,
		log:    log,
	}, nil
}

// PublishChange serializes the event and writes it to the topic.
func (p *Publisher) PublishChange(ctx context.Context, event *eventstream.ChangeEvent) error {
	if event == nil {
		return eventstream.ErrNilChangeEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling change event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Table),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("writing change event: %w", err)
	}

	p.log.Debug("change event published",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"table", event.Table,
	)

	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
