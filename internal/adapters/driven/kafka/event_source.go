// Package kafka reads host entity change events from a Kafka topic.
package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.EventSource = (*EventSource)(nil)

// messageReader is the part of kafka.Reader the source uses
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds the consumer group settings
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
	Logger  *slog.Logger
}

// EventSource consumes a topic as part of a consumer group.
// Offsets are committed only when a delivery is acknowledged.
type EventSource struct {
	reader messageReader
	topic  string
	logger *slog.Logger
}

// NewEventSource creates a consumer group reader for cfg.Topic
func NewEventSource(cfg Config) (*EventSource, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("%w: at least one kafka broker is required", domain.ErrInvalidInput)
	}
	if cfg.Topic == "" || cfg.GroupID == "" {
		return nil, fmt.Errorf("%w: kafka topic and group id are required", domain.ErrInvalidInput)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		CommitInterval: 0, // synchronous commits on ack
		StartOffset:    kafka.FirstOffset,
	})
	return newEventSource(reader, cfg.Topic, cfg.Logger), nil
}

func newEventSource(reader messageReader, topic string, logger *slog.Logger) *EventSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventSource{reader: reader, topic: topic, logger: logger}
}

// ParseBrokers splits a comma separated broker list
func ParseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Next blocks until a decodable event arrives.
// Messages that are not valid event JSON are committed and skipped.
func (s *EventSource) Next(ctx context.Context) (*driven.EventDelivery, error) {
	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch from %s: %w", s.topic, err)
		}

		event, err := domain.ParseChangeEvent(msg.Value)
		if err != nil {
			s.logger.Warn("skipping undecodable change event",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			if err := s.reader.CommitMessages(ctx, msg); err != nil {
				return nil, fmt.Errorf("commit skipped message: %w", err)
			}
			continue
		}

		return &driven.EventDelivery{
			Event: event,
			Ack: func(ctx context.Context) error {
				return s.reader.CommitMessages(ctx, msg)
			},
		}, nil
	}
}

// Close leaves the consumer group
func (s *EventSource) Close() error {
	return s.reader.Close()
}
