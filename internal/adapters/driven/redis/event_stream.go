package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
)

const (
	// DefaultEventStream is the stream the host publishes change events to
	DefaultEventStream = "chimp-sync:changes"
	defaultEventGroup  = "chimp-sync:workers"

	// eventField holds the JSON encoded event of a stream entry
	eventField = "event"

	// Claim timeout - how long before a delivered event is considered abandoned
	claimTimeout = 5 * time.Minute

	// readBlock bounds one blocking read so cancellation is noticed
	readBlock = 5 * time.Second
)

// Verify interface compliance
var _ driven.EventSource = (*EventStream)(nil)

// StreamConfig configures an EventStream
type StreamConfig struct {
	Stream   string
	Group    string
	Consumer string // unique per process
	Logger   *slog.Logger
}

// EventStream consumes change events from a Redis stream through a consumer group.
// Entries stay pending until acknowledged, and entries abandoned by a crashed
// consumer are claimed after claimTimeout.
type EventStream struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
	logger   *slog.Logger
}

// NewEventStream creates the consumer group if needed and returns the source
func NewEventStream(ctx context.Context, client *redis.Client, cfg StreamConfig) (*EventStream, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	s := &EventStream{
		client:   client,
		stream:   cfg.Stream,
		group:    cfg.Group,
		consumer: cfg.Consumer,
		logger:   cfg.Logger,
	}
	if s.stream == "" {
		s.stream = DefaultEventStream
	}
	if s.group == "" {
		s.group = defaultEventGroup
	}
	if s.consumer == "" {
		s.consumer = fmt.Sprintf("consumer-%d", time.Now().UnixNano())
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	err := client.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && !isGroupExistsError(err) {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}
	return s, nil
}

// Publish appends an event to the stream
func (s *EventStream) Publish(ctx context.Context, event *domain.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{eventField: string(data)},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Next blocks until an event is available or ctx is done.
// Entries without a decodable event are acknowledged and dropped.
func (s *EventStream) Next(ctx context.Context) (*driven.EventDelivery, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msg, ok := s.claimAbandoned(ctx)
		if !ok {
			streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
				Group:    s.group,
				Consumer: s.consumer,
				Streams:  []string{s.stream, ">"},
				Count:    1,
				Block:    readBlock,
			}).Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to read from stream: %w", err)
			}
			if len(streams) == 0 || len(streams[0].Messages) == 0 {
				continue
			}
			msg = streams[0].Messages[0]
		}

		if delivery := s.delivery(ctx, msg); delivery != nil {
			return delivery, nil
		}
	}
}

func (s *EventStream) delivery(ctx context.Context, msg redis.XMessage) *driven.EventDelivery {
	raw, _ := msg.Values[eventField].(string)
	event, err := domain.ParseChangeEvent([]byte(raw))
	if err != nil {
		s.logger.Warn("dropping undecodable change event", "stream", s.stream, "id", msg.ID, "error", err)
		if err := s.remove(ctx, msg.ID); err != nil {
			s.logger.Warn("failed to drop stream entry", "id", msg.ID, "error", err)
		}
		return nil
	}

	id := msg.ID
	return &driven.EventDelivery{
		Event: event,
		Ack: func(ctx context.Context) error {
			return s.remove(ctx, id)
		},
	}
}

// remove acknowledges an entry and deletes it from the stream
func (s *EventStream) remove(ctx context.Context, id string) error {
	pipe := s.client.Pipeline()
	pipe.XAck(ctx, s.stream, s.group, id)
	pipe.XDel(ctx, s.stream, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to ack event %s: %w", id, err)
	}
	return nil
}

// claimAbandoned takes over one entry that another consumer left pending too long
func (s *EventStream) claimAbandoned(ctx context.Context) (redis.XMessage, bool) {
	pending, err := s.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: s.stream,
		Group:  s.group,
		Start:  "-",
		End:    "+",
		Count:  10,
		Idle:   claimTimeout,
	}).Result()
	if err != nil {
		return redis.XMessage{}, false
	}

	for _, p := range pending {
		claimed, err := s.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   s.stream,
			Group:    s.group,
			Consumer: s.consumer,
			MinIdle:  claimTimeout,
			Messages: []string{p.ID},
		}).Result()
		if err != nil || len(claimed) == 0 {
			continue
		}
		s.logger.Info("claimed abandoned change event", "id", claimed[0].ID, "previous_consumer", p.Consumer)
		return claimed[0], true
	}
	return redis.XMessage{}, false
}

// Close is a no-op, the client is owned by the caller
func (s *EventStream) Close() error {
	return nil
}

func isGroupExistsError(err error) bool {
	return err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists"
}
