package streams

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bdu-chat/campus-chat/internal/events"
	"github.com/redis/go-redis/v9"
)

// Publisher appends chat events to the relay stream
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher creates a new Publisher instance
func NewPublisher(redisURL string) (*Publisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &Publisher{rdb: redis.NewClient(opts)}, nil
}

// PublishRoom relays a room delivery to every instance.
func (p *Publisher) PublishRoom(ctx context.Context, d events.RoomDelivery) error {
	_, err := p.publish(ctx, Event{Kind: KindRoom, Room: &d})
	return err
}

// PublishDirect relays a direct message to every instance.
func (p *Publisher) PublishDirect(ctx context.Context, msg events.DirectMessage) error {
	_, err := p.publish(ctx, Event{Kind: KindDirect, Direct: &msg})
	return err
}

func (p *Publisher) publish(ctx context.Context, ev Event) (string, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	result := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamChatEvents,
		MaxLen: 10000,
		Approx: true,
		ID:     "*", // auto-generate ID
		Values: map[string]interface{}{
			"payload":        string(payload),
			"published_at":   time.Now().Unix(),
			"schema_version": SchemaVersionV1,
		},
	})

	if result.Err() != nil {
		return "", fmt.Errorf("failed to publish to stream: %w", result.Err())
	}

	return result.Val(), nil
}

// Close closes the Redis client connection
func (p *Publisher) Close() error {
	return p.rdb.Close()
}
