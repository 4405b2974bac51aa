package streams

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Consumer reads the relay stream through this instance's consumer group
type Consumer struct {
	rdb          *redis.Client
	groupName    string
	consumerName string
	block        time.Duration
	logger       *slog.Logger
}

// NewConsumer creates a Consumer for instanceID
func NewConsumer(redisURL, instanceID string, logger *slog.Logger) (*Consumer, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	// Read timeout must exceed the XReadGroup Block duration (5s)
	// to avoid spurious i/o timeout errors on idle streams.
	opts.ReadTimeout = 10 * time.Second

	return newConsumer(redis.NewClient(opts), instanceID, 5*time.Second, logger)
}

func newConsumer(rdb *redis.Client, instanceID string, block time.Duration, logger *slog.Logger) (*Consumer, error) {
	group := GroupPrefix + instanceID

	// Start ID "$": only events published after this instance came up
	err := rdb.XGroupCreateMkStream(context.Background(), StreamChatEvents, group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}
	// Ignore BUSYGROUP error - group already exists

	return &Consumer{
		rdb:          rdb,
		groupName:    group,
		consumerName: instanceID,
		block:        block,
		logger:       logger,
	}, nil
}

// Consume runs a blocking loop handing every relayed event to handler
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, Event) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, err := c.readOnce(ctx, handler); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("Failed to read from stream", "error", err)
			time.Sleep(time.Second)
		}
	}
}

// readOnce reads one batch and returns the number of events handled
func (c *Consumer) readOnce(ctx context.Context, handler func(context.Context, Event) error) (int, error) {
	streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.groupName,
		Consumer: c.consumerName,
		Streams:  []string{StreamChatEvents, ">"},
		Count:    100,
		Block:    c.block,
	}).Result()

	if err == redis.Nil {
		// No messages available
		return 0, nil
	}

	if err != nil {
		// Blocking reads return a timeout when no messages arrive
		// within the Block duration, this is normal.
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return 0, nil
		}
		return 0, err
	}

	handled := 0
	for _, stream := range streams {
		for _, message := range stream.Messages {
			if c.handle(ctx, message, handler) {
				handled++
			}

			// Live pushes are not retried, so every event is acked
			if err := c.rdb.XAck(ctx, StreamChatEvents, c.groupName, message.ID).Err(); err != nil {
				c.logger.Error("Failed to ACK message", "error", err, "message_id", message.ID)
			}
		}
	}
	return handled, nil
}

func (c *Consumer) handle(ctx context.Context, message redis.XMessage, handler func(context.Context, Event) error) bool {
	payloadStr, ok := message.Values["payload"].(string)
	if !ok {
		c.logger.Error("Invalid message payload", "message_id", message.ID)
		return false
	}

	var ev Event
	if err := json.Unmarshal([]byte(payloadStr), &ev); err != nil {
		c.logger.Error("Failed to unmarshal event", "error", err, "message_id", message.ID)
		return false
	}

	if err := handler(ctx, ev); err != nil {
		c.logger.Error("Handler failed", "error", err, "message_id", message.ID, "kind", ev.Kind)
		return false
	}
	return true
}

// Close removes this instance's consumer group and closes the connection
func (c *Consumer) Close() error {
	if err := c.rdb.XGroupDestroy(context.Background(), StreamChatEvents, c.groupName).Err(); err != nil {
		c.logger.Warn("Failed to remove consumer group", "group", c.groupName, "error", err)
	}
	return c.rdb.Close()
}

// StartRelay starts a consumer in a background goroutine that delivers every
// relayed event to this instance's connections, and returns a stop function
func StartRelay(redisURL, instanceID string, target LocalTarget, logger *slog.Logger) (stop func(), err error) {
	consumer, err := NewConsumer(redisURL, instanceID, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create relay consumer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := consumer.Consume(ctx, DeliverLocal(target)); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Relay consumer stopped with error", "error", err)
			}
		}
	}()

	logger.Info("Relay consumer started", "group", consumer.groupName)

	return func() {
		cancel()
		<-done
		consumer.Close()
	}, nil
}
