package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisChannel is a Channel backed by redis pub/sub, letting replicas on
// different processes converge on the same cart state. Each subscriber
// filters out its own publications by origin id.
type RedisChannel struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger

	mu       sync.RWMutex
	handlers map[string]Handler

	cancel context.CancelFunc
	done   chan struct{}
}

// NewRedisChannel connects to redis and starts the subscription loop
func NewRedisChannel(client *redis.Client, channel string, logger *zap.Logger) (*RedisChannel, error) {
	ctx, cancel := context.WithCancel(context.Background())

	sub := client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	c := &RedisChannel{
		client:   client,
		channel:  channel,
		logger:   logger,
		handlers: make(map[string]Handler),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go c.receiveLoop(ctx, sub)
	return c, nil
}

func (c *RedisChannel) receiveLoop(ctx context.Context, sub *redis.PubSub) {
	defer close(c.done)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-sub.Channel():
			if !ok {
				return
			}
			var msg Message
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				c.logger.Warn("dropping malformed broadcast message", zap.Error(err))
				continue
			}
			c.dispatch(ctx, msg)
		}
	}
}

func (c *RedisChannel) dispatch(ctx context.Context, msg Message) {
	c.mu.RLock()
	targets := make([]Handler, 0, len(c.handlers))
	for origin, handler := range c.handlers {
		if origin == msg.Origin {
			continue
		}
		targets = append(targets, handler)
	}
	c.mu.RUnlock()

	for _, handler := range targets {
		handler(ctx, msg)
	}
}

// Publish serializes the message and publishes it to the shared channel
func (c *RedisChannel) Publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode broadcast message: %w", err)
	}
	if err := c.client.Publish(ctx, c.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", c.channel, err)
	}
	return nil
}

// Subscribe registers a handler under the given origin id
func (c *RedisChannel) Subscribe(origin string, handler Handler) error {
	c.mu.Lock()
	c.handlers[origin] = handler
	c.mu.Unlock()
	return nil
}

// Close stops the receive loop and waits for it to exit
func (c *RedisChannel) Close() error {
	c.cancel()
	<-c.done
	return nil
}

var _ Channel = (*RedisChannel)(nil)
