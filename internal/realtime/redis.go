package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Channel is the Redis pub/sub channel shared by every API instance.
const Channel = "hki:changes"

// RedisRelay publishes locally and to Redis, and feeds events from other
// instances into the local hub.
type RedisRelay struct {
	client *redis.Client
	hub    *Hub
	origin string
	logger *slog.Logger
}

// NewRedisClient connects and pings with a short timeout.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctxPing).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func NewRedisRelay(client *redis.Client, hub *Hub, logger *slog.Logger) *RedisRelay {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisRelay{
		client: client,
		hub:    hub,
		origin: uuid.NewString(),
		logger: logger.With("system", "realtime"),
	}
}

func (r *RedisRelay) Publish(ctx context.Context, evt ChangeEvent) {
	r.hub.Publish(ctx, evt)

	evt.Origin = r.origin
	if err := r.client.Publish(ctx, Channel, evt.Marshal()).Err(); err != nil {
		r.logger.Warn("redis publish failed", "type", evt.Type, "error", err)
	}
}

// Start subscribes and returns once Redis confirmed the subscription.
// Forwarding stops when ctx is cancelled.
func (r *RedisRelay) Start(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, Channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var evt ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					r.logger.Warn("invalid change event", "error", err)
					continue
				}
				if evt.Origin == r.origin {
					continue
				}
				r.hub.Publish(ctx, evt)
			}
		}
	}()
	return nil
}
