package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	EventInsert = "insert"
	EventUpdate = "update"

	ORDER_CHANNEL_PREFIX = "orders:"
)

// ChangeEvent announces that an order row changed. It carries no order data;
// subscribers refetch the full record.
type ChangeEvent struct {
	Event        string    `json:"event"`
	Table        string    `json:"table"`
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func ChangeChannel(restaurantID uuid.UUID) string {
	return ORDER_CHANNEL_PREFIX + restaurantID.String()
}

type RedisPublisher struct {
	redis *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{redis: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, event ChangeEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.redis.Publish(ctx, ChangeChannel(event.RestaurantID), eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// RedisFeed subscribes to the change channel of one restaurant.
type RedisFeed struct {
	redis *redis.Client
}

func NewRedisFeed(client *redis.Client) *RedisFeed {
	return &RedisFeed{redis: client}
}

// Subscribe delivers decoded events until ctx is cancelled. Malformed
// payloads are dropped. Reconnects are handled by go-redis.
func (f *RedisFeed) Subscribe(ctx context.Context, restaurantID uuid.UUID) (<-chan ChangeEvent, error) {
	sub := f.redis.Subscribe(ctx, ChangeChannel(restaurantID))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", ChangeChannel(restaurantID), err)
	}

	out := make(chan ChangeEvent)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
