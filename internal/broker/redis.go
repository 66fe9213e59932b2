package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Redis publishes events with PUBLISH and receives them through PSUBSCRIBE,
// so every server process attached to the same Redis sees every room event.
type Redis struct {
	client *redis.Client

	mu   sync.Mutex
	subs []*redis.PubSub
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Redis{client: client}, nil
}

// Publish publishes event on its room channel.
func (r *Redis) Publish(ctx context.Context, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return r.client.Publish(ctx, RoomChannel(event.Room), data).Err()
}

// Subscribe listens on every room channel.
func (r *Redis) Subscribe(ctx context.Context) (<-chan *Event, error) {
	pubsub := r.client.PSubscribe(ctx, AllRoomsPattern)
	// Wait for the subscription confirmation so events published right after
	// Subscribe returns are not missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("psubscribe %s: %w", AllRoomsPattern, err)
	}

	r.mu.Lock()
	r.subs = append(r.subs, pubsub)
	r.mu.Unlock()

	eventCh := make(chan *Event, subscriberBuffer)
	go r.processMessages(ctx, pubsub, eventCh)

	return eventCh, nil
}

func (r *Redis) processMessages(ctx context.Context, pubsub *redis.PubSub, eventCh chan<- *Event) {
	defer close(eventCh)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}

			select {
			case eventCh <- &event:
			case <-ctx.Done():
				return
			default:
				// subscriber is behind; drop
			}
		}
	}
}

// Close closes all subscriptions and the Redis client.
func (r *Redis) Close() error {
	r.mu.Lock()
	for _, pubsub := range r.subs {
		_ = pubsub.Close()
	}
	r.subs = nil
	r.mu.Unlock()

	return r.client.Close()
}
