// Package broker carries committed chat events between the write path and every
// realtime fan-out point, possibly across processes.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Event types.
const (
	EventMessage        = "message"
	EventMessageDeleted = "message_deleted"
)

const channelPrefix = "roomchat:room:"

// AllRoomsPattern matches the channel of every room.
const AllRoomsPattern = channelPrefix + "*"

// RoomChannel returns the channel name events of a room are published on.
func RoomChannel(roomToken string) string {
	return channelPrefix + roomToken
}

// Event is a single room-scoped notification.
type Event struct {
	Type      string          `json:"type"`
	Room      string          `json:"room"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(eventType, roomToken string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{
		Type:      eventType,
		Room:      roomToken,
		Payload:   data,
		Timestamp: time.Now().UTC(),
	}, nil
}

// UnmarshalPayload unmarshals the event payload into v.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// MessagePayload describes a committed message.
type MessagePayload struct {
	ID        int64     `json:"id"`
	Room      string    `json:"room"`
	UserID    *int64    `json:"userId,omitempty"`
	UserName  string    `json:"userName"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageDeletedPayload identifies a removed message.
type MessageDeletedPayload struct {
	ID   int64  `json:"id"`
	Room string `json:"room"`
}

// Publisher publishes events on the channel of their room.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// Subscriber streams events of every room until ctx is done or the broker closes.
// Delivery is best effort: a subscriber that falls behind loses events.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan *Event, error)
}

// Broker combines Publisher and Subscriber.
type Broker interface {
	Publisher
	Subscriber
	Close() error
}

// Drivers accepted by New.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Config selects and configures a broker driver.
type Config struct {
	Driver string      `mapstructure:"driver" yaml:"driver"`
	Redis  RedisConfig `mapstructure:"redis" yaml:"redis"`
}

// RedisConfig holds Redis-specific configuration.
type RedisConfig struct {
	Address      string        `mapstructure:"address" yaml:"address"`
	Password     string        `mapstructure:"password" yaml:"password"`
	DB           int           `mapstructure:"db" yaml:"db"`
	PoolSize     int           `mapstructure:"pool_size" yaml:"pool_size"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// DefaultConfig returns an in-process broker configuration.
func DefaultConfig() Config {
	return Config{
		Driver: DriverMemory,
		Redis: RedisConfig{
			Address:      "localhost:6379",
			PoolSize:     10,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
}

// New creates a broker for cfg.Driver.
func New(ctx context.Context, cfg Config) (Broker, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverRedis:
		return NewRedis(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown broker driver %q", cfg.Driver)
	}
}

const subscriberBuffer = 256
