package broker

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against the Redis named by ROOMCHAT_TEST_REDIS_ADDR.
func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	addr := os.Getenv("ROOMCHAT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ROOMCHAT_TEST_REDIS_ADDR not set")
	}

	cfg := DefaultConfig().Redis
	cfg.Address = addr

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r, err := NewRedis(ctx, cfg)
	if err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRedisFanOut(t *testing.T) {
	r := newTestRedis(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s1, err := r.Subscribe(ctx)
	require.NoError(t, err)
	s2, err := r.Subscribe(ctx)
	require.NoError(t, err)

	ev, err := NewEvent(EventMessage, "room-r", MessagePayload{ID: 9, Room: "room-r", UserName: "alice", Content: "over redis"})
	require.NoError(t, err)
	require.NoError(t, r.Publish(ctx, ev))

	for _, ch := range []<-chan *Event{s1, s2} {
		got := recv(t, ch)
		assert.Equal(t, EventMessage, got.Type)
		assert.Equal(t, "room-r", got.Room)

		var p MessagePayload
		require.NoError(t, got.UnmarshalPayload(&p))
		assert.Equal(t, int64(9), p.ID)
		assert.Equal(t, "over redis", p.Content)
	}
}

func TestRedisUnsubscribeOnCancel(t *testing.T) {
	r := newTestRedis(t)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := r.Subscribe(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber channel not closed after cancel")
	}
}

func TestNewRedisUnreachable(t *testing.T) {
	cfg := DefaultConfig().Redis
	cfg.Address = "127.0.0.1:1"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := New(ctx, Config{Driver: DriverRedis, Redis: cfg})
	assert.Error(t, err)
}
