package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan *Event) *Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
		return nil
	}
}

func TestMemoryFanOut(t *testing.T) {
	b := NewMemory()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s1, err := b.Subscribe(ctx)
	require.NoError(t, err)
	s2, err := b.Subscribe(ctx)
	require.NoError(t, err)

	ev, err := NewEvent(EventMessage, "room-a", MessagePayload{ID: 1, Room: "room-a", UserName: "alice", Content: "hi"})
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, ev))

	for _, ch := range []<-chan *Event{s1, s2} {
		got := recv(t, ch)
		assert.Equal(t, EventMessage, got.Type)
		assert.Equal(t, "room-a", got.Room)

		var p MessagePayload
		require.NoError(t, got.UnmarshalPayload(&p))
		assert.Equal(t, int64(1), p.ID)
		assert.Equal(t, "hi", p.Content)
	}
}

func TestMemoryUnsubscribeOnCancel(t *testing.T) {
	b := NewMemory()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := b.Subscribe(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscriber channel not closed after cancel")
	}
}

func TestMemoryClose(t *testing.T) {
	b := NewMemory()
	ch, err := b.Subscribe(context.Background())
	require.NoError(t, err)

	require.NoError(t, b.Close())
	_, ok := <-ch
	assert.False(t, ok)

	ev, err := NewEvent(EventMessageDeleted, "r", MessageDeletedPayload{ID: 1, Room: "r"})
	require.NoError(t, err)
	assert.ErrorIs(t, b.Publish(context.Background(), ev), ErrClosed)

	_, err = b.Subscribe(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNewDriver(t *testing.T) {
	b, err := New(context.Background(), Config{Driver: DriverMemory})
	require.NoError(t, err)
	_ = b.Close()

	_, err = New(context.Background(), Config{Driver: "carrier-pigeon"})
	assert.Error(t, err)

	assert.Equal(t, "roomchat:room:abc", RoomChannel("abc"))
}
