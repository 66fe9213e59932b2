package client

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/roomchat-server/internal/chat"
)

// lockedBuffer lets the test read what the session renders from another goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, out *lockedBuffer, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), want)
	}, 5*time.Second, 10*time.Millisecond, "output never contained %q:\n%s", want, out.String())
}

func TestLiveSessionSendsAndRenders(t *testing.T) {
	ts := newTestServer(t)
	c := New(ts.URL)

	room, err := c.CreateRoom(context.Background(), "live")
	require.NoError(t, err)

	out := &lockedBuffer{}
	live, err := NewLiveSession(ts.URL, room.RoomID, "ann", "", NewRenderer(out, "ann", 40), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in, input := io.Pipe()
	done := make(chan error, 1)
	go func() { done <- live.Run(ctx, in) }()

	// the first line goes out before the joined ack has been read
	_, err = io.WriteString(input, "hello live\n")
	require.NoError(t, err)
	waitFor(t, out, "hello live [")

	// a message from a polling client reaches the socket too
	_, err = c.SendMessage(context.Background(), chat.SendMessageInput{RoomID: room.RoomID, UserName: "bob", Content: "from rpc"})
	require.NoError(t, err)
	waitFor(t, out, "bob: from rpc")
	assert.Contains(t, out.String(), "joined room "+room.RoomID)

	msgs, err := c.GetMessages(context.Background(), room.RoomID, 0, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "ann", msgs[0].UserName)

	cancel()
	_ = input.Close()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("live session did not stop")
	}
}

func TestNewLiveSessionURL(t *testing.T) {
	live, err := NewLiveSession("https://chat.example/", "tok", "ann b", "jwt", NewRenderer(io.Discard, "ann b", 40), nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(live.wsURL, "wss://chat.example/ws?"))
	assert.Contains(t, live.wsURL, "token=jwt")
	assert.Contains(t, live.wsURL, "user=ann+b")
}
