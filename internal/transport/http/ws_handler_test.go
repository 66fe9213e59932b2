package http

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/roomchat-server/internal/chat"
	"github.com/vovakirdan/roomchat-server/internal/core"
	"github.com/vovakirdan/roomchat-server/internal/proto"
)

type wsOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func (e *testEnv) dial(t *testing.T, ctx context.Context, query string) *websocket.Conn {
	t.Helper()
	wsURL := strings.Replace(e.server.URL, "http", "ws", 1) + "/ws"
	if query != "" {
		wsURL += "?" + query
	}
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func (e *testEnv) createRoom(t *testing.T, name string) string {
	t.Helper()
	out, err := e.chat.CreateRoom(context.Background(), chat.CreateRoomInput{Name: name})
	require.NoError(t, err)
	return out.RoomID
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}))
}

// readUntil skips frames until one matches the wanted type and event.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, typ, event string) wsOutbound {
	t.Helper()
	for {
		var out wsOutbound
		require.NoError(t, wsjson.Read(ctx, conn, &out))
		if out.Type == typ && (event == "" || out.Event == event) {
			return out
		}
	}
}

func TestWebSocketJoinAndMessage(t *testing.T) {
	env := newTestEnv(t)
	room := env.createRoom(t, "general")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := env.dial(t, ctx, "user=alice")
	connB := env.dial(t, ctx, "user=bob")

	send(t, ctx, connA, proto.InboundTypeJoin, proto.JoinData{Room: room})
	joined := readUntil(t, ctx, connA, proto.OutboundTypeEvent, proto.EventNameJoined)
	var ack proto.EventJoined
	require.NoError(t, json.Unmarshal(joined.Data, &ack))
	assert.Equal(t, room, ack.Room)
	assert.NotEmpty(t, ack.ID)

	send(t, ctx, connB, proto.InboundTypeJoin, proto.JoinData{Room: room})
	readUntil(t, ctx, connB, proto.OutboundTypeEvent, proto.EventNameJoined)

	// alice first sees her own user_joined, then bob's
	var uj proto.EventUserJoined
	for uj.User != "bob" {
		out := readUntil(t, ctx, connA, proto.OutboundTypeEvent, proto.EventNameUserJoined)
		require.NoError(t, json.Unmarshal(out.Data, &uj))
	}
	assert.Equal(t, room, uj.Room)

	send(t, ctx, connA, proto.InboundTypeMessage, proto.MessageData{Room: room, Text: "hi there"})

	for _, conn := range []*websocket.Conn{connA, connB} {
		out := readUntil(t, ctx, conn, proto.OutboundTypeEvent, proto.EventNameMessage)
		var msg proto.EventMessage
		require.NoError(t, json.Unmarshal(out.Data, &msg))
		assert.Equal(t, "alice", msg.User)
		assert.Equal(t, "hi there", msg.Text)
		assert.Equal(t, room, msg.Room)
		assert.NotZero(t, msg.ID)
		assert.NotZero(t, msg.TS)
	}

	// the socket message went through the store
	msgs, err := env.chat.GetMessages(ctx, chat.GetMessagesInput{RoomID: room})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "alice", msgs[0].UserName)
}

func TestWebSocketMessageRightAfterJoin(t *testing.T) {
	env := newTestEnv(t)
	room := env.createRoom(t, "general")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < 20; i++ {
		conn := env.dial(t, ctx, "user=quick")
		// no wait for joined between the two frames
		send(t, ctx, conn, proto.InboundTypeJoin, proto.JoinData{Room: room})
		send(t, ctx, conn, proto.InboundTypeMessage, proto.MessageData{Room: room, Text: "fast"})

		for {
			var out wsOutbound
			require.NoError(t, wsjson.Read(ctx, conn, &out))
			require.Equal(t, proto.OutboundTypeEvent, out.Type, "unexpected error frame: %+v", out.Error)
			if out.Event == proto.EventNameMessage {
				break
			}
		}
		conn.Close(websocket.StatusNormalClosure, "done")
	}

	msgs, err := env.chat.GetMessages(ctx, chat.GetMessagesInput{RoomID: room})
	require.NoError(t, err)
	assert.Len(t, msgs, 20)
}

func TestWebSocketReceivesRPCMessages(t *testing.T) {
	env := newTestEnv(t)
	room := env.createRoom(t, "general")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx, "user=watcher")
	send(t, ctx, conn, proto.InboundTypeJoin, proto.JoinData{Room: room})
	readUntil(t, ctx, conn, proto.OutboundTypeEvent, proto.EventNameJoined)

	sent, err := env.chat.SendMessage(ctx, chat.SendMessageInput{RoomID: room, UserName: "poller", Content: "from rpc"})
	require.NoError(t, err)

	out := readUntil(t, ctx, conn, proto.OutboundTypeEvent, proto.EventNameMessage)
	var msg proto.EventMessage
	require.NoError(t, json.Unmarshal(out.Data, &msg))
	assert.Equal(t, sent.Message.ID, msg.ID)
	assert.Equal(t, "from rpc", msg.Text)
}

func TestWebSocketErrors(t *testing.T) {
	env := newTestEnv(t)
	room := env.createRoom(t, "general")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx, "user=eve")

	send(t, ctx, conn, proto.InboundTypeJoin, proto.JoinData{Room: "does-not-exist"})
	out := readUntil(t, ctx, conn, proto.OutboundTypeError, "")
	require.NotNil(t, out.Error)
	assert.Equal(t, core.ErrCodeRoomNotFound, out.Error.Code)

	send(t, ctx, conn, proto.InboundTypeMessage, proto.MessageData{Room: room, Text: "sneaky"})
	out = readUntil(t, ctx, conn, proto.OutboundTypeError, "")
	assert.Equal(t, core.ErrCodeNotInRoom, out.Error.Code)

	send(t, ctx, conn, "dance", map[string]string{})
	out = readUntil(t, ctx, conn, proto.OutboundTypeError, "")
	assert.Equal(t, "invalid_message", out.Error.Code)

	send(t, ctx, conn, proto.InboundTypeJoin, proto.JoinData{Room: room})
	readUntil(t, ctx, conn, proto.OutboundTypeEvent, proto.EventNameJoined)

	send(t, ctx, conn, proto.InboundTypeMessage, proto.MessageData{Room: room, Text: ""})
	out = readUntil(t, ctx, conn, proto.OutboundTypeError, "")
	assert.Equal(t, core.ErrCodeBadRequest, out.Error.Code)
}

func TestWebSocketLeave(t *testing.T) {
	env := newTestEnv(t)
	room := env.createRoom(t, "general")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx, "user=frank")
	send(t, ctx, conn, proto.InboundTypeJoin, proto.JoinData{Room: room})
	readUntil(t, ctx, conn, proto.OutboundTypeEvent, proto.EventNameJoined)

	send(t, ctx, conn, proto.InboundTypeLeave, proto.JoinData{Room: room})
	out := readUntil(t, ctx, conn, proto.OutboundTypeEvent, proto.EventNameUserLeft)
	var left proto.EventUserLeft
	require.NoError(t, json.Unmarshal(out.Data, &left))
	assert.Equal(t, "frank", left.User)

	send(t, ctx, conn, proto.InboundTypeMessage, proto.MessageData{Room: room, Text: "still here?"})
	out = readUntil(t, ctx, conn, proto.OutboundTypeError, "")
	assert.Equal(t, core.ErrCodeNotInRoom, out.Error.Code)
}

func TestWebSocketRejectsInvalidToken(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(env.server.URL, "http", "ws", 1) + "/ws?token=garbage"
	_, resp, err := websocket.Dial(ctx, wsURL, nil)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, 401, resp.StatusCode)
	}
}
