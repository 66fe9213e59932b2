package http

import (
	"fmt"
	stdhttp "net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/roomchat-server/internal/chat"
)

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.server.Client().Get(env.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, stdhttp.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(HeaderRequestID))
}

func TestRPCCreateAndGetRoom(t *testing.T) {
	env := newTestEnv(t)

	var created rpcResult[chat.CreateRoomOutput]
	status := env.do(t, stdhttp.MethodPost, "/rpc/chat.createRoom", "", chat.CreateRoomInput{Name: "general"}, &created)
	require.Equal(t, stdhttp.StatusOK, status)
	assert.Equal(t, "general", created.Result.Name)
	require.NotEmpty(t, created.Result.RoomID)

	var room rpcResult[chat.RoomView]
	status = env.do(t, stdhttp.MethodGet, "/rpc/chat.getRoom?roomId="+created.Result.RoomID, "", nil, &room)
	require.Equal(t, stdhttp.StatusOK, status)
	assert.Equal(t, created.Result.RoomID, room.Result.RoomID)
	assert.Nil(t, room.Result.CreatedBy)

	var missing rpcResult[chat.RoomView]
	status = env.do(t, stdhttp.MethodGet, "/rpc/chat.getRoom?roomId=nope", "", nil, &missing)
	assert.Equal(t, stdhttp.StatusNotFound, status)
	assert.Equal(t, chat.CodeNotFound, missing.Error.Code)
	assert.Equal(t, "chat room not found", missing.Error.Message)
}

func TestRPCCreateRoomRecordsCaller(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice")

	var created rpcResult[chat.CreateRoomOutput]
	require.Equal(t, stdhttp.StatusOK, env.do(t, stdhttp.MethodPost, "/rpc/chat.createRoom", token, chat.CreateRoomInput{Name: "mine"}, &created))

	var room rpcResult[chat.RoomView]
	require.Equal(t, stdhttp.StatusOK, env.do(t, stdhttp.MethodGet, "/rpc/chat.getRoom?roomId="+created.Result.RoomID, "", nil, &room))
	require.NotNil(t, room.Result.CreatedBy)
}

func TestRPCValidation(t *testing.T) {
	env := newTestEnv(t)

	var out rpcResult[chat.CreateRoomOutput]
	status := env.do(t, stdhttp.MethodPost, "/rpc/chat.createRoom", "", chat.CreateRoomInput{Name: ""}, &out)
	assert.Equal(t, stdhttp.StatusBadRequest, status)
	assert.Equal(t, chat.CodeBadRequest, out.Error.Code)

	status = env.do(t, stdhttp.MethodPost, "/rpc/chat.createRoom", "", "{not json", &out)
	assert.Equal(t, stdhttp.StatusBadRequest, status)

	var msgs rpcResult[[]chat.MessageView]
	status = env.do(t, stdhttp.MethodGet, "/rpc/chat.getMessages?roomId=x&limit=abc", "", nil, &msgs)
	assert.Equal(t, stdhttp.StatusBadRequest, status)
}

func TestRPCSendAndGetMessages(t *testing.T) {
	env := newTestEnv(t)

	var created rpcResult[chat.CreateRoomOutput]
	require.Equal(t, stdhttp.StatusOK, env.do(t, stdhttp.MethodPost, "/rpc/chat.createRoom", "", chat.CreateRoomInput{Name: "r"}, &created))
	roomID := created.Result.RoomID

	var lastID int64
	for i := 1; i <= 3; i++ {
		var sent rpcResult[chat.SendMessageOutput]
		status := env.do(t, stdhttp.MethodPost, "/rpc/chat.sendMessage", "", chat.SendMessageInput{
			RoomID: roomID, UserName: "bob", Content: fmt.Sprintf("m%d", i),
		}, &sent)
		require.Equal(t, stdhttp.StatusOK, status)
		require.True(t, sent.Result.Success)
		assert.Nil(t, sent.Result.Message.UserID)
		if i == 1 {
			lastID = sent.Result.Message.ID
		}
	}

	var all rpcResult[[]chat.MessageView]
	require.Equal(t, stdhttp.StatusOK, env.do(t, stdhttp.MethodGet, "/rpc/chat.getMessages?roomId="+roomID, "", nil, &all))
	require.Len(t, all.Result, 3)
	assert.Equal(t, "m1", all.Result[0].Content)
	assert.Equal(t, "m3", all.Result[2].Content)

	var limited rpcResult[[]chat.MessageView]
	require.Equal(t, stdhttp.StatusOK, env.do(t, stdhttp.MethodGet, "/rpc/chat.getMessages?roomId="+roomID+"&limit=2", "", nil, &limited))
	require.Len(t, limited.Result, 2)
	assert.Equal(t, "m2", limited.Result[0].Content)

	var after rpcResult[[]chat.MessageView]
	path := fmt.Sprintf("/rpc/chat.getMessages?roomId=%s&afterId=%d", roomID, lastID)
	require.Equal(t, stdhttp.StatusOK, env.do(t, stdhttp.MethodGet, path, "", nil, &after))
	require.Len(t, after.Result, 2)
	assert.Equal(t, "m2", after.Result[0].Content)

	var missing rpcResult[chat.SendMessageOutput]
	status := env.do(t, stdhttp.MethodPost, "/rpc/chat.sendMessage", "", chat.SendMessageInput{
		RoomID: "nope", UserName: "bob", Content: "hi",
	}, &missing)
	assert.Equal(t, stdhttp.StatusNotFound, status)
}

func TestRPCDeleteMessage(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	var created rpcResult[chat.CreateRoomOutput]
	require.Equal(t, stdhttp.StatusOK, env.do(t, stdhttp.MethodPost, "/rpc/chat.createRoom", "", chat.CreateRoomInput{Name: "r"}, &created))

	var sent rpcResult[chat.SendMessageOutput]
	require.Equal(t, stdhttp.StatusOK, env.do(t, stdhttp.MethodPost, "/rpc/chat.sendMessage", alice, chat.SendMessageInput{
		RoomID: created.Result.RoomID, UserName: "alice", Content: "bye",
	}, &sent))
	in := chat.DeleteMessageInput{MessageID: sent.Result.Message.ID}

	var out rpcResult[chat.DeleteMessageOutput]
	assert.Equal(t, stdhttp.StatusUnauthorized, env.do(t, stdhttp.MethodPost, "/rpc/chat.deleteMessage", "", in, &out))
	assert.Equal(t, stdhttp.StatusUnauthorized, env.do(t, stdhttp.MethodPost, "/rpc/chat.deleteMessage", "garbage", in, &out))
	assert.Equal(t, stdhttp.StatusForbidden, env.do(t, stdhttp.MethodPost, "/rpc/chat.deleteMessage", bob, in, &out))

	require.Equal(t, stdhttp.StatusOK, env.do(t, stdhttp.MethodPost, "/rpc/chat.deleteMessage", alice, in, &out))
	assert.True(t, out.Result.Success)

	// a second delete of the same id still reports success
	out = rpcResult[chat.DeleteMessageOutput]{}
	require.Equal(t, stdhttp.StatusOK, env.do(t, stdhttp.MethodPost, "/rpc/chat.deleteMessage", alice, in, &out))
	assert.True(t, out.Result.Success)
}

func TestAuthMe(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "carol")

	var me rpcResult[MeResponse]
	require.Equal(t, stdhttp.StatusOK, env.do(t, stdhttp.MethodGet, "/rpc/auth.me", token, nil, &me))
	assert.Equal(t, "carol", me.Result.Username)

	assert.Equal(t, stdhttp.StatusUnauthorized, env.do(t, stdhttp.MethodGet, "/rpc/auth.me", "", nil, nil))
}
