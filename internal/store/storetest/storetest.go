// Package storetest holds behavior checks shared by every store.Store backend.
package storetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/roomchat-server/internal/store"
)

// Factory returns a fresh, empty store for a single subtest.
type Factory func(t *testing.T) store.Store

// Run executes the shared suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("Rooms", func(t *testing.T) { testRooms(t, newStore(t)) })
	t.Run("MessagesOrder", func(t *testing.T) { testMessagesOrder(t, newStore(t)) })
	t.Run("MessagesLimit", func(t *testing.T) { testMessagesLimit(t, newStore(t)) })
	t.Run("MessagesAfter", func(t *testing.T) { testMessagesAfter(t, newStore(t)) })
	t.Run("MessagesIsolation", func(t *testing.T) { testMessagesIsolation(t, newStore(t)) })
	t.Run("DeleteMessage", func(t *testing.T) { testDeleteMessage(t, newStore(t)) })
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "alice", u.Username)

	_, err = s.CreateUser(ctx, "alice", "other")
	require.ErrorIs(t, err, store.ErrConflict)

	byName, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)
	assert.Equal(t, "hash", byName.PasswordHash)

	byID, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	_, err = s.GetUserByUsername(ctx, "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testRooms(t *testing.T, s store.Store) {
	ctx := context.Background()

	owner := int64(7)
	r1, err := s.CreateRoom(ctx, "tok-1", "General", &owner)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", r1.Token)
	assert.Equal(t, "General", r1.Name)
	require.NotNil(t, r1.CreatedBy)
	assert.Equal(t, owner, *r1.CreatedBy)

	r2, err := s.CreateRoom(ctx, "tok-2", "Random", nil)
	require.NoError(t, err)
	assert.Nil(t, r2.CreatedBy)

	_, err = s.CreateRoom(ctx, "tok-1", "Dup", nil)
	require.ErrorIs(t, err, store.ErrConflict)

	got, err := s.GetRoomByToken(ctx, "tok-2")
	require.NoError(t, err)
	assert.Equal(t, r2.ID, got.ID)
	assert.Equal(t, "Random", got.Name)

	got, err = s.GetRoomByID(ctx, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got.Token)

	_, err = s.GetRoomByToken(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	rooms, err := s.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, r1.ID, rooms[0].ID)
	assert.Equal(t, r2.ID, rooms[1].ID)
}

func testMessagesOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	room := mustRoom(t, s, "order")

	uid := int64(3)
	first, err := s.CreateMessage(ctx, room.ID, "alice", "hi", &uid)
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	_, err = s.CreateMessage(ctx, room.ID, "bob", "hello", nil)
	require.NoError(t, err)

	msgs, err := s.ListMessages(ctx, room.ID, 0, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, "alice", msgs[0].UserName)
	require.NotNil(t, msgs[0].UserID)
	assert.Equal(t, uid, *msgs[0].UserID)
	assert.Equal(t, "hello", msgs[1].Content)
	assert.Nil(t, msgs[1].UserID)

	got, err := s.GetMessage(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, room.ID, got.RoomID)
}

func testMessagesLimit(t *testing.T, s store.Store) {
	ctx := context.Background()
	room := mustRoom(t, s, "limit")
	seed(t, s, room.ID, 5)

	msgs, err := s.ListMessages(ctx, room.ID, 2, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	// newest two, oldest first
	assert.Equal(t, "msg-3", msgs[0].Content)
	assert.Equal(t, "msg-4", msgs[1].Content)

	msgs, err = s.ListMessages(ctx, room.ID, -10, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "msg-4", msgs[0].Content)
}

func testMessagesAfter(t *testing.T, s store.Store) {
	ctx := context.Background()
	room := mustRoom(t, s, "after")
	created := seed(t, s, room.ID, 5)

	after := created[1].ID
	msgs, err := s.ListMessages(ctx, room.ID, 2, &after)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "msg-2", msgs[0].Content)
	assert.Equal(t, "msg-3", msgs[1].Content)

	last := created[4].ID
	msgs, err = s.ListMessages(ctx, room.ID, 0, &last)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func testMessagesIsolation(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustRoom(t, s, "room-a")
	b := mustRoom(t, s, "room-b")
	seed(t, s, a.ID, 3)

	msgs, err := s.ListMessages(ctx, b.ID, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	msgs, err = s.ListMessages(ctx, a.ID, 0, nil)
	require.NoError(t, err)
	assert.Len(t, msgs, 3)
}

func testDeleteMessage(t *testing.T, s store.Store) {
	ctx := context.Background()
	room := mustRoom(t, s, "delete")
	created := seed(t, s, room.ID, 3)

	require.NoError(t, s.DeleteMessage(ctx, created[1].ID))

	_, err := s.GetMessage(ctx, created[1].ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	err = s.DeleteMessage(ctx, created[1].ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	msgs, err := s.ListMessages(ctx, room.ID, 0, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "msg-0", msgs[0].Content)
	assert.Equal(t, "msg-2", msgs[1].Content)
}

func mustRoom(t *testing.T, s store.Store, token string) *store.Room {
	t.Helper()
	room, err := s.CreateRoom(context.Background(), token, token, nil)
	require.NoError(t, err)
	return room
}

func seed(t *testing.T, s store.Store, roomID int64, n int) []*store.Message {
	t.Helper()
	out := make([]*store.Message, 0, n)
	for i := range n {
		msg, err := s.CreateMessage(context.Background(), roomID, "seed", fmt.Sprintf("msg-%d", i), nil)
		require.NoError(t, err)
		out = append(out, msg)
	}
	return out
}
