// Package memory provides a process-local store.Store. Data is lost on restart;
// it backs the ephemeral "memory" database driver and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vovakirdan/roomchat-server/internal/store"
)

// Store implements store.Store in memory.
type Store struct {
	mu sync.RWMutex

	nextUserID    int64
	nextRoomID    int64
	nextMessageID int64

	users        map[int64]*store.User
	rooms        map[int64]*store.Room
	roomsByToken map[string]int64
	messages     map[int64]*store.Message
	byRoom       map[int64][]int64 // message IDs in insertion order
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:        make(map[int64]*store.User),
		rooms:        make(map[int64]*store.Room),
		roomsByToken: make(map[string]int64),
		messages:     make(map[int64]*store.Message),
		byRoom:       make(map[int64][]int64),
	}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// CreateUser creates a new user with hashed password.
func (s *Store) CreateUser(_ context.Context, username, passwordHash string) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return nil, fmt.Errorf("insert user: %w", store.ErrConflict)
		}
	}

	s.nextUserID++
	user := &store.User{
		ID:           s.nextUserID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[user.ID] = user

	cp := *user
	return &cp, nil
}

// GetUserByID retrieves a user by ID.
func (s *Store) GetUserByID(_ context.Context, id int64) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user: %w", store.ErrNotFound)
	}
	cp := *user
	return &cp, nil
}

// GetUserByUsername retrieves a user by username.
func (s *Store) GetUserByUsername(_ context.Context, username string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user: %w", store.ErrNotFound)
}

// CreateRoom inserts a new room.
func (s *Store) CreateRoom(_ context.Context, token, name string, createdBy *int64) (*store.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.roomsByToken[token]; exists {
		return nil, fmt.Errorf("insert room: %w", store.ErrConflict)
	}

	s.nextRoomID++
	room := &store.Room{
		ID:        s.nextRoomID,
		Token:     token,
		Name:      name,
		CreatedBy: copyID(createdBy),
		CreatedAt: time.Now().UTC(),
	}
	s.rooms[room.ID] = room
	s.roomsByToken[token] = room.ID

	return copyRoom(room), nil
}

// GetRoomByToken retrieves a room by its external token.
func (s *Store) GetRoomByToken(_ context.Context, token string) (*store.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.roomsByToken[token]
	if !ok {
		return nil, fmt.Errorf("room: %w", store.ErrNotFound)
	}
	return copyRoom(s.rooms[id]), nil
}

// GetRoomByID retrieves a room by ID.
func (s *Store) GetRoomByID(_ context.Context, id int64) (*store.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return nil, fmt.Errorf("room: %w", store.ErrNotFound)
	}
	return copyRoom(room), nil
}

// ListRooms lists all rooms in creation order.
func (s *Store) ListRooms(_ context.Context) ([]*store.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]*store.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, copyRoom(room))
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms, nil
}

// CreateMessage inserts a message stamped with the current time.
func (s *Store) CreateMessage(_ context.Context, roomID int64, userName, content string, userID *int64) (*store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextMessageID++
	msg := &store.Message{
		ID:        s.nextMessageID,
		RoomID:    roomID,
		UserID:    copyID(userID),
		UserName:  userName,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	s.messages[msg.ID] = msg
	s.byRoom[roomID] = append(s.byRoom[roomID], msg.ID)

	return copyMessage(msg), nil
}

// GetMessage retrieves a message by ID.
func (s *Store) GetMessage(_ context.Context, id int64) (*store.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, fmt.Errorf("message: %w", store.ErrNotFound)
	}
	return copyMessage(msg), nil
}

// ListMessages returns messages of a room in ascending creation order.
// IDs grow with insertion time, so insertion order is creation order.
func (s *Store) ListMessages(_ context.Context, roomID int64, limit int, afterID *int64) ([]*store.Message, error) {
	limit = store.ClampLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byRoom[roomID]
	var selected []int64
	if afterID != nil {
		start := sort.Search(len(ids), func(i int) bool { return ids[i] > *afterID })
		selected = ids[start:]
		if len(selected) > limit {
			selected = selected[:limit]
		}
	} else {
		selected = ids
		if len(selected) > limit {
			selected = selected[len(selected)-limit:]
		}
	}

	messages := make([]*store.Message, 0, len(selected))
	for _, id := range selected {
		messages = append(messages, copyMessage(s.messages[id]))
	}
	return messages, nil
}

// DeleteMessage removes a message by ID.
func (s *Store) DeleteMessage(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return fmt.Errorf("message: %w", store.ErrNotFound)
	}
	delete(s.messages, id)

	ids := s.byRoom[msg.RoomID]
	for i, mid := range ids {
		if mid == id {
			s.byRoom[msg.RoomID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func copyRoom(r *store.Room) *store.Room {
	cp := *r
	cp.CreatedBy = copyID(r.CreatedBy)
	return &cp
}

func copyMessage(m *store.Message) *store.Message {
	cp := *m
	cp.UserID = copyID(m.UserID)
	return &cp
}
