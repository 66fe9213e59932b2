package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a looked up row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an insert violates a uniqueness constraint.
	ErrConflict = errors.New("already exists")
)

const (
	// DefaultMessageLimit is used when the caller does not ask for a specific page size.
	DefaultMessageLimit = 100
	// MaxMessageLimit caps a single ListMessages page.
	MaxMessageLimit = 500
)

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Room represents a chat room.
// Token is the opaque identifier used in shareable links; ID never leaves the server
// except as a foreign key reference.
type Room struct {
	ID        int64
	Token     string
	Name      string
	CreatedBy *int64 // nil for rooms created by anonymous callers
	CreatedAt time.Time
}

// Message represents a persisted chat message.
type Message struct {
	ID        int64
	RoomID    int64
	UserID    *int64 // nil when the sender was not authenticated
	UserName  string
	Content   string
	CreatedAt time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	// Returns ErrConflict if the username is taken.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom inserts a new room. Returns ErrConflict if the token is already used.
	CreateRoom(ctx context.Context, token, name string, createdBy *int64) (*Room, error)

	// GetRoomByToken retrieves a room by its external token.
	GetRoomByToken(ctx context.Context, token string) (*Room, error)

	// GetRoomByID retrieves a room by its internal ID.
	GetRoomByID(ctx context.Context, id int64) (*Room, error)

	// ListRooms lists all rooms in creation order.
	ListRooms(ctx context.Context) ([]*Room, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// CreateMessage inserts a message stamped with the current time.
	CreateMessage(ctx context.Context, roomID int64, userName, content string, userID *int64) (*Message, error)

	// GetMessage retrieves a message by ID.
	GetMessage(ctx context.Context, id int64) (*Message, error)

	// ListMessages returns messages of a room in ascending creation order.
	// Without afterID the newest limit messages are returned; with afterID the
	// oldest limit messages whose ID is greater than afterID.
	// Limit is normalized with ClampLimit.
	ListMessages(ctx context.Context, roomID int64, limit int, afterID *int64) ([]*Message, error)

	// DeleteMessage removes a message by ID. Returns ErrNotFound if nothing was deleted.
	DeleteMessage(ctx context.Context, id int64) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	RoomStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}

// ClampLimit normalizes a requested page size into [1, MaxMessageLimit].
// Zero selects DefaultMessageLimit.
func ClampLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultMessageLimit
	case limit < 1:
		return 1
	case limit > MaxMessageLimit:
		return MaxMessageLimit
	default:
		return limit
	}
}
