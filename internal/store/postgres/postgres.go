// Package postgres implements store.Store on PostgreSQL through bun and the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/vovakirdan/roomchat-server/internal/store"
)

type userModel struct {
	bun.BaseModel `bun:"table:users"`

	ID           int64 `bun:",pk,autoincrement"`
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type roomModel struct {
	bun.BaseModel `bun:"table:rooms"`

	ID        int64 `bun:",pk,autoincrement"`
	Token     string
	Name      string
	CreatedBy *int64
	CreatedAt time.Time
}

type messageModel struct {
	bun.BaseModel `bun:"table:messages"`

	ID        int64 `bun:",pk,autoincrement"`
	RoomID    int64
	UserID    *int64
	UserName  string
	Content   string
	CreatedAt time.Time
}

// Option configures Open.
type Option func(*options)

type options struct {
	debugWriter io.Writer
}

// WithQueryLog logs every query bun executes to w.
func WithQueryLog(w io.Writer) Option {
	return func(o *options) { o.debugWriter = w }
}

// Store implements store.Store for PostgreSQL.
type Store struct {
	db *bun.DB
}

// Open connects to the database at uri and verifies the connection.
func Open(ctx context.Context, uri string, opts ...Option) (*Store, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	dbConfig, err := pgx.ParseConfig(uri)
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres uri: %w", err)
	}

	sqldb := stdlib.OpenDB(*dbConfig)
	db := bun.NewDB(sqldb, pgdialect.New())

	if o.debugWriter != nil {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.WithWriter(o.debugWriter),
		))
	}

	if _, err := db.ExecContext(ctx, "SELECT 1"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to test database connection: %w", err)
	}

	return &Store{db: db}, nil
}

// DB exposes the underlying handle for migrations.
func (s *Store) DB() *sql.DB {
	return s.db.DB
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func mapError(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return fmt.Errorf("%s: %w", what, store.ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func now() time.Time {
	return time.Now().UTC()
}

// CreateUser creates a new user with hashed password.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	m := userModel{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now(),
	}
	if _, err := s.db.NewInsert().Model(&m).Returning("id").Exec(ctx); err != nil {
		return nil, mapError("insert user", err)
	}
	return m.toUser(), nil
}

// GetUserByID retrieves a user by ID.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	var m userModel
	if err := s.db.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, mapError("user", err)
	}
	return m.toUser(), nil
}

// GetUserByUsername retrieves a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	var m userModel
	if err := s.db.NewSelect().Model(&m).Where("username = ?", username).Scan(ctx); err != nil {
		return nil, mapError("user", err)
	}
	return m.toUser(), nil
}

// CreateRoom inserts a new room.
func (s *Store) CreateRoom(ctx context.Context, token, name string, createdBy *int64) (*store.Room, error) {
	m := roomModel{
		Token:     token,
		Name:      name,
		CreatedBy: createdBy,
		CreatedAt: now(),
	}
	if _, err := s.db.NewInsert().Model(&m).Returning("id").Exec(ctx); err != nil {
		return nil, mapError("insert room", err)
	}
	return m.toRoom(), nil
}

// GetRoomByToken retrieves a room by its external token.
func (s *Store) GetRoomByToken(ctx context.Context, token string) (*store.Room, error) {
	var m roomModel
	if err := s.db.NewSelect().Model(&m).Where("token = ?", token).Scan(ctx); err != nil {
		return nil, mapError("room", err)
	}
	return m.toRoom(), nil
}

// GetRoomByID retrieves a room by ID.
func (s *Store) GetRoomByID(ctx context.Context, id int64) (*store.Room, error) {
	var m roomModel
	if err := s.db.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, mapError("room", err)
	}
	return m.toRoom(), nil
}

// ListRooms lists all rooms in creation order.
func (s *Store) ListRooms(ctx context.Context) ([]*store.Room, error) {
	var models []roomModel
	if err := s.db.NewSelect().Model(&models).Order("id ASC").Scan(ctx); err != nil {
		return nil, mapError("query rooms", err)
	}
	rooms := make([]*store.Room, 0, len(models))
	for i := range models {
		rooms = append(rooms, models[i].toRoom())
	}
	return rooms, nil
}

// CreateMessage inserts a message stamped with the current time.
func (s *Store) CreateMessage(ctx context.Context, roomID int64, userName, content string, userID *int64) (*store.Message, error) {
	m := messageModel{
		RoomID:    roomID,
		UserID:    userID,
		UserName:  userName,
		Content:   content,
		CreatedAt: now(),
	}
	if _, err := s.db.NewInsert().Model(&m).Returning("id").Exec(ctx); err != nil {
		return nil, mapError("insert message", err)
	}
	return m.toMessage(), nil
}

// GetMessage retrieves a message by ID.
func (s *Store) GetMessage(ctx context.Context, id int64) (*store.Message, error) {
	var m messageModel
	if err := s.db.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, mapError("message", err)
	}
	return m.toMessage(), nil
}

// ListMessages returns messages of a room in ascending creation order.
func (s *Store) ListMessages(ctx context.Context, roomID int64, limit int, afterID *int64) ([]*store.Message, error) {
	limit = store.ClampLimit(limit)

	var models []messageModel
	q := s.db.NewSelect().Model(&models).Where("room_id = ?", roomID).Limit(limit)
	if afterID != nil {
		q = q.Where("id > ?", *afterID).Order("created_at ASC", "id ASC")
	} else {
		q = q.Order("created_at DESC", "id DESC")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, mapError("query messages", err)
	}

	messages := make([]*store.Message, len(models))
	for i := range models {
		if afterID == nil {
			// newest first from the query; flip to chronological
			messages[len(models)-1-i] = models[i].toMessage()
		} else {
			messages[i] = models[i].toMessage()
		}
	}
	return messages, nil
}

// DeleteMessage removes a message by ID.
func (s *Store) DeleteMessage(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*messageModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return mapError("delete message", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("message: %w", store.ErrNotFound)
	}
	return nil
}

func (m *userModel) toUser() *store.User {
	return &store.User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
	}
}

func (m *roomModel) toRoom() *store.Room {
	return &store.Room{
		ID:        m.ID,
		Token:     m.Token,
		Name:      m.Name,
		CreatedBy: m.CreatedBy,
		CreatedAt: m.CreatedAt,
	}
}

func (m *messageModel) toMessage() *store.Message {
	return &store.Message{
		ID:        m.ID,
		RoomID:    m.RoomID,
		UserID:    m.UserID,
		UserName:  m.UserName,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}
