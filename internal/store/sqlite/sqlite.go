package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/roomchat-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, nil)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply the schema on an in-memory database.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying handle for migrations.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func now() time.Time {
	return time.Now().UTC()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash, created_at)
		VALUES (?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, passwordHash, now())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert user: %w", store.ErrConflict)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, username))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// ==== RoomStore implementation ====

// CreateRoom inserts a new room.
func (s *SQLiteStore) CreateRoom(ctx context.Context, token, name string, createdBy *int64) (*store.Room, error) {
	query := `
		INSERT INTO rooms (token, name, created_by, created_at)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, token, name, createdBy, now())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert room: %w", store.ErrConflict)
		}
		return nil, fmt.Errorf("insert room: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetRoomByID(ctx, id)
}

// GetRoomByToken retrieves a room by its external token.
func (s *SQLiteStore) GetRoomByToken(ctx context.Context, token string) (*store.Room, error) {
	query := `
		SELECT id, token, name, created_by, created_at
		FROM rooms
		WHERE token = ?
	`
	return scanRoom(s.db.QueryRowContext(ctx, query, token))
}

// GetRoomByID retrieves a room by ID.
func (s *SQLiteStore) GetRoomByID(ctx context.Context, id int64) (*store.Room, error) {
	query := `
		SELECT id, token, name, created_by, created_at
		FROM rooms
		WHERE id = ?
	`
	return scanRoom(s.db.QueryRowContext(ctx, query, id))
}

// ListRooms lists all rooms in creation order.
func (s *SQLiteStore) ListRooms(ctx context.Context) ([]*store.Room, error) {
	query := `
		SELECT id, token, name, created_by, created_at
		FROM rooms
		ORDER BY id ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*store.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRoom(row scanner) (*store.Room, error) {
	var room store.Room
	var createdBy sql.NullInt64
	err := row.Scan(&room.ID, &room.Token, &room.Name, &createdBy, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query room: %w", err)
	}

	if createdBy.Valid {
		room.CreatedBy = &createdBy.Int64
	}

	return &room, nil
}

// ==== MessageStore implementation ====

// CreateMessage inserts a message stamped with the current time.
func (s *SQLiteStore) CreateMessage(ctx context.Context, roomID int64, userName, content string, userID *int64) (*store.Message, error) {
	query := `
		INSERT INTO messages (room_id, user_id, user_name, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	msg := &store.Message{
		RoomID:    roomID,
		UserID:    userID,
		UserName:  userName,
		Content:   content,
		CreatedAt: now(),
	}
	result, err := s.db.ExecContext(ctx, query, msg.RoomID, msg.UserID, msg.UserName, msg.Content, msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	msg.ID = id
	return msg, nil
}

// GetMessage retrieves a message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (*store.Message, error) {
	query := `
		SELECT id, room_id, user_id, user_name, content, created_at
		FROM messages
		WHERE id = ?
	`
	return scanMessage(s.db.QueryRowContext(ctx, query, id))
}

// ListMessages returns messages of a room in ascending creation order.
func (s *SQLiteStore) ListMessages(ctx context.Context, roomID int64, limit int, afterID *int64) ([]*store.Message, error) {
	limit = store.ClampLimit(limit)

	var query string
	var args []interface{}

	if afterID != nil {
		query = `
			SELECT id, room_id, user_id, user_name, content, created_at
			FROM messages
			WHERE room_id = ? AND id > ?
			ORDER BY created_at ASC, id ASC
			LIMIT ?
		`
		args = []interface{}{roomID, *afterID, limit}
	} else {
		query = `
			SELECT id, room_id, user_id, user_name, content, created_at
			FROM messages
			WHERE room_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		`
		args = []interface{}{roomID, limit}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if afterID == nil {
		// Reverse to get chronological order
		for i := range len(messages) / 2 {
			messages[i], messages[len(messages)-1-i] = messages[len(messages)-1-i], messages[i]
		}
	}

	return messages, nil
}

// DeleteMessage removes a message by ID.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("message: %w", store.ErrNotFound)
	}
	return nil
}

func scanMessage(row scanner) (*store.Message, error) {
	var msg store.Message
	var userID sql.NullInt64
	err := row.Scan(&msg.ID, &msg.RoomID, &userID, &msg.UserName, &msg.Content, &msg.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query message: %w", err)
	}
	if userID.Valid {
		msg.UserID = &userID.Int64
	}
	return &msg, nil
}
