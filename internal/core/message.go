package core

import "time"

// Message is a committed chat message as delivered to realtime clients.
type Message struct {
	ID        int64
	Room      string
	UserID    *int64
	From      string
	Text      string
	CreatedAt time.Time
}
