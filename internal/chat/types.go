package chat

import (
	"time"

	"github.com/samber/lo"

	"github.com/vovakirdan/roomchat-server/internal/store"
)

// CreateRoomInput is the argument of CreateRoom.
type CreateRoomInput struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
}

// CreateRoomOutput returns the shareable token of the new room.
type CreateRoomOutput struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

// GetRoomInput is the argument of GetRoom.
type GetRoomInput struct {
	RoomID string `json:"roomId" validate:"required"`
}

// SendMessageInput is the argument of SendMessage.
type SendMessageInput struct {
	RoomID   string `json:"roomId" validate:"required"`
	UserName string `json:"userName" validate:"required,min=1,max=255"`
	Content  string `json:"content" validate:"required,min=1,max=5000"`
}

// SendMessageOutput is the result of SendMessage.
type SendMessageOutput struct {
	Success bool        `json:"success"`
	Message MessageView `json:"message"`
}

// GetMessagesInput is the argument of GetMessages. Limit 0 selects the default page size.
type GetMessagesInput struct {
	RoomID  string `json:"roomId" validate:"required"`
	Limit   int    `json:"limit"`
	AfterID *int64 `json:"afterId,omitempty"`
}

// DeleteMessageInput is the argument of DeleteMessage.
type DeleteMessageInput struct {
	MessageID int64 `json:"messageId" validate:"gt=0"`
}

// DeleteMessageOutput is the result of DeleteMessage.
type DeleteMessageOutput struct {
	Success bool `json:"success"`
}

// RoomView is the client representation of a room.
type RoomView struct {
	ID        int64     `json:"id"`
	RoomID    string    `json:"roomId"`
	Name      string    `json:"name"`
	CreatedBy *int64    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageView is the client representation of a message.
type MessageView struct {
	ID        int64     `json:"id"`
	RoomID    int64     `json:"roomId"`
	UserID    *int64    `json:"userId"`
	UserName  string    `json:"userName"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func roomView(r *store.Room) RoomView {
	return RoomView{
		ID:        r.ID,
		RoomID:    r.Token,
		Name:      r.Name,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
	}
}

func messageView(m *store.Message) MessageView {
	return MessageView{
		ID:        m.ID,
		RoomID:    m.RoomID,
		UserID:    m.UserID,
		UserName:  m.UserName,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func messageViews(msgs []*store.Message) []MessageView {
	return lo.Map(msgs, func(m *store.Message, _ int) MessageView {
		return messageView(m)
	})
}
