package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat-server/internal/chat"
)

// RoomHandlers serves the plain REST room endpoints used by simple clients.
type RoomHandlers struct {
	chat *chat.Service
	log  *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(chatService *chat.Service, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		chat: chatService,
		log:  logger,
	}
}

// CreateRoomRequest represents the create room request body.
type CreateRoomRequest struct {
	Name string `json:"name"`
}

// RoomResponse represents a created room. ID is the shareable room token.
type RoomResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateRoom handles room creation.
// POST /rooms
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name required"})
		return
	}

	out, err := h.chat.CreateRoom(c.Request.Context(), chat.CreateRoomInput{Name: req.Name})
	if err != nil {
		chatErr := chat.AsError(err)
		c.JSON(chatErr.HTTPStatus(), ErrorResponse{Error: chatErr.Message})
		return
	}

	c.JSON(http.StatusCreated, RoomResponse{ID: out.RoomID, Name: out.Name})
}

// ListRooms lists every room.
// GET /rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	rooms, err := h.chat.ListRooms(c.Request.Context())
	if err != nil {
		chatErr := chat.AsError(err)
		c.JSON(chatErr.HTTPStatus(), ErrorResponse{Error: chatErr.Message})
		return
	}

	h.log.Debug().Int("room_count", len(rooms)).Msg("rooms listed")
	c.JSON(http.StatusOK, rooms)
}
