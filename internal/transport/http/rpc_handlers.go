package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat-server/internal/auth"
	"github.com/vovakirdan/roomchat-server/internal/chat"
)

// RPCHandlers exposes chat.Service procedures as /rpc/<procedure> endpoints.
type RPCHandlers struct {
	chat *chat.Service
	log  *zerolog.Logger
}

// NewRPCHandlers creates a new RPC handlers instance.
func NewRPCHandlers(chatService *chat.Service, logger *zerolog.Logger) *RPCHandlers {
	return &RPCHandlers{
		chat: chatService,
		log:  logger,
	}
}

// RPCResponse is the success envelope.
type RPCResponse struct {
	Result any `json:"result"`
}

// RPCErrorResponse is the failure envelope.
type RPCErrorResponse struct {
	Error RPCError `json:"error"`
}

// RPCError carries a client-facing error code and message.
type RPCError struct {
	Code    chat.Code `json:"code"`
	Message string    `json:"message"`
}

// MeResponse describes the authenticated caller.
type MeResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// CreateRoom handles POST /rpc/chat.createRoom.
func (h *RPCHandlers) CreateRoom(c *gin.Context) {
	var in chat.CreateRoomInput
	if !bindJSON(c, &in) {
		return
	}
	out, err := h.chat.CreateRoom(c.Request.Context(), in)
	respond(c, out, err)
}

// GetRoom handles GET /rpc/chat.getRoom?roomId=.
func (h *RPCHandlers) GetRoom(c *gin.Context) {
	out, err := h.chat.GetRoom(c.Request.Context(), chat.GetRoomInput{RoomID: c.Query("roomId")})
	respond(c, out, err)
}

// SendMessage handles POST /rpc/chat.sendMessage.
func (h *RPCHandlers) SendMessage(c *gin.Context) {
	var in chat.SendMessageInput
	if !bindJSON(c, &in) {
		return
	}
	out, err := h.chat.SendMessage(c.Request.Context(), in)
	respond(c, out, err)
}

// GetMessages handles GET /rpc/chat.getMessages?roomId=&limit=&afterId=.
func (h *RPCHandlers) GetMessages(c *gin.Context) {
	in := chat.GetMessagesInput{RoomID: c.Query("roomId")}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			abortRPC(c, chat.NewError(chat.CodeBadRequest, "limit must be an integer"))
			return
		}
		in.Limit = limit
	}
	if raw := c.Query("afterId"); raw != "" {
		afterID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			abortRPC(c, chat.NewError(chat.CodeBadRequest, "afterId must be an integer"))
			return
		}
		in.AfterID = &afterID
	}

	out, err := h.chat.GetMessages(c.Request.Context(), in)
	respond(c, out, err)
}

// DeleteMessage handles POST /rpc/chat.deleteMessage.
func (h *RPCHandlers) DeleteMessage(c *gin.Context) {
	var in chat.DeleteMessageInput
	if !bindJSON(c, &in) {
		return
	}
	out, err := h.chat.DeleteMessage(c.Request.Context(), in)
	respond(c, out, err)
}

// Me handles GET /rpc/auth.me.
func (h *RPCHandlers) Me(c *gin.Context) {
	claims, ok := auth.CallerFromContext(c.Request.Context())
	if !ok {
		abortRPC(c, chat.NewError(chat.CodeUnauthorized, "authentication required"))
		return
	}
	c.JSON(http.StatusOK, RPCResponse{Result: MeResponse{ID: claims.UserID, Username: claims.Username}})
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		abortRPC(c, chat.NewError(chat.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

func respond(c *gin.Context, result any, err error) {
	if err != nil {
		abortRPC(c, err)
		return
	}
	c.JSON(http.StatusOK, RPCResponse{Result: result})
}

func abortRPC(c *gin.Context, err error) {
	chatErr := chat.AsError(err)
	c.AbortWithStatusJSON(chatErr.HTTPStatus(), RPCErrorResponse{
		Error: RPCError{Code: chatErr.Code, Message: chatErr.Message},
	})
}
