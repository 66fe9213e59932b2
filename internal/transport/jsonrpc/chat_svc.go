// Package jsonrpc exposes the chat procedures as a JSON-RPC 2.0 service
// under the "chat" namespace (chat_createRoom, chat_getMessages, ...).
package jsonrpc

import (
	"context"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/vovakirdan/roomchat-server/internal/chat"
)

// Namespace is the JSON-RPC method prefix.
const Namespace = "chat"

// NewServer returns a JSON-RPC server with the chat service registered.
func NewServer(chatService *chat.Service) (*rpc.Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName(Namespace, NewChatService(chatService)); err != nil {
		return nil, err
	}
	return srv, nil
}

// NewChatService wraps svc for registration with an rpc.Server.
func NewChatService(svc *chat.Service) *ChatService {
	return &ChatService{svc: svc}
}

// ChatService adapts chat.Service to the method shape the rpc package expects.
type ChatService struct {
	svc *chat.Service
}

// CreateRoom serves chat_createRoom.
func (s *ChatService) CreateRoom(ctx context.Context, in chat.CreateRoomInput) (*chat.CreateRoomOutput, error) {
	out, err := s.svc.CreateRoom(ctx, in)
	return out, asRPCError(err)
}

// GetRoom serves chat_getRoom.
func (s *ChatService) GetRoom(ctx context.Context, in chat.GetRoomInput) (*chat.RoomView, error) {
	out, err := s.svc.GetRoom(ctx, in)
	return out, asRPCError(err)
}

// SendMessage serves chat_sendMessage.
func (s *ChatService) SendMessage(ctx context.Context, in chat.SendMessageInput) (*chat.SendMessageOutput, error) {
	out, err := s.svc.SendMessage(ctx, in)
	return out, asRPCError(err)
}

// GetMessages serves chat_getMessages.
func (s *ChatService) GetMessages(ctx context.Context, in chat.GetMessagesInput) ([]chat.MessageView, error) {
	out, err := s.svc.GetMessages(ctx, in)
	return out, asRPCError(err)
}

// DeleteMessage serves chat_deleteMessage. The caller comes from the request
// context, set by the HTTP auth middleware.
func (s *ChatService) DeleteMessage(ctx context.Context, in chat.DeleteMessageInput) (*chat.DeleteMessageOutput, error) {
	out, err := s.svc.DeleteMessage(ctx, in)
	return out, asRPCError(err)
}

// asRPCError returns the bare *chat.Error so the rpc package picks up its
// ErrorCode and ErrorData.
func asRPCError(err error) error {
	if err == nil {
		return nil
	}
	return chat.AsError(err)
}
