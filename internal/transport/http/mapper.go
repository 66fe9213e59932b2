package http

import (
	"encoding/json"
	"strings"

	"github.com/vovakirdan/roomchat-server/internal/chat"
	"github.com/vovakirdan/roomchat-server/internal/core"
	"github.com/vovakirdan/roomchat-server/internal/proto"
)

var errInvalidPayload = &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid payload"}

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	var kind core.CommandKind
	switch inbound.Type {
	case proto.InboundTypeJoin:
		kind = core.CommandJoinRoom
	case proto.InboundTypeLeave:
		kind = core.CommandLeaveRoom
	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}
	}

	var data proto.JoinData
	if err := json.Unmarshal(inbound.Data, &data); err != nil {
		return nil, errInvalidPayload
	}
	room := strings.TrimSpace(data.Room)
	if room == "" {
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room is required"}
	}
	return &core.Command{Kind: kind, Room: room}, nil
}

// inboundToMessage builds the send input for a socket message. The display
// name falls back to the name the client connected with.
func inboundToMessage(client *core.Client, inbound proto.Inbound) (chat.SendMessageInput, *proto.Error) {
	var data proto.MessageData
	if err := json.Unmarshal(inbound.Data, &data); err != nil {
		return chat.SendMessageInput{}, errInvalidPayload
	}
	room := strings.TrimSpace(data.Room)
	if room == "" {
		return chat.SendMessageInput{}, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room is required"}
	}
	user := data.User
	if user == "" {
		user = client.Name
	}
	return chat.SendMessageInput{RoomID: room, UserName: user, Content: data.Text}, nil
}

// protoErrorFromChat converts a chat.Error into the socket error vocabulary.
func protoErrorFromChat(err error) *proto.Error {
	chatErr := chat.AsError(err)
	code := core.ErrCodeInternal
	switch chatErr.Code {
	case chat.CodeBadRequest:
		code = core.ErrCodeBadRequest
	case chat.CodeNotFound:
		code = core.ErrCodeRoomNotFound
	case chat.CodeUnauthorized, chat.CodeForbidden:
		code = core.ErrCodeUnauthorized
	}
	return &proto.Error{Code: code, Msg: chatErr.Message}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventRoomMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameMessage,
			Data: proto.EventMessage{
				ID:   event.Message.ID,
				Room: event.Message.Room,
				User: event.Message.From,
				Text: event.Message.Text,
				TS:   event.Message.CreatedAt.UnixMilli(),
			},
		}
	case core.EventMessageDeleted:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameMessageDeleted,
			Data:  proto.EventMessageDeleted{ID: event.MessageID, Room: event.Room},
		}
	case core.EventJoined:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameJoined,
			Data:  proto.EventJoined{ID: event.ClientID, Room: event.Room},
		}
	case core.EventUserJoined:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameUserJoined,
			Data:  proto.EventUserJoined{Room: event.Room, User: event.User},
		}
	case core.EventUserLeft:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameUserLeft,
			Data:  proto.EventUserLeft{Room: event.Room, User: event.User},
		}
	case core.EventError:
		if event.Error == nil {
			return errorOutbound(&proto.Error{Code: "unknown", Msg: "unknown error"})
		}
		return errorOutbound(&proto.Error{Code: event.Error.Code, Msg: event.Error.Message})
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func errorOutbound(err *proto.Error) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeError, Error: err}
}
