package core

import (
	"fmt"

	"github.com/vovakirdan/roomchat-server/internal/broker"
)

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventRoomMessage notifies clients about a committed chat message in a room.
	EventRoomMessage EventKind = iota
	// EventMessageDeleted notifies clients that a message was removed.
	EventMessageDeleted
	// EventJoined acknowledges a join to the joining client only.
	EventJoined
	// EventUserJoined notifies clients about a user joining a room.
	EventUserJoined
	// EventUserLeft notifies clients about a user leaving a room.
	EventUserLeft
	// EventError notifies clients about a domain error.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventRoomMessage:
		return "message"
	case EventMessageDeleted:
		return "message_deleted"
	case EventJoined:
		return "joined"
	case EventUserJoined:
		return "user_joined"
	case EventUserLeft:
		return "user_left"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind      EventKind
	Room      string
	User      string
	ClientID  string
	Message   Message
	MessageID int64 // EventMessageDeleted
	Error     *CoreError
}

// EventFromBroker converts a broker event into the event delivered to room members.
func EventFromBroker(ev *broker.Event) (*Event, error) {
	switch ev.Type {
	case broker.EventMessage:
		var p broker.MessagePayload
		if err := ev.UnmarshalPayload(&p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", ev.Type, err)
		}
		return &Event{
			Kind: EventRoomMessage,
			Room: ev.Room,
			User: p.UserName,
			Message: Message{
				ID:        p.ID,
				Room:      ev.Room,
				UserID:    p.UserID,
				From:      p.UserName,
				Text:      p.Content,
				CreatedAt: p.CreatedAt,
			},
		}, nil
	case broker.EventMessageDeleted:
		var p broker.MessageDeletedPayload
		if err := ev.UnmarshalPayload(&p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", ev.Type, err)
		}
		return &Event{Kind: EventMessageDeleted, Room: ev.Room, MessageID: p.ID}, nil
	default:
		return nil, fmt.Errorf("unknown broker event type %q", ev.Type)
	}
}
