// Package proto defines the JSON envelopes exchanged over the /ws socket.
package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoin    = "join"
	InboundTypeLeave   = "leave"
	InboundTypeMessage = "message"
	// InboundTypeMsg is the short alias of InboundTypeMessage.
	InboundTypeMsg = "msg"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// Outbound event names.
const (
	EventNameMessage        = "message"
	EventNameMessageDeleted = "message_deleted"
	EventNameJoined         = "joined"
	EventNameUserJoined     = "user_joined"
	EventNameUserLeft       = "user_left"
)

// JoinData requests to join or leave a specific room.
type JoinData struct {
	Room string `json:"room"`
}

// MessageData is a chat message from the client. User is the display name.
type MessageData struct {
	Room string `json:"room"`
	Text string `json:"text"`
	User string `json:"user"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventMessage carries a committed message.
type EventMessage struct {
	ID   int64  `json:"id"`
	Room string `json:"room"`
	User string `json:"user"`
	Text string `json:"text"`
	TS   int64  `json:"ts"` // unix milliseconds
}

// EventMessageDeleted notifies that a message was removed.
type EventMessageDeleted struct {
	ID   int64  `json:"id"`
	Room string `json:"room"`
}

// EventJoined acknowledges a join to the joining socket.
type EventJoined struct {
	ID   string `json:"id"`
	Room string `json:"room"`
}

// EventUserJoined notifies that a user joined a room.
type EventUserJoined struct {
	Room string `json:"room"`
	User string `json:"user"`
}

// EventUserLeft notifies that a user left a room.
type EventUserLeft struct {
	Room string `json:"room"`
	User string `json:"user"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
