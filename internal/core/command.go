package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom subscribes the client to a room.
	CommandJoinRoom CommandKind = iota
	// CommandLeaveRoom unsubscribes the client from a room.
	CommandLeaveRoom
)

// Command represents an action requested by a client.
// Room is always a room token.
type Command struct {
	Kind CommandKind
	Room string
	// Done, when set, is closed by the hub once the command has been applied.
	Done chan struct{}
}
