package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat-server/internal/broker"
)

type clientCommand struct {
	client *Client
	cmd    *Command
}

type membershipQuery struct {
	client *Client
	room   string
	reply  chan bool
}

// Hub coordinates realtime clients and rooms. All client and room state is
// owned by the goroutine running Run; other goroutines talk to it through channels.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	inbox      chan clientCommand
	broadcast  chan *Event
	queries    chan membershipQuery
	done       chan struct{}

	clients map[*Client]struct{}
	rooms   map[string]*Room
	log     *zerolog.Logger
}

// NewHub creates a new hub. Call Run to start it.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbox:      make(chan clientCommand, 64),
		broadcast:  make(chan *Event, 256),
		queries:    make(chan membershipQuery),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]*Room),
		log:        logger,
	}
}

// Run processes hub traffic until ctx is done. Every registered client's
// Events channel is closed on return.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.Events)
			}
			h.rooms = make(map[string]*Room)
			return nil

		case c := <-h.register:
			h.clients[c] = struct{}{}
			go h.pump(ctx, c)
			h.log.Debug().Str("client", c.ID).Msg("client registered")

		case c := <-h.unregister:
			h.removeClient(c)

		case in := <-h.inbox:
			if _, ok := h.clients[in.client]; ok {
				h.handleCommand(in.client, in.cmd)
			}
			if in.cmd.Done != nil {
				close(in.cmd.Done)
			}

		case ev := <-h.broadcast:
			room := h.rooms[ev.Room]
			if room == nil {
				continue
			}
			if dropped := room.Broadcast(ev); dropped > 0 {
				h.log.Warn().Str("room", ev.Room).Int("dropped", dropped).Msg("slow consumers missed event")
			}

		case q := <-h.queries:
			_, registered := h.clients[q.client]
			_, member := q.client.Rooms[q.room]
			q.reply <- registered && member
		}
	}
}

// RegisterClient adds a client and starts forwarding its commands.
// Returns false if the hub is no longer running.
func (h *Hub) RegisterClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// UnregisterClient removes a client from every room and closes its Events channel.
// The caller should close c.Commands afterwards.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// InRoom reports whether c has joined the room.
func (h *Hub) InRoom(ctx context.Context, c *Client, room string) bool {
	q := membershipQuery{client: c, room: room, reply: make(chan bool, 1)}
	select {
	case h.queries <- q:
	case <-h.done:
		return false
	case <-ctx.Done():
		return false
	}
	select {
	case ok := <-q.reply:
		return ok
	case <-h.done:
		return false
	}
}

// Publish delivers ev to the members of ev.Room.
func (h *Hub) Publish(ctx context.Context, ev *Event) error {
	select {
	case h.broadcast <- ev:
		return nil
	case <-h.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Relay forwards broker events into the hub until events is closed or ctx is done.
func (h *Hub) Relay(ctx context.Context, events <-chan *broker.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case bev, ok := <-events:
			if !ok {
				return nil
			}
			ev, err := EventFromBroker(bev)
			if err != nil {
				h.log.Warn().Err(err).Str("room", bev.Room).Msg("skipping broker event")
				continue
			}
			if err := h.Publish(ctx, ev); err != nil {
				return nil
			}
		}
	}
}

func (h *Hub) pump(ctx context.Context, c *Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-c.Commands:
			if !ok {
				return
			}
			if cmd == nil {
				continue
			}
			select {
			case h.inbox <- clientCommand{client: c, cmd: cmd}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (h *Hub) handleCommand(c *Client, cmd *Command) {
	if cmd.Room == "" {
		h.sendError(c, cmd.Room, ErrCodeBadRequest, "room is required")
		return
	}

	switch cmd.Kind {
	case CommandJoinRoom:
		h.join(c, cmd.Room)
	case CommandLeaveRoom:
		h.leave(c, cmd.Room)
	default:
		h.sendError(c, cmd.Room, ErrCodeBadRequest, "unknown command")
	}
}

func (h *Hub) join(c *Client, token string) {
	if _, joined := c.Rooms[token]; joined {
		h.sendError(c, token, ErrCodeAlreadyJoined, "already joined")
		return
	}

	room := h.rooms[token]
	if room == nil {
		room = NewRoom(token)
		h.rooms[token] = room
	}
	room.AddClient(c)
	c.Rooms[token] = struct{}{}

	h.send(c, &Event{Kind: EventJoined, Room: token, User: c.Name, ClientID: c.ID})
	room.Broadcast(&Event{Kind: EventUserJoined, Room: token, User: c.Name, ClientID: c.ID})

	h.log.Debug().Str("client", c.ID).Str("room", token).Int("members", room.Len()).Msg("joined room")
}

func (h *Hub) leave(c *Client, token string) {
	room := h.rooms[token]
	if room == nil {
		h.sendError(c, token, ErrCodeRoomNotFound, "room not found")
		return
	}
	if _, joined := c.Rooms[token]; !joined {
		h.sendError(c, token, ErrCodeNotInRoom, "not in room")
		return
	}

	// the leaver gets user_left too, as its acknowledgement
	room.Broadcast(&Event{Kind: EventUserLeft, Room: token, User: c.Name, ClientID: c.ID})
	h.detach(c, room)
}

func (h *Hub) removeClient(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	for token := range c.Rooms {
		room := h.rooms[token]
		if room == nil {
			continue
		}
		h.detach(c, room)
		room.Broadcast(&Event{Kind: EventUserLeft, Room: token, User: c.Name, ClientID: c.ID})
	}
	delete(h.clients, c)
	close(c.Events)
	h.log.Debug().Str("client", c.ID).Msg("client unregistered")
}

func (h *Hub) detach(c *Client, room *Room) {
	room.RemoveClient(c)
	delete(c.Rooms, room.Token)
	if room.Empty() {
		delete(h.rooms, room.Token)
	}
}

func (h *Hub) sendError(c *Client, room, code, msg string) {
	h.send(c, &Event{Kind: EventError, Room: room, Error: NewError(code, msg)})
}

func (h *Hub) send(c *Client, ev *Event) {
	select {
	case c.Events <- ev:
	default:
		h.log.Warn().Str("client", c.ID).Str("event", ev.Kind.String()).Msg("dropping event for slow client")
	}
}
