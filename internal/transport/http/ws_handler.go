package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat-server/internal/auth"
	"github.com/vovakirdan/roomchat-server/internal/chat"
	"github.com/vovakirdan/roomchat-server/internal/core"
	"github.com/vovakirdan/roomchat-server/internal/proto"
)

// WSHandler upgrades HTTP connections and bridges them to core.Client.
// Room membership lives in the hub; messages are written through chat.Service.
type WSHandler struct {
	hub          *core.Hub
	chat         *chat.Service
	auth         *auth.Service
	maxReadBytes int64
	log          *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, chatService *chat.Service, authService *auth.Service, maxReadBytes int64, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		hub:          hub,
		chat:         chatService,
		auth:         authService,
		maxReadBytes: maxReadBytes,
		log:          logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	// browsers cannot set headers on a socket handshake, so the token rides in the query
	if token := r.URL.Query().Get("token"); token != "" && h.auth != nil {
		claims, err := h.auth.ValidateToken(token)
		if err != nil {
			h.log.Debug().Err(err).Msg("ws invalid token")
			stdhttp.Error(w, "invalid token", stdhttp.StatusUnauthorized)
			return
		}
		ctx = auth.WithCaller(ctx, claims)
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.maxReadBytes > 0 {
		conn.SetReadLimit(h.maxReadBytes)
	}

	client := core.NewClient(xid.New().String(), r.URL.Query().Get("user"))
	if !h.hub.RegisterClient(client) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer func() {
		h.hub.UnregisterClient(client)
		close(client.Commands)
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			h.log.Debug().Err(err).Str("client_id", client.ID).Msg("read ws inbound")
			return err
		}

		var protoErr *proto.Error
		switch inbound.Type {
		case proto.InboundTypeMessage, proto.InboundTypeMsg:
			protoErr = h.handleMessage(ctx, client, inbound)
		case proto.InboundTypeJoin:
			protoErr = h.handleJoin(ctx, client, inbound)
		default:
			var cmd *core.Command
			cmd, protoErr = inboundToCommand(inbound)
			if protoErr == nil {
				if err := h.apply(ctx, client, cmd); err != nil {
					return err
				}
			}
		}

		if protoErr != nil {
			if err := wsjson.Write(ctx, conn, errorOutbound(protoErr)); err != nil {
				return err
			}
		}
	}
}

// handleJoin checks the room exists before handing the join to the hub, so the
// hub goroutine never waits on the database.
func (h *WSHandler) handleJoin(ctx context.Context, client *core.Client, inbound proto.Inbound) *proto.Error {
	cmd, protoErr := inboundToCommand(inbound)
	if protoErr != nil {
		return protoErr
	}
	exists, err := h.chat.RoomExists(ctx, cmd.Room)
	if err != nil {
		return protoErrorFromChat(err)
	}
	if !exists {
		return &proto.Error{Code: core.ErrCodeRoomNotFound, Msg: "room not found"}
	}
	if err := h.apply(ctx, client, cmd); err != nil {
		return &proto.Error{Code: core.ErrCodeInternal, Msg: "connection closing"}
	}
	return nil
}

// handleMessage persists a socket message. The broadcast reaches the room,
// sender included, through the broker once the write has committed.
func (h *WSHandler) handleMessage(ctx context.Context, client *core.Client, inbound proto.Inbound) *proto.Error {
	in, protoErr := inboundToMessage(client, inbound)
	if protoErr != nil {
		return protoErr
	}
	if !h.hub.InRoom(ctx, client, in.RoomID) {
		return &proto.Error{Code: core.ErrCodeNotInRoom, Msg: "join the room before sending"}
	}
	if _, err := h.chat.SendMessage(ctx, in); err != nil {
		h.log.Debug().Err(err).Str("client_id", client.ID).Str("room", in.RoomID).Msg("ws send message")
		return protoErrorFromChat(err)
	}
	return nil
}

// apply hands cmd to the hub and waits until it has been applied, so a
// message read right after a join sees the new membership.
func (h *WSHandler) apply(ctx context.Context, client *core.Client, cmd *core.Command) error {
	cmd.Done = make(chan struct{})
	select {
	case client.Commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-cmd.Done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
