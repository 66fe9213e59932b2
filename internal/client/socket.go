package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat-server/internal/chat"
	"github.com/vovakirdan/roomchat-server/internal/proto"
)

// LiveSession follows a room over the /ws socket instead of polling.
type LiveSession struct {
	wsURL    string
	roomID   string
	userName string
	render   *Renderer
	log      *zerolog.Logger
}

// NewLiveSession creates a socket session. baseURL is the server's http(s) address.
func NewLiveSession(baseURL, roomID, userName, token string, render *Renderer, logger *zerolog.Logger) (*LiveSession, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/ws")
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("user", userName)
	if token != "" {
		q.Set("token", token)
	}
	u.RawQuery = q.Encode()

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &LiveSession{
		wsURL:    u.String(),
		roomID:   roomID,
		userName: userName,
		render:   render,
		log:      logger,
	}, nil
}

// Run joins the room, prints events and sends input lines until ctx is done or in is exhausted.
func (s *LiveSession) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := s.send(ctx, conn, proto.InboundTypeJoin, proto.JoinData{Room: s.roomID}); err != nil {
		return err
	}

	go func() {
		defer cancel()
		s.readLoop(ctx, conn)
	}()

	s.writeLoop(ctx, conn, in)
	return nil
}

func (s *LiveSession) send(ctx context.Context, conn *websocket.Conn, typ string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

type inboundFrame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func (s *LiveSession) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var frame inboundFrame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			// expected shutdowns stay quiet
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			s.log.Warn().Err(err).Msg("read error")
			return
		}

		if frame.Type == proto.OutboundTypeError && frame.Error != nil {
			s.render.Info("error %s: %s", frame.Error.Code, frame.Error.Msg)
			continue
		}

		switch frame.Event {
		case proto.EventNameMessage:
			var evt proto.EventMessage
			if err := json.Unmarshal(frame.Data, &evt); err != nil {
				s.log.Warn().Err(err).Msg("unmarshal message")
				continue
			}
			s.render.Render([]chat.MessageView{{
				ID:        evt.ID,
				UserName:  evt.User,
				Content:   evt.Text,
				CreatedAt: time.UnixMilli(evt.TS),
			}})
		case proto.EventNameJoined:
			s.render.Info("joined room %s", s.roomID)
		case proto.EventNameUserJoined:
			var evt proto.EventUserJoined
			if err := json.Unmarshal(frame.Data, &evt); err == nil && evt.User != s.userName {
				s.render.Info("%s joined", evt.User)
			}
		case proto.EventNameUserLeft:
			var evt proto.EventUserLeft
			if err := json.Unmarshal(frame.Data, &evt); err == nil {
				s.render.Info("%s left", evt.User)
			}
		case proto.EventNameMessageDeleted:
			var evt proto.EventMessageDeleted
			if err := json.Unmarshal(frame.Data, &evt); err == nil {
				s.render.Info("message %d deleted", evt.ID)
			}
		}
	}
}

func (s *LiveSession) writeLoop(ctx context.Context, conn *websocket.Conn, in io.Reader) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			msg := proto.MessageData{Room: s.roomID, Text: text, User: s.userName}
			if err := s.send(ctx, conn, proto.InboundTypeMessage, msg); err != nil {
				s.log.Warn().Err(err).Msg("send error")
				return
			}
		}
	}
}
