package client

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/roomchat-server/internal/chat"
)

// Session is an interactive room session: it polls the room and sends every
// non-empty input line as a message under the local display name.
type Session struct {
	client   *Client
	roomID   string
	userName string
	poller   *Poller
	render   *Renderer
	log      *zerolog.Logger
}

// NewSession creates a session for roomID as userName.
func NewSession(c *Client, roomID, userName string, interval time.Duration, render *Renderer, logger *zerolog.Logger) *Session {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Session{
		client:   c,
		roomID:   roomID,
		userName: userName,
		poller:   NewPoller(c, roomID, interval, logger),
		render:   render,
		log:      logger,
	}
}

// Run blocks until ctx is done or in is exhausted.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.poller.Run(gctx, s.render.Render)
	})
	g.Go(func() error {
		defer cancel()
		return s.inputLoop(gctx, in)
	})
	return g.Wait()
}

// Send posts text to the room. On failure nothing local changes; the error is
// logged and returned.
func (s *Session) Send(ctx context.Context, text string) error {
	_, err := s.client.SendMessage(ctx, chat.SendMessageInput{
		RoomID:   s.roomID,
		UserName: s.userName,
		Content:  text,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("room", s.roomID).Msg("send message")
		return err
	}
	s.poller.Refresh()
	return nil
}

func (s *Session) inputLoop(ctx context.Context, in io.Reader) error {
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
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if err := s.Send(ctx, text); err != nil {
				s.render.Info("message not sent: %v", err)
			}
		}
	}
}
