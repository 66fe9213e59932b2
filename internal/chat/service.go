// Package chat implements the room and message operations exposed over RPC.
package chat

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/roomchat-server/internal/auth"
	"github.com/vovakirdan/roomchat-server/internal/broker"
	"github.com/vovakirdan/roomchat-server/internal/store"
	"github.com/vovakirdan/roomchat-server/internal/utils"
)

// Repository is the persistence the chat service needs.
type Repository interface {
	store.RoomStore
	store.MessageStore
}

// Service implements the chat operations. Every write is persisted first and
// only then published, so realtime subscribers never see uncommitted state.
type Service struct {
	repo     Repository
	pub      broker.Publisher
	log      *zerolog.Logger
	newToken func() string
}

// NewService creates a chat service. pub may be nil when no realtime fan-out is wanted.
func NewService(repo Repository, pub broker.Publisher, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		repo:     repo,
		pub:      pub,
		log:      logger,
		newToken: utils.NewRoomToken,
	}
}

// CreateRoom creates a room owned by the caller, if any.
func (s *Service) CreateRoom(ctx context.Context, in CreateRoomInput) (*CreateRoomOutput, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	room, err := s.repo.CreateRoom(ctx, s.newToken(), in.Name, auth.CallerID(ctx))
	if err != nil {
		return nil, s.fail("create room", err)
	}

	s.log.Info().Str("room", room.Token).Str("name", room.Name).Msg("room created")
	return &CreateRoomOutput{RoomID: room.Token, Name: room.Name}, nil
}

// GetRoom resolves a room by its token.
func (s *Service) GetRoom(ctx context.Context, in GetRoomInput) (*RoomView, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	room, err := s.roomByToken(ctx, in.RoomID)
	if err != nil {
		return nil, err
	}
	view := roomView(room)
	return &view, nil
}

// ListRooms returns every room in creation order.
func (s *Service) ListRooms(ctx context.Context) ([]RoomView, error) {
	rooms, err := s.repo.ListRooms(ctx)
	if err != nil {
		return nil, s.fail("list rooms", err)
	}
	return lo.Map(rooms, func(r *store.Room, _ int) RoomView { return roomView(r) }), nil
}

// SendMessage validates and persists a message, then publishes it to the room.
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	room, err := s.roomByToken(ctx, in.RoomID)
	if err != nil {
		return nil, err
	}

	msg, err := s.repo.CreateMessage(ctx, room.ID, in.UserName, in.Content, auth.CallerID(ctx))
	if err != nil {
		return nil, s.fail("create message", err)
	}

	s.publish(ctx, broker.EventMessage, room.Token, broker.MessagePayload{
		ID:        msg.ID,
		Room:      room.Token,
		UserID:    msg.UserID,
		UserName:  msg.UserName,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	})

	return &SendMessageOutput{Success: true, Message: messageView(msg)}, nil
}

// GetMessages returns messages of a room ordered by creation time.
func (s *Service) GetMessages(ctx context.Context, in GetMessagesInput) ([]MessageView, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	room, err := s.roomByToken(ctx, in.RoomID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.repo.ListMessages(ctx, room.ID, in.Limit, in.AfterID)
	if err != nil {
		return nil, s.fail("list messages", err)
	}
	return messageViews(msgs), nil
}

// DeleteMessage removes a message. The caller must be authenticated and be
// either the author of the message or the creator of its room. Deleting a
// message that is already gone succeeds.
func (s *Service) DeleteMessage(ctx context.Context, in DeleteMessageInput) (*DeleteMessageOutput, error) {
	callerID := auth.CallerID(ctx)
	if callerID == nil {
		return nil, errUnauthorized
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	msg, err := s.repo.GetMessage(ctx, in.MessageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &DeleteMessageOutput{Success: true}, nil
		}
		return nil, s.fail("get message", err)
	}

	room, err := s.repo.GetRoomByID(ctx, msg.RoomID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, s.fail("get room", err)
	}

	if !sameID(msg.UserID, callerID) && (room == nil || !sameID(room.CreatedBy, callerID)) {
		s.log.Warn().Int64("message", msg.ID).Int64("caller", *callerID).Msg("delete denied")
		return nil, errForbidden
	}

	if err := s.repo.DeleteMessage(ctx, msg.ID); err != nil {
		// lost a race with another delete
		if errors.Is(err, store.ErrNotFound) {
			return &DeleteMessageOutput{Success: true}, nil
		}
		return nil, s.fail("delete message", err)
	}

	if room != nil {
		s.publish(ctx, broker.EventMessageDeleted, room.Token, broker.MessageDeletedPayload{
			ID:   msg.ID,
			Room: room.Token,
		})
	}

	return &DeleteMessageOutput{Success: true}, nil
}

// RoomExists reports whether token names an existing room.
func (s *Service) RoomExists(ctx context.Context, token string) (bool, error) {
	if _, err := s.roomByToken(ctx, token); err != nil {
		if IsCode(err, CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Service) roomByToken(ctx context.Context, token string) (*store.Room, error) {
	room, err := s.repo.GetRoomByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errRoomNotFound
		}
		return nil, s.fail("get room", err)
	}
	return room, nil
}

// publish is best effort: the write already committed, so a broker failure is
// logged and never reported to the caller.
func (s *Service) publish(ctx context.Context, eventType, roomToken string, payload any) {
	if s.pub == nil {
		return
	}
	ev, err := broker.NewEvent(eventType, roomToken, payload)
	if err != nil {
		s.log.Error().Err(err).Str("room", roomToken).Msg("build event")
		return
	}
	if err := s.pub.Publish(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Error().Err(err).Str("room", roomToken).Str("event", eventType).Msg("publish event")
	}
}

func (s *Service) fail(op string, err error) error {
	s.log.Error().Err(err).Str("op", op).Msg("chat operation failed")
	return internal(err)
}

func sameID(a, b *int64) bool {
	return a != nil && b != nil && *a == *b
}
