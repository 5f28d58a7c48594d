package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/linkup-app/linkup/internal/apperr"
	"github.com/linkup-app/linkup/internal/models"
	"github.com/linkup-app/linkup/internal/repository"
	"go.uber.org/zap"
)

// maxMessageRunes matches the client-side input cap; anything longer
// is truncated, not rejected.
const maxMessageRunes = 2000

// ChatService owns group chats: listing, history, and the gated send
// path. Every send is re-validated here — the realtime hub only
// mirrors decisions made in this service.
type ChatService struct {
	chats    repository.ChatRepository
	messages repository.MessageRepository

	events EventPublisher

	clock  func() time.Time
	logger *zap.Logger
}

func NewChatService(
	chats repository.ChatRepository,
	messages repository.MessageRepository,
	events EventPublisher,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		chats:    chats,
		messages: messages,
		events:   events,
		clock:    time.Now,
		logger:   logger,
	}
}

// ListMine returns the caller's active chats, soonest-expiring first.
func (s *ChatService) ListMine(ctx context.Context, userID uuid.UUID) ([]models.GroupChat, error) {
	chats, err := s.chats.ListByMember(ctx, userID, s.clock())
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "could not list chats", err)
	}
	return chats, nil
}

// SendMessage persists a message and fans it out to the chat room.
// Succeeds if and only if the sender is a member and the chat is
// still alive at call time.
func (s *ChatService) SendMessage(ctx context.Context, chatID, senderID uuid.UUID, body string) (*models.Message, error) {
	chat, err := s.memberChat(ctx, chatID, senderID)
	if err != nil {
		return nil, err
	}
	if !chat.IsActive || s.clock().After(chat.ExpiresAt) {
		return nil, apperr.New(apperr.CodeExpired, "chat has expired")
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperr.New(apperr.CodeValidationFailed, "message body is required")
	}
	if runes := []rune(body); len(runes) > maxMessageRunes {
		body = string(runes[:maxMessageRunes])
	}

	msg, err := s.messages.Create(ctx, chatID, senderID, body)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "could not send message", err)
	}

	s.events.PublishToChat(chatID, EventNewMessage, msg)
	return msg, nil
}

// Messages returns the chat's full history, oldest first. Members
// only, but an expired chat stays readable — history outlives the
// event.
func (s *ChatService) Messages(ctx context.Context, chatID, requesterID uuid.UUID) ([]models.Message, error) {
	if _, err := s.memberChat(ctx, chatID, requesterID); err != nil {
		return nil, err
	}
	messages, err := s.messages.ListByChat(ctx, chatID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "could not fetch messages", err)
	}
	return messages, nil
}

// Members returns the chat's member rows. Members only.
func (s *ChatService) Members(ctx context.Context, chatID, requesterID uuid.UUID) ([]models.ChatMember, error) {
	if _, err := s.memberChat(ctx, chatID, requesterID); err != nil {
		return nil, err
	}
	members, err := s.chats.ListMembers(ctx, chatID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "could not list members", err)
	}
	return members, nil
}

// IsMember exposes the membership check for the realtime layer's
// room-join validation.
func (s *ChatService) IsMember(ctx context.Context, chatID, userID uuid.UUID) (bool, error) {
	ok, err := s.chats.IsMember(ctx, chatID, userID)
	if err != nil {
		return false, apperr.Wrap(apperr.CodeUnavailable, "could not check membership", err)
	}
	return ok, nil
}

func (s *ChatService) memberChat(ctx context.Context, chatID, userID uuid.UUID) (*models.GroupChat, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "could not fetch chat", err)
	}
	if chat == nil {
		return nil, apperr.New(apperr.CodeNotFound, "chat not found")
	}
	ok, err := s.chats.IsMember(ctx, chatID, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "could not check membership", err)
	}
	if !ok {
		return nil, apperr.New(apperr.CodeNotMember, "you are not a member of this chat")
	}
	return chat, nil
}
