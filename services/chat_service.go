package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"chatbot/logger"
	"chatbot/models"

	"github.com/google/uuid"
)

var ErrConversationNotFound = errors.New("conversation not found")

type ChatService struct {
	store     ConversationStore
	completer CompletionClient
	now       func() time.Time
	newID     func() string
}

type ChatOption func(*ChatService)

// WithClock replaces CurrentTime as the source of message timestamps.
func WithClock(now func() time.Time) ChatOption {
	return func(s *ChatService) { s.now = now }
}

// WithIDGenerator replaces random UUIDs as conversation ids.
func WithIDGenerator(newID func() string) ChatOption {
	return func(s *ChatService) { s.newID = newID }
}

func NewChatService(store ConversationStore, completer CompletionClient, opts ...ChatOption) *ChatService {
	s := &ChatService{
		store:     store,
		completer: completer,
		now:       CurrentTime,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ask stores a new conversation holding text, then asks the completion API
// for a reply. The conversation is stored before the call, so on failure it
// stays visible with only the user message and is returned alongside the
// error.
func (s *ChatService) Ask(ctx context.Context, text string) (models.Conversation, error) {
	conv := models.NewConversation(s.newID(), text, s.now())
	s.store.Put(conv.ID, conv)

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ConversationID: conv.ID,
		Component:      "chatbot.services.chat",
	})

	reply, err := s.completer.FetchCompletion(ctx, text)
	if err != nil {
		slog.WarnContext(ctx, "completion failed, conversation left pending", "error", err)
		return conv, err
	}

	conv = conv.WithReply(reply, s.now())
	s.store.Put(conv.ID, conv)
	slog.DebugContext(ctx, "conversation completed", "messages", len(conv.Messages))

	return conv, nil
}

func (s *ChatService) Conversation(ctx context.Context, id string) (models.Conversation, error) {
	conv, ok := s.store.Get(id)
	if !ok {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, nil
}
