package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/apex-career/backend/internal/db"
	"github.com/apex-career/backend/internal/model"
	"github.com/google/uuid"
)

const (
	DefaultChatListLimit    = 20
	DefaultChatHistoryLimit = 50
	maxListLimit            = 100
)

var (
	ErrInvalidChatRequest = errors.New("invalid chat request")
	ErrChatNotFound       = errors.New("chat session not found")
)

// ChatStore persists chat sessions. Lookups are always scoped to the owner.
type ChatStore interface {
	CreateChat(ctx context.Context, userID uuid.UUID, metadata map[string]any) (*model.Chat, error)
	GetChat(ctx context.Context, userID, chatID uuid.UUID) (*model.Chat, error)
	ListChats(ctx context.Context, userID uuid.UUID, limit int) ([]model.ChatSummary, error)
	ListMessages(ctx context.Context, chatID uuid.UUID) ([]model.Message, error)
	AppendExchange(ctx context.Context, chatID uuid.UUID, userContent, replyContent string, analysis map[string]any) (*model.Message, error)
	DeleteChat(ctx context.Context, userID, chatID uuid.UUID) error
	ListLegacyMessages(ctx context.Context, userID uuid.UUID, limit int) ([]model.LegacyChatMessage, error)
}

type ChatService struct {
	repo ChatStore
}

func NewChatService(repo ChatStore) *ChatService {
	return &ChatService{repo: repo}
}

// Chat appends the message to the caller's chat, or opens a new one when
// req.ChatID is nil, and stores the placeholder reply next to it.
func (s *ChatService) Chat(ctx context.Context, userID uuid.UUID, req model.ChatRequest) (*model.ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidChatRequest)
	}

	var chat *model.Chat
	var err error
	if req.ChatID != nil {
		chat, err = s.repo.GetChat(ctx, userID, *req.ChatID)
		if err != nil {
			if db.IsNoRows(err) {
				return nil, ErrChatNotFound
			}
			return nil, err
		}
	} else {
		chat, err = s.repo.CreateChat(ctx, userID, map[string]any{
			"channel": "web",
			"topic":   "career_guidance",
		})
		if err != nil {
			return nil, err
		}
	}

	reply := placeholderReply(req.Message)
	stored, err := s.repo.AppendExchange(ctx, chat.ChatID, req.Message, reply, nil)
	if err != nil {
		return nil, err
	}

	return &model.ChatResponse{
		Message:      stored.Content,
		ChatID:       chat.ChatID,
		MessageID:    stored.MessageID,
		AnalysisData: stored.AnalysisData,
	}, nil
}

func (s *ChatService) ListChats(ctx context.Context, userID uuid.UUID, limit int) ([]model.ChatSummary, error) {
	return s.repo.ListChats(ctx, userID, ClampLimit(limit))
}

func (s *ChatService) GetChat(ctx context.Context, userID, chatID uuid.UUID) (*model.ChatDetail, error) {
	chat, err := s.repo.GetChat(ctx, userID, chatID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}

	messages, err := s.repo.ListMessages(ctx, chat.ChatID)
	if err != nil {
		return nil, err
	}
	return &model.ChatDetail{Chat: *chat, Messages: messages}, nil
}

func (s *ChatService) DeleteChat(ctx context.Context, userID, chatID uuid.UUID) error {
	if err := s.repo.DeleteChat(ctx, userID, chatID); err != nil {
		if db.IsNoRows(err) {
			return ErrChatNotFound
		}
		return err
	}
	return nil
}

func (s *ChatService) History(ctx context.Context, userID uuid.UUID, limit int) ([]model.LegacyChatMessage, error) {
	return s.repo.ListLegacyMessages(ctx, userID, ClampLimit(limit))
}

// ClampLimit keeps list sizes within [1, 100].
func ClampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func placeholderReply(message string) string {
	return "AI response to: " + message
}
