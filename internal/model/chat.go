package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	SenderUser = "USER"
	SenderAI   = "AI"
)

type ChatRequest struct {
	Message string     `json:"message"`
	ChatID  *uuid.UUID `json:"chat_id"`
}

type ChatResponse struct {
	Message      string         `json:"message"`
	ChatID       uuid.UUID      `json:"chat_id"`
	MessageID    uuid.UUID      `json:"message_id"`
	AnalysisData map[string]any `json:"analysis_data"`
}

type Chat struct {
	ChatID         uuid.UUID      `json:"chat_id"`
	UserID         uuid.UUID      `json:"user_id"`
	StartedAt      time.Time      `json:"started_at"`
	EndedAt        *time.Time     `json:"ended_at"`
	ContextSummary *string        `json:"context_summary"`
	Metadata       map[string]any `json:"chat_metadata"`
}

type Message struct {
	MessageID    uuid.UUID      `json:"message_id"`
	ChatID       uuid.UUID      `json:"chat_id"`
	Sender       string         `json:"sender"`
	Content      string         `json:"content"`
	CreatedAt    time.Time      `json:"created_at"`
	AnalysisData map[string]any `json:"analysis_data"`
}

type ChatDetail struct {
	Chat
	Messages []Message `json:"messages"`
}

type ChatSummary struct {
	ChatID         uuid.UUID  `json:"chat_id"`
	UserID         uuid.UUID  `json:"user_id"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at"`
	ContextSummary *string    `json:"context_summary"`
	MessageCount   int64      `json:"message_count"`
}

// LegacyChatMessage is a row of the flat pre-session history table.
type LegacyChatMessage struct {
	MessageID    uuid.UUID      `json:"message_id"`
	UserID       uuid.UUID      `json:"user_id"`
	Content      string         `json:"content"`
	Sender       string         `json:"sender"`
	CreatedAt    time.Time      `json:"created_at"`
	AnalysisData map[string]any `json:"analysis_data"`
}
