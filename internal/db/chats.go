package db

import (
	"context"
	"fmt"

	"github.com/apex-career/backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const chatColumns = `chat_id, user_id, started_at, ended_at, context_summary, chat_metadata`

func (db *Postgres) CreateChat(ctx context.Context, userID uuid.UUID, metadata map[string]any) (*model.Chat, error) {
	query := `
		INSERT INTO chats (user_id, started_at, chat_metadata)
		VALUES ($1, NOW(), $2)
		RETURNING ` + chatColumns
	return scanChat(db.Pool.QueryRow(ctx, query, userID, metadata))
}

// GetChat returns the chat only when it belongs to userID.
func (db *Postgres) GetChat(ctx context.Context, userID, chatID uuid.UUID) (*model.Chat, error) {
	query := `SELECT ` + chatColumns + ` FROM chats WHERE chat_id = $1 AND user_id = $2`
	return scanChat(db.Pool.QueryRow(ctx, query, chatID, userID))
}

func (db *Postgres) ListChats(ctx context.Context, userID uuid.UUID, limit int) ([]model.ChatSummary, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT c.chat_id, c.user_id, c.started_at, c.ended_at, c.context_summary, COUNT(m.message_id)
		FROM chats c
		LEFT JOIN messages m ON m.chat_id = c.chat_id
		WHERE c.user_id = $1
		GROUP BY c.chat_id
		ORDER BY c.started_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]model.ChatSummary, 0)
	for rows.Next() {
		var s model.ChatSummary
		if err := rows.Scan(&s.ChatID, &s.UserID, &s.StartedAt, &s.EndedAt, &s.ContextSummary, &s.MessageCount); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (db *Postgres) ListMessages(ctx context.Context, chatID uuid.UUID) ([]model.Message, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT message_id, chat_id, sender, content, created_at, analysis_data
		FROM messages
		WHERE chat_id = $1
		ORDER BY created_at ASC
	`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]model.Message, 0)
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.MessageID, &m.ChatID, &m.Sender, &m.Content, &m.CreatedAt, &m.AnalysisData); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// AppendExchange stores the user message and the reply in one transaction and returns the reply row.
func (db *Postgres) AppendExchange(ctx context.Context, chatID uuid.UUID, userContent, replyContent string, analysis map[string]any) (*model.Message, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err = tx.Exec(ctx, `
		INSERT INTO messages (chat_id, sender, content, created_at)
		VALUES ($1, $2, $3, clock_timestamp())
	`, chatID, model.SenderUser, userContent); err != nil {
		return nil, err
	}

	var reply model.Message
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (chat_id, sender, content, created_at, analysis_data)
		VALUES ($1, $2, $3, clock_timestamp(), $4)
		RETURNING message_id, chat_id, sender, content, created_at, analysis_data
	`, chatID, model.SenderAI, replyContent, analysis).Scan(
		&reply.MessageID,
		&reply.ChatID,
		&reply.Sender,
		&reply.Content,
		&reply.CreatedAt,
		&reply.AnalysisData,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &reply, nil
}

// DeleteChat removes the chat and, by cascade, its messages. It reports pgx.ErrNoRows when nothing matched.
func (db *Postgres) DeleteChat(ctx context.Context, userID, chatID uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM chats WHERE chat_id = $1 AND user_id = $2`, chatID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (db *Postgres) ListLegacyMessages(ctx context.Context, userID uuid.UUID, limit int) ([]model.LegacyChatMessage, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT message_id, user_id, content, sender, created_at, analysis_data
		FROM chat_messages
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]model.LegacyChatMessage, 0)
	for rows.Next() {
		var m model.LegacyChatMessage
		if err := rows.Scan(&m.MessageID, &m.UserID, &m.Content, &m.Sender, &m.CreatedAt, &m.AnalysisData); err != nil {
			return nil, err
		}
		history = append(history, m)
	}
	return history, rows.Err()
}

func scanChat(row pgx.Row) (*model.Chat, error) {
	var chat model.Chat
	err := row.Scan(
		&chat.ChatID,
		&chat.UserID,
		&chat.StartedAt,
		&chat.EndedAt,
		&chat.ContextSummary,
		&chat.Metadata,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan chat: %w", err)
	}
	return &chat, nil
}
