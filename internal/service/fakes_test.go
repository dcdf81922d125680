package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apex-career/backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeUserStore struct {
	mu      sync.Mutex
	users   map[string]*model.User
	err     error
	lookups atomic.Int32
	gate    chan struct{}
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*model.User{}}
}

func (f *fakeUserStore) CreateUser(_ context.Context, email, passwordHash string, fullName *string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.users[email]; ok {
		return nil, &pgconn.PgError{Code: "23505"}
	}
	now := time.Now()
	u := &model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.users[email] = u
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	f.lookups.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) setActive(email string, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[email]; ok {
		u.IsActive = active
	}
}

func (f *fakeUserStore) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fakeChatStore struct {
	mu       sync.Mutex
	chats    map[uuid.UUID]*model.Chat
	messages map[uuid.UUID][]model.Message
	legacy   []model.LegacyChatMessage
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{
		chats:    map[uuid.UUID]*model.Chat{},
		messages: map[uuid.UUID][]model.Message{},
	}
}

func (f *fakeChatStore) CreateChat(_ context.Context, userID uuid.UUID, metadata map[string]any) (*model.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &model.Chat{ChatID: uuid.New(), UserID: userID, StartedAt: time.Now(), Metadata: metadata}
	f.chats[c.ChatID] = c
	cp := *c
	return &cp, nil
}

func (f *fakeChatStore) GetChat(_ context.Context, userID, chatID uuid.UUID) (*model.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chats[chatID]
	if !ok || c.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (f *fakeChatStore) ListChats(_ context.Context, userID uuid.UUID, limit int) ([]model.ChatSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.ChatSummary{}
	for _, c := range f.chats {
		if c.UserID != userID || len(out) >= limit {
			continue
		}
		out = append(out, model.ChatSummary{
			ChatID:       c.ChatID,
			UserID:       c.UserID,
			StartedAt:    c.StartedAt,
			MessageCount: int64(len(f.messages[c.ChatID])),
		})
	}
	return out, nil
}

func (f *fakeChatStore) ListMessages(_ context.Context, chatID uuid.UUID) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Message{}, f.messages[chatID]...), nil
}

func (f *fakeChatStore) AppendExchange(_ context.Context, chatID uuid.UUID, userContent, replyContent string, analysis map[string]any) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	userMsg := model.Message{MessageID: uuid.New(), ChatID: chatID, Sender: model.SenderUser, Content: userContent, CreatedAt: now}
	reply := model.Message{MessageID: uuid.New(), ChatID: chatID, Sender: model.SenderAI, Content: replyContent, CreatedAt: now, AnalysisData: analysis}
	f.messages[chatID] = append(f.messages[chatID], userMsg, reply)
	return &reply, nil
}

func (f *fakeChatStore) DeleteChat(_ context.Context, userID, chatID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chats[chatID]
	if !ok || c.UserID != userID {
		return pgx.ErrNoRows
	}
	delete(f.chats, chatID)
	delete(f.messages, chatID)
	return nil
}

func (f *fakeChatStore) ListLegacyMessages(_ context.Context, userID uuid.UUID, limit int) ([]model.LegacyChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.LegacyChatMessage{}
	for _, m := range f.legacy {
		if m.UserID == userID && len(out) < limit {
			out = append(out, m)
		}
	}
	return out, nil
}
