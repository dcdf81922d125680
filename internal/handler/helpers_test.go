package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/apex-career/backend/internal/client"
	"github.com/apex-career/backend/internal/config"
	"github.com/apex-career/backend/internal/metrics"
	"github.com/apex-career/backend/internal/model"
	"github.com/apex-career/backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*model.User
	err   error
}

func (m *memoryUsers) CreateUser(_ context.Context, email, passwordHash string, fullName *string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if _, ok := m.users[email]; ok {
		return nil, &pgconn.PgError{Code: "23505"}
	}
	u := &model.User{ID: uuid.New(), Email: email, PasswordHash: passwordHash, FullName: fullName, IsActive: true, CreatedAt: time.Now()}
	m.users[email] = u
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) setActive(email string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[email].IsActive = active
}

func (m *memoryUsers) remove(email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, email)
}

func (m *memoryUsers) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

type memoryChats struct {
	mu       sync.Mutex
	chats    map[uuid.UUID]*model.Chat
	messages map[uuid.UUID][]model.Message
}

func (m *memoryChats) CreateChat(_ context.Context, userID uuid.UUID, metadata map[string]any) (*model.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &model.Chat{ChatID: uuid.New(), UserID: userID, StartedAt: time.Now(), Metadata: metadata}
	m.chats[c.ChatID] = c
	cp := *c
	return &cp, nil
}

func (m *memoryChats) GetChat(_ context.Context, userID, chatID uuid.UUID) (*model.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[chatID]
	if !ok || c.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (m *memoryChats) ListChats(_ context.Context, userID uuid.UUID, limit int) ([]model.ChatSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.ChatSummary{}
	for _, c := range m.chats {
		if c.UserID == userID && len(out) < limit {
			out = append(out, model.ChatSummary{ChatID: c.ChatID, UserID: userID, StartedAt: c.StartedAt, MessageCount: int64(len(m.messages[c.ChatID]))})
		}
	}
	return out, nil
}

func (m *memoryChats) ListMessages(_ context.Context, chatID uuid.UUID) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Message{}, m.messages[chatID]...), nil
}

func (m *memoryChats) AppendExchange(_ context.Context, chatID uuid.UUID, userContent, replyContent string, analysis map[string]any) (*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reply := model.Message{MessageID: uuid.New(), ChatID: chatID, Sender: model.SenderAI, Content: replyContent, CreatedAt: time.Now(), AnalysisData: analysis}
	m.messages[chatID] = append(m.messages[chatID],
		model.Message{MessageID: uuid.New(), ChatID: chatID, Sender: model.SenderUser, Content: userContent, CreatedAt: time.Now()},
		reply)
	return &reply, nil
}

func (m *memoryChats) DeleteChat(_ context.Context, userID, chatID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[chatID]
	if !ok || c.UserID != userID {
		return pgx.ErrNoRows
	}
	delete(m.chats, chatID)
	delete(m.messages, chatID)
	return nil
}

func (m *memoryChats) ListLegacyMessages(context.Context, uuid.UUID, int) ([]model.LegacyChatMessage, error) {
	return []model.LegacyChatMessage{}, nil
}

type fakeOIDC struct {
	identity *client.OIDCIdentity
	err      error
}

func (f *fakeOIDC) AuthCodeURL(state string) string {
	return "https://idp.example.com/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeOIDC) Exchange(context.Context, string) (*client.OIDCIdentity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

type downDB struct{}

func (downDB) Ping(context.Context) error { return errors.New("connection refused") }

type testServer struct {
	router  *gin.Engine
	users   *memoryUsers
	auth    *service.AuthService
	metrics *metrics.Metrics
	cfg     config.Config
}

type serverOption func(*RouterDeps)

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Auth.SecretKey = "handler-test-secret"

	users := &memoryUsers{users: map[string]*model.User{}}
	m, err := metrics.New()
	require.NoError(t, err)
	authSvc, err := service.NewAuthService(users, cfg.Auth, nil, m)
	require.NoError(t, err)

	deps := RouterDeps{
		App:      cfg.App,
		Metrics:  m,
		Auth:     authSvc,
		Chat:     service.NewChatService(&memoryChats{chats: map[uuid.UUID]*model.Chat{}, messages: map[uuid.UUID][]model.Message{}}),
		Analysis: service.NewAnalysisService(),
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return &testServer{router: NewRouter(deps), users: users, auth: authSvc, metrics: m, cfg: cfg}
}

func (s *testServer) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func formRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func (s *testServer) register(t *testing.T, email, password string) {
	t.Helper()
	w := s.do(jsonRequest(http.MethodPost, "/api/v1/auth/register", `{"email":"`+email+`","password":"`+password+`"}`))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func (s *testServer) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	w := s.do(formRequest("/api/v1/auth/token", url.Values{"username": {email}, "password": {password}}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return sessionCookie(t, w)
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "access_token" {
			return c
		}
	}
	t.Fatalf("no access_token cookie in response")
	return nil
}
