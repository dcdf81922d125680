package db

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/apex-career/backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests are opt-in and require APEX_DATABASE_URL.
// Each test migrates into its own schema and drops it afterwards.

func TestPostgresStore_Users(t *testing.T) {
	t.Parallel()

	store := mustMigratedStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	name := "Ada"
	created, err := store.CreateUser(ctx, "ada@x.com", "salt$key", &name)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.True(t, created.IsActive)
	require.NotNil(t, created.FullName)
	assert.Equal(t, "Ada", *created.FullName)

	_, err = store.CreateUser(ctx, "ada@x.com", "other$key", nil)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	found, err := store.GetUserByEmail(ctx, "ada@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "salt$key", found.PasswordHash)

	_, err = store.GetUserByEmail(ctx, "nobody@x.com")
	assert.True(t, IsNoRows(err))

	updated, err := store.SetUserActive(ctx, "ada@x.com", false)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	_, err = store.SetUserActive(ctx, "nobody@x.com", true)
	assert.True(t, IsNoRows(err))
}

func TestPostgresStore_ChatLifecycle(t *testing.T) {
	t.Parallel()

	store := mustMigratedStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	owner, err := store.CreateUser(ctx, "owner@x.com", "salt$key", nil)
	require.NoError(t, err)
	intruder, err := store.CreateUser(ctx, "intruder@x.com", "salt$key", nil)
	require.NoError(t, err)

	older, err := store.CreateChat(ctx, owner.ID, map[string]any{"channel": "web"})
	require.NoError(t, err)
	assert.Equal(t, "web", older.Metadata["channel"])

	newer, err := store.CreateChat(ctx, owner.ID, nil)
	require.NoError(t, err)

	reply, err := store.AppendExchange(ctx, older.ChatID, " hi ", "AI response to:  hi ", nil)
	require.NoError(t, err)
	assert.Equal(t, model.SenderAI, reply.Sender)
	assert.Equal(t, older.ChatID, reply.ChatID)

	_, err = store.AppendExchange(ctx, older.ChatID, "again", "AI response to: again", map[string]any{"score": 1.0})
	require.NoError(t, err)

	messages, err := store.ListMessages(ctx, older.ChatID)
	require.NoError(t, err)
	require.Len(t, messages, 4)
	assert.Equal(t, []string{model.SenderUser, model.SenderAI, model.SenderUser, model.SenderAI},
		[]string{messages[0].Sender, messages[1].Sender, messages[2].Sender, messages[3].Sender})
	assert.Equal(t, " hi ", messages[0].Content)
	assert.Equal(t, 1.0, messages[3].AnalysisData["score"])

	list, err := store.ListChats(ctx, owner.ID, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ChatID, list[0].ChatID)
	assert.Equal(t, int64(0), list[0].MessageCount)
	assert.Equal(t, older.ChatID, list[1].ChatID)
	assert.Equal(t, int64(4), list[1].MessageCount)

	limited, err := store.ListChats(ctx, owner.ID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = store.GetChat(ctx, intruder.ID, older.ChatID)
	assert.True(t, IsNoRows(err))

	err = store.DeleteChat(ctx, intruder.ID, older.ChatID)
	assert.ErrorIs(t, err, pgx.ErrNoRows)

	require.NoError(t, store.DeleteChat(ctx, owner.ID, older.ChatID))
	err = store.DeleteChat(ctx, owner.ID, older.ChatID)
	assert.ErrorIs(t, err, pgx.ErrNoRows)

	messages, err = store.ListMessages(ctx, older.ChatID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestPostgresStore_AppendExchangeUnknownChatWritesNothing(t *testing.T) {
	t.Parallel()

	store := mustMigratedStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	missing := uuid.New()
	_, err := store.AppendExchange(ctx, missing, "hello", "AI response to: hello", nil)
	require.Error(t, err)

	var count int
	require.NoError(t, store.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count))
	assert.Zero(t, count)
}

func TestPostgresStore_LegacyHistory(t *testing.T) {
	t.Parallel()

	store := mustMigratedStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	user, err := store.CreateUser(ctx, "legacy@x.com", "salt$key", nil)
	require.NoError(t, err)

	history, err := store.ListLegacyMessages(ctx, user.ID, 10)
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)

	_, err = store.Pool.Exec(ctx, `
		INSERT INTO chat_messages (user_id, content, sender, created_at)
		VALUES ($1, 'first', 'USER', NOW() - INTERVAL '1 minute'), ($1, 'second', 'AI', NOW())
	`, user.ID)
	require.NoError(t, err)

	history, err = store.ListLegacyMessages(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "second", history[0].Content)

	history, err = store.ListLegacyMessages(ctx, user.ID, 1)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func mustMigratedStore(t *testing.T) *Postgres {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv("APEX_DATABASE_URL"))
	if raw == "" {
		t.Skip("integration test skipped: APEX_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin, err := pgxpool.New(ctx, raw)
	require.NoError(t, err)
	t.Cleanup(admin.Close)
	if err := admin.Ping(ctx); err != nil {
		t.Skipf("integration test skipped: Postgres unreachable: %v", err)
	}

	schema := "apex_it_" + strings.ToLower(ulid.Make().String())
	ident := pgx.Identifier{schema}.Sanitize()
	_, err = admin.Exec(ctx, `CREATE SCHEMA `+ident)
	require.NoError(t, err)
	t.Cleanup(func() {
		dropCtx, dropCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer dropCancel()
		_, _ = admin.Exec(dropCtx, `DROP SCHEMA IF EXISTS `+ident+` CASCADE`)
	})

	cfg, err := pgxpool.ParseConfig(raw)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := &Postgres{Pool: pool}
	require.NoError(t, store.Migrate(ctx))
	return store
}
