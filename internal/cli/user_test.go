package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/apex-career/backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdmin struct {
	users map[string]*model.User
}

func (f *fakeAdmin) SetUserActive(_ context.Context, email string, active bool) (*model.User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	u.IsActive = active
	cp := *u
	return &cp, nil
}

func TestSetActiveCommand(t *testing.T) {
	store := &fakeAdmin{users: map[string]*model.User{
		"a@x.com": {ID: uuid.New(), Email: "a@x.com", IsActive: true},
	}}

	cmd := newSetActiveCommand(store)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--email", "a@x.com", "--active=false"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.False(t, store.users["a@x.com"].IsActive)
	assert.Equal(t, "a@x.com is now inactive\n", out.String())
}

func TestSetActiveCommand_UnknownEmail(t *testing.T) {
	cmd := newSetActiveCommand(&fakeAdmin{users: map[string]*model.User{}})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--email", "ghost@x.com", "--active=false"})

	err := cmd.ExecuteContext(context.Background())
	assert.ErrorIs(t, err, errUserNotFound)
}

func TestSetActiveCommand_RequiresEmail(t *testing.T) {
	cmd := newSetActiveCommand(&fakeAdmin{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--active=false"})

	assert.Error(t, cmd.ExecuteContext(context.Background()))
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	root := NewRootCommand()
	for _, name := range []string{"serve", "migrate", "user"} {
		found, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, found.Name())
	}
}
