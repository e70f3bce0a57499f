package db

import (
	"context"
	"testing"
	"time"

	"conversational-rag/internal/config"
	"conversational-rag/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	bunDB, err := ConnectDB(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, InitDB(context.Background(), bunDB))

	s := NewStore(bunDB)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func TestConnectDB_UnknownDriver(t *testing.T) {
	_, err := ConnectDB(&config.DatabaseConfig{Driver: "mongo"})
	assert.Error(t, err)
}

func TestInitDB_Idempotent(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, InitDB(context.Background(), s.db))
	assert.NoError(t, s.Ping(context.Background()))
}

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &User{UserID: "u1", Name: "Ada", Email: "ada@example.com", Company: strPtr("ACME")}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.False(t, u.CreatedAt.IsZero())

	got, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, "ada@example.com", got.Email)
	require.NotNil(t, got.Company)
	assert.Equal(t, "ACME", *got.Company)
	assert.Nil(t, got.Preferences)
}

func TestCreateUser_DuplicateLeavesRowUntouched(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, &User{UserID: "u1", Name: "Ada", Email: "ada@example.com"}))

	err := s.CreateUser(ctx, &User{UserID: "u1", Name: "Mallory", Email: "m@example.com"})
	assert.ErrorIs(t, err, models.ErrAlreadyExists)

	got, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)
}

func TestGetUser_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, &User{UserID: "u1", Name: "Ada", Email: "ada@example.com", Company: strPtr("ACME")}))
	created, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)

	// full replacement: omitted company is cleared
	update := &User{UserID: "u1", Name: "Ada L.", Email: "ada@lovelace.org", Preferences: strPtr("dark")}
	require.NoError(t, s.UpdateUser(ctx, update))

	got, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", got.Name)
	assert.Equal(t, "ada@lovelace.org", got.Email)
	assert.Nil(t, got.Company)
	require.NotNil(t, got.Preferences)
	assert.Equal(t, "dark", *got.Preferences)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Millisecond)
	assert.WithinDuration(t, got.CreatedAt, update.CreatedAt, time.Millisecond)
}

func TestUpdateUser_NotFoundWritesNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.UpdateUser(ctx, &User{UserID: "ghost", Name: "x", Email: "x@example.com"})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = s.GetUser(ctx, "ghost")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestConversations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, msg := range []string{"first", "second", "third"} {
		c := &Conversation{
			UserID:    "u1",
			Message:   msg,
			Response:  "re: " + msg,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.AppendConversation(ctx, c))
		assert.NotZero(t, c.ID)
	}
	require.NoError(t, s.AppendConversation(ctx, &Conversation{UserID: "u2", Message: "other", Context: "ctx"}))

	all, err := s.ListConversations(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Message)
	assert.Equal(t, "first", all[2].Message)

	limited, err := s.ListConversations(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "second", limited[1].Message)

	got, err := s.GetConversation(ctx, all[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Message)
	assert.Equal(t, "re: second", got.Response)

	none, err := s.ListConversations(ctx, "nobody", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetConversation_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetConversation(context.Background(), 42)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
