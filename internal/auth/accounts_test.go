package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/askbot/internal/models"
	"github.com/xaenox/askbot/internal/storage"
)

func newAccounts() *Accounts {
	return NewAccounts(storage.NewMemoryStorage(), NewTokens("secret", time.Hour), zap.NewNop())
}

func TestRegisterValidation(t *testing.T) {
	a := newAccounts()
	ctx := context.Background()

	tests := []struct {
		name                      string
		username, email, password string
	}{
		{"short username", "abc", "a@example.com", "secret1"},
		{"long username", "abcdefghijklmnopqrstu", "a@example.com", "secret1"},
		{"bad email", "ahmet", "not-an-email", "secret1"},
		{"short password", "ahmet", "a@example.com", "12345"},
		{"telegram username", "tg_123456789", "a@example.com", "secret1"},
		{"telegram username upper case", "TG_123456789", "a@example.com", "secret1"},
		{"external email domain", "ahmet", "tg_42@external.invalid", "secret1"},
		{"email too long", "ahmet", strings.Repeat("a", 110) + "@example.com", "secret1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Register(ctx, tt.username, tt.email, tt.password)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestRegisterAndLogin(t *testing.T) {
	a := newAccounts()
	ctx := context.Background()

	user, err := a.Register(ctx, "ahmet", "ahmet@example.com", "secret1")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotEqual(t, "secret1", user.PasswordHash)

	_, err = a.Register(ctx, "ahmet", "x@example.com", "secret1")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	session, err := a.Login(ctx, "ahmet", "secret1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.User.ID)

	userID, err := a.tokens.Verify(session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	_, err = a.Login(ctx, "ahmet", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = a.Login(ctx, "nobody", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEnsureExternalUser(t *testing.T) {
	a := newAccounts()
	ctx := context.Background()

	first, err := a.EnsureExternalUser(ctx, "tg_1001")
	require.NoError(t, err)
	again, err := a.EnsureExternalUser(ctx, "tg_1001")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	_, err = a.Login(ctx, "tg_1001", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterStoresBareAddress(t *testing.T) {
	a := newAccounts()

	user, err := a.Register(context.Background(), "alice", "Alice <alice@example.com>", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
}

func TestTelegramIdentityCannotBeClaimed(t *testing.T) {
	store := storage.NewMemoryStorage()
	a := NewAccounts(store, NewTokens("secret", time.Hour), zap.NewNop())
	ctx := context.Background()
	username := TelegramUsername(123456789)

	_, err := a.Register(ctx, username, "mallory@example.com", "secret1")
	require.ErrorIs(t, err, ErrValidation)
	_, err = a.Register(ctx, "mallory", username+"@external.invalid", "secret1")
	require.ErrorIs(t, err, ErrValidation)

	mallory, err := a.Register(ctx, "mallory", "mallory@example.com", "secret1")
	require.NoError(t, err)

	tg, err := a.EnsureExternalUser(ctx, username)
	require.NoError(t, err)
	assert.NotEqual(t, mallory.ID, tg.ID)
	assert.Empty(t, tg.PasswordHash)
}

func TestEnsureExternalUserRefusesPasswordAccount(t *testing.T) {
	store := storage.NewMemoryStorage()
	a := NewAccounts(store, NewTokens("secret", time.Hour), zap.NewNop())
	ctx := context.Background()

	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	require.NoError(t, store.CreateUser(ctx, &models.User{
		Username:     "tg_555",
		Email:        "mallory@example.com",
		PasswordHash: hash,
	}))

	_, err = a.EnsureExternalUser(ctx, "tg_555")
	assert.ErrorIs(t, err, ErrExternalConflict)

	_, err = a.EnsureExternalUser(ctx, "alice")
	assert.ErrorIs(t, err, ErrValidation)
}
