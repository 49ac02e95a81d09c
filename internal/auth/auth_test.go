package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visadesk/internal/config"
	"visadesk/internal/database"
	"visadesk/internal/domain"
	apperrors "visadesk/pkg/errors"
)

func newManager() *TokenManager {
	return NewTokenManager(config.AuthConfig{SecretKey: "test-secret", TokenExpiryMinutes: 30})
}

func TestIssueAndParse(t *testing.T) {
	m := newManager()
	token, expiresAt, err := m.Issue(&domain.User{Username: "admin", IsAdmin: true})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), expiresAt, time.Minute)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.True(t, claims.IsAdmin)
}

func TestParseRejectsForeignAndExpiredTokens(t *testing.T) {
	m := newManager()
	other := NewTokenManager(config.AuthConfig{SecretKey: "other", TokenExpiryMinutes: 30})
	token, _, err := other.Issue(&domain.User{Username: "admin"})
	require.NoError(t, err)

	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	token, _, err = m.Issue(&domain.User{Username: "admin"})
	require.NoError(t, err)
	m.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("s3cret", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestContextAuthorizer(t *testing.T) {
	var a Authorizer = ContextAuthorizer{}
	ctx := context.Background()
	assert.False(t, a.IsAdmin(ctx))

	assert.True(t, a.IsAdmin(WithUser(ctx, &domain.User{IsActive: true, IsAdmin: true})))
	assert.False(t, a.IsAdmin(WithUser(ctx, &domain.User{IsActive: true, IsStaff: true})))
	assert.False(t, a.IsAdmin(WithUser(ctx, &domain.User{IsActive: false, IsAdmin: true})))

	assert.True(t, AuthorizerFunc(func(context.Context) bool { return true }).IsAdmin(ctx))
}

func TestUsersCreateAndAuthenticate(t *testing.T) {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	users := NewUsers(db)
	ctx := context.Background()

	created, err := users.Create(ctx, NewAccount{
		Username: " admin ", Email: "Admin@VisaDesk.com", Password: "pw", IsAdmin: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "admin", created.Username)
	assert.Equal(t, "admin@visadesk.com", created.Email)
	assert.True(t, created.IsStaff)

	_, err = users.Create(ctx, NewAccount{Username: "admin", Email: "x@example.com", Password: "pw"})
	assert.True(t, apperrors.IsConflict(err))

	user, err := users.Authenticate(ctx, "admin", "pw")
	require.NoError(t, err)
	assert.NotNil(t, user.LastLogin)

	_, err = users.Authenticate(ctx, "admin", "bad")
	assert.True(t, apperrors.IsUnauthorized(err))
	_, err = users.Authenticate(ctx, "nobody", "pw")
	assert.True(t, apperrors.IsUnauthorized(err))

	resolved, err := users.Resolve(ctx, &Claims{Username: "admin"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, resolved.ID)
}
