package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parasite-blog/internal/domain"
	"parasite-blog/internal/repository"
)

func TestAuthService_LoginIssuesTokenForMatchingIdentity(t *testing.T) {
	env := newTestEnv(t)
	ana := env.register(t, "ana@x.com", domain.RoleStudent)

	svc, err := NewAuthService(env.users, env.hasher, env.tokens)
	require.NoError(t, err)

	res, err := svc.Login(context.Background(), "ana@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, ana.ID, res.UserID)
	assert.Equal(t, domain.RoleStudent, res.RoleID)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), res.ExpiresAt, 5*time.Second)

	claims, err := env.tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, ana.ID, claims.UserID)
	assert.Equal(t, "ana@x.com", claims.Email)
	assert.Equal(t, domain.RoleStudent, claims.RoleID)
}

func TestAuthService_LoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ana@x.com", domain.RoleStudent)

	svc, err := NewAuthService(env.users, env.hasher, env.tokens)
	require.NoError(t, err)
	ctx := context.Background()

	_, wrongPassword := svc.Login(ctx, "ana@x.com", "secret2")
	_, unknownEmail := svc.Login(ctx, "bob@x.com", "secret1")
	_, wrongCase := svc.Login(ctx, "ANA@x.com", "secret1")
	_, padded := svc.Login(ctx, " ana@x.com ", "secret1")
	_, empty := svc.Login(ctx, "", "")

	for _, err := range []error{wrongPassword, unknownEmail, wrongCase, padded, empty} {
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

type failingUsers struct {
	repository.UserRepository
	calls int
}

func (f *failingUsers) GetByEmail(context.Context, string) (*domain.User, error) {
	f.calls++
	return nil, errors.New("database is locked")
}

func TestAuthService_LoginSurfacesStoreErrors(t *testing.T) {
	env := newTestEnv(t)
	users := &failingUsers{}

	svc, err := NewAuthService(users, env.hasher, env.tokens)
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "ana@x.com", "secret1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 1, users.calls, "login reads the credential store exactly once")
}
