package service

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"parasite-blog/internal/auth"
	"parasite-blog/internal/domain"
	"parasite-blog/internal/repository"
	"parasite-blog/internal/repository/sqlite"
)

type testEnv struct {
	users      repository.UserRepository
	roles      repository.RoleRepository
	posts      repository.PostRepository
	references []repository.ReferenceRepository
	hasher     *auth.BcryptHasher
	tokens     *auth.TokenManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "blog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		users: sqlite.NewUserRepository(db),
		roles: sqlite.NewRoleRepository(db),
		posts: sqlite.NewPostRepository(db),
	}
	require.NoError(t, env.roles.Init(ctx))
	require.NoError(t, env.users.Init(ctx))
	for _, kind := range domain.ReferenceKinds {
		repo, err := sqlite.NewReferenceRepository(db, kind)
		require.NoError(t, err)
		require.NoError(t, repo.Init(ctx))
		env.references = append(env.references, repo)
	}
	require.NoError(t, env.posts.Init(ctx))

	env.hasher, err = auth.NewBcryptHasher(auth.MinBcryptCost)
	require.NoError(t, err)
	env.tokens, err = auth.NewTokenManager("service-test-secret")
	require.NoError(t, err)
	return env
}

func (e *testEnv) userService() UserService {
	logger, _ := test.NewNullLogger()
	return NewUserService(e.users, e.roles, e.hasher, domain.RoleProfessor, logger)
}

func (e *testEnv) postService() PostService {
	return NewPostService(e.posts, e.references, domain.RoleProfessor)
}

func (e *testEnv) reference(kind domain.ReferenceKind) repository.ReferenceRepository {
	for _, repo := range e.references {
		if repo.Kind() == kind {
			return repo
		}
	}
	return nil
}

func (e *testEnv) register(t *testing.T, email string, roleID int64) *domain.User {
	t.Helper()
	actor := &auth.Identity{UserID: 0, RoleID: domain.RoleProfessor}
	user, err := e.userService().Register(context.Background(), actor, RegisterInput{
		Name:     strings.Split(email, "@")[0],
		Email:    email,
		Password: "secret1",
		RoleID:   roleID,
	})
	require.NoError(t, err)
	return user
}

func identityOf(u *domain.User) auth.Identity {
	return auth.Identity{UserID: u.ID, Email: u.Email, RoleID: u.RoleID}
}
