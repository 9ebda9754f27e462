package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parasite-blog/internal/auth"
	"parasite-blog/internal/repository"
)

// LoginResult is returned to a client after a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	UserID    int64
	RoleID    int64
}

// TokenIssuer mints session tokens. *auth.TokenManager implements it.
type TokenIssuer interface {
	Issue(userID int64, email string, roleID int64) (string, time.Time, error)
}

// AuthService verifies credentials and issues session tokens.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
}

type authService struct {
	users  repository.UserRepository
	hasher auth.Hasher
	tokens TokenIssuer
	// compared against when the email is unknown so both failure paths cost one bcrypt check
	decoyHash string
}

func NewAuthService(users repository.UserRepository, hasher auth.Hasher, tokens TokenIssuer) (AuthService, error) {
	decoy, err := hasher.Hash("decoy-password-never-matches")
	if err != nil {
		return nil, fmt.Errorf("prepare decoy hash: %w", err)
	}
	return &authService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		decoyHash: decoy,
	}, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.Verify(password, s.decoyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email, user.RoleID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		UserID:    user.ID,
		RoleID:    user.RoleID,
	}, nil
}
