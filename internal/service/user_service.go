package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"parasite-blog/internal/auth"
	"parasite-blog/internal/domain"
	"parasite-blog/internal/repository"
)

const (
	// MinPasswordLength is the shortest password accepted at registration or update.
	MinPasswordLength = 6
	// MaxPasswordLength is the bcrypt input limit in bytes.
	MaxPasswordLength = 72
)

// RegisterInput is the payload of a registration.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	RoleID   int64
}

// UserService describes user lifecycle operations.
type UserService interface {
	// Register creates a user. actor is nil for anonymous sign-ups; only a privileged
	// actor may create another privileged user.
	Register(ctx context.Context, actor *auth.Identity, in RegisterInput) (*domain.User, error)
	// EnsurePrivileged creates a privileged user with the given credentials unless the email is taken.
	EnsurePrivileged(ctx context.Context, name, email, password string) (*domain.User, bool, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, actor auth.Identity, id int64, in domain.UserUpdate) (*domain.User, error)
	Delete(ctx context.Context, actor auth.Identity, id int64) error
}

type userService struct {
	users        repository.UserRepository
	roles        repository.RoleRepository
	hasher       auth.Hasher
	privilegedID int64
	logger       logrus.FieldLogger
}

func NewUserService(users repository.UserRepository, roles repository.RoleRepository, hasher auth.Hasher, privilegedRoleID int64, logger logrus.FieldLogger) UserService {
	if logger == nil {
		logger = logrus.New()
	}
	return &userService{
		users:        users,
		roles:        roles,
		hasher:       hasher,
		privilegedID: privilegedRoleID,
		logger:       logger,
	}
}

func (s *userService) Register(ctx context.Context, actor *auth.Identity, in RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	roleID := in.RoleID
	if roleID == 0 {
		roleID = domain.RoleStudent
	}

	if name == "" {
		return nil, invalid("name is required")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	if roleID == s.privilegedID && (actor == nil || actor.RoleID != s.privilegedID) {
		return nil, fmt.Errorf("%w: only privileged users may create privileged accounts", ErrForbidden)
	}
	if err := s.ensureRole(ctx, roleID); err != nil {
		return nil, err
	}

	return s.create(ctx, name, email, in.Password, roleID)
}

func (s *userService) EnsurePrivileged(ctx context.Context, name, email, password string) (*domain.User, bool, error) {
	email = strings.TrimSpace(email)
	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		if existing.RoleID != s.privilegedID {
			s.logger.Warnf("bootstrap user %s exists without the privileged role", email)
		}
		return sanitizeUser(existing), false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = "Administrator"
	}
	if err := validateEmail(email); err != nil {
		return nil, false, err
	}
	if err := validatePassword(password); err != nil {
		return nil, false, err
	}

	user, err := s.create(ctx, name, email, password, s.privilegedID)
	if err != nil {
		return nil, false, err
	}
	s.logger.Infof("created bootstrap privileged user %s (id %d)", user.Email, user.ID)
	return user, true, nil
}

func (s *userService) create(ctx context.Context, name, email, password string, roleID int64) (*domain.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		RoleID:       roleID,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

func (s *userService) Update(ctx context.Context, actor auth.Identity, id int64, in domain.UserUpdate) (*domain.User, error) {
	privileged := actor.RoleID == s.privilegedID
	if actor.UserID != id && !privileged {
		return nil, fmt.Errorf("%w: cannot update another user", ErrForbidden)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalid("name is required")
		}
		user.Name = name
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		user.Email = email
	}
	if in.RoleID != nil && *in.RoleID != user.RoleID {
		if !privileged {
			return nil, fmt.Errorf("%w: only privileged users may change roles", ErrForbidden)
		}
		if err := s.ensureRole(ctx, *in.RoleID); err != nil {
			return nil, err
		}
		user.RoleID = *in.RoleID
	}
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) Delete(ctx context.Context, actor auth.Identity, id int64) error {
	if actor.UserID != id && actor.RoleID != s.privilegedID {
		return fmt.Errorf("%w: cannot delete another user", ErrForbidden)
	}
	return s.users.Delete(ctx, id)
}

func (s *userService) ensureRole(ctx context.Context, roleID int64) error {
	if _, err := s.roles.Get(ctx, roleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalid("unknown role %d", roleID)
		}
		return err
	}
	return nil
}

func validateEmail(email string) error {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t\r\n") {
		return invalid("a valid email is required")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return invalid("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return invalid("password must be at most %d bytes", MaxPasswordLength)
	}
	return nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	clean := *user
	clean.PasswordHash = ""
	return &clean
}
