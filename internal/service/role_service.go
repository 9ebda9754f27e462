package service

import (
	"context"
	"strings"

	"parasite-blog/internal/domain"
	"parasite-blog/internal/repository"
)

// RoleService manages the role catalogue.
type RoleService interface {
	List(ctx context.Context) ([]domain.Role, error)
	Get(ctx context.Context, id int64) (*domain.Role, error)
	Create(ctx context.Context, name string) (*domain.Role, error)
	Update(ctx context.Context, id int64, name string) (*domain.Role, error)
	Delete(ctx context.Context, id int64) error
}

type roleService struct {
	roles repository.RoleRepository
}

func NewRoleService(roles repository.RoleRepository) RoleService {
	return &roleService{roles: roles}
}

func (s *roleService) List(ctx context.Context) ([]domain.Role, error) {
	return s.roles.List(ctx)
}

func (s *roleService) Get(ctx context.Context, id int64) (*domain.Role, error) {
	return s.roles.Get(ctx, id)
}

func (s *roleService) Create(ctx context.Context, name string) (*domain.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("role name is required")
	}
	role := &domain.Role{Name: name}
	if _, err := s.roles.Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *roleService) Update(ctx context.Context, id int64, name string) (*domain.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("role name is required")
	}
	role := &domain.Role{ID: id, Name: name}
	if err := s.roles.Update(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *roleService) Delete(ctx context.Context, id int64) error {
	return s.roles.Delete(ctx, id)
}
