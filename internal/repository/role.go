package repository

import (
	"context"

	"parasite-blog/internal/domain"
)

// RoleRepository manages roles. Init seeds domain.DefaultRoles.
type RoleRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, role *domain.Role) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Role, error)
	List(ctx context.Context) ([]domain.Role, error)
	Update(ctx context.Context, role *domain.Role) error
	Delete(ctx context.Context, id int64) error
}
