package repository

import (
	"context"

	"parasite-blog/internal/domain"
)

// ReferenceRepository stores the taxonomy entries of a single kind.
type ReferenceRepository interface {
	Init(ctx context.Context) error
	Kind() domain.ReferenceKind
	Create(ctx context.Context, entity *domain.ReferenceEntity) (int64, error)
	Get(ctx context.Context, id int64) (*domain.ReferenceEntity, error)
	List(ctx context.Context) ([]domain.ReferenceEntity, error)
	Update(ctx context.Context, entity *domain.ReferenceEntity) error
	Delete(ctx context.Context, id int64) error
}
