package repository

import (
	"context"

	"parasite-blog/internal/domain"
)

// PostRepository exposes persistence operations for posts.
type PostRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, post *domain.Post) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Post, error)
	List(ctx context.Context, filter domain.PostFilter) ([]domain.PostView, error)
	Update(ctx context.Context, post *domain.Post) error
	SetValidated(ctx context.Context, id int64, validated bool) error
	Delete(ctx context.Context, id int64) error
}
