package service

import (
	"context"
	"strings"

	"parasite-blog/internal/domain"
	"parasite-blog/internal/repository"
)

// ReferenceService manages one kind of taxonomy entry (hosts, parasite agents or transmissions).
type ReferenceService interface {
	Kind() domain.ReferenceKind
	List(ctx context.Context) ([]domain.ReferenceEntity, error)
	Get(ctx context.Context, id int64) (*domain.ReferenceEntity, error)
	Create(ctx context.Context, name string) (*domain.ReferenceEntity, error)
	Update(ctx context.Context, id int64, name string) (*domain.ReferenceEntity, error)
	Delete(ctx context.Context, id int64) error
}

type referenceService struct {
	repo repository.ReferenceRepository
}

func NewReferenceService(repo repository.ReferenceRepository) ReferenceService {
	return &referenceService{repo: repo}
}

func (s *referenceService) Kind() domain.ReferenceKind {
	return s.repo.Kind()
}

func (s *referenceService) List(ctx context.Context) ([]domain.ReferenceEntity, error) {
	return s.repo.List(ctx)
}

func (s *referenceService) Get(ctx context.Context, id int64) (*domain.ReferenceEntity, error) {
	return s.repo.Get(ctx, id)
}

func (s *referenceService) Create(ctx context.Context, name string) (*domain.ReferenceEntity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("%s name is required", s.repo.Kind())
	}
	entity := &domain.ReferenceEntity{Kind: s.repo.Kind(), Name: name}
	if _, err := s.repo.Create(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

func (s *referenceService) Update(ctx context.Context, id int64, name string) (*domain.ReferenceEntity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("%s name is required", s.repo.Kind())
	}
	entity := &domain.ReferenceEntity{ID: id, Kind: s.repo.Kind(), Name: name}
	if err := s.repo.Update(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

func (s *referenceService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
