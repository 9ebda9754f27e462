package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"parasite-blog/internal/auth"
	"parasite-blog/internal/domain"
	"parasite-blog/internal/repository"
)

// PostInput carries the author-editable fields of a post.
type PostInput struct {
	Title           string
	Content         string
	ImageURL        string
	Attachments     string
	ParasiteAgentID *int64
	HostID          *int64
	TransmissionID  *int64
}

// PostService coordinates authoring and moderation of posts.
type PostService interface {
	// Feed lists validated posts only.
	Feed(ctx context.Context) ([]domain.PostView, error)
	// Pending lists posts awaiting moderation.
	Pending(ctx context.Context) ([]domain.PostView, error)
	// ByAuthor lists an author's posts; pending ones only for the author or a privileged actor.
	ByAuthor(ctx context.Context, actor auth.Identity, authorID int64) ([]domain.PostView, error)
	// Get returns a post; pending posts are visible only to their author or a privileged actor.
	Get(ctx context.Context, actor *auth.Identity, id int64) (*domain.Post, error)
	Create(ctx context.Context, actor auth.Identity, in PostInput) (*domain.Post, error)
	Update(ctx context.Context, actor auth.Identity, id int64, in PostInput) (*domain.Post, error)
	SetValidated(ctx context.Context, id int64, validated bool) (*domain.Post, error)
	Delete(ctx context.Context, actor auth.Identity, id int64) error
}

type postService struct {
	posts        repository.PostRepository
	references   map[domain.ReferenceKind]repository.ReferenceRepository
	privilegedID int64
}

func NewPostService(posts repository.PostRepository, references []repository.ReferenceRepository, privilegedRoleID int64) PostService {
	byKind := make(map[domain.ReferenceKind]repository.ReferenceRepository, len(references))
	for _, repo := range references {
		byKind[repo.Kind()] = repo
	}
	return &postService{
		posts:        posts,
		references:   byKind,
		privilegedID: privilegedRoleID,
	}
}

func (s *postService) Feed(ctx context.Context) ([]domain.PostView, error) {
	validated := true
	return s.posts.List(ctx, domain.PostFilter{Validated: &validated})
}

func (s *postService) Pending(ctx context.Context) ([]domain.PostView, error) {
	validated := false
	return s.posts.List(ctx, domain.PostFilter{Validated: &validated})
}

func (s *postService) ByAuthor(ctx context.Context, actor auth.Identity, authorID int64) ([]domain.PostView, error) {
	filter := domain.PostFilter{AuthorID: &authorID}
	if !s.canSeePending(&actor, authorID) {
		validated := true
		filter.Validated = &validated
	}
	return s.posts.List(ctx, filter)
}

func (s *postService) Get(ctx context.Context, actor *auth.Identity, id int64) (*domain.Post, error) {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.Validated && !s.canSeePending(actor, post.AuthorID) {
		// hide the existence of pending posts from other readers
		return nil, fmt.Errorf("post %d: %w", id, repository.ErrNotFound)
	}
	return post, nil
}

func (s *postService) Create(ctx context.Context, actor auth.Identity, in PostInput) (*domain.Post, error) {
	if err := s.validateInput(ctx, &in); err != nil {
		return nil, err
	}

	post := &domain.Post{
		AuthorID:  actor.UserID,
		Validated: false,
	}
	applyPostInput(post, in)

	if _, err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *postService) Update(ctx context.Context, actor auth.Identity, id int64, in PostInput) (*domain.Post, error) {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actor.UserID && actor.RoleID != s.privilegedID {
		return nil, fmt.Errorf("%w: only the author may edit this post", ErrForbidden)
	}
	if err := s.validateInput(ctx, &in); err != nil {
		return nil, err
	}

	applyPostInput(post, in)
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *postService) SetValidated(ctx context.Context, id int64, validated bool) (*domain.Post, error) {
	if err := s.posts.SetValidated(ctx, id, validated); err != nil {
		return nil, err
	}
	return s.posts.Get(ctx, id)
}

func (s *postService) Delete(ctx context.Context, actor auth.Identity, id int64) error {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return err
	}
	if post.AuthorID != actor.UserID && actor.RoleID != s.privilegedID {
		return fmt.Errorf("%w: only the author may delete this post", ErrForbidden)
	}
	return s.posts.Delete(ctx, id)
}

func (s *postService) canSeePending(actor *auth.Identity, authorID int64) bool {
	if actor == nil {
		return false
	}
	return actor.UserID == authorID || actor.RoleID == s.privilegedID
}

func (s *postService) validateInput(ctx context.Context, in *PostInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if in.Title == "" {
		return invalid("title is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return invalid("content is required")
	}

	refs := []struct {
		kind domain.ReferenceKind
		id   *int64
	}{
		{domain.ReferenceParasiteAgent, in.ParasiteAgentID},
		{domain.ReferenceHost, in.HostID},
		{domain.ReferenceTransmission, in.TransmissionID},
	}
	for _, ref := range refs {
		if ref.id == nil {
			continue
		}
		repo, ok := s.references[ref.kind]
		if !ok {
			continue
		}
		if _, err := repo.Get(ctx, *ref.id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return invalid("unknown %s %d", ref.kind, *ref.id)
			}
			return err
		}
	}
	return nil
}

func applyPostInput(post *domain.Post, in PostInput) {
	post.Title = in.Title
	post.Content = in.Content
	post.ImageURL = in.ImageURL
	post.Attachments = in.Attachments
	post.ParasiteAgentID = in.ParasiteAgentID
	post.HostID = in.HostID
	post.TransmissionID = in.TransmissionID
}
