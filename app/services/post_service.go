package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"inkpost/app/models"
	"inkpost/app/repositories"
)

// PostService handles business logic for blog posts
type PostService struct {
	posts  repositories.PostRepository
	users  repositories.UserRepository
	assets *AssetService
	logger *slog.Logger
	now    func() time.Time
}

// NewPostService creates a new PostService
func NewPostService(posts repositories.PostRepository, users repositories.UserRepository, assets *AssetService) *PostService {
	return &PostService{
		posts:  posts,
		users:  users,
		assets: assets,
		logger: slog.Default(),
		now:    time.Now,
	}
}

// WithLogger sets the logger for the post service
func (s *PostService) WithLogger(l *slog.Logger) *PostService {
	tmp := *s
	tmp.logger = l
	return &tmp
}

// CreatePost stores the thumbnail, inserts the post and bumps the
// creator's post count.
func (s *PostService) CreatePost(ctx context.Context, in models.CreatePostInput, creatorID string) (*models.Post, error) {
	if err := in.Validate(); err != nil {
		return nil, validationError(models.ValidationMessage(err))
	}

	thumbnail, err := s.assets.StoreNewAsset(ctx, in.Thumbnail, ThumbnailLimit)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:       in.Title,
		Category:    in.Category,
		Description: in.Description,
		Thumbnail:   thumbnail,
		Creator:     creatorID,
	}
	post.BeforeCreate(s.now())

	if err := s.posts.Create(ctx, post); err != nil {
		if derr := s.assets.DiscardAsset(ctx, thumbnail); derr != nil {
			s.logger.WarnContext(ctx, "orphaned thumbnail after failed insert", "name", thumbnail, "error", derr)
		}
		return nil, fmt.Errorf("create post: %w", err)
	}

	if _, err := s.users.AdjustPostCount(ctx, creatorID, 1); err != nil {
		s.logger.WarnContext(ctx, "post count increment failed", "user", creatorID, "post", post.ID, "error", err)
	}
	return post, nil
}

// GetPost retrieves a post by ID
func (s *PostService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, postLookupError(err)
	}
	return post, nil
}

// ListPosts returns every post, most recently updated first
func (s *PostService) ListPosts(ctx context.Context) ([]*models.Post, error) {
	return s.posts.List(ctx)
}

func (s *PostService) ListPostsByCategory(ctx context.Context, category string) ([]*models.Post, error) {
	return s.posts.ListByCategory(ctx, category)
}

func (s *PostService) ListPostsByCreator(ctx context.Context, creatorID string) ([]*models.Post, error) {
	return s.posts.ListByCreator(ctx, creatorID)
}

// EditPost updates the text fields of a post and, when a new thumbnail is
// supplied, swaps the stored file. Only the creator may edit.
func (s *PostService) EditPost(ctx context.Context, id string, in models.EditPostInput, requesterID string) (*models.Post, error) {
	if err := in.Validate(); err != nil {
		return nil, validationError(models.ValidationMessage(err))
	}

	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, postLookupError(err)
	}
	if !post.OwnedBy(requesterID) {
		return nil, newError(ErrUnauthorized, "Unauthorized to edit this post.", nil)
	}

	post.Title = in.Title
	post.Category = in.Category
	post.Description = in.Description
	post.Touch(s.now())

	if !in.Thumbnail.Present() {
		if err := s.posts.Update(ctx, post); err != nil {
			return nil, postLookupError(err)
		}
		return post, nil
	}

	previous := post.Thumbnail
	_, err = s.assets.ReplaceAsset(ctx, previous, in.Thumbnail, ThumbnailLimit, func(name string) error {
		post.Thumbnail = name
		return s.posts.Update(ctx, post)
	})
	if err != nil {
		return nil, postLookupError(err)
	}
	return post, nil
}

// DeletePost removes the thumbnail, then the post, then decrements the
// creator's post count. The count only moves once the record is gone.
func (s *PostService) DeletePost(ctx context.Context, id, requesterID string) error {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return postLookupError(err)
	}
	if !post.OwnedBy(requesterID) {
		return newError(ErrUnauthorized, "Unauthorized to delete this post.", nil)
	}

	if err := s.assets.DiscardAsset(ctx, post.Thumbnail); err != nil {
		return err
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		return postLookupError(err)
	}

	if _, err := s.users.AdjustPostCount(ctx, post.Creator, -1); err != nil {
		s.logger.WarnContext(ctx, "post count decrement failed", "user", post.Creator, "post", id, "error", err)
	}
	return nil
}

// postLookupError classifies repository errors. Errors that already carry
// a kind pass through.
func postLookupError(err error) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return newError(ErrNotFound, "Post not found.", err)
	}
	return err
}
