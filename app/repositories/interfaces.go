package repositories

import (
	"context"
	"errors"

	"inkpost/app/models"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create assigns an ID and stores the user. Returns ErrDuplicateEmail
	// when the email is already taken.
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// List returns all users, newest first.
	List(ctx context.Context) ([]*models.User, error)
	// Update replaces the stored user, keeping the email index in step.
	// The post counter is left alone; only AdjustPostCount moves it.
	Update(ctx context.Context, user *models.User) error
	// AdjustPostCount applies delta to the user's post counter in a single
	// read-modify-write and returns the updated user.
	AdjustPostCount(ctx context.Context, id string, delta int) (*models.User, error)
}

// PostRepository defines the interface for post data access
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	// List returns all posts, most recently updated first.
	List(ctx context.Context) ([]*models.Post, error)
	// ListByCategory and ListByCreator return posts newest first.
	ListByCategory(ctx context.Context, category string) ([]*models.Post, error)
	ListByCreator(ctx context.Context, creatorID string) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id string) error
}
