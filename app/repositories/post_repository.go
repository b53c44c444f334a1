package repositories

import (
	"context"
	"errors"
	"fmt"

	"inkpost/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerPostRepository implements PostRepository using BadgerDB
type BadgerPostRepository struct {
	db *badger.DB
}

// NewBadgerPostRepository creates a new BadgerPostRepository
func NewBadgerPostRepository(db *badger.DB) *BadgerPostRepository {
	return &BadgerPostRepository{db: db}
}

// Create creates a new post
func (r *BadgerPostRepository) Create(_ context.Context, post *models.Post) error {
	return r.db.Update(func(txn *badger.Txn) error {
		if post.ID == "" {
			post.ID = newID()
		}

		data, err := marshalEntity(post)
		if err != nil {
			return err
		}
		return txn.Set(postKey(post.ID), data)
	})
}

// GetByID retrieves a post by ID
func (r *BadgerPostRepository) GetByID(_ context.Context, id string) (*models.Post, error) {
	var post models.Post

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(postKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return unmarshalEntity(val, &post)
		})
	})

	if err != nil {
		return nil, err
	}
	return &post, nil
}

// List retrieves all posts, most recently updated first
func (r *BadgerPostRepository) List(_ context.Context) ([]*models.Post, error) {
	posts, err := r.scan(func(*models.Post) bool { return true })
	if err != nil {
		return nil, err
	}
	SortByUpdatedDesc(posts)
	return posts, nil
}

// ListByCategory retrieves posts in a category, newest first
func (r *BadgerPostRepository) ListByCategory(_ context.Context, category string) ([]*models.Post, error) {
	posts, err := r.scan(func(p *models.Post) bool { return p.Category == category })
	if err != nil {
		return nil, err
	}
	SortByCreatedDesc(posts)
	return posts, nil
}

// ListByCreator retrieves posts written by one user, newest first
func (r *BadgerPostRepository) ListByCreator(_ context.Context, creatorID string) ([]*models.Post, error) {
	posts, err := r.scan(func(p *models.Post) bool { return p.Creator == creatorID })
	if err != nil {
		return nil, err
	}
	SortByCreatedDesc(posts)
	return posts, nil
}

// Update updates an existing post
func (r *BadgerPostRepository) Update(_ context.Context, post *models.Post) error {
	return r.db.Update(func(txn *badger.Txn) error {
		key := postKey(post.ID)

		// Verify post exists
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		data, err := marshalEntity(post)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

// Delete deletes a post by ID
func (r *BadgerPostRepository) Delete(_ context.Context, id string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		key := postKey(id)

		// Verify post exists
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		return txn.Delete(key)
	})
}

func (r *BadgerPostRepository) scan(keep func(*models.Post) bool) ([]*models.Post, error) {
	posts := []*models.Post{}
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(PostKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var post models.Post
			err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &post)
			})
			if err != nil {
				return fmt.Errorf("failed to unmarshal post: %w", err)
			}
			if keep(&post) {
				posts = append(posts, &post)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}
