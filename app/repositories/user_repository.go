package repositories

import (
	"context"
	"errors"
	"fmt"

	"inkpost/app/models"

	"github.com/dgraph-io/badger/v4"
)

// userRecord is the stored form of a user. The hash is hidden from the
// public JSON of models.User, so it travels in its own field here.
type userRecord struct {
	models.User
	PasswordHash string `json:"passwordHash"`
}

func toUserRecord(u *models.User) userRecord {
	return userRecord{User: *u, PasswordHash: u.PasswordHash}
}

func (r userRecord) model() *models.User {
	u := r.User
	u.PasswordHash = r.PasswordHash
	return &u
}

// BadgerUserRepository implements UserRepository using BadgerDB.
// Users live under user:<id>; email:<email> maps an address to its owner.
type BadgerUserRepository struct {
	db *badger.DB
}

// NewBadgerUserRepository creates a new BadgerUserRepository
func NewBadgerUserRepository(db *badger.DB) *BadgerUserRepository {
	return &BadgerUserRepository{db: db}
}

// Create stores a new user and claims its email
func (r *BadgerUserRepository) Create(_ context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	return r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(emailKey(user.Email)); err == nil {
			return ErrDuplicateEmail
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if user.ID == "" {
			user.ID = newID()
		}
		data, err := marshalEntity(toUserRecord(user))
		if err != nil {
			return err
		}
		if err := txn.Set(userKey(user.ID), data); err != nil {
			return err
		}
		return txn.Set(emailKey(user.Email), []byte(user.ID))
	})
}

// GetByID retrieves a user by ID
func (r *BadgerUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	var user *models.User
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = getUser(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetByEmail resolves the email index and loads the owner
func (r *BadgerUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	var user *models.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(email))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		user, err = getUser(txn, string(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// List retrieves every user
func (r *BadgerUserRepository) List(_ context.Context) ([]*models.User, error) {
	users := []*models.User{}
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(UserKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec userRecord
			err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("failed to unmarshal user: %w", err)
			}
			users = append(users, rec.model())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	SortUsersByCreatedDesc(users)
	return users, nil
}

// Update replaces an existing user, moving the email index if it changed
func (r *BadgerUserRepository) Update(_ context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	return r.db.Update(func(txn *badger.Txn) error {
		existing, err := getUser(txn, user.ID)
		if err != nil {
			return err
		}

		if existing.Email != user.Email {
			item, err := txn.Get(emailKey(user.Email))
			switch {
			case err == nil:
				owner, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				if string(owner) != user.ID {
					return ErrDuplicateEmail
				}
			case !errors.Is(err, badger.ErrKeyNotFound):
				return err
			}
			if err := txn.Delete(emailKey(existing.Email)); err != nil {
				return err
			}
			if err := txn.Set(emailKey(user.Email), []byte(user.ID)); err != nil {
				return err
			}
		}

		user.Posts = existing.Posts
		data, err := marshalEntity(toUserRecord(user))
		if err != nil {
			return err
		}
		return txn.Set(userKey(user.ID), data)
	})
}

// maxConflictRetries bounds how often a counter update is retried after
// losing an optimistic transaction race.
const maxConflictRetries = 16

// AdjustPostCount updates the denormalized post counter
func (r *BadgerUserRepository) AdjustPostCount(ctx context.Context, id string, delta int) (*models.User, error) {
	var (
		user *models.User
		err  error
	)
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		user, err = r.adjustPostCount(id, delta)
		if !errors.Is(err, badger.ErrConflict) {
			return user, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, err
}

func (r *BadgerUserRepository) adjustPostCount(id string, delta int) (*models.User, error) {
	var user *models.User
	err := r.db.Update(func(txn *badger.Txn) error {
		var err error
		user, err = getUser(txn, id)
		if err != nil {
			return err
		}
		user.AdjustPosts(delta)

		data, err := marshalEntity(toUserRecord(user))
		if err != nil {
			return err
		}
		return txn.Set(userKey(id), data)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func getUser(txn *badger.Txn, id string) (*models.User, error) {
	item, err := txn.Get(userKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var rec userRecord
	if err := item.Value(func(val []byte) error {
		return unmarshalEntity(val, &rec)
	}); err != nil {
		return nil, err
	}
	return rec.model(), nil
}
