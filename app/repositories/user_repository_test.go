package repositories

import (
	"sync"
	"testing"
	"time"

	"inkpost/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(name, email string) *models.User {
	u := &models.User{Name: name, Email: email, PasswordHash: "hash-" + name}
	u.BeforeCreate(time.Now())
	return u
}

func TestUserRepository(t *testing.T) {
	repo := NewBadgerUserRepository(newTestDB(t))
	ctx := t.Context()

	t.Run("create and get user", func(t *testing.T) {
		user := newUser("Ann", "Ann@Example.com ")
		require.NoError(t, repo.Create(ctx, user))
		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "ann@example.com", user.Email)

		got, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ann", got.Name)
		assert.Equal(t, "hash-Ann", got.PasswordHash)
		assert.Equal(t, 0, got.Posts)

		byEmail, err := repo.GetByEmail(ctx, "ANN@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		err := repo.Create(ctx, newUser("Other", "ann@example.com"))
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repo.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repo.AdjustPostCount(ctx, "nope", 1)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUserRepositoryUpdate(t *testing.T) {
	repo := NewBadgerUserRepository(newTestDB(t))
	ctx := t.Context()

	ann := newUser("Ann", "ann@example.com")
	bob := newUser("Bob", "bob@example.com")
	require.NoError(t, repo.Create(ctx, ann))
	require.NoError(t, repo.Create(ctx, bob))

	t.Run("email change moves the index", func(t *testing.T) {
		ann.Email = "ann2@example.com"
		ann.Name = "Annie"
		require.NoError(t, repo.Update(ctx, ann))

		_, err := repo.GetByEmail(ctx, "ann@example.com")
		assert.ErrorIs(t, err, ErrNotFound)

		got, err := repo.GetByEmail(ctx, "ann2@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Annie", got.Name)
	})

	t.Run("email taken by another user", func(t *testing.T) {
		changed := *bob
		changed.Email = "ann2@example.com"
		assert.ErrorIs(t, repo.Update(ctx, &changed), ErrDuplicateEmail)

		got, err := repo.GetByEmail(ctx, "bob@example.com")
		require.NoError(t, err)
		assert.Equal(t, bob.ID, got.ID)
	})

	t.Run("same email is not a conflict", func(t *testing.T) {
		bob.Name = "Robert"
		require.NoError(t, repo.Update(ctx, bob))
	})

	t.Run("list", func(t *testing.T) {
		users, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 2)
	})
}

func TestUserRepositoryAdjustPostCount(t *testing.T) {
	repo := NewBadgerUserRepository(newTestDB(t))
	ctx := t.Context()

	user := newUser("Ann", "ann@example.com")
	require.NoError(t, repo.Create(ctx, user))

	t.Run("increments and floors at zero", func(t *testing.T) {
		got, err := repo.AdjustPostCount(ctx, user.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Posts)

		got, err = repo.AdjustPostCount(ctx, user.ID, -5)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Posts)
	})

	t.Run("concurrent increments", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.AdjustPostCount(ctx, user.ID, 1)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 8, got.Posts)
	})
}
