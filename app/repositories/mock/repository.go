package mock

import (
	"context"
	"fmt"
	"sync"

	"inkpost/app/models"
	"inkpost/app/repositories"
)

// PostRepository is an in-memory PostRepository. The Err* fields, when set,
// are returned by the matching method instead of touching the map.
type PostRepository struct {
	posts  map[string]*models.Post
	nextID int
	mutex  sync.RWMutex

	ErrCreate error
	ErrUpdate error
	ErrDelete error
}

// UserRepository is an in-memory UserRepository with the same failure hooks.
type UserRepository struct {
	users  map[string]*models.User
	nextID int
	mutex  sync.RWMutex

	ErrCreate error
	ErrUpdate error
	ErrAdjust error
}

func NewPostRepository() *PostRepository {
	return &PostRepository{
		posts:  make(map[string]*models.Post),
		nextID: 1,
	}
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:  make(map[string]*models.User),
		nextID: 1,
	}
}

// PostRepository implementation
func (m *PostRepository) Create(_ context.Context, post *models.Post) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.ErrCreate != nil {
		return m.ErrCreate
	}
	if post.ID == "" {
		post.ID = fmt.Sprintf("post-%d", m.nextID)
		m.nextID++
	}
	stored := *post
	m.posts[post.ID] = &stored
	return nil
}

func (m *PostRepository) GetByID(_ context.Context, id string) (*models.Post, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	post, exists := m.posts[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	out := *post
	return &out, nil
}

func (m *PostRepository) Update(_ context.Context, post *models.Post) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.ErrUpdate != nil {
		return m.ErrUpdate
	}
	if _, exists := m.posts[post.ID]; !exists {
		return repositories.ErrNotFound
	}
	stored := *post
	m.posts[post.ID] = &stored
	return nil
}

func (m *PostRepository) Delete(_ context.Context, id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.ErrDelete != nil {
		return m.ErrDelete
	}
	if _, exists := m.posts[id]; !exists {
		return repositories.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *PostRepository) List(_ context.Context) ([]*models.Post, error) {
	posts := m.filter(func(*models.Post) bool { return true })
	repositories.SortByUpdatedDesc(posts)
	return posts, nil
}

func (m *PostRepository) ListByCategory(_ context.Context, category string) ([]*models.Post, error) {
	posts := m.filter(func(p *models.Post) bool { return p.Category == category })
	repositories.SortByCreatedDesc(posts)
	return posts, nil
}

func (m *PostRepository) ListByCreator(_ context.Context, creatorID string) ([]*models.Post, error) {
	posts := m.filter(func(p *models.Post) bool { return p.Creator == creatorID })
	repositories.SortByCreatedDesc(posts)
	return posts, nil
}

// Count reports how many posts are stored.
func (m *PostRepository) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.posts)
}

func (m *PostRepository) filter(keep func(*models.Post) bool) []*models.Post {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	posts := []*models.Post{}
	for _, post := range m.posts {
		if keep(post) {
			out := *post
			posts = append(posts, &out)
		}
	}
	return posts
}

// UserRepository implementation
func (m *UserRepository) Create(_ context.Context, user *models.User) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.ErrCreate != nil {
		return m.ErrCreate
	}
	user.Email = models.NormalizeEmail(user.Email)
	if m.emailOwner(user.Email) != "" {
		return repositories.ErrDuplicateEmail
	}
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", m.nextID)
		m.nextID++
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *UserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	user, exists := m.users[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	out := *user
	return &out, nil
}

func (m *UserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	id := m.emailOwner(models.NormalizeEmail(email))
	if id == "" {
		return nil, repositories.ErrNotFound
	}
	out := *m.users[id]
	return &out, nil
}

func (m *UserRepository) List(_ context.Context) ([]*models.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	users := []*models.User{}
	for _, user := range m.users {
		out := *user
		users = append(users, &out)
	}
	repositories.SortUsersByCreatedDesc(users)
	return users, nil
}

func (m *UserRepository) Update(_ context.Context, user *models.User) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.ErrUpdate != nil {
		return m.ErrUpdate
	}
	if _, exists := m.users[user.ID]; !exists {
		return repositories.ErrNotFound
	}
	user.Email = models.NormalizeEmail(user.Email)
	if owner := m.emailOwner(user.Email); owner != "" && owner != user.ID {
		return repositories.ErrDuplicateEmail
	}
	user.Posts = m.users[user.ID].Posts
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *UserRepository) AdjustPostCount(_ context.Context, id string, delta int) (*models.User, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.ErrAdjust != nil {
		return nil, m.ErrAdjust
	}
	user, exists := m.users[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	user.AdjustPosts(delta)
	out := *user
	return &out, nil
}

func (m *UserRepository) emailOwner(email string) string {
	for id, u := range m.users {
		if u.Email == email {
			return id
		}
	}
	return ""
}

var (
	_ repositories.PostRepository = (*PostRepository)(nil)
	_ repositories.UserRepository = (*UserRepository)(nil)
)
