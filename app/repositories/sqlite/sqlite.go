// Package sqlite is the relational alternative to the Badger repositories.
// It satisfies the same repository interfaces so the service layer cannot
// tell the two apart.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"inkpost/app/models"
	"inkpost/app/repositories"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Users returns the user repository backed by this store.
func (s *Store) Users() *UserRepository {
	return &UserRepository{db: s.db}
}

// Posts returns the post repository backed by this store.
func (s *Store) Posts() *PostRepository {
	return &PostRepository{db: s.db}
}

// migrations is an ordered list of SQL migrations.
// Each migration runs exactly once, tracked by schema_version table.
var migrations = []string{
	`
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	avatar TEXT NOT NULL DEFAULT '',
	posts INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email);

CREATE TABLE IF NOT EXISTS posts (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	category TEXT NOT NULL,
	description TEXT NOT NULL,
	thumbnail TEXT NOT NULL,
	creator TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_updated_at ON posts(updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_posts_category ON posts(category, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_posts_creator ON posts(creator, created_at DESC);
`,
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return err
	}

	var currentVersion int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&currentVersion); err != nil {
		return err
	}

	for i := currentVersion; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}

	return nil
}

// UserRepository implements repositories.UserRepository on SQLite.
type UserRepository struct {
	db *sql.DB
}

const userColumns = `id, name, email, password_hash, avatar, posts, created_at, updated_at`

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = models.NormalizeEmail(user.Email)
	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (`+userColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, user.ID, user.Name, user.Email, user.PasswordHash, user.Avatar, user.Posts,
		user.CreatedAt.UnixNano(), user.UpdatedAt.UnixNano())
	if isUniqueViolation(err) {
		return repositories.ErrDuplicateEmail
	}
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, models.NormalizeEmail(email))
	return scanUser(row)
}

func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	res, err := r.db.ExecContext(ctx, `
UPDATE users SET name = ?, email = ?, password_hash = ?, avatar = ?, updated_at = ?
WHERE id = ?
`, user.Name, user.Email, user.PasswordHash, user.Avatar, user.UpdatedAt.UnixNano(), user.ID)
	if isUniqueViolation(err) {
		return repositories.ErrDuplicateEmail
	}
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// AdjustPostCount applies delta in one statement so concurrent writers
// never lose an update. The counter never drops below zero.
func (r *UserRepository) AdjustPostCount(ctx context.Context, id string, delta int) (*models.User, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET posts = MAX(posts + ?, 0) WHERE id = ?`, delta, id)
	if err != nil {
		return nil, err
	}
	if err := expectOneRow(res); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// PostRepository implements repositories.PostRepository on SQLite.
type PostRepository struct {
	db *sql.DB
}

const postColumns = `id, title, category, description, thumbnail, creator, created_at, updated_at`

func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO posts (`+postColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, post.ID, post.Title, post.Category, post.Description, post.Thumbnail, post.Creator,
		post.CreatedAt.UnixNano(), post.UpdatedAt.UnixNano())
	return err
}

func (r *PostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	return scanPost(row)
}

func (r *PostRepository) List(ctx context.Context) ([]*models.Post, error) {
	return r.query(ctx, `SELECT `+postColumns+` FROM posts ORDER BY updated_at DESC`)
}

func (r *PostRepository) ListByCategory(ctx context.Context, category string) ([]*models.Post, error) {
	return r.query(ctx, `SELECT `+postColumns+` FROM posts WHERE category = ? ORDER BY created_at DESC`, category)
}

func (r *PostRepository) ListByCreator(ctx context.Context, creatorID string) ([]*models.Post, error) {
	return r.query(ctx, `SELECT `+postColumns+` FROM posts WHERE creator = ? ORDER BY created_at DESC`, creatorID)
}

func (r *PostRepository) Update(ctx context.Context, post *models.Post) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE posts SET title = ?, category = ?, description = ?, thumbnail = ?, updated_at = ?
WHERE id = ?
`, post.Title, post.Category, post.Description, post.Thumbnail, post.UpdatedAt.UnixNano(), post.ID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *PostRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *PostRepository) query(ctx context.Context, q string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []*models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	var (
		u                models.User
		created, updated int64
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Avatar, &u.Posts, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	u.CreatedAt = time.Unix(0, created).UTC()
	u.UpdatedAt = time.Unix(0, updated).UTC()
	return &u, nil
}

func scanPost(row scanner) (*models.Post, error) {
	var (
		p                models.Post
		created, updated int64
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Category, &p.Description, &p.Thumbnail, &p.Creator, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = time.Unix(0, created).UTC()
	p.UpdatedAt = time.Unix(0, updated).UTC()
	return &p, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}

var (
	_ repositories.UserRepository = (*UserRepository)(nil)
	_ repositories.PostRepository = (*PostRepository)(nil)
)
