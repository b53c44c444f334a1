package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"inkpost/app/models"
	"inkpost/app/repositories"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "inkpost.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inkpost.db")
	for i := 0; i < 2; i++ {
		st, err := Open(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		var version int
		if err := st.db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
			t.Fatalf("read version: %v", err)
		}
		if version != len(migrations) {
			t.Fatalf("expected version %d, got %d", len(migrations), version)
		}
		_ = st.Close()
	}
}

func TestUserLifecycle(t *testing.T) {
	st := newTestStore(t)
	users := st.Users()
	ctx := context.Background()

	ann := &models.User{Name: "Ann", Email: " ANN@example.com", PasswordHash: "h"}
	ann.BeforeCreate(time.Now())
	if err := users.Create(ctx, ann); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if ann.ID == "" {
		t.Fatal("expected an id to be assigned")
	}

	got, err := users.GetByEmail(ctx, "ann@EXAMPLE.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ID != ann.ID || got.PasswordHash != "h" {
		t.Fatalf("unexpected user: %+v", got)
	}
	if !got.CreatedAt.Equal(ann.CreatedAt) {
		t.Fatalf("created_at did not round trip: %v vs %v", got.CreatedAt, ann.CreatedAt)
	}

	dup := &models.User{Name: "Imposter", Email: "ann@example.com", PasswordHash: "x"}
	dup.BeforeCreate(time.Now())
	if err := users.Create(ctx, dup); !errors.Is(err, repositories.ErrDuplicateEmail) {
		t.Fatalf("expected duplicate email, got %v", err)
	}

	bob := &models.User{Name: "Bob", Email: "bob@example.com", PasswordHash: "h"}
	bob.BeforeCreate(time.Now())
	if err := users.Create(ctx, bob); err != nil {
		t.Fatalf("create bob: %v", err)
	}
	bob.Email = "ann@example.com"
	if err := users.Update(ctx, bob); !errors.Is(err, repositories.ErrDuplicateEmail) {
		t.Fatalf("expected duplicate email on update, got %v", err)
	}

	ann.Avatar = "avatar.png"
	if err := users.Update(ctx, ann); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = users.GetByID(ctx, ann.ID)
	if got.Avatar != "avatar.png" {
		t.Fatalf("expected avatar to persist, got %q", got.Avatar)
	}

	if _, err := users.GetByID(ctx, "missing"); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	list, err := users.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 users, got %d", len(list))
	}
}

func TestAdjustPostCount(t *testing.T) {
	st := newTestStore(t)
	users := st.Users()
	ctx := context.Background()

	u := &models.User{Name: "Ann", Email: "ann@example.com", PasswordHash: "h"}
	u.BeforeCreate(time.Now())
	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, err := users.AdjustPostCount(ctx, u.ID, 2)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if got.Posts != 2 {
		t.Fatalf("expected 2 posts, got %d", got.Posts)
	}

	got, err = users.AdjustPostCount(ctx, u.ID, -3)
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if got.Posts != 0 {
		t.Fatalf("expected counter floored at 0, got %d", got.Posts)
	}

	if _, err := users.AdjustPostCount(ctx, "missing", 1); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPostLifecycle(t *testing.T) {
	st := newTestStore(t)
	posts := st.Posts()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, p := range []*models.Post{
		{ID: "a", Title: "A", Category: "Art", Description: "first", Thumbnail: "a.png", Creator: "u1"},
		{ID: "b", Title: "B", Category: "Art", Description: "second", Thumbnail: "b.png", Creator: "u2"},
		{ID: "c", Title: "C", Category: "Business", Description: "third", Thumbnail: "c.png", Creator: "u1"},
	} {
		p.BeforeCreate(base.Add(time.Duration(i) * time.Hour))
		if err := posts.Create(ctx, p); err != nil {
			t.Fatalf("create %s: %v", p.ID, err)
		}
	}

	a, err := posts.GetByID(ctx, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	a.Title = "A2"
	a.Touch(base.Add(10 * time.Hour))
	if err := posts.Update(ctx, a); err != nil {
		t.Fatalf("update: %v", err)
	}

	all, err := posts.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != "a" || all[0].Title != "A2" {
		t.Fatalf("expected edited post first, got %+v", all)
	}

	art, err := posts.ListByCategory(ctx, "Art")
	if err != nil {
		t.Fatalf("list by category: %v", err)
	}
	if len(art) != 2 || art[0].ID != "b" {
		t.Fatalf("unexpected category listing: %+v", art)
	}

	mine, err := posts.ListByCreator(ctx, "u1")
	if err != nil {
		t.Fatalf("list by creator: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != "c" {
		t.Fatalf("unexpected creator listing: %+v", mine)
	}

	if err := posts.Delete(ctx, "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := posts.Delete(ctx, "b"); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if err := posts.Update(ctx, &models.Post{ID: "zzz"}); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("expected not found on update, got %v", err)
	}

	empty, err := posts.ListByCategory(ctx, "Weather")
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty)
	}
}
