package services

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"inkpost/app/auth"
	"inkpost/app/blobstore"
	"inkpost/app/metrics"
	"inkpost/app/models"
	"inkpost/app/repositories/mock"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// flakyBlobs wraps a real disk store and fails on demand.
type flakyBlobs struct {
	*blobstore.Disk

	mu        sync.Mutex
	writeErr  error
	deleteErr error
	deletes   []string
}

func (f *flakyBlobs) Write(name string, r io.Reader) (int64, error) {
	f.mu.Lock()
	err := f.writeErr
	f.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return f.Disk.Write(name, r)
}

func (f *flakyBlobs) Delete(name string) error {
	f.mu.Lock()
	err := f.deleteErr
	f.deletes = append(f.deletes, name)
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Disk.Delete(name)
}

func (f *flakyBlobs) failWrites(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

func (f *flakyBlobs) failDeletes(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteErr = err
}

type testEnv struct {
	users   *mock.UserRepository
	posts   *mock.PostRepository
	blobs   *flakyBlobs
	metrics *metrics.Metrics
	assets  *AssetService
	postSvc *PostService
	userSvc *UserService
	tokens  *auth.TokenIssuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	disk, err := blobstore.NewDisk(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		users:   mock.NewUserRepository(),
		posts:   mock.NewPostRepository(),
		blobs:   &flakyBlobs{Disk: disk},
		metrics: metrics.New(),
		tokens:  auth.NewTokenIssuer("test-secret"),
	}
	env.assets = NewAssetService(env.blobs).WithLogger(logger).WithMetrics(env.metrics)
	env.postSvc = NewPostService(env.posts, env.users, env.assets).WithLogger(logger)
	env.userSvc = NewUserService(env.users, env.assets, env.tokens).WithLogger(logger)
	env.userSvc.cost = bcrypt.MinCost
	return env
}

func (e *testEnv) exists(t *testing.T, name string) bool {
	t.Helper()
	ok, err := e.blobs.Exists(name)
	require.NoError(t, err)
	return ok
}

func (e *testEnv) register(t *testing.T, name, email string) *models.User {
	t.Helper()
	u, err := e.userSvc.Register(t.Context(), models.RegisterInput{
		Name: name, Email: email, Password: "secret1", Password2: "secret1",
	})
	require.NoError(t, err)
	return u
}

func (e *testEnv) createPost(t *testing.T, creatorID string) *models.Post {
	t.Helper()
	p, err := e.postSvc.CreatePost(t.Context(), models.CreatePostInput{
		Title:       "Hello",
		Category:    "Art",
		Description: "A post about painting",
		Thumbnail:   upload("pic.png", 1024),
	}, creatorID)
	require.NoError(t, err)
	return p
}

func upload(name string, size int) *models.Upload {
	return &models.Upload{Filename: name, Data: bytes.Repeat([]byte{0xAB}, size)}
}
