package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"inkpost/app/auth"
	"inkpost/app/blobstore"
	"inkpost/app/models"
	"inkpost/app/render"
	"inkpost/app/repositories/mock"
	"inkpost/app/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type controllerEnv struct {
	users   *mock.UserRepository
	posts   *mock.PostRepository
	blobs   *blobstore.Disk
	userSvc *services.UserService
	postSvc *services.PostService
	router  *mux.Router
}

func setupControllers(t *testing.T) *controllerEnv {
	t.Helper()
	blobs, err := blobstore.NewDisk(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &controllerEnv{
		users: mock.NewUserRepository(),
		posts: mock.NewPostRepository(),
		blobs: blobs,
	}
	assets := services.NewAssetService(blobs).WithLogger(logger)
	env.userSvc = services.NewUserService(env.users, assets, auth.NewTokenIssuer("test-secret")).WithLogger(logger)
	env.postSvc = services.NewPostService(env.posts, env.users, assets).WithLogger(logger)

	pc := NewPostController(env.postSvc).WithLogger(logger)
	uc := NewUserController(env.userSvc).WithLogger(logger)

	// Routes are registered without authentication; tests put the caller's
	// identity on the request context with as().
	r := mux.NewRouter()
	r.HandleFunc("/users/register", uc.Register).Methods(http.MethodPost)
	r.HandleFunc("/users/login", uc.Login).Methods(http.MethodPost)
	r.HandleFunc("/users/change-avatar", uc.ChangeAvatar).Methods(http.MethodPost)
	r.HandleFunc("/users/edit-user", uc.EditUser).Methods(http.MethodPatch)
	r.HandleFunc("/users/{id}", uc.Show).Methods(http.MethodGet)
	r.HandleFunc("/users", uc.Authors).Methods(http.MethodGet)
	r.HandleFunc("/posts", pc.Create).Methods(http.MethodPost)
	r.HandleFunc("/posts", pc.Index).Methods(http.MethodGet)
	r.HandleFunc("/posts/categories/{category}", pc.ByCategory).Methods(http.MethodGet)
	r.HandleFunc("/posts/users/{id}", pc.ByUser).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id}", pc.Show).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id}", pc.Edit).Methods(http.MethodPatch)
	r.HandleFunc("/posts/{id}", pc.Delete).Methods(http.MethodDelete)
	env.router = r
	return env
}

func (e *controllerEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *controllerEnv) register(t *testing.T, name, email string) *models.User {
	t.Helper()
	user, err := e.userSvc.Register(context.Background(), models.RegisterInput{
		Name: name, Email: email, Password: "secret1", Password2: "secret1",
	})
	require.NoError(t, err)
	return user
}

func (e *controllerEnv) createPost(t *testing.T, creator *models.User, title string) *models.Post {
	t.Helper()
	post, err := e.postSvc.CreatePost(context.Background(), models.CreatePostInput{
		Title:       title,
		Category:    "Art",
		Description: "a description that is long enough",
		Thumbnail:   &models.Upload{Filename: "cover.png", Data: []byte("png bytes")},
	}, creator.ID)
	require.NoError(t, err)
	return post
}

func (e *controllerEnv) exists(t *testing.T, name string) bool {
	t.Helper()
	ok, err := e.blobs.Exists(name)
	require.NoError(t, err)
	return ok
}

// as attaches the identity of user to req.
func as(req *http.Request, user *models.User) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{ID: user.ID, Name: user.Name}))
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest builds a form with fields and, when fileField is set, one
// file part.
func multipartRequest(t *testing.T, method, target string, fields map[string]string, fileField, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		part, err := mw.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) render.ErrorBody {
	t.Helper()
	var body render.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
