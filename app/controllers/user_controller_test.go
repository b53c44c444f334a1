package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"inkpost/app/models"
	"inkpost/app/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserControllerRegister(t *testing.T) {
	env := setupControllers(t)

	t.Run("creates the account", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPost, "/users/register", map[string]string{
			"name": "Ann", "email": "Ann@Example.com", "password": "secret1", "password2": "secret1",
		})
		w := env.serve(req)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var user models.User
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "ann@example.com", user.Email)
		assert.Equal(t, 0, user.Posts)
		assert.NotContains(t, w.Body.String(), "secret1")
		assert.NotContains(t, strings.ToLower(w.Body.String()), "password")
	})

	t.Run("url-encoded form", func(t *testing.T) {
		form := url.Values{
			"name": {"Bob"}, "email": {"bob@example.com"}, "password": {"secret1"}, "password2": {"secret1"},
		}
		req := httptest.NewRequest(http.MethodPost, "/users/register", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := env.serve(req)
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})

	tests := []struct {
		name    string
		body    map[string]string
		message string
	}{
		{
			name:    "missing field",
			body:    map[string]string{"name": "Cat", "email": "cat@example.com", "password": "secret1"},
			message: "Fill in all fields.",
		},
		{
			name:    "duplicate email",
			body:    map[string]string{"name": "Ann", "email": "ann@example.com", "password": "secret1", "password2": "secret1"},
			message: "Email already exists.",
		},
		{
			name:    "short password",
			body:    map[string]string{"name": "Cat", "email": "cat@example.com", "password": "abc", "password2": "abc"},
			message: "Password should be at least 6 characters.",
		},
		{
			name:    "passwords differ",
			body:    map[string]string{"name": "Cat", "email": "cat@example.com", "password": "secret1", "password2": "secret2"},
			message: "Passwords do not match.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.serve(jsonRequest(t, http.MethodPost, "/users/register", tt.body))

			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, tt.message, body.Message)
			assert.Equal(t, http.StatusUnprocessableEntity, body.Status)
		})
	}
}

func TestUserControllerLogin(t *testing.T) {
	env := setupControllers(t)
	ann := env.register(t, "Ann", "ann@example.com")

	t.Run("valid credentials", func(t *testing.T) {
		w := env.serve(jsonRequest(t, http.MethodPost, "/users/login", map[string]string{
			"email": "ANN@example.com", "password": "secret1",
		}))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var result services.LoginResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.NotEmpty(t, result.Token)
		assert.Equal(t, ann.ID, result.ID)
		assert.Equal(t, "Ann", result.Name)
	})

	for name, body := range map[string]map[string]string{
		"wrong password": {"email": "ann@example.com", "password": "nope123"},
		"unknown email":  {"email": "who@example.com", "password": "secret1"},
	} {
		t.Run(name, func(t *testing.T) {
			w := env.serve(jsonRequest(t, http.MethodPost, "/users/login", body))

			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Equal(t, "Invalid credentials.", decodeError(t, w).Message)
		})
	}
}

func TestUserControllerProfiles(t *testing.T) {
	env := setupControllers(t)
	ann := env.register(t, "Ann", "ann@example.com")
	env.register(t, "Bob", "bob@example.com")

	t.Run("show", func(t *testing.T) {
		w := env.serve(httptest.NewRequest(http.MethodGet, "/users/"+ann.ID, nil))
		require.Equal(t, http.StatusOK, w.Code)

		var user models.User
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
		assert.Equal(t, "Ann", user.Name)
	})

	t.Run("show missing", func(t *testing.T) {
		w := env.serve(httptest.NewRequest(http.MethodGet, "/users/nobody", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "User not found.", decodeError(t, w).Message)
	})

	t.Run("authors", func(t *testing.T) {
		w := env.serve(httptest.NewRequest(http.MethodGet, "/users", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var users []models.User
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
		assert.Len(t, users, 2)
	})
}

func TestUserControllerChangeAvatar(t *testing.T) {
	env := setupControllers(t)
	ann := env.register(t, "Ann", "ann@example.com")

	var first string
	t.Run("sets the avatar", func(t *testing.T) {
		req := multipartRequest(t, http.MethodPost, "/users/change-avatar", nil, "avatar", "me.png", []byte("png"))
		w := env.serve(as(req, ann))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var user models.User
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
		require.NotEmpty(t, user.Avatar)
		assert.True(t, env.exists(t, user.Avatar))
		first = user.Avatar
	})

	t.Run("replaces the previous avatar", func(t *testing.T) {
		req := multipartRequest(t, http.MethodPost, "/users/change-avatar", nil, "avatar", "me2.png", []byte("png2"))
		w := env.serve(as(req, ann))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		user, err := env.users.GetByID(context.Background(), ann.ID)
		require.NoError(t, err)
		assert.NotEqual(t, first, user.Avatar)
		assert.True(t, env.exists(t, user.Avatar))
		assert.False(t, env.exists(t, first))
	})

	t.Run("no file", func(t *testing.T) {
		req := multipartRequest(t, http.MethodPost, "/users/change-avatar", map[string]string{"x": "y"}, "", "", nil)
		w := env.serve(as(req, ann))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "Please choose an image.", decodeError(t, w).Message)
	})

	t.Run("avatar over the limit", func(t *testing.T) {
		big := make([]byte, services.AvatarLimit.Bytes+1)
		req := multipartRequest(t, http.MethodPost, "/users/change-avatar", nil, "avatar", "big.png", big)
		w := env.serve(as(req, ann))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, decodeError(t, w).Message, "Avatar is too big")
	})
}

func TestUserControllerEditUser(t *testing.T) {
	env := setupControllers(t)
	ann := env.register(t, "Ann", "ann@example.com")
	env.register(t, "Bob", "bob@example.com")

	edit := func(current, email string) map[string]string {
		return map[string]string{
			"name":               "Ann B",
			"email":              email,
			"currentPassword":    current,
			"newPassword":        "changed1",
			"newConfirmPassword": "changed1",
		}
	}

	t.Run("wrong current password", func(t *testing.T) {
		w := env.serve(as(jsonRequest(t, http.MethodPatch, "/users/edit-user", edit("wrong", "ann@example.com")), ann))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "Invalid current password.", decodeError(t, w).Message)
	})

	t.Run("email taken by someone else", func(t *testing.T) {
		w := env.serve(as(jsonRequest(t, http.MethodPatch, "/users/edit-user", edit("secret1", "bob@example.com")), ann))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "Email already exists.", decodeError(t, w).Message)
	})

	t.Run("updates the profile", func(t *testing.T) {
		w := env.serve(as(jsonRequest(t, http.MethodPatch, "/users/edit-user", edit("secret1", "ann.b@example.com")), ann))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var user models.User
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
		assert.Equal(t, "Ann B", user.Name)
		assert.Equal(t, "ann.b@example.com", user.Email)

		login := env.serve(jsonRequest(t, http.MethodPost, "/users/login", map[string]string{
			"email": "ann.b@example.com", "password": "changed1",
		}))
		assert.Equal(t, http.StatusOK, login.Code)
	})
}
