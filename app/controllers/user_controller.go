package controllers

import (
	"log/slog"
	"net/http"

	"inkpost/app/auth"
	"inkpost/app/models"
	"inkpost/app/render"
	"inkpost/app/services"

	"github.com/gorilla/mux"
)

var (
	loginStatus = statusOverrides{
		services.ErrUnauthorized: http.StatusUnprocessableEntity,
	}
	// A wrong current password is a form error, not a session problem.
	editUserStatus = statusOverrides{
		services.ErrUnauthorized: http.StatusUnprocessableEntity,
	}
)

// UserController handles registration, login and profile requests
type UserController struct {
	userService *services.UserService
	logger      *slog.Logger
}

// NewUserController creates a new UserController
func NewUserController(userService *services.UserService) *UserController {
	return &UserController{
		userService: userService,
		logger:      slog.Default(),
	}
}

// WithLogger sets the logger for the user controller
func (uc *UserController) WithLogger(l *slog.Logger) *UserController {
	tmp := *uc
	tmp.logger = l
	return &tmp
}

// Register creates an account and answers 201 with the new user.
func (uc *UserController) Register(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterInput
	if err := decodeInput(w, r, &in); err != nil {
		rejectBody(w, r, uc.logger, err)
		return
	}

	user, err := uc.userService.Register(r.Context(), in)
	if err != nil {
		respondError(w, r, uc.logger, err, nil)
		return
	}
	render.JSON(w, http.StatusCreated, user)
}

// Login exchanges credentials for a token.
func (uc *UserController) Login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginInput
	if err := decodeInput(w, r, &in); err != nil {
		rejectBody(w, r, uc.logger, err)
		return
	}

	result, err := uc.userService.Login(r.Context(), in)
	if err != nil {
		respondError(w, r, uc.logger, err, loginStatus)
		return
	}
	render.JSON(w, http.StatusOK, result)
}

// Show returns one user's public profile.
func (uc *UserController) Show(w http.ResponseWriter, r *http.Request) {
	user, err := uc.userService.GetUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, uc.logger, err, nil)
		return
	}
	render.JSON(w, http.StatusOK, user)
}

// Authors lists every user, newest first.
func (uc *UserController) Authors(w http.ResponseWriter, r *http.Request) {
	users, err := uc.userService.ListAuthors(r.Context())
	if err != nil {
		respondError(w, r, uc.logger, err, nil)
		return
	}
	render.JSON(w, http.StatusOK, users)
}

// ChangeAvatar replaces the caller's avatar with the "avatar" file part.
func (uc *UserController) ChangeAvatar(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	if err := parseMultipart(w, r, services.AvatarLimit); err != nil {
		rejectBody(w, r, uc.logger, err)
		return
	}
	avatar, err := readUpload(r, "avatar", services.AvatarLimit)
	if err != nil {
		rejectBody(w, r, uc.logger, err)
		return
	}

	user, err := uc.userService.ChangeAvatar(r.Context(), identity.ID, avatar)
	if err != nil {
		respondError(w, r, uc.logger, err, nil)
		return
	}
	render.JSON(w, http.StatusOK, user)
}

// EditUser changes the caller's name, email and password.
func (uc *UserController) EditUser(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	var in models.EditUserInput
	if err := decodeInput(w, r, &in); err != nil {
		rejectBody(w, r, uc.logger, err)
		return
	}

	user, err := uc.userService.EditUser(r.Context(), identity.ID, in)
	if err != nil {
		respondError(w, r, uc.logger, err, editUserStatus)
		return
	}
	render.JSON(w, http.StatusOK, user)
}
