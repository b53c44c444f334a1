package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"inkpost/app/auth"
	"inkpost/app/models"
	"inkpost/app/repositories"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 6
	bcryptCost        = 10
)

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	Token string `json:"token"`
	ID    string `json:"id"`
	Name  string `json:"name"`
}

// UserService handles registration, authentication and profile changes
type UserService struct {
	users  repositories.UserRepository
	assets *AssetService
	tokens *auth.TokenIssuer
	logger *slog.Logger
	now    func() time.Time
	cost   int
}

// NewUserService creates a new UserService
func NewUserService(users repositories.UserRepository, assets *AssetService, tokens *auth.TokenIssuer) *UserService {
	return &UserService{
		users:  users,
		assets: assets,
		tokens: tokens,
		logger: slog.Default(),
		now:    time.Now,
		cost:   bcryptCost,
	}
}

// WithLogger sets the logger for the user service
func (s *UserService) WithLogger(l *slog.Logger) *UserService {
	tmp := *s
	tmp.logger = l
	return &tmp
}

// Register creates a new account.
func (s *UserService) Register(ctx context.Context, in models.RegisterInput) (*models.User, error) {
	if err := in.Validate(); err != nil {
		return nil, validationError("Fill in all fields.")
	}

	email := models.NormalizeEmail(in.Email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, newError(ErrConflict, "Email already exists.", nil)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("look up email: %w", err)
	}

	if len(strings.TrimSpace(in.Password)) < MinPasswordLength {
		return nil, validationError(fmt.Sprintf("Password should be at least %d characters.", MinPasswordLength))
	}
	if in.Password != in.Password2 {
		return nil, validationError("Passwords do not match.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Name:         in.Name,
		Email:        email,
		PasswordHash: string(hash),
	}
	user.BeforeCreate(s.now())

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, newError(ErrConflict, "Email already exists.", err)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.InfoContext(ctx, "user registered", "user", user.ID)
	return user, nil
}

// Login checks credentials and issues a token. Unknown emails and wrong
// passwords fail the same way.
func (s *UserService) Login(ctx context.Context, in models.LoginInput) (*LoginResult, error) {
	if err := in.Validate(); err != nil {
		return nil, validationError("Fill in all fields.")
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, newError(ErrUnauthorized, "Invalid credentials.", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("look up email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, newError(ErrUnauthorized, "Invalid credentials.", nil)
	}

	token, err := s.tokens.Issue(user.ID, user.Name)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ID: user.ID, Name: user.Name}, nil
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, userLookupError(err)
	}
	return user, nil
}

// ListAuthors returns every user, newest first
func (s *UserService) ListAuthors(ctx context.Context) ([]*models.User, error) {
	return s.users.List(ctx)
}

// ChangeAvatar stores upload as the user's avatar and drops the old one.
func (s *UserService) ChangeAvatar(ctx context.Context, userID string, upload *models.Upload) (*models.User, error) {
	if !upload.Present() {
		return nil, validationError("Please choose an image.")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, userLookupError(err)
	}

	_, err = s.assets.ReplaceAsset(ctx, user.Avatar, upload, AvatarLimit, func(name string) error {
		user.Avatar = name
		user.UpdatedAt = s.now()
		return s.users.Update(ctx, user)
	})
	if err != nil {
		return nil, userLookupError(err)
	}
	return user, nil
}

// EditUser changes name, email and password after checking the current
// password.
func (s *UserService) EditUser(ctx context.Context, userID string, in models.EditUserInput) (*models.User, error) {
	if err := in.Validate(); err != nil {
		return nil, validationError("Fill in all fields.")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, userLookupError(err)
	}

	email := models.NormalizeEmail(in.Email)
	owner, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil && owner.ID != user.ID:
		return nil, newError(ErrConflict, "Email already exists.", nil)
	case err != nil && !errors.Is(err, repositories.ErrNotFound):
		return nil, fmt.Errorf("look up email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.CurrentPassword)); err != nil {
		return nil, newError(ErrUnauthorized, "Invalid current password.", nil)
	}
	if in.NewPassword != in.NewConfirmPassword {
		return nil, validationError("New passwords do not match.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user.Name = in.Name
	user.Email = email
	user.PasswordHash = string(hash)
	user.UpdatedAt = s.now()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, userLookupError(err)
	}
	return user, nil
}

func userLookupError(err error) error {
	var se *Error
	switch {
	case errors.As(err, &se):
		return err
	case errors.Is(err, repositories.ErrNotFound):
		return newError(ErrNotFound, "User not found.", err)
	case errors.Is(err, repositories.ErrDuplicateEmail):
		return newError(ErrConflict, "Email already exists.", err)
	}
	return err
}
