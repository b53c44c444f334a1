package models

import (
	"strings"
	"time"
)

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required"`
	Password  string `json:"password" validate:"required"`
	Password2 string `json:"password2" validate:"required"`
}

// Validate checks that all fields are present.
func (in *RegisterInput) Validate() error {
	return validate.Struct(in)
}

// LoginInput is the body of a login request.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Validate checks that both credentials are present.
func (in *LoginInput) Validate() error {
	return validate.Struct(in)
}

// EditUserInput is the body of a profile edit.
type EditUserInput struct {
	Name               string `json:"name" validate:"required"`
	Email              string `json:"email" validate:"required"`
	CurrentPassword    string `json:"currentPassword" validate:"required"`
	NewPassword        string `json:"newPassword" validate:"required"`
	NewConfirmPassword string `json:"newConfirmPassword" validate:"required"`
}

// Validate checks that all fields are present.
func (in *EditUserInput) Validate() error {
	return validate.Struct(in)
}

// NormalizeEmail is the canonical form used for uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// BeforeCreate stamps timestamps and resets the post counter.
func (u *User) BeforeCreate(now time.Time) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = u.CreatedAt
	u.Posts = 0
}

// AdjustPosts applies delta to the post counter. The counter never goes
// below zero.
func (u *User) AdjustPosts(delta int) {
	u.Posts += delta
	if u.Posts < 0 {
		u.Posts = 0
	}
}
