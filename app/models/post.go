package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// MinEditDescriptionLength is the shortest description accepted on edit.
const MinEditDescriptionLength = 12

// CreatePostInput carries the fields of a new post.
type CreatePostInput struct {
	Title       string  `json:"title" validate:"required"`
	Category    string  `json:"category" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Thumbnail   *Upload `json:"-"`
}

// Validate checks that every field, including the thumbnail, is present.
func (in *CreatePostInput) Validate() error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	if !in.Thumbnail.Present() {
		return fmt.Errorf("thumbnail is required")
	}
	return nil
}

// EditPostInput carries the fields of a post edit. Thumbnail is optional.
type EditPostInput struct {
	Title       string  `json:"title" validate:"required"`
	Category    string  `json:"category" validate:"required"`
	Description string  `json:"description" validate:"min=12"`
	Thumbnail   *Upload `json:"-"`
}

// Validate checks the edit requirements
func (in *EditPostInput) Validate() error {
	return validate.Struct(in)
}

// BeforeCreate stamps creation and update times
func (p *Post) BeforeCreate(now time.Time) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = p.CreatedAt
}

// Touch records a modification.
func (p *Post) Touch(now time.Time) {
	p.UpdatedAt = now
}

// OwnedBy reports whether userID created the post.
func (p *Post) OwnedBy(userID string) bool {
	return userID != "" && p.Creator == userID
}

// ValidationMessage turns a validator error into a short client-facing sentence.
func ValidationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "min":
			parts = append(parts, fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(parts, "; ")
}
