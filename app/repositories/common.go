package repositories

import (
	"encoding/json"
	"fmt"
	"sort"

	"inkpost/app/models"

	"github.com/google/uuid"
)

const (
	// Key prefixes for different entity types
	UserKeyPrefix  = "user:"
	PostKeyPrefix  = "post:"
	EmailKeyPrefix = "email:"
)

// newID returns an opaque record identifier
func newID() string {
	return uuid.NewString()
}

func userKey(id string) []byte {
	return []byte(UserKeyPrefix + id)
}

func postKey(id string) []byte {
	return []byte(PostKeyPrefix + id)
}

func emailKey(email string) []byte {
	return []byte(EmailKeyPrefix + models.NormalizeEmail(email))
}

// marshalEntity marshals an entity to JSON
func marshalEntity(entity interface{}) ([]byte, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}
	return data, nil
}

// unmarshalEntity unmarshals JSON data into an entity
func unmarshalEntity(data []byte, entity interface{}) error {
	if err := json.Unmarshal(data, entity); err != nil {
		return fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return nil
}

// SortByUpdatedDesc orders posts most recently updated first.
func SortByUpdatedDesc(posts []*models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].UpdatedAt.After(posts[j].UpdatedAt)
	})
}

// SortByCreatedDesc orders posts newest first.
func SortByCreatedDesc(posts []*models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}

// SortUsersByCreatedDesc orders users newest first.
func SortUsersByCreatedDesc(users []*models.User) {
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
}
