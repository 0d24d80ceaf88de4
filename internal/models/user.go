package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity record.
// HashedPassword and RefreshToken are never serialized: any user that
// leaves the service through JSON is sanitized by the struct tags alone.
type User struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`

	HashedPassword string `json:"-"`

	// Single active refresh token, empty when logged out.
	// Owned by the user repository, rotated only through the auth service.
	RefreshToken string `json:"-"`

	AvatarURL string `json:"avatar"`
	CoverURL  string `json:"coverImage,omitempty"`
}

// Sanitized returns a copy safe to cache or pass around outside the
// auth service: credential fields are zeroed.
func (u User) Sanitized() User {
	u.HashedPassword = ""
	u.RefreshToken = ""
	return u
}
