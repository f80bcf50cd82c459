package domain

import (
	"time"
)

// User represents a registered account in the system.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	AvatarURL    string    `json:"avatar,omitempty"`
	OAuthID      string    `json:"-"`
	RefreshToken string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsOAuthOnly reports whether the account was created through an OAuth
// provider and has no local password.
func (u *User) IsOAuthOnly() bool {
	return u.OAuthID != "" && u.PasswordHash == ""
}

// TokenPair holds a freshly issued access and refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
