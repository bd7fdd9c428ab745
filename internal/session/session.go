// Package session keeps server-side login state keyed by an opaque id that the client holds
// in a cookie.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
)

var ErrNotFound = errors.New("session not found")

// User is the identity cached in a session after a successful OAuth callback.
type User struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

type Session struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	User            *User  `json:"user,omitempty"`
	OAuthState      string `json:"oauth_state,omitempty"`
	IssuedAt        int64  `json:"iat"`
}

// Email returns the cached user email, or "" when the session carries no user.
func (s *Session) Email() string {
	if s == nil || s.User == nil {
		return ""
	}
	return s.User.Email
}

// Store is the session store contract. Save replaces the whole session in one write and
// Get extends its lifetime (sliding expiry); Destroy of an unknown id is not an error.
type Store interface {
	Create(ctx context.Context) (string, *Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, id string, s *Session) error
	Destroy(ctx context.Context, id string) error
	// RevokeUser destroys every session authenticated as email.
	RevokeUser(ctx context.Context, email string) error
}

// NewID returns a 256-bit url-safe random id.
func NewID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
