package domain

import (
	"errors"
	"time"
)

// User is a registered account. Email is unique across the store.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session links an opaque cookie token to a user email.
type Session struct {
	Token     string
	Email     string
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// ErrEmailTaken is returned by user stores when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")
