package core

import (
	"context"
	"time"
)

// User represents an authenticated dashboard user, optionally scoped to
// a store.
type User struct {
	ID           int
	Username     string
	Email        string
	PasswordHash string
	Role         string
	StoreID      *int
	IsActive     bool
	CreatedAt    time.Time
}

// UserService provides user lookup and credential checks.
type UserService interface {
	// Authenticate verifies a username/password pair and returns the user.
	Authenticate(ctx context.Context, username, password string) (*User, error)

	// GetByUsername finds an active user by username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByID returns a user by primary key.
	GetByID(ctx context.Context, userID int) (*User, error)
}
