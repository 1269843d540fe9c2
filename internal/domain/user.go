package domain

import (
	"errors"
	"time"
)

var (
	// ErrUserNotFound indicates that the user is not found.
	ErrUserNotFound = errors.New("User not found")
	// ErrRecipientNotFound indicates that the transfer recipient is not found.
	ErrRecipientNotFound = errors.New("Recipient not found")
)

// User is an account holder as known by the account directory.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrEmailAlreadyExists indicates that the user with the given email already exists.
var ErrEmailAlreadyExists = errors.New("Email already exists")

// CreateUserParams holds data needed to register a user in the directory.
type CreateUserParams struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
