package domain

import (
	"errors"
	"time"
)

var (
	// ErrUserAlreadyExists is returned when trying to create a user with an existing email.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrUserNotFound is returned when looking up a non-existent user.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned when the email/password combination is incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrWeakPassword is returned when a password does not meet the minimum length.
	ErrWeakPassword = errors.New("password too short")
	// ErrNoEmail is returned when an email address is required but missing.
	ErrNoEmail = errors.New("no email")
)

// MinPasswordLength is the shortest password accepted on sign up and password update.
const MinPasswordLength = 6

// User is the identity issued by the auth provider.
// It is treated as an immutable value: a fresh User replaces the old one on every auth event.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is a User together with its stored credentials.
type UserAccount struct {
	User

	PasswordHash string    // PHC-encoded argon2id hash
	UpdatedAt    time.Time // Last credential or metadata change
}

// Credentials carries the inputs of a password sign in.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration carries the inputs of a sign up.
type Registration struct {
	Credentials

	Name string `json:"name"`
}

// UserUpdate holds the changes of an update of the signed in user. Nil fields are left unchanged.
type UserUpdate struct {
	Password *string `json:"password,omitempty"`
	Name     *string `json:"name,omitempty"`
}

// RecoveryRequest asks the auth provider to send a password recovery link.
type RecoveryRequest struct {
	Email      string `json:"email"`
	RedirectTo string `json:"redirect_to,omitempty"`
}
