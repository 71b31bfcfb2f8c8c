// Package user persists the auth provider's user accounts.
package user

import (
	"context"

	"github.com/mkrupp/fintrack/internal/domain"
)

// Repository defines the interface for user data persistence.
// Emails are compared case-insensitively.
type Repository interface {
	// CreateUser adds a new account. Returns domain.ErrUserAlreadyExists if the email is taken.
	CreateUser(ctx context.Context, account *domain.UserAccount) error

	// GetUserByEmail returns the account registered with email, or domain.ErrUserNotFound.
	GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error)

	// GetUserByID returns the account with the given id, or domain.ErrUserNotFound.
	GetUserByID(ctx context.Context, id string) (*domain.UserAccount, error)

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id string, passwordHash string) error

	// UpdateName replaces the display name.
	UpdateName(ctx context.Context, id string, name string) error

	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
type RepositoryFactory func(ctx context.Context) (Repository, error)
