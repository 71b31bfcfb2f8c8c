// Package session persists the auth provider's refresh sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkrupp/fintrack/internal/domain"
)

// ErrUnknownBackend is returned when Config.Backend names no implementation.
var ErrUnknownBackend = errors.New("unknown session backend")

// Repository stores the sessions behind issued refresh tokens.
// Get and Rotate treat expired sessions as missing.
type Repository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *domain.StoredSession) error

	// Get returns the session with the given id, or domain.ErrSessionNotFound.
	Get(ctx context.Context, id string) (*domain.StoredSession, error)

	// Rotate replaces the refresh token hash of a session if it still matches oldHash,
	// and extends the session to expiresAt. A missing, expired or mismatching session
	// yields domain.ErrInvalidRefreshToken.
	Rotate(ctx context.Context, id string, oldHash string, newHash string, expiresAt time.Time) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteByUser removes all sessions of a user except the one with id exceptID.
	DeleteByUser(ctx context.Context, userID string, exceptID string) error

	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
type RepositoryFactory func(ctx context.Context) (Repository, error)

// Config selects and configures the session backend.
type Config struct {
	// Backend is "sqlite" or "redis".
	Backend string `env:"BACKEND" envDefault:"sqlite"`

	SQLite SQLiteSessionRepositoryConfig `envPrefix:"SQLITE_"`
	Redis  RedisSessionRepositoryConfig  `envPrefix:"REDIS_"`
}

// RepositoryFactoryFromConfig returns the factory of the configured backend.
func RepositoryFactoryFromConfig(cfg Config) (RepositoryFactory, error) {
	switch cfg.Backend {
	case "sqlite":
		return SQLiteSessionRepositoryFactory(cfg.SQLite), nil
	case "redis":
		return RedisSessionRepositoryFactory(cfg.Redis), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
