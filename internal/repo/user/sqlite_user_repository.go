package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mkrupp/fintrack/internal/domain"
	"github.com/mkrupp/fintrack/internal/infra/logging"
	"github.com/mkrupp/fintrack/internal/infra/sqlite"
)

// SQLiteUserRepositoryConfig holds configuration for the SQLite user repository.
type SQLiteUserRepositoryConfig struct {
	DatabasePath string `env:"DATABASE_PATH" envDefault:"var/storage/authsvc.db"`
}

// SQLiteUserRepository implements Repository using SQLite as the storage backend.
type SQLiteUserRepository struct {
	db        *sql.DB
	log       logging.Logger
	writeLock *sync.Mutex // sqlite does not support concurrent writes
}

var _ Repository = (*SQLiteUserRepository)(nil)

// SQLiteUserRepositoryFactory returns a RepositoryFactory producing SQLite repositories.
func SQLiteUserRepositoryFactory(cfg SQLiteUserRepositoryConfig) RepositoryFactory {
	return func(ctx context.Context) (Repository, error) {
		return NewSQLiteUserRepository(ctx, cfg)
	}
}

// NewSQLiteUserRepository opens the database and creates the schema if needed.
func NewSQLiteUserRepository(ctx context.Context, cfg SQLiteUserRepositoryConfig) (*SQLiteUserRepository, error) {
	log := logging.GetLogger("repo.user.sqlite_user_repository").With(
		logging.Group("db", "path", cfg.DatabasePath),
	)

	db, err := sqlite.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := initializeDB(ctx, db); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("initialize db: %w", err)
	}

	return &SQLiteUserRepository{
		db:        db,
		log:       log,
		writeLock: new(sync.Mutex),
	}, nil
}

func initializeDB(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT    PRIMARY KEY,
			email         TEXT    UNIQUE NOT NULL COLLATE NOCASE,
			name          TEXT    NOT NULL DEFAULT '',
			password_hash TEXT    NOT NULL,
			created_at    INTEGER NOT NULL,
			updated_at    INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

func (r *SQLiteUserRepository) CreateUser(ctx context.Context, account *domain.UserAccount) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (id, email, name, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		account.ID,
		normalizeEmail(account.Email),
		account.Name,
		account.PasswordHash,
		account.CreatedAt.UnixMilli(),
		account.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			err = errors.Join(domain.ErrUserAlreadyExists, err)
		}

		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

func (r *SQLiteUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error) {
	return r.getUser(ctx, "email = ?", normalizeEmail(email))
}

func (r *SQLiteUserRepository) GetUserByID(ctx context.Context, id string) (*domain.UserAccount, error) {
	return r.getUser(ctx, "id = ?", id)
}

func (r *SQLiteUserRepository) getUser(ctx context.Context, where string, arg any) (*domain.UserAccount, error) {
	var (
		account   domain.UserAccount
		createdAt int64
		updatedAt int64
	)

	//nolint:gosec
	err := r.db.QueryRowContext(ctx,
		"SELECT id, email, name, password_hash, created_at, updated_at FROM users WHERE "+where,
		arg,
	).Scan(&account.ID, &account.Email, &account.Name, &account.PasswordHash, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = errors.Join(domain.ErrUserNotFound, err)
		}

		return nil, fmt.Errorf("query user: %w", err)
	}

	account.CreatedAt = time.UnixMilli(createdAt).UTC()
	account.UpdatedAt = time.UnixMilli(updatedAt).UTC()

	return &account, nil
}

func (r *SQLiteUserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	return r.update(ctx, "password_hash", id, passwordHash)
}

func (r *SQLiteUserRepository) UpdateName(ctx context.Context, id string, name string) error {
	return r.update(ctx, "name", id, name)
}

func (r *SQLiteUserRepository) update(ctx context.Context, column string, id string, value string) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	//nolint:gosec
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET "+column+" = ?, updated_at = ? WHERE id = ?",
		value, time.Now().UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("update user %s: %w", column, err)
	}

	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}

// Close implements Repository.Close by closing the database connection.
func (r *SQLiteUserRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
