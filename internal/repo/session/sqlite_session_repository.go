package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mkrupp/fintrack/internal/domain"
	"github.com/mkrupp/fintrack/internal/infra/logging"
	"github.com/mkrupp/fintrack/internal/infra/sqlite"
)

// SQLiteSessionRepositoryConfig holds configuration for the SQLite session repository.
type SQLiteSessionRepositoryConfig struct {
	DatabasePath string `env:"DATABASE_PATH" envDefault:"var/storage/authsvc.db"`
}

// SQLiteSessionRepository implements Repository on SQLite.
type SQLiteSessionRepository struct {
	db        *sql.DB
	log       logging.Logger
	writeLock *sync.Mutex
	now       func() time.Time
}

var _ Repository = (*SQLiteSessionRepository)(nil)

// SQLiteSessionRepositoryFactory returns a RepositoryFactory producing SQLite repositories.
func SQLiteSessionRepositoryFactory(cfg SQLiteSessionRepositoryConfig) RepositoryFactory {
	return func(ctx context.Context) (Repository, error) {
		return NewSQLiteSessionRepository(ctx, cfg)
	}
}

// NewSQLiteSessionRepository opens the database and creates the schema if needed.
func NewSQLiteSessionRepository(ctx context.Context, cfg SQLiteSessionRepositoryConfig) (*SQLiteSessionRepository, error) {
	db, err := sqlite.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			id                 TEXT    PRIMARY KEY,
			user_id            TEXT    NOT NULL,
			method             TEXT    NOT NULL,
			refresh_token_hash TEXT    NOT NULL,
			created_at         INTEGER NOT NULL,
			expires_at         INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS sessions_user_id ON sessions (user_id);
	`); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteSessionRepository{
		db: db,
		log: logging.GetLogger("repo.session.sqlite_session_repository").With(
			logging.Group("db", "path", cfg.DatabasePath),
		),
		writeLock: new(sync.Mutex),
		now:       time.Now,
	}, nil
}

func (r *SQLiteSessionRepository) Create(ctx context.Context, session *domain.StoredSession) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, method, refresh_token_hash, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		string(session.Method),
		session.RefreshTokenHash,
		session.CreatedAt.UnixMilli(),
		session.ExpiresAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

func (r *SQLiteSessionRepository) Get(ctx context.Context, id string) (*domain.StoredSession, error) {
	var (
		session   domain.StoredSession
		method    string
		createdAt int64
		expiresAt int64
	)

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, method, refresh_token_hash, created_at, expires_at
		 FROM sessions WHERE id = ? AND expires_at > ?`,
		id, r.now().UnixMilli(),
	).Scan(&session.ID, &session.UserID, &method, &session.RefreshTokenHash, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = errors.Join(domain.ErrSessionNotFound, err)
		}

		return nil, fmt.Errorf("query session: %w", err)
	}

	session.Method = domain.AuthMethod(method)
	session.CreatedAt = time.UnixMilli(createdAt).UTC()
	session.ExpiresAt = time.UnixMilli(expiresAt).UTC()

	return &session, nil
}

func (r *SQLiteSessionRepository) Rotate(
	ctx context.Context,
	id string,
	oldHash string,
	newHash string,
	expiresAt time.Time,
) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET refresh_token_hash = ?, expires_at = ?
		 WHERE id = ? AND refresh_token_hash = ? AND expires_at > ?`,
		newHash, expiresAt.UnixMilli(), id, oldHash, r.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return domain.ErrInvalidRefreshToken
	}

	return nil
}

func (r *SQLiteSessionRepository) Delete(ctx context.Context, id string) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

func (r *SQLiteSessionRepository) DeleteByUser(ctx context.Context, userID string, exceptID string) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ? AND id != ?", userID, exceptID)
	if err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		r.log.DebugContext(ctx, "user sessions deleted", "count", n)
	}

	return nil
}

// Close implements Repository.Close by closing the database connection.
func (r *SQLiteSessionRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}
