package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkrupp/fintrack/internal/domain"
	"github.com/mkrupp/fintrack/internal/infra/logging"
)

// RedisSessionRepositoryConfig holds configuration for the Redis session repository.
type RedisSessionRepositoryConfig struct {
	Addr      string `env:"ADDR" envDefault:"localhost:6379"`
	Password  string `env:"PASSWORD" envDefault:""`
	DB        int    `env:"DB" envDefault:"0"`
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"fintrack"`
}

const rotateScript = `
local hash = redis.call("HGET", KEYS[1], "refresh_token_hash")
if not hash then
  return 0
end
local expires_at = tonumber(redis.call("HGET", KEYS[1], "expires_at"))
if hash ~= ARGV[1] or expires_at <= tonumber(ARGV[4]) then
  return -1
end
redis.call("HSET", KEYS[1], "refresh_token_hash", ARGV[2], "expires_at", ARGV[3])
redis.call("PEXPIREAT", KEYS[1], ARGV[3])
return 1
`

//nolint:gochecknoglobals
var rotateLua = redis.NewScript(rotateScript)

// RedisSessionRepository implements Repository on Redis. Each session is a hash
// expiring with the session; a set per user indexes the user's sessions.
type RedisSessionRepository struct {
	client redis.UniversalClient
	prefix string
	log    logging.Logger
	now    func() time.Time
}

var _ Repository = (*RedisSessionRepository)(nil)

// RedisSessionRepositoryFactory returns a RepositoryFactory connecting to cfg.Addr.
func RedisSessionRepositoryFactory(cfg RedisSessionRepositoryConfig) RepositoryFactory {
	return func(ctx context.Context) (Repository, error) {
		//nolint:exhaustruct
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})

		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()

			return nil, fmt.Errorf("ping redis: %w", err)
		}

		return NewRedisSessionRepository(client, cfg.KeyPrefix), nil
	}
}

// NewRedisSessionRepository returns a repository using client, namespacing keys with prefix.
func NewRedisSessionRepository(client redis.UniversalClient, prefix string) *RedisSessionRepository {
	return &RedisSessionRepository{
		client: client,
		prefix: prefix,
		log:    logging.GetLogger("repo.session.redis_session_repository"),
		now:    time.Now,
	}
}

func (r *RedisSessionRepository) key(id string) string {
	return r.prefix + ":session:" + id
}

func (r *RedisSessionRepository) userKey(userID string) string {
	return r.prefix + ":user_sessions:" + userID
}

func (r *RedisSessionRepository) Create(ctx context.Context, session *domain.StoredSession) error {
	key := r.key(session.ID)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"id", session.ID,
			"user_id", session.UserID,
			"method", string(session.Method),
			"refresh_token_hash", session.RefreshTokenHash,
			"created_at", session.CreatedAt.UnixMilli(),
			"expires_at", session.ExpiresAt.UnixMilli(),
		)
		pipe.PExpireAt(ctx, key, session.ExpiresAt)
		pipe.SAdd(ctx, r.userKey(session.UserID), session.ID)

		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	return nil
}

func (r *RedisSessionRepository) Get(ctx context.Context, id string) (*domain.StoredSession, error) {
	fields, err := r.client.HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if len(fields) == 0 {
		return nil, domain.ErrSessionNotFound
	}

	session, err := decodeSession(fields)
	if err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	if session.Expired(r.now()) {
		return nil, domain.ErrSessionNotFound
	}

	return session, nil
}

func (r *RedisSessionRepository) Rotate(
	ctx context.Context,
	id string,
	oldHash string,
	newHash string,
	expiresAt time.Time,
) error {
	status, err := rotateLua.Run(ctx, r.client, []string{r.key(id)},
		oldHash, newHash, expiresAt.UnixMilli(), r.now().UnixMilli(),
	).Int64()
	if err != nil {
		return fmt.Errorf("rotate session: %w", err)
	}

	if status != 1 {
		return domain.ErrInvalidRefreshToken
	}

	return nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	userID, err := r.client.HGet(ctx, r.key(id), "user_id").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("get session owner: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key(id))

		if userID != "" {
			pipe.SRem(ctx, r.userKey(userID), id)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// DeleteByUser is not atomic: a session created while it runs may survive.
func (r *RedisSessionRepository) DeleteByUser(ctx context.Context, userID string, exceptID string) error {
	ids, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("list user sessions: %w", err)
	}

	var (
		keys    []string
		members []any
	)

	for _, id := range ids {
		if id == exceptID {
			continue
		}

		keys = append(keys, r.key(id))
		members = append(members, id)
	}

	if len(keys) == 0 {
		return nil
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.SRem(ctx, r.userKey(userID), members...)

		return nil
	})
	if err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}

	r.log.DebugContext(ctx, "user sessions deleted", "count", len(keys))

	return nil
}

func (r *RedisSessionRepository) Close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}

	return nil
}

func decodeSession(fields map[string]string) (*domain.StoredSession, error) {
	createdAt, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	expiresAt, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}

	return &domain.StoredSession{
		ID:               fields["id"],
		UserID:           fields["user_id"],
		Method:           domain.AuthMethod(fields["method"]),
		RefreshTokenHash: fields["refresh_token_hash"],
		CreatedAt:        time.UnixMilli(createdAt).UTC(),
		ExpiresAt:        time.UnixMilli(expiresAt).UTC(),
	}, nil
}
