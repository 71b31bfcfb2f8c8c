package authsvc

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrInvalidPasswordHash is returned when a stored hash is not a PHC-encoded argon2id hash.
var ErrInvalidPasswordHash = errors.New("invalid password hash")

const passwordAlgorithm = "argon2id"

// PasswordConfig holds the argon2id cost parameters for new hashes.
// Existing hashes are verified with the parameters encoded in them.
type PasswordConfig struct {
	Memory      uint32 `env:"MEMORY"      envDefault:"65536"` // KiB
	Time        uint32 `env:"TIME"        envDefault:"2"`
	Parallelism uint8  `env:"PARALLELISM" envDefault:"2"`
	SaltLength  uint32 `env:"SALT_LENGTH" envDefault:"16"`
	KeyLength   uint32 `env:"KEY_LENGTH"  envDefault:"32"`
}

// HashPassword derives an argon2id hash and encodes it as
// $argon2id$v=19$m=<memory>,t=<time>,p=<parallelism>$<salt>$<hash>.
func HashPassword(cfg PasswordConfig, password string) (string, error) {
	salt := make([]byte, cfg.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, cfg.Time, cfg.Memory, cfg.Parallelism, cfg.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		passwordAlgorithm,
		argon2.Version,
		cfg.Memory, cfg.Time, cfg.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword reports whether password matches the encoded hash.
func VerifyPassword(password, encoded string) (bool, error) {
	params, salt, hash, err := decodePasswordHash(encoded)
	if err != nil {
		return false, err
	}

	//nolint:gosec
	computed := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Parallelism, uint32(len(hash)))

	return subtle.ConstantTimeCompare(computed, hash) == 1, nil
}

func decodePasswordHash(encoded string) (params PasswordConfig, salt, hash []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != passwordAlgorithm {
		return params, nil, nil, ErrInvalidPasswordHash
	}

	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return params, nil, nil, errors.Join(ErrInvalidPasswordHash, fmt.Errorf("unsupported version %q", parts[2]))
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Time, &params.Parallelism); err != nil {
		return params, nil, nil, errors.Join(ErrInvalidPasswordHash, fmt.Errorf("parse params: %w", err))
	}

	if params.Memory == 0 || params.Time == 0 || params.Parallelism == 0 {
		return params, nil, nil, errors.Join(ErrInvalidPasswordHash, errors.New("zero cost parameter"))
	}

	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return params, nil, nil, errors.Join(ErrInvalidPasswordHash, fmt.Errorf("decode salt: %w", err))
	}

	if hash, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return params, nil, nil, errors.Join(ErrInvalidPasswordHash, fmt.Errorf("decode hash: %w", err))
	} else if len(hash) == 0 {
		return params, nil, nil, ErrInvalidPasswordHash
	}

	return params, salt, hash, nil
}
