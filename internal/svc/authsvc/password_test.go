package authsvc_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/fintrack/internal/svc/authsvc"
)

func TestHashPassword(t *testing.T) {
	t.Parallel()

	hash, err := authsvc.HashPassword(fastPasswords, "correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"), hash)

	again, err := authsvc.HashPassword(fastPasswords, "correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "salts differ")

	ok, err := authsvc.VerifyPassword("correct horse", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = authsvc.VerifyPassword("battery staple", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPassword_InvalidHash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		hash string
	}{
		{name: "empty", hash: ""},
		{name: "wrong algorithm", hash: "$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA"},
		{name: "wrong version", hash: "$argon2id$v=16$m=1024,t=1,p=1$c2FsdA$aGFzaA"},
		{name: "bad params", hash: "$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA"},
		{name: "zero cost", hash: "$argon2id$v=19$m=0,t=1,p=1$c2FsdA$aGFzaA"},
		{name: "bad salt", hash: "$argon2id$v=19$m=1024,t=1,p=1$!!$aGFzaA"},
		{name: "empty hash", hash: "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ok, err := authsvc.VerifyPassword("secret", tt.hash)
			require.ErrorIs(t, err, authsvc.ErrInvalidPasswordHash)
			assert.False(t, ok)
		})
	}
}
