package domain

import (
	"errors"
	"time"
)

// ErrSessionNotFound is returned when a stored session does not exist or has expired.
var ErrSessionNotFound = errors.New("session not found")

// StoredSession is the provider side record behind an issued refresh token.
type StoredSession struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	Method           AuthMethod `json:"method"`
	RefreshTokenHash string     `json:"refresh_token_hash"`
	CreatedAt        time.Time  `json:"created_at"`
	ExpiresAt        time.Time  `json:"expires_at"`
}

// Expired reports whether the session is no longer usable at the given instant.
func (s StoredSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
