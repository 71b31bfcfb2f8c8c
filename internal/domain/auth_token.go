package domain

import (
	"errors"
	"time"
)

var (
	// ErrNoAuthToken is returned when an authentication token is required but not provided.
	ErrNoAuthToken = errors.New("no auth token")
	// ErrInvalidAuthToken is returned when a token's signature is invalid or it has expired.
	ErrInvalidAuthToken = errors.New("invalid auth token")
	// ErrInvalidRefreshToken is returned when a refresh token is unknown, revoked or expired.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrUnauthorized is returned when the caller is not authenticated.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidRecoveryLink is returned when a password recovery link carries no token.
	ErrInvalidRecoveryLink = errors.New("invalid or expired recovery link")
)

// AuthMethod records how the session behind an access token was established.
type AuthMethod string

const (
	AuthMethodPassword AuthMethod = "password"
	AuthMethodRecovery AuthMethod = "recovery"
)

// AuthToken is the validated content of an access token.
type AuthToken struct {
	UserID    string     `json:"sub"`
	Email     string     `json:"email"`
	Name      string     `json:"name,omitempty"`
	SessionID string     `json:"sid"`
	Method    AuthMethod `json:"amr"`
	IssuedAt  int64      `json:"iat"`
	ExpiresAt int64      `json:"exp"`
}

// AuthSession is what the auth provider hands out on sign in, sign up and refresh.
type AuthSession struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         User   `json:"user"`
}

// Expired reports whether the access token has expired at the given instant,
// counting a token as expired margin before its actual expiry.
func (s *AuthSession) Expired(now time.Time, margin time.Duration) bool {
	if s == nil {
		return true
	}

	return now.Add(margin).Unix() >= s.ExpiresAt
}

// UserOrNil returns a copy of the session's user, or nil for a nil session.
func (s *AuthSession) UserOrNil() *User {
	if s == nil {
		return nil
	}

	user := s.User

	return &user
}

// AuthTokenResponse represents a response containing an authentication token.
type AuthTokenResponse struct {
	Token string `json:"token"`
}
