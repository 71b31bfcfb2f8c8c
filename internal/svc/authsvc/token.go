package authsvc

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mkrupp/fintrack/internal/domain"
)

// TokenIssuer is the issuer claim of every access token.
const TokenIssuer = "fintrack-authsvc"

// AccessClaims is the JWT payload of an access token.
type AccessClaims struct {
	Email     string            `json:"email"`
	Name      string            `json:"name,omitempty"`
	SessionID string            `json:"sid"`
	Method    domain.AuthMethod `json:"amr"`
	jwt.RegisteredClaims
}

// AuthToken converts the claims to the domain representation.
func (c AccessClaims) AuthToken() domain.AuthToken {
	token := domain.AuthToken{
		UserID:    c.Subject,
		Email:     c.Email,
		Name:      c.Name,
		SessionID: c.SessionID,
		Method:    c.Method,
	}

	if c.IssuedAt != nil {
		token.IssuedAt = c.IssuedAt.Unix()
	}

	if c.ExpiresAt != nil {
		token.ExpiresAt = c.ExpiresAt.Unix()
	}

	return token
}

// SignToken issues a PS256-signed access token for the user's session, valid for ttl from now.
func SignToken(
	key *rsa.PrivateKey,
	user domain.User,
	sessionID string,
	method domain.AuthMethod,
	now time.Time,
	ttl time.Duration,
) (string, domain.AuthToken, error) {
	claims := AccessClaims{
		Email:     user.Email,
		Name:      user.Name,
		SessionID: sessionID,
		Method:    method,
		RegisteredClaims: jwt.RegisteredClaims{ //nolint:exhaustruct
			Issuer:    TokenIssuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodPS256, claims).SignedString(key)
	if err != nil {
		return "", domain.AuthToken{}, fmt.Errorf("sign token: %w", err)
	}

	return signed, claims.AuthToken(), nil
}

// ValidateToken verifies an access token's signature, issuer and expiry at now.
// Returns domain.ErrInvalidAuthToken for any validation failure.
func ValidateToken(tokenString string, publicKey *rsa.PublicKey, now time.Time) (domain.AuthToken, error) {
	var claims AccessClaims

	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) { return publicKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodPS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return domain.AuthToken{}, errors.Join(domain.ErrInvalidAuthToken, fmt.Errorf("parse token: %w", err))
	}

	if claims.Subject == "" || claims.SessionID == "" {
		return domain.AuthToken{}, errors.Join(domain.ErrInvalidAuthToken, errors.New("missing subject or session"))
	}

	return claims.AuthToken(), nil
}
