// Package authclient talks to the auth provider: token validation for other services
// and the signed in session of the terminal application.
package authclient

import (
	"context"

	"github.com/mkrupp/fintrack/internal/domain"
	http_ "github.com/mkrupp/fintrack/internal/infra/transport/http"
)

// AuthClient defines the interface for validating authentication tokens.
// It returns the id of the token's user and whether the token is valid.
type AuthClient interface {
	http_.TokenValidator
}

// API is the auth provider's remote interface as used by the Provider.
type API interface {
	SignUp(ctx context.Context, reg domain.Registration) (*domain.AuthSession, error)
	SignInWithPassword(ctx context.Context, creds domain.Credentials) (*domain.AuthSession, error)
	RefreshSession(ctx context.Context, refreshToken string) (*domain.AuthSession, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*domain.User, error)
	UpdateUser(ctx context.Context, accessToken string, update domain.UserUpdate) (*domain.User, error)
	ResetPasswordForEmail(ctx context.Context, req domain.RecoveryRequest) error
}
