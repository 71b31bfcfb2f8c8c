package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/mkrupp/fintrack/internal/domain"
	context_ "github.com/mkrupp/fintrack/internal/infra/context"
	"github.com/mkrupp/fintrack/internal/infra/logging"
)

const AuthorizationHeader = "Authorization"

// TokenValidator resolves a bearer token to the id of the user it was issued to.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (userID string, ok bool, err error)
}

// AuthorizingMiddleware rejects requests without a valid bearer token.
// On success the user id and the token are added to the request context.
func AuthorizingMiddleware(
	next http.Handler,
	validator TokenValidator,
	log logging.Logger,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			log.WarnContext(r.Context(), "no token provided")
			WriteError(w, domain.ErrNoAuthToken)

			return
		}

		userID, ok, err := validator.Validate(r.Context(), token)
		if err != nil {
			log.ErrorContext(r.Context(), "validate token failed", "error", err)
			WriteError(w, err)

			return
		} else if !ok {
			log.WarnContext(r.Context(), "invalid token")
			WriteError(w, domain.ErrInvalidAuthToken)

			return
		}

		ctx := context_.WithUserID(r.Context(), userID)
		ctx = context_.WithAccessToken(ctx, token)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get(AuthorizationHeader)
	if header == "" {
		return "", false
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}
