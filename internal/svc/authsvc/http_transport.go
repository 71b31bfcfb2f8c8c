package authsvc

import (
	"fmt"
	"net/http"

	"github.com/mkrupp/fintrack/internal/domain"
	"github.com/mkrupp/fintrack/internal/infra/logging"
	http_ "github.com/mkrupp/fintrack/internal/infra/transport/http"
)

const (
	GrantTypePassword     = "password"
	GrantTypeRefreshToken = "refresh_token"
)

// RefreshRequest is the body of a refresh_token grant.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// HTTPTransportConfig contains configuration parameters for the HTTP transport layer.
type HTTPTransportConfig struct {
	http_.HTTPTransportConfig
}

// HTTPTransport handles HTTP requests for the authentication service.
type HTTPTransport struct {
	authSvc *AuthService
	log     logging.Logger
	cfg     HTTPTransportConfig
	mux     *http.ServeMux
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport and sets up the routes:
//   - POST /auth/signup: create an account and sign it in
//   - POST /auth/token?grant_type=password|refresh_token: sign in or refresh
//   - POST /auth/logout: end the bearer's session
//   - GET /auth/user, PUT /auth/user: read or update the bearer's user
//   - POST /auth/recover: send a password recovery link
//   - POST /auth/validate: validate the bearer token
func NewHTTPTransport(authSvc *AuthService, cfg HTTPTransportConfig) *HTTPTransport {
	ht := &HTTPTransport{
		authSvc: authSvc,
		log:     logging.GetLogger("svc.authsvc.http_transport"),
		cfg:     cfg,
		mux:     http.NewServeMux(),
	}

	ht.mux.HandleFunc("POST /auth/signup", ht.handle("sign up", ht.handleSignUp))
	ht.mux.HandleFunc("POST /auth/token", ht.handle("token", ht.handleToken))
	ht.mux.HandleFunc("POST /auth/logout", ht.handle("logout", ht.handleLogout))
	ht.mux.HandleFunc("GET /auth/user", ht.handle("get user", ht.handleGetUser))
	ht.mux.HandleFunc("PUT /auth/user", ht.handle("update user", ht.handleUpdateUser))
	ht.mux.HandleFunc("POST /auth/recover", ht.handle("recover", ht.handleRecover))
	ht.mux.HandleFunc("POST /auth/validate", ht.handle("validate", ht.handleValidate))

	return ht
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.mux.ServeHTTP(w, r)
}

// handle adapts an error-returning handler: failures are logged and written as JSON errors.
func (ht *HTTPTransport) handle(
	what string,
	fn func(http.ResponseWriter, *http.Request) error,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.Path))

		if err := fn(w, r); err != nil {
			log.ErrorContext(r.Context(), what+" failed", "error", err)
			http_.WriteError(w, err)
		} else {
			log.DebugContext(r.Context(), what+" handled")
		}
	}
}

func (ht *HTTPTransport) authenticate(r *http.Request) (domain.AuthToken, error) {
	tokenString, ok := http_.BearerToken(r)
	if !ok {
		return domain.AuthToken{}, domain.ErrNoAuthToken
	}

	token, err := ht.authSvc.ValidateToken(r.Context(), tokenString)
	if err != nil {
		return domain.AuthToken{}, fmt.Errorf("validate token: %w", err)
	}

	return token, nil
}

func (ht *HTTPTransport) handleSignUp(w http.ResponseWriter, r *http.Request) error {
	var reg domain.Registration
	if err := http_.DecodeJSON(r, &reg); err != nil {
		return err
	}

	authSession, err := ht.authSvc.SignUp(r.Context(), reg)
	if err != nil {
		return fmt.Errorf("sign up: %w", err)
	}

	return http_.WriteJSON(w, http.StatusOK, authSession)
}

func (ht *HTTPTransport) handleToken(w http.ResponseWriter, r *http.Request) error {
	var (
		authSession *domain.AuthSession
		err         error
	)

	switch grantType := r.URL.Query().Get("grant_type"); grantType {
	case GrantTypePassword:
		var creds domain.Credentials
		if err := http_.DecodeJSON(r, &creds); err != nil {
			return err
		}

		authSession, err = ht.authSvc.SignIn(r.Context(), creds)
	case GrantTypeRefreshToken:
		var req RefreshRequest
		if err := http_.DecodeJSON(r, &req); err != nil {
			return err
		}

		authSession, err = ht.authSvc.Refresh(r.Context(), req.RefreshToken)
	default:
		return fmt.Errorf("%w: unsupported grant_type %q", http_.ErrBadRequest, grantType)
	}

	if err != nil {
		return err
	}

	return http_.WriteJSON(w, http.StatusOK, authSession)
}

func (ht *HTTPTransport) handleLogout(w http.ResponseWriter, r *http.Request) error {
	token, err := ht.authenticate(r)
	if err != nil {
		return err
	}

	if err := ht.authSvc.SignOut(r.Context(), token); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}

	w.WriteHeader(http.StatusNoContent)

	return nil
}

func (ht *HTTPTransport) handleGetUser(w http.ResponseWriter, r *http.Request) error {
	token, err := ht.authenticate(r)
	if err != nil {
		return err
	}

	u, err := ht.authSvc.GetUser(r.Context(), token.UserID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	return http_.WriteJSON(w, http.StatusOK, u)
}

func (ht *HTTPTransport) handleUpdateUser(w http.ResponseWriter, r *http.Request) error {
	token, err := ht.authenticate(r)
	if err != nil {
		return err
	}

	var update domain.UserUpdate
	if err := http_.DecodeJSON(r, &update); err != nil {
		return err
	}

	u, err := ht.authSvc.UpdateUser(r.Context(), token, update)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	return http_.WriteJSON(w, http.StatusOK, u)
}

func (ht *HTTPTransport) handleRecover(w http.ResponseWriter, r *http.Request) error {
	var req domain.RecoveryRequest
	if err := http_.DecodeJSON(r, &req); err != nil {
		return err
	}

	if err := ht.authSvc.SendPasswordReset(r.Context(), req); err != nil {
		return fmt.Errorf("send password reset: %w", err)
	}

	w.WriteHeader(http.StatusNoContent)

	return nil
}

func (ht *HTTPTransport) handleValidate(w http.ResponseWriter, r *http.Request) error {
	token, err := ht.authenticate(r)
	if err != nil {
		return err
	}

	return http_.WriteJSON(w, http.StatusOK, token)
}
