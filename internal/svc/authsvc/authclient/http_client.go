package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mkrupp/fintrack/internal/domain"
	context_ "github.com/mkrupp/fintrack/internal/infra/context"
	"github.com/mkrupp/fintrack/internal/infra/logging"
	http_ "github.com/mkrupp/fintrack/internal/infra/transport/http"
)

// HTTPClientConfig holds configuration for the HTTP auth client.
type HTTPClientConfig struct {
	// AuthURL is the base URL of the auth provider.
	AuthURL string `env:"AUTH_URL" envDefault:"http://localhost:8080"`

	// Timeout bounds every request. Zero disables the limit.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// HTTPClient implements AuthClient and API over the auth provider's HTTP interface.
type HTTPClient struct {
	httpClient *http.Client
	log        logging.Logger
	cfg        HTTPClientConfig
}

var (
	_ AuthClient = (*HTTPClient)(nil)
	_ API        = (*HTTPClient)(nil)
)

// NewHTTPClient creates a new HTTPClient with the given configuration.
// If httpClient is nil, a client with the configured timeout is used.
func NewHTTPClient(
	cfg HTTPClientConfig,
	httpClient *http.Client,
) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout} //nolint:exhaustruct
	}

	return &HTTPClient{
		httpClient: httpClient,
		log:        logging.GetLogger("svc.authsvc.authclient.http_client"),
		cfg:        cfg,
	}
}

// Validate implements AuthClient.Validate. Tokens rejected by the provider yield ok == false
// without an error.
func (c *HTTPClient) Validate(ctx context.Context, token string) (string, bool, error) {
	var authToken domain.AuthToken

	err := c.do(ctx, http.MethodPost, "/auth/validate", token, nil, &authToken)

	var apiErr *http_.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}

	return authToken.UserID, true, nil
}

func (c *HTTPClient) SignUp(ctx context.Context, reg domain.Registration) (*domain.AuthSession, error) {
	var authSession domain.AuthSession
	if err := c.do(ctx, http.MethodPost, "/auth/signup", "", reg, &authSession); err != nil {
		return nil, err
	}

	return &authSession, nil
}

func (c *HTTPClient) SignInWithPassword(ctx context.Context, creds domain.Credentials) (*domain.AuthSession, error) {
	var authSession domain.AuthSession
	if err := c.do(ctx, http.MethodPost, "/auth/token?grant_type=password", "", creds, &authSession); err != nil {
		return nil, err
	}

	return &authSession, nil
}

func (c *HTTPClient) RefreshSession(ctx context.Context, refreshToken string) (*domain.AuthSession, error) {
	var authSession domain.AuthSession
	if err := c.do(ctx, http.MethodPost, "/auth/token?grant_type=refresh_token", "",
		map[string]string{"refresh_token": refreshToken}, &authSession,
	); err != nil {
		return nil, err
	}

	return &authSession, nil
}

func (c *HTTPClient) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", accessToken, nil, nil)
}

func (c *HTTPClient) GetUser(ctx context.Context, accessToken string) (*domain.User, error) {
	var u domain.User
	if err := c.do(ctx, http.MethodGet, "/auth/user", accessToken, nil, &u); err != nil {
		return nil, err
	}

	return &u, nil
}

func (c *HTTPClient) UpdateUser(
	ctx context.Context,
	accessToken string,
	update domain.UserUpdate,
) (*domain.User, error) {
	var u domain.User
	if err := c.do(ctx, http.MethodPut, "/auth/user", accessToken, update, &u); err != nil {
		return nil, err
	}

	return &u, nil
}

func (c *HTTPClient) ResetPasswordForEmail(ctx context.Context, req domain.RecoveryRequest) error {
	return c.do(ctx, http.MethodPost, "/auth/recover", "", req, nil)
}

// do sends in as JSON and decodes the response into out. Error responses are
// returned as *http_.APIError, which unwraps to the matching domain error.
func (c *HTTPClient) do(ctx context.Context, method, path, bearer string, in, out any) (err error) {
	target := strings.TrimRight(c.cfg.AuthURL, "/") + path
	log := c.log.With(logging.Group("http", "method", method, "url", target))

	defer func() {
		if err != nil {
			log.DebugContext(ctx, "auth request failed", "error", err)
		}
	}()

	var body io.Reader = http.NoBody

	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}

		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if bearer != "" {
		req.Header.Set(http_.AuthorizationHeader, "Bearer "+bearer)
	}

	if traceID, ok := context_.TraceIDFromContext(ctx); ok {
		req.Header.Set(http_.TraceIDHeader, traceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if err := http_.ErrorFromResponse(resp); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
