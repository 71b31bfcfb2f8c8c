// Package financeclient talks to the finance data provider on behalf of a signed in user.
package financeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mkrupp/fintrack/internal/domain"
	context_ "github.com/mkrupp/fintrack/internal/infra/context"
	"github.com/mkrupp/fintrack/internal/infra/logging"
	http_ "github.com/mkrupp/fintrack/internal/infra/transport/http"
	"github.com/mkrupp/fintrack/internal/repo/ledger"
	"github.com/mkrupp/fintrack/internal/svc/financesvc"
)

// HTTPClientConfig holds configuration for the finance client.
type HTTPClientConfig struct {
	// FinanceURL is the base URL of the finance service.
	FinanceURL string `env:"FINANCE_URL" envDefault:"http://localhost:8081"`

	// Timeout bounds every request. Zero disables the limit.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`

	// MultipartFileName is the form field of avatar uploads.
	MultipartFileName string `env:"MULTIPART_FILE_NAME" envDefault:"avatar"`
}

// TokenSource yields the access token of the signed in user.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (fn TokenSourceFunc) AccessToken(ctx context.Context) (string, error) {
	return fn(ctx)
}

// HTTPClient calls the finance service's HTTP interface.
type HTTPClient struct {
	httpClient *http.Client
	tokens     TokenSource
	log        logging.Logger
	cfg        HTTPClientConfig
}

// NewHTTPClient creates a new HTTPClient authenticating with tokens.
// If httpClient is nil, a client with the configured timeout is used.
func NewHTTPClient(cfg HTTPClientConfig, tokens TokenSource, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout} //nolint:exhaustruct
	}

	return &HTTPClient{
		httpClient: httpClient,
		tokens:     tokens,
		log:        logging.GetLogger("svc.financesvc.financeclient.http_client"),
		cfg:        cfg,
	}
}

func (c *HTTPClient) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	return call[[]domain.Account](ctx, c, http.MethodGet, "/accounts", nil)
}

func (c *HTTPClient) CreateAccount(ctx context.Context, account domain.Account) (*domain.Account, error) {
	return call[*domain.Account](ctx, c, http.MethodPost, "/accounts", account)
}

func (c *HTTPClient) UpdateAccount(ctx context.Context, id string, patch domain.AccountPatch) (*domain.Account, error) {
	return call[*domain.Account](ctx, c, http.MethodPatch, "/accounts/"+url.PathEscape(id), patch)
}

func (c *HTTPClient) DeleteAccount(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/accounts/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return call[[]domain.Category](ctx, c, http.MethodGet, "/categories", nil)
}

func (c *HTTPClient) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	return call[*domain.Category](ctx, c, http.MethodPost, "/categories", category)
}

func (c *HTTPClient) DeleteCategory(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/categories/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) ListTransactions(ctx context.Context, filter ledger.TransactionFilter) ([]domain.Transaction, error) {
	query := url.Values{}

	if !filter.From.IsZero() {
		query.Set("from", filter.From.String())
	}

	if !filter.To.IsZero() {
		query.Set("to", filter.To.String())
	}

	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}

	path := "/transactions"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	return call[[]domain.Transaction](ctx, c, http.MethodGet, path, nil)
}

func (c *HTTPClient) CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	return call[*domain.Transaction](ctx, c, http.MethodPost, "/transactions", tx)
}

func (c *HTTPClient) DeleteTransaction(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/transactions/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) MonthlyStats(ctx context.Context, year int, month time.Month) (*domain.MonthlyStats, error) {
	return call[*domain.MonthlyStats](ctx, c, http.MethodGet, monthPath("/transactions/stats", year, month), nil)
}

func (c *HTTPClient) ListBills(ctx context.Context) ([]domain.Bill, error) {
	return call[[]domain.Bill](ctx, c, http.MethodGet, "/bills", nil)
}

func (c *HTTPClient) CreateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error) {
	return call[*domain.Bill](ctx, c, http.MethodPost, "/bills", bill)
}

func (c *HTTPClient) PayBill(ctx context.Context, id string) (*financesvc.PayResult, error) {
	return call[*financesvc.PayResult](ctx, c, http.MethodPost, "/bills/"+url.PathEscape(id)+"/pay", nil)
}

func (c *HTTPClient) DeleteBill(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/bills/"+url.PathEscape(id), nil, nil)
}

// Dashboard fetches the dashboard of the given month.
func (c *HTTPClient) Dashboard(ctx context.Context, year int, month time.Month) (*domain.Dashboard, error) {
	return call[*domain.Dashboard](ctx, c, http.MethodGet, monthPath("/dashboard", year, month), nil)
}

func (c *HTTPClient) GetProfile(ctx context.Context) (*domain.Profile, error) {
	return call[*domain.Profile](ctx, c, http.MethodGet, "/profile", nil)
}

func (c *HTTPClient) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (*domain.Profile, error) {
	return call[*domain.Profile](ctx, c, http.MethodPatch, "/profile", patch)
}

// UploadAvatar sends an image as the user's avatar.
func (c *HTTPClient) UploadAvatar(ctx context.Context, filename string, data []byte) (*domain.Profile, error) {
	var buf bytes.Buffer

	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile(c.cfg.MultipartFileName, filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}

	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}

	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPut, "/profile/avatar", form.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var profile domain.Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &profile, nil
}

// Avatar downloads the user's avatar scaled to width, or the original if width is zero.
func (c *HTTPClient) Avatar(ctx context.Context, width int) (*domain.Avatar, error) {
	path := "/profile/avatar"
	if width > 0 {
		path += "?width=" + strconv.Itoa(width)
	}

	resp, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read avatar: %w", err)
	}

	return &domain.Avatar{
		ID:       domain.BlobID(strings.Trim(resp.Header.Get("ETag"), `"`)),
		MIMEType: resp.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

// call sends in and decodes the response into a fresh T.
func call[T any](ctx context.Context, c *HTTPClient, method, path string, in any) (T, error) {
	var out T
	if err := c.doJSON(ctx, method, path, in, &out); err != nil {
		var zero T

		return zero, err
	}

	return out, nil
}

func monthPath(path string, year int, month time.Month) string {
	return fmt.Sprintf("%s?year=%d&month=%d", path, year, int(month))
}

// doJSON sends in as JSON and decodes the response into out.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	var (
		body        io.Reader
		contentType string
	)

	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}

		body, contentType = bytes.NewReader(buf), "application/json"
	}

	resp, err := c.do(ctx, method, path, contentType, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// do sends an authenticated request. Error responses are returned as
// *http_.APIError, which unwraps to the matching domain error.
func (c *HTTPClient) do(ctx context.Context, method, path, contentType string, body io.Reader) (resp *http.Response, err error) {
	target := strings.TrimRight(c.cfg.FinanceURL, "/") + path
	log := c.log.With(logging.Group("http", "method", method, "url", target))

	defer func() {
		if err != nil {
			log.DebugContext(ctx, "finance request failed", "error", err)
		}
	}()

	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("access token: %w", err)
	} else if token == "" {
		return nil, domain.ErrUnauthorized
	}

	if body == nil {
		body = http.NoBody
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	req.Header.Set(http_.AuthorizationHeader, "Bearer "+token)

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if traceID, ok := context_.TraceIDFromContext(ctx); ok {
		req.Header.Set(http_.TraceIDHeader, traceID)
	}

	resp, err = c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	if err := http_.ErrorFromResponse(resp); err != nil {
		resp.Body.Close()

		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	return resp, nil
}

// IsUnauthorized reports whether err means the user has to sign in again.
func IsUnauthorized(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized) ||
		errors.Is(err, domain.ErrInvalidAuthToken) ||
		errors.Is(err, domain.ErrNoAuthToken)
}
