package authsvc_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/fintrack/internal/domain"
	http_ "github.com/mkrupp/fintrack/internal/infra/transport/http"
	"github.com/mkrupp/fintrack/internal/svc/authsvc"
)

func doJSON(t *testing.T, h http.Handler, method, target, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	if bearer != "" {
		req.Header.Set(http_.AuthorizationHeader, "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))

	return v
}

func TestHTTPTransport(t *testing.T) {
	t.Parallel()

	svc, _, mailer := setupTestService(t)
	h := authsvc.NewHTTPTransport(svc, authsvc.HTTPTransportConfig{})

	rec := doJSON(t, h, http.MethodPost, "/auth/signup", "", domain.Registration{
		Credentials: domain.Credentials{Email: "user@example.com", Password: "secret1"},
		Name:        "Ana",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	signedUp := decodeBody[domain.AuthSession](t, rec)
	assert.Equal(t, "Ana", signedUp.User.Name)

	rec = doJSON(t, h, http.MethodPost, "/auth/signup", "", domain.Registration{
		Credentials: domain.Credentials{Email: "user@example.com", Password: "secret1"},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "user_already_exists", decodeBody[http_.ErrorResponse](t, rec).Error)

	rec = doJSON(t, h, http.MethodPost, "/auth/token?grant_type=password", "", domain.Credentials{
		Email: "user@example.com", Password: "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", decodeBody[http_.ErrorResponse](t, rec).Error)

	rec = doJSON(t, h, http.MethodPost, "/auth/token?grant_type=password", "", domain.Credentials{
		Email: "user@example.com", Password: "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	signedIn := decodeBody[domain.AuthSession](t, rec)

	rec = doJSON(t, h, http.MethodPost, "/auth/token?grant_type=refresh_token", "", authsvc.RefreshRequest{
		RefreshToken: signedIn.RefreshToken,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	refreshed := decodeBody[domain.AuthSession](t, rec)

	rec = doJSON(t, h, http.MethodPost, "/auth/token?grant_type=magic", "", struct{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/auth/user", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "no_token", decodeBody[http_.ErrorResponse](t, rec).Error)

	rec = doJSON(t, h, http.MethodGet, "/auth/user", refreshed.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user@example.com", decodeBody[domain.User](t, rec).Email)

	name := "Ana Maria"
	rec = doJSON(t, h, http.MethodPut, "/auth/user", refreshed.AccessToken, domain.UserUpdate{Name: &name})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ana Maria", decodeBody[domain.User](t, rec).Name)

	rec = doJSON(t, h, http.MethodPost, "/auth/validate", refreshed.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, signedUp.User.ID, decodeBody[domain.AuthToken](t, rec).UserID)

	rec = doJSON(t, h, http.MethodPost, "/auth/recover", "", domain.RecoveryRequest{Email: "user@example.com"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, sent := mailer.link("user@example.com")
	assert.True(t, sent)

	rec = doJSON(t, h, http.MethodPost, "/auth/logout", refreshed.AccessToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/auth/validate", refreshed.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_token", decodeBody[http_.ErrorResponse](t, rec).Error)
}
