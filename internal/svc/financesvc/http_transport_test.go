package financesvc_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/fintrack/internal/domain"
	http_ "github.com/mkrupp/fintrack/internal/infra/transport/http"
	"github.com/mkrupp/fintrack/internal/svc/financesvc"
)

// tokenValidator accepts the tokens it maps to user ids.
type tokenValidator map[string]string

func (v tokenValidator) Validate(_ context.Context, token string) (string, bool, error) {
	userID, ok := v[token]

	return userID, ok, nil
}

func setupTransport(t *testing.T) http.Handler {
	t.Helper()

	return financesvc.NewHTTPTransport(
		setupFinanceService(t),
		tokenValidator{"alice-token": "alice", "bob-token": "bob"},
		financesvc.HTTPTransportConfig{MultipartFileName: "avatar", MultipartFormMaxMemory: 1 << 20},
	)
}

func request(t *testing.T, h http.Handler, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	if token != "" {
		req.Header.Set(http_.AuthorizationHeader, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))

	return v
}

func TestHTTPTransport_Unauthorized(t *testing.T) {
	t.Parallel()

	h := setupTransport(t)

	tests := []struct {
		name     string
		token    string
		wantCode string
	}{
		{"no token", "", "no_token"},
		{"unknown token", "forged", "invalid_token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := request(t, h, http.MethodGet, "/accounts", tt.token, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.wantCode, decode[http_.ErrorResponse](t, rec).Error)
		})
	}
}

func TestHTTPTransport_Records(t *testing.T) {
	t.Parallel()

	h := setupTransport(t)

	rec := request(t, h, http.MethodPost, "/accounts", "alice-token", domain.Account{Name: "Wallet", Balance: dec("20")})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	account := decode[domain.Account](t, rec)

	rec = request(t, h, http.MethodPost, "/accounts", "alice-token", domain.Account{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_record", decode[http_.ErrorResponse](t, rec).Error)

	rec = request(t, h, http.MethodPatch, "/accounts/"+account.ID, "bob-token", domain.AccountPatch{Name: ptr("Stolen")})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = request(t, h, http.MethodPost, "/transactions", "alice-token", domain.Transaction{
		Amount: dec("12.5"), Date: domain.NewDate(2025, time.April, 3), Description: "coffee",
		Type: domain.EntryExpense, AccountID: account.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Wallet", decode[domain.Transaction](t, rec).AccountName)

	rec = request(t, h, http.MethodGet, "/transactions?from=2025-04-01&to=2025-04-30&limit=10", "alice-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Transaction](t, rec), 1)

	rec = request(t, h, http.MethodGet, "/transactions?from=yesterday", "alice-token", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = request(t, h, http.MethodGet, "/transactions/stats?year=2025&month=4", "alice-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assertDecimal(t, "12.5", decode[domain.MonthlyStats](t, rec).Expenses)

	rec = request(t, h, http.MethodGet, "/dashboard", "alice-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dashboard := decode[domain.Dashboard](t, rec)
	assert.Equal(t, 2025, dashboard.Year)
	assert.Equal(t, 4, dashboard.Month)
	assertDecimal(t, "20", dashboard.TotalBalance)

	rec = request(t, h, http.MethodDelete, "/accounts/"+account.ID, "alice-token", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHTTPTransport_Bills(t *testing.T) {
	t.Parallel()

	h := setupTransport(t)

	rec := request(t, h, http.MethodPost, "/bills", "alice-token", domain.Bill{
		Description: "internet", Amount: dec("120"), DueDate: domain.NewDate(2025, time.April, 20),
		Recurrent: true, Frequency: domain.FrequencyMonthly,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	bill := decode[domain.Bill](t, rec)

	rec = request(t, h, http.MethodPost, "/bills/"+bill.ID+"/pay", "alice-token", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[financesvc.PayResult](t, rec)
	assert.Equal(t, domain.BillPaid, result.Paid.Status)
	require.NotNil(t, result.Next)
	assert.Equal(t, domain.NewDate(2025, time.May, 20), result.Next.DueDate)

	rec = request(t, h, http.MethodGet, "/bills", "alice-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Bill](t, rec), 2)
}

func TestHTTPTransport_Avatar(t *testing.T) {
	t.Parallel()

	h := setupTransport(t)

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewGray(image.Rect(0, 0, 30, 30))))

	upload := func(field, filename string, data []byte) *httptest.ResponseRecorder {
		var body bytes.Buffer

		form := multipart.NewWriter(&body)
		part, err := form.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
		require.NoError(t, form.Close())

		req := httptest.NewRequest(http.MethodPut, "/profile/avatar", &body)
		req.Header.Set("Content-Type", form.FormDataContentType())
		req.Header.Set(http_.AuthorizationHeader, "Bearer alice-token")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		return rec
	}

	rec := upload("avatar", "me.gif", img.Bytes())
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = upload("picture", "me.png", img.Bytes())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = upload("avatar", "me.png", img.Bytes())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode[domain.Profile](t, rec).AvatarURL)

	rec = request(t, h, http.MethodGet, "/profile/avatar?width=15", "alice-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	cfg, err := png.DecodeConfig(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Width)

	rec = request(t, h, http.MethodGet, "/profile/avatar", "bob-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = request(t, h, http.MethodGet, "/profile/avatar?width=-1", "alice-token", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
