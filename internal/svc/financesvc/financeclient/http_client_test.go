package financeclient_test

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/fintrack/internal/domain"
	"github.com/mkrupp/fintrack/internal/repo/blob"
	"github.com/mkrupp/fintrack/internal/repo/ledger"
	"github.com/mkrupp/fintrack/internal/svc/avatarsvc"
	"github.com/mkrupp/fintrack/internal/svc/financesvc"
	"github.com/mkrupp/fintrack/internal/svc/financesvc/financeclient"
)

type staticValidator map[string]string

func (v staticValidator) Validate(_ context.Context, token string) (string, bool, error) {
	userID, ok := v[token]

	return userID, ok, nil
}

func setupClient(t *testing.T, token string) *financeclient.HTTPClient {
	t.Helper()

	dir := t.TempDir()
	ctx := context.Background()

	avatarSvc, err := avatarsvc.NewBlobAvatarService(ctx,
		blob.FileSystemBlobRepositoryFactory(blob.FileSystemBlobRepositoryConfig{Basedir: filepath.Join(dir, "blob")}),
		avatarsvc.AvatarConfig{MaxSize: 1 << 20, MaxWidth: 256, Interpolator: "catmullrom"},
	)
	require.NoError(t, err)

	svc, err := financesvc.NewFinanceService(ctx,
		ledger.SQLiteLedgerRepositoryFactory(ledger.SQLiteLedgerRepositoryConfig{DatabasePath: filepath.Join(dir, "ledger.db")}),
		avatarSvc,
		financesvc.FinanceConfig{Timezone: "UTC", AvatarPath: "/profile/avatar"},
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	svc.Now = func() time.Time { return time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC) }

	server := httptest.NewServer(financesvc.NewHTTPTransport(svc, staticValidator{"token": "user-1"},
		financesvc.HTTPTransportConfig{MultipartFileName: "avatar", MultipartFormMaxMemory: 1 << 20},
	))
	t.Cleanup(server.Close)

	tokens := financeclient.TokenSourceFunc(func(context.Context) (string, error) { return token, nil })

	return financeclient.NewHTTPClient(financeclient.HTTPClientConfig{
		FinanceURL:        server.URL + "/",
		MultipartFileName: "avatar",
	}, tokens, server.Client())
}

func TestHTTPClient_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := setupClient(t, "token")

	account, err := client.CreateAccount(ctx, domain.Account{Name: "Checking", Balance: decimal.NewFromInt(900)})
	require.NoError(t, err)

	category, err := client.CreateCategory(ctx, domain.Category{Name: "Food", Color: "#ff9f1c", Type: domain.EntryExpense})
	require.NoError(t, err)

	_, err = client.CreateTransaction(ctx, domain.Transaction{
		Amount: decimal.NewFromInt(60), Date: domain.NewDate(2025, time.June, 1), Description: "market",
		Type: domain.EntryExpense, CategoryID: category.ID, AccountID: account.ID,
	})
	require.NoError(t, err)

	txs, err := client.ListTransactions(ctx, ledger.TransactionFilter{From: domain.NewDate(2025, time.June, 1), Limit: 5})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "Food", txs[0].CategoryName)
	assert.Equal(t, "Checking", txs[0].AccountName)

	stats, err := client.MonthlyStats(ctx, 2025, time.June)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(60).Equal(stats.Expenses))

	bill, err := client.CreateBill(ctx, domain.Bill{
		Description: "water", Amount: decimal.NewFromInt(40), DueDate: domain.NewDate(2025, time.June, 5),
	})
	require.NoError(t, err)

	dashboard, err := client.Dashboard(ctx, 2025, time.June)
	require.NoError(t, err)
	require.Len(t, dashboard.ExpensesByCategory, 1)
	assert.Equal(t, "Food", dashboard.ExpensesByCategory[0].Name)
	require.Len(t, dashboard.UpcomingBills, 1)
	assert.Equal(t, 3, dashboard.UpcomingBills[0].DaysRemaining)

	paid, err := client.PayBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BillPaid, paid.Paid.Status)

	_, err = client.UpdateAccount(ctx, "missing", domain.AccountPatch{})
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, client.DeleteTransaction(ctx, txs[0].ID))
	require.NoError(t, client.DeleteCategory(ctx, category.ID))
	require.NoError(t, client.DeleteBill(ctx, bill.ID))
	require.NoError(t, client.DeleteAccount(ctx, account.ID))

	accounts, err := client.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestHTTPClient_Profile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := setupClient(t, "token")

	profile, err := client.UpdateProfile(ctx, domain.ProfilePatch{Name: func() *string { s := "Ana"; return &s }()})
	require.NoError(t, err)
	assert.Equal(t, "Ana", profile.Name)

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewGray(image.Rect(0, 0, 20, 20))))

	profile, err = client.UploadAvatar(ctx, "me.png", img.Bytes())
	require.NoError(t, err)
	assert.Contains(t, profile.AvatarURL, avatarsvc.ContentID(img.Bytes()).String())

	avatar, err := client.Avatar(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, img.Bytes(), avatar.Data)
	assert.Equal(t, avatarsvc.ContentID(img.Bytes()), avatar.ID)

	_, err = client.UploadAvatar(ctx, "me.jpg", img.Bytes())
	require.ErrorIs(t, err, domain.ErrAvatarTypeMismatch)
}

func TestHTTPClient_Unauthorized(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := setupClient(t, "").GetProfile(ctx)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = setupClient(t, "expired").GetProfile(ctx)
	require.Error(t, err)
	assert.True(t, financeclient.IsUnauthorized(err))
}
