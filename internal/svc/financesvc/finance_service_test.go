package financesvc_test

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/fintrack/internal/domain"
	context_ "github.com/mkrupp/fintrack/internal/infra/context"
	"github.com/mkrupp/fintrack/internal/repo/blob"
	"github.com/mkrupp/fintrack/internal/repo/ledger"
	"github.com/mkrupp/fintrack/internal/svc/avatarsvc"
	"github.com/mkrupp/fintrack/internal/svc/financesvc"
)

//nolint:gochecknoglobals
var fixedNow = time.Date(2025, time.April, 10, 15, 0, 0, 0, time.UTC)

func setupFinanceService(t *testing.T) *financesvc.FinanceService {
	t.Helper()

	dir := t.TempDir()

	avatarSvc, err := avatarsvc.NewBlobAvatarService(
		context.Background(),
		blob.FileSystemBlobRepositoryFactory(blob.FileSystemBlobRepositoryConfig{Basedir: filepath.Join(dir, "blob")}),
		avatarsvc.AvatarConfig{MaxSize: 1 << 20, MaxWidth: 512, Interpolator: "bilinear"},
	)
	require.NoError(t, err)

	svc, err := financesvc.NewFinanceService(
		context.Background(),
		ledger.SQLiteLedgerRepositoryFactory(ledger.SQLiteLedgerRepositoryConfig{
			DatabasePath: filepath.Join(dir, "ledger.db"),
		}),
		avatarSvc,
		financesvc.FinanceConfig{Timezone: "UTC", AvatarPath: "/profile/avatar"},
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	svc.Now = func() time.Time { return fixedNow }

	return svc
}

func asUser(userID string) context.Context {
	return context_.WithUserID(context.Background(), userID)
}

func ptr[T any](v T) *T {
	return &v
}

func TestFinanceService_RequiresUser(t *testing.T) {
	t.Parallel()

	svc := setupFinanceService(t)

	_, err := svc.ListAccounts(context.Background())
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.CreateBill(context.Background(), domain.Bill{Description: "rent"})
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestFinanceService_Accounts(t *testing.T) {
	t.Parallel()

	svc := setupFinanceService(t)
	alice, bob := asUser("alice"), asUser("bob")

	_, err := svc.CreateAccount(alice, domain.Account{Name: " "})
	require.ErrorIs(t, err, domain.ErrInvalidRecord)

	account, err := svc.CreateAccount(alice, domain.Account{
		UserID:  "bob", // ignored, the owner comes from the context
		Name:    "Checking",
		Type:    "checking",
		Balance: dec("100"),
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", account.UserID)
	assert.NotEmpty(t, account.ID)

	accounts, err := svc.ListAccounts(bob)
	require.NoError(t, err)
	assert.Empty(t, accounts)

	_, err = svc.UpdateAccount(bob, account.ID, domain.AccountPatch{Name: ptr("Mine")})
	require.ErrorIs(t, err, domain.ErrNotFound)

	updated, err := svc.UpdateAccount(alice, account.ID, domain.AccountPatch{Balance: ptr(dec("250.50"))})
	require.NoError(t, err)
	assert.Equal(t, "Checking", updated.Name)
	assertDecimal(t, "250.50", updated.Balance)

	require.ErrorIs(t, svc.DeleteAccount(bob, account.ID), domain.ErrNotFound)
	require.NoError(t, svc.DeleteAccount(alice, account.ID))

	accounts, err = svc.ListAccounts(alice)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestFinanceService_Transactions(t *testing.T) {
	t.Parallel()

	svc := setupFinanceService(t)
	alice, bob := asUser("alice"), asUser("bob")

	category, err := svc.CreateCategory(alice, domain.Category{Name: "Food", Type: domain.EntryExpense})
	require.NoError(t, err)

	foreign, err := svc.CreateCategory(bob, domain.Category{Name: "Bob's", Type: domain.EntryExpense})
	require.NoError(t, err)

	_, err = svc.CreateTransaction(alice, domain.Transaction{
		Amount: dec("10"), Date: domain.NewDate(2025, time.April, 2), Description: "lunch",
		Type: domain.EntryExpense, CategoryID: foreign.ID,
	})
	require.ErrorIs(t, err, domain.ErrInvalidRecord, "categories of other users are unknown")

	_, err = svc.CreateTransaction(alice, domain.Transaction{
		Amount: dec("-10"), Date: domain.NewDate(2025, time.April, 2), Description: "lunch", Type: domain.EntryExpense,
	})
	require.ErrorIs(t, err, domain.ErrInvalidRecord)

	created, err := svc.CreateTransaction(alice, domain.Transaction{
		Amount: dec("42.10"), Date: domain.NewDate(2025, time.April, 2), Description: "market",
		Type: domain.EntryExpense, CategoryID: category.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionCompleted, created.Status)
	assert.Equal(t, "Food", created.CategoryName)

	_, err = svc.CreateTransaction(alice, domain.Transaction{
		Amount: dec("3000"), Date: domain.NewDate(2025, time.April, 5), Description: "salary", Type: domain.EntryIncome,
	})
	require.NoError(t, err)

	_, err = svc.CreateTransaction(alice, domain.Transaction{
		Amount: dec("99"), Date: domain.NewDate(2025, time.March, 30), Description: "march", Type: domain.EntryExpense,
	})
	require.NoError(t, err)

	stats, err := svc.MonthlyStats(alice, 2025, time.April)
	require.NoError(t, err)
	assertDecimal(t, "3000", stats.Income)
	assertDecimal(t, "42.10", stats.Expenses)

	_, err = svc.MonthlyStats(alice, 2025, 13)
	require.ErrorIs(t, err, domain.ErrInvalidRecord)

	updated, err := svc.UpdateTransaction(alice, created.ID, domain.TransactionPatch{Status: ptr(domain.TransactionPending)})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionPending, updated.Status)
	assert.Equal(t, "Food", updated.CategoryName)

	txs, err := svc.ListTransactions(bob, ledger.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestFinanceService_PayBill(t *testing.T) {
	t.Parallel()

	svc := setupFinanceService(t)
	alice := asUser("alice")

	_, err := svc.CreateBill(alice, domain.Bill{
		Description: "gym", Amount: dec("80"), DueDate: domain.NewDate(2025, time.April, 1), Frequency: domain.FrequencyMonthly,
	})
	require.ErrorIs(t, err, domain.ErrInvalidRecord, "frequency needs a recurrent bill")

	oneOff, err := svc.CreateBill(alice, domain.Bill{
		Description: "repair", Amount: dec("300"), DueDate: domain.NewDate(2025, time.April, 12),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BillPending, oneOff.Status)

	rent, err := svc.CreateBill(alice, domain.Bill{
		Description: "rent", Amount: dec("1200"), DueDate: domain.NewDate(2025, time.January, 31),
		Recurrent: true, Frequency: domain.FrequencyMonthly,
	})
	require.NoError(t, err)

	result, err := svc.PayBill(alice, oneOff.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BillPaid, result.Paid.Status)
	assert.Nil(t, result.Next)

	result, err = svc.PayBill(alice, rent.ID)
	require.NoError(t, err)
	require.NotNil(t, result.Next)
	assert.Equal(t, domain.NewDate(2025, time.February, 28), result.Next.DueDate)
	assert.Equal(t, domain.BillPending, result.Next.Status)
	assert.NotEqual(t, rent.ID, result.Next.ID)

	// Paying twice schedules nothing new.
	result, err = svc.PayBill(alice, rent.ID)
	require.NoError(t, err)
	assert.Nil(t, result.Next)

	bills, err := svc.ListBills(alice)
	require.NoError(t, err)
	assert.Len(t, bills, 3)

	_, err = svc.PayBill(asUser("bob"), rent.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFinanceService_Dashboard(t *testing.T) {
	t.Parallel()

	svc := setupFinanceService(t)
	alice := asUser("alice")

	_, err := svc.CreateAccount(alice, domain.Account{Name: "Checking", Balance: dec("5000")})
	require.NoError(t, err)
	_, err = svc.CreateTransaction(alice, domain.Transaction{
		Amount: dec("4000"), Date: domain.NewDate(2025, time.April, 1), Description: "salary", Type: domain.EntryIncome,
	})
	require.NoError(t, err)
	_, err = svc.CreateBill(alice, domain.Bill{
		Description: "power", Amount: dec("200"), DueDate: domain.NewDate(2025, time.April, 15),
	})
	require.NoError(t, err)

	dashboard, err := svc.Dashboard(alice, 2025, time.April)
	require.NoError(t, err)
	assertDecimal(t, "5000", dashboard.TotalBalance)
	assertDecimal(t, "4000", dashboard.QuickStats.CurrentMonthIncome)
	assertDecimal(t, "5", dashboard.Health.DebtPercentage)
	assert.Equal(t, domain.NewDate(2025, time.April, 10), dashboard.Today)
	require.Len(t, dashboard.UpcomingBills, 1)
	assert.Equal(t, 5, dashboard.UpcomingBills[0].DaysRemaining)
	assert.Len(t, dashboard.RecentTransactions, 1)
}

func TestFinanceService_Profile(t *testing.T) {
	t.Parallel()

	svc := setupFinanceService(t)
	alice := asUser("alice")

	profile, err := svc.GetProfile(alice)
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.ID)
	assert.Empty(t, profile.Name)

	profile, err = svc.UpdateProfile(alice, domain.ProfilePatch{Name: ptr("  Alice  ")})
	require.NoError(t, err)
	assert.Equal(t, "Alice", profile.Name)

	_, err = svc.Avatar(alice, 0)
	require.ErrorIs(t, err, domain.ErrNoAvatar)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 40, 20))))

	profile, err = svc.UploadAvatar(alice, "me.png", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "/profile/avatar?v="+avatarsvc.ContentID(buf.Bytes()).String(), profile.AvatarURL)
	assert.Equal(t, "Alice", profile.Name)

	avatar, err := svc.Avatar(alice, 10)
	require.NoError(t, err)
	assert.Equal(t, avatarsvc.MIMETypePNG, avatar.MIMEType)

	cfg, err := png.DecodeConfig(bytes.NewReader(avatar.Data))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Width)

	profile, err = svc.DeleteAvatar(alice)
	require.NoError(t, err)
	assert.Empty(t, profile.AvatarURL)

	_, err = svc.Avatar(alice, 0)
	require.ErrorIs(t, err, domain.ErrNoAvatar)
}

func TestFinanceService_Today(t *testing.T) {
	t.Parallel()

	svc := setupFinanceService(t)
	svc.Now = func() time.Time { return time.Date(2025, time.April, 10, 23, 30, 0, 0, time.UTC) }

	assert.Equal(t, domain.NewDate(2025, time.April, 10), svc.Today())
}
