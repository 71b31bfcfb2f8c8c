package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/fintrack/internal/app/guard"
	"github.com/mkrupp/fintrack/internal/app/router"
	"github.com/mkrupp/fintrack/internal/app/session"
	"github.com/mkrupp/fintrack/internal/domain"
	"github.com/mkrupp/fintrack/internal/repo/ledger"
	"github.com/mkrupp/fintrack/internal/svc/authsvc/authclient"
	"github.com/mkrupp/fintrack/internal/svc/financesvc"
)

type stubProvider struct {
	mu             sync.Mutex
	updatePassword int
}

func (p *stubProvider) GetSession(context.Context) (*domain.AuthSession, error) {
	return nil, nil //nolint:nilnil
}

func (p *stubProvider) OnAuthStateChange(func(domain.AuthEvent)) func() { return func() {} }

func (p *stubProvider) SignIn(context.Context, domain.Credentials) error { return nil }

func (p *stubProvider) SignUp(context.Context, domain.Registration) error { return nil }

func (p *stubProvider) SignOut(context.Context) error { return nil }

func (p *stubProvider) SendPasswordReset(context.Context, string) error { return nil }

func (p *stubProvider) UpdatePassword(context.Context, string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.updatePassword++

	return nil
}

type stubRecoverer struct {
	link *authclient.RecoveryLink
}

func (r *stubRecoverer) ExchangeRecoveryToken(_ context.Context, link authclient.RecoveryLink) error {
	r.link = &link

	return nil
}

type stubFinance struct {
	dashboard *domain.Dashboard
}

func (f *stubFinance) Dashboard(context.Context, int, time.Month) (*domain.Dashboard, error) {
	return f.dashboard, nil
}

func (f *stubFinance) MonthlyStats(_ context.Context, year int, month time.Month) (*domain.MonthlyStats, error) {
	return &domain.MonthlyStats{Year: year, Month: int(month)}, nil
}

func (f *stubFinance) ListAccounts(context.Context) ([]domain.Account, error) { return nil, nil }

func (f *stubFinance) ListCategories(context.Context) ([]domain.Category, error) { return nil, nil }

func (f *stubFinance) ListTransactions(context.Context, ledger.TransactionFilter) ([]domain.Transaction, error) {
	return nil, nil
}

func (f *stubFinance) ListBills(context.Context) ([]domain.Bill, error) { return nil, nil }

func (f *stubFinance) PayBill(context.Context, string) (*financesvc.PayResult, error) {
	return &financesvc.PayResult{}, nil
}

func (f *stubFinance) GetProfile(context.Context) (*domain.Profile, error) {
	return &domain.Profile{Name: "Ana"}, nil
}

var (
	signedIn  = session.State{User: &domain.User{ID: "u1", Email: "ana@example.com"}}
	signedOut = session.State{}
)

func newTestApp(t *testing.T, opts Options) (*App, *stubProvider) {
	t.Helper()

	provider := &stubProvider{}
	opts.Provider = provider

	if opts.Finance == nil {
		opts.Finance = &stubFinance{dashboard: &domain.Dashboard{}}
	}

	opts.Now = func() time.Time { return time.Date(2025, time.April, 10, 12, 0, 0, 0, time.UTC) }

	app := NewApp(opts)
	t.Cleanup(app.Close)

	return app, provider
}

func update(app *App, msg tea.Msg) tea.Cmd {
	_, cmd := app.Update(msg)

	return cmd
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestApp_PendingWhileLoading(t *testing.T) {
	t.Parallel()

	app, _ := newTestApp(t, Options{StartPath: guard.DashboardPath})

	assert.Equal(t, guard.Pending, app.decision.Outcome)
	assert.Contains(t, app.View(), "Loading session")
}

func TestApp_GuestRedirectedToLogin(t *testing.T) {
	t.Parallel()

	app, _ := newTestApp(t, Options{StartPath: router.BillsPath})

	update(app, stateMsg{state: signedOut})

	assert.Equal(t, guard.LoginPath, app.path)
	assert.Equal(t, formLogin, app.formKind)
	require.NotNil(t, app.form)
}

func TestApp_SignedInLeavesGuestRoute(t *testing.T) {
	t.Parallel()

	dashboard := &domain.Dashboard{TotalBalance: decimal.RequireFromString("1000")}
	app, _ := newTestApp(t, Options{StartPath: guard.LoginPath, Finance: &stubFinance{dashboard: dashboard}})

	cmd := update(app, stateMsg{state: signedIn})
	require.NotNil(t, cmd)

	assert.Equal(t, guard.DashboardPath, app.path)
	assert.True(t, app.loading)
	assert.Contains(t, app.View(), "Loading...")

	update(app, loadedMsg{path: guard.DashboardPath, data: dashboard})

	view := app.View()
	assert.Contains(t, view, "Total balance")
	assert.Contains(t, view, domain.FormatCurrency(dashboard.TotalBalance))
}

func TestApp_StaleLoadIgnored(t *testing.T) {
	t.Parallel()

	app, _ := newTestApp(t, Options{StartPath: guard.DashboardPath})
	update(app, stateMsg{state: signedIn})

	update(app, loadedMsg{path: router.BillsPath, data: []domain.Bill{{ID: "b1"}}})

	assert.True(t, app.loading)
	assert.Empty(t, app.bills)
}

func TestApp_MenuNavigation(t *testing.T) {
	t.Parallel()

	app, _ := newTestApp(t, Options{StartPath: guard.DashboardPath})
	update(app, stateMsg{state: signedIn})

	update(app, keyPress("2"))
	assert.Equal(t, router.TransactionsPath, app.path)

	update(app, keyPress("7"))
	assert.Equal(t, router.SettingsPath, app.path)

	update(app, loadedMsg{path: router.SettingsPath, data: &domain.Profile{Name: "Ana"}})
	assert.Contains(t, app.View(), "ana@example.com")
}

func TestApp_ResetPasswordInvalidLink(t *testing.T) {
	t.Parallel()

	app, provider := newTestApp(t, Options{StartPath: router.ResetPasswordPath, RecoveryLink: "fintrack://reset-password#type=recovery"})

	assert.Equal(t, guard.Allow, app.decision.Outcome)
	assert.Contains(t, app.View(), "Invalid or expired link")
	assert.Nil(t, app.form)

	update(app, keyPress("n"))

	assert.Equal(t, router.ForgotPasswordPath, app.path)
	assert.Zero(t, provider.updatePassword)
}

func TestApp_ResetPasswordValidLink(t *testing.T) {
	t.Parallel()

	recoverer := &stubRecoverer{}
	app, _ := newTestApp(t, Options{
		StartPath:    router.ResetPasswordPath,
		RecoveryLink: "fintrack://reset-password#access_token=abc&refresh_token=def&type=recovery",
		Recoverer:    recoverer,
	})

	require.True(t, app.busy)
	require.NotNil(t, app.initCmd)

	msg := app.initCmd()
	require.IsType(t, recoveredMsg{}, msg)
	require.NotNil(t, recoverer.link)
	assert.Equal(t, "abc", recoverer.link.AccessToken)

	update(app, msg)

	assert.False(t, app.busy)
	assert.Equal(t, formReset, app.formKind)
}

func TestApp_FailedRequestShowsFormAgain(t *testing.T) {
	t.Parallel()

	app, _ := newTestApp(t, Options{StartPath: guard.LoginPath})
	update(app, stateMsg{state: signedOut})

	first := app.form
	app.busy = true

	update(app, doneMsg{form: formLogin, err: domain.ErrInvalidCredentials})

	assert.False(t, app.busy)
	assert.Equal(t, formLogin, app.formKind)
	assert.NotSame(t, first, app.form)
}

func TestApp_NotFound(t *testing.T) {
	t.Parallel()

	app, _ := newTestApp(t, Options{StartPath: "/nope"})

	assert.Contains(t, app.View(), "Page not found: /nope")

	update(app, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, router.LandingPath, app.path)
}

func TestApp_Notice(t *testing.T) {
	t.Parallel()

	app, _ := newTestApp(t, Options{StartPath: router.LandingPath})

	update(app, noticeMsg{notice: session.Notice{Level: session.NoticeSuccess, Title: "Signed in", Message: "Welcome back!"}})

	assert.Contains(t, app.View(), "Welcome back!")
}

func TestBridge_SendAfterClose(t *testing.T) {
	t.Parallel()

	b := newBridge()
	b.close()

	done := make(chan struct{})

	go func() {
		for range bridgeBuffer + 1 {
			b.send(navigateMsg{path: "/"})
		}

		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("send blocked on a closed bridge")
	}
}
