// Package tui is the terminal user interface of fintrack.
//
// The App owns a session.Store and renders the route that the store's state and
// the route guards allow. While a guard is pending a spinner is shown; denied
// routes redirect. Store notifications reach the program through a bridge so that
// every state change is handled on the program's goroutine.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/mkrupp/fintrack/internal/app/guard"
	"github.com/mkrupp/fintrack/internal/app/router"
	"github.com/mkrupp/fintrack/internal/app/session"
	"github.com/mkrupp/fintrack/internal/domain"
	"github.com/mkrupp/fintrack/internal/infra/logging"
	"github.com/mkrupp/fintrack/internal/repo/ledger"
	"github.com/mkrupp/fintrack/internal/svc/authsvc/authclient"
	"github.com/mkrupp/fintrack/internal/svc/financesvc"
)

const defaultRequestTimeout = 15 * time.Second

// Finance is the part of the finance client the screens use.
type Finance interface {
	Dashboard(ctx context.Context, year int, month time.Month) (*domain.Dashboard, error)
	MonthlyStats(ctx context.Context, year int, month time.Month) (*domain.MonthlyStats, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListTransactions(ctx context.Context, filter ledger.TransactionFilter) ([]domain.Transaction, error)
	ListBills(ctx context.Context) ([]domain.Bill, error)
	PayBill(ctx context.Context, id string) (*financesvc.PayResult, error)
	GetProfile(ctx context.Context) (*domain.Profile, error)
}

// Recoverer turns a recovery link into a session.
type Recoverer interface {
	ExchangeRecoveryToken(ctx context.Context, link authclient.RecoveryLink) error
}

// Options configures an App.
type Options struct {
	Provider  session.AuthProvider
	Recoverer Recoverer
	Finance   Finance

	// StartPath is the first route shown. Defaults to the dashboard.
	StartPath string
	// RecoveryLink is the raw password recovery link, if any.
	RecoveryLink string

	Timeout time.Duration
	Now     func() time.Time
}

type keyMap struct {
	Quit   key.Binding
	Menu   key.Binding
	Reload key.Binding
	Logout key.Binding
	Pay    key.Binding
	Action key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Menu, k.Reload, k.Logout, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.Pay, k.Action}}
}

var keys = keyMap{
	Quit:   key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	Menu:   key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7"), key.WithHelp("1-7", "go to")),
	Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	Logout: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "sign out")),
	Pay:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pay bill")),
	Action: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
}

type formKind int

const (
	formNone formKind = iota
	formLogin
	formRegister
	formForgot
	formReset
	formChangePassword
)

type (
	loadedMsg struct {
		path string
		data any
		err  error
	}

	doneMsg struct {
		form formKind
		err  error
	}

	recoveredMsg struct {
		err error
	}

	paidMsg struct {
		result *financesvc.PayResult
		err    error
	}
)

type reportData struct {
	dashboard *domain.Dashboard
	months    []domain.MonthlyStats
}

// App is the root bubbletea model.
type App struct {
	opts   Options
	store  *session.Store
	bridge *bridge
	log    logging.Logger
	styles Styles
	help   help.Model

	spinner  spinner.Model
	state    session.State
	path     string
	route    router.Route
	guard    *guard.Guard
	decision guard.Decision
	entered  bool

	notice   *session.Notice
	form     *huh.Form
	formKind formKind
	busy     bool

	table   table.Model
	content string
	loadErr error
	loading bool
	bills   []domain.Bill

	link      authclient.RecoveryLink
	linkErr   error
	recovered bool

	width    int
	height   int
	quitting bool

	initCmd       tea.Cmd
	stopListening []func()
}

var _ tea.Model = (*App)(nil)

// NewApp creates the App and its session store. The store is mounted by Init.
func NewApp(opts Options) *App {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRequestTimeout
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.StartPath == "" {
		opts.StartPath = guard.DashboardPath
	}

	a := &App{
		opts:   opts,
		bridge: newBridge(),
		log:    logging.GetLogger("app.tui"),
		styles: DefaultStyles(),
		help:   help.New(),
	}

	a.spinner = spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(a.styles.Spinner))
	a.store = session.NewStore(opts.Provider, a.bridge.navigate)
	a.state = a.store.State()

	a.link, a.linkErr = authclient.ParseRecoveryLink(opts.RecoveryLink)

	a.stopListening = append(a.stopListening,
		a.store.Listen(func(s session.State) { a.bridge.send(stateMsg{state: s}) }),
		a.store.OnNotice(func(n session.Notice) { a.bridge.send(noticeMsg{notice: n}) }),
	)

	a.setPath(opts.StartPath)
	a.initCmd = a.resolve()

	return a
}

// Store returns the App's session store.
func (a *App) Store() *session.Store {
	return a.store
}

// Close stops the store and releases pending bridge sends.
func (a *App) Close() {
	a.bridge.close()

	for _, stop := range a.stopListening {
		stop()
	}

	a.store.Close()
}

// Init mounts the session store.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.spinner.Tick,
		a.bridge.wait(),
		a.initCmd,
		func() tea.Msg {
			a.store.Mount(context.Background())

			return nil
		},
	)
}

func (a *App) setPath(path string) {
	a.path = path
	a.route = router.Match(path)
	a.guard = guard.New(a.route.Guard)
	a.entered = false
	a.form = nil
	a.formKind = formNone
	a.busy = false
	a.content = ""
	a.loadErr = nil
	a.loading = false
	a.bills = nil
}

// navigate switches to path and resolves its guard.
func (a *App) navigate(path string) tea.Cmd {
	a.log.Debug("navigate", "from", a.path, "to", path)
	a.setPath(path)

	return a.resolve()
}

// resolve evaluates the current route's guard and enters the route once allowed.
func (a *App) resolve() tea.Cmd {
	a.decision = a.guard.Evaluate(a.state)

	switch a.decision.Outcome {
	case guard.Deny:
		return a.navigate(a.decision.RedirectTo)
	case guard.Allow:
		if !a.entered {
			a.entered = true

			return a.enter()
		}
	case guard.Pending:
	}

	return nil
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			a.quitting = true

			return a, tea.Quit
		}

	case stateMsg:
		a.state = msg.state

		return a, tea.Batch(a.bridge.wait(), a.resolve())

	case navigateMsg:
		return a, tea.Batch(a.bridge.wait(), a.navigate(msg.path))

	case noticeMsg:
		a.notice = &msg.notice

		return a, a.bridge.wait()

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)

		return a, cmd

	case loadedMsg:
		if msg.path == a.path {
			a.applyLoaded(msg)
		}

		return a, nil

	case doneMsg:
		return a, a.finished(msg)

	case recoveredMsg:
		return a, a.recoveryExchanged(msg.err)

	case paidMsg:
		return a, a.paid(msg)
	}

	if a.decision.Outcome != guard.Allow {
		return a, nil
	}

	if a.form != nil && !a.busy {
		return a, a.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		return a, a.handleKey(msg)
	}

	return a, nil
}

func (a *App) updateForm(msg tea.Msg) tea.Cmd {
	model, cmd := a.form.Update(msg)
	if f, ok := model.(*huh.Form); ok {
		a.form = f
	}

	switch a.form.State {
	case huh.StateCompleted:
		a.busy = true

		return a.submit()
	case huh.StateAborted:
		return a.navigate(router.LandingPath)
	case huh.StateNormal:
	}

	return cmd
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Quit):
		a.quitting = true

		return tea.Quit
	case key.Matches(msg, keys.Menu) && a.state.User != nil:
		menu := router.Menu()
		if i := int(msg.String()[0] - '1'); i < len(menu) {
			return a.navigate(menu[i].Path)
		}
	case key.Matches(msg, keys.Logout) && a.state.User != nil:
		return a.request(formNone, func(ctx context.Context) error { return a.store.Logout(ctx) })
	case key.Matches(msg, keys.Reload) && a.route.Guard == guard.AuthenticatedOnly:
		return a.load()
	}

	return a.screenKey(msg)
}

func (a *App) screenKey(msg tea.KeyMsg) tea.Cmd {
	switch a.route.Screen {
	case router.ScreenLanding:
		switch msg.String() {
		case "l":
			return a.navigate(guard.LoginPath)
		case "s":
			return a.navigate(router.RegisterPath)
		case "d":
			return a.navigate(guard.DashboardPath)
		}
	case router.ScreenResetPassword:
		if a.linkErr != nil && msg.String() == "n" {
			return a.navigate(router.ForgotPasswordPath)
		}
	case router.ScreenNotFound:
		if key.Matches(msg, keys.Action) {
			return a.navigate(router.LandingPath)
		}
	case router.ScreenSettings:
		if msg.String() == "c" {
			return a.showForm(formChangePassword)
		}
	case router.ScreenBills:
		if key.Matches(msg, keys.Pay) {
			return a.payBill()
		}

		fallthrough
	default:
		var cmd tea.Cmd
		a.table, cmd = a.table.Update(msg)

		return cmd
	}

	return nil
}

// enter prepares the screen of the current route.
func (a *App) enter() tea.Cmd {
	switch a.route.Screen {
	case router.ScreenLogin:
		return a.showForm(formLogin)
	case router.ScreenRegister:
		return a.showForm(formRegister)
	case router.ScreenForgotPassword:
		return a.showForm(formForgot)
	case router.ScreenResetPassword:
		return a.enterReset()
	case router.ScreenLanding, router.ScreenNotFound:
		return nil
	default:
		return a.load()
	}
}

// enterReset exchanges the recovery link for a session, or shows why it cannot.
func (a *App) enterReset() tea.Cmd {
	if a.linkErr != nil {
		return nil
	}

	if a.recovered {
		return a.showForm(formReset)
	}

	a.busy = true
	link := a.link

	return a.withTimeout(func(ctx context.Context) tea.Msg {
		if a.opts.Recoverer == nil {
			return recoveredMsg{err: domain.ErrInvalidRecoveryLink}
		}

		return recoveredMsg{err: a.opts.Recoverer.ExchangeRecoveryToken(ctx, link)}
	})
}

func (a *App) recoveryExchanged(err error) tea.Cmd {
	a.busy = false

	if err != nil {
		a.log.Info("recovery link rejected", "error", err)

		a.linkErr = err

		return nil
	}

	a.recovered = true

	if a.route.Screen == router.ScreenResetPassword {
		return a.showForm(formReset)
	}

	return nil
}

func (a *App) withTimeout(fn func(ctx context.Context) tea.Msg) tea.Cmd {
	timeout := a.opts.Timeout

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		return fn(ctx)
	}
}

func (a *App) request(kind formKind, fn func(ctx context.Context) error) tea.Cmd {
	return a.withTimeout(func(ctx context.Context) tea.Msg {
		return doneMsg{form: kind, err: fn(ctx)}
	})
}

// finished handles the outcome of a form request. Failed forms are shown again.
func (a *App) finished(msg doneMsg) tea.Cmd {
	a.busy = false

	if msg.form == formNone || msg.form != a.formKind {
		return nil
	}

	switch {
	case msg.err != nil:
		return a.showForm(msg.form)
	case msg.form == formReset:
		a.recovered = false
		a.linkErr = domain.ErrInvalidRecoveryLink

		return a.navigate(guard.DashboardPath)
	case msg.form == formForgot, msg.form == formChangePassword:
		return a.showForm(msg.form)
	default:
		// sign in and sign up navigate through the store
		a.form = nil

		return nil
	}
}

func (a *App) load() tea.Cmd {
	if a.opts.Finance == nil {
		return nil
	}

	a.loading = true
	path := a.path
	screen := a.route.Screen
	finance := a.opts.Finance
	today := a.opts.Now()

	return a.withTimeout(func(ctx context.Context) tea.Msg {
		data, err := fetch(ctx, finance, screen, today)

		return loadedMsg{path: path, data: data, err: err}
	})
}

func fetch(ctx context.Context, finance Finance, screen router.Screen, today time.Time) (any, error) {
	year, month := today.Year(), today.Month()

	switch screen {
	case router.ScreenDashboard:
		return finance.Dashboard(ctx, year, month)
	case router.ScreenTransactions:
		return finance.ListTransactions(ctx, ledger.TransactionFilter{})
	case router.ScreenCategories:
		return finance.ListCategories(ctx)
	case router.ScreenAccounts:
		return finance.ListAccounts(ctx)
	case router.ScreenBills:
		return finance.ListBills(ctx)
	case router.ScreenSettings:
		return finance.GetProfile(ctx)
	case router.ScreenReports:
		return fetchReport(ctx, finance, year, month)
	default:
		return nil, nil //nolint:nilnil
	}
}

const reportMonths = 6

func fetchReport(ctx context.Context, finance Finance, year int, month time.Month) (*reportData, error) {
	dashboard, err := finance.Dashboard(ctx, year, month)
	if err != nil {
		return nil, err
	}

	report := &reportData{dashboard: dashboard}
	first := domain.NewDate(year, month, 1)

	for i := reportMonths - 1; i >= 0; i-- {
		d := first.AddMonths(-i)

		stats, err := finance.MonthlyStats(ctx, d.Year, d.Month)
		if err != nil {
			return nil, err
		}

		report.months = append(report.months, *stats)
	}

	return report, nil
}

func (a *App) applyLoaded(msg loadedMsg) {
	a.loading = false
	a.loadErr = msg.err

	if msg.err != nil {
		a.log.Info("load failed", "path", msg.path, "error", msg.err)

		return
	}

	switch data := msg.data.(type) {
	case *domain.Dashboard:
		a.content = a.renderDashboard(data)
		a.table = a.transactionsTable(data.RecentTransactions)
	case *reportData:
		a.content = a.renderReport(data)
		a.table = a.monthsTable(data.months)
	case []domain.Transaction:
		a.table = a.transactionsTable(data)
	case []domain.Category:
		a.table = a.categoriesTable(data)
	case []domain.Account:
		a.table = a.accountsTable(data)
	case []domain.Bill:
		a.bills = data
		a.table = a.billsTable(data)
	case *domain.Profile:
		a.content = a.renderProfile(data)
	}
}

func (a *App) payBill() tea.Cmd {
	if len(a.bills) == 0 || a.opts.Finance == nil {
		return nil
	}

	bill := a.bills[min(a.table.Cursor(), len(a.bills)-1)]
	finance := a.opts.Finance

	return a.withTimeout(func(ctx context.Context) tea.Msg {
		result, err := finance.PayBill(ctx, bill.ID)

		return paidMsg{result: result, err: err}
	})
}

func (a *App) paid(msg paidMsg) tea.Cmd {
	if msg.err != nil {
		a.notice = &session.Notice{Level: session.NoticeError, Title: "Payment failed", Message: msg.err.Error()}

		return nil
	}

	message := msg.result.Paid.Description + " marked as paid."
	if msg.result.Next != nil {
		message += " Next due " + msg.result.Next.DueDate.String() + "."
	}

	a.notice = &session.Notice{Level: session.NoticeSuccess, Title: "Bill paid", Message: message}

	if a.route.Screen == router.ScreenBills {
		return a.load()
	}

	return nil
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(a.header())
	b.WriteString("\n")

	switch {
	case a.decision.Outcome == guard.Pending:
		b.WriteString(a.spinner.View() + " " + a.styles.Muted.Render("Loading session..."))
	case a.busy:
		b.WriteString(a.spinner.View() + " " + a.styles.Muted.Render("Please wait..."))
	default:
		b.WriteString(a.screenView())
	}

	b.WriteString("\n")

	if a.notice != nil {
		b.WriteString("\n" + a.styles.notice(*a.notice) + "\n")
	}

	if a.form == nil {
		b.WriteString("\n" + a.help.View(keys) + "\n")
	}

	return b.String()
}

func (a *App) header() string {
	title := a.styles.Title.Render("fintrack")

	if a.state.User != nil {
		title += "  " + a.styles.Muted.Render(a.state.User.Email)
	}

	if a.state.User == nil || a.route.Guard != guard.AuthenticatedOnly {
		return title + "\n"
	}

	items := make([]string, 0, len(router.Menu()))

	for i, r := range router.Menu() {
		label := string(rune('1'+i)) + " " + r.Title
		if r.Path == a.route.Path {
			items = append(items, a.styles.Active.Render(label))
		} else {
			items = append(items, a.styles.MenuItem.Render(label))
		}
	}

	return title + "\n" + a.styles.Menu.Render(lipgloss.JoinHorizontal(lipgloss.Top, items...))
}

func (a *App) screenView() string {
	if a.form != nil {
		return a.form.View()
	}

	switch a.route.Screen {
	case router.ScreenLanding:
		return a.styles.Subtitle.Render("Personal finances, in your terminal.") + "\n" +
			a.styles.Value.Render("l: sign in   s: create an account   d: dashboard")
	case router.ScreenNotFound:
		return a.styles.Error.Render("Page not found: "+a.path) + "\n" +
			a.styles.Muted.Render("enter: back to start")
	case router.ScreenResetPassword:
		if a.linkErr != nil {
			return a.styles.Error.Render("Invalid or expired link") + "\n" +
				a.styles.Value.Render("This password reset link cannot be used.") + "\n" +
				a.styles.Muted.Render("n: request a new link")
		}

		return ""
	}

	if a.loading {
		return a.spinner.View() + " " + a.styles.Muted.Render("Loading...")
	}

	if a.loadErr != nil {
		return a.styles.Error.Render("Could not load data: ") + a.styles.Value.Render(a.loadErr.Error()) + "\n" +
			a.styles.Muted.Render("r: retry")
	}

	switch a.route.Screen {
	case router.ScreenSettings:
		return a.content
	case router.ScreenDashboard, router.ScreenReports:
		return a.content + "\n" + a.table.View()
	case router.ScreenBills:
		return a.table.View() + "\n" + a.styles.Muted.Render("p: pay selected bill")
	default:
		return a.table.View()
	}
}
