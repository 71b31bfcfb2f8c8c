package tui

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/mkrupp/fintrack/internal/domain"
)

const (
	formWidth   = 60
	tableHeight = 10
)

var (
	errRequired         = errors.New("this field is required")
	errPasswordMismatch = errors.New("passwords do not match")
)

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return errRequired
	}

	return nil
}

func emailInput() *huh.Input {
	return huh.NewInput().
		Key("email").
		Title("Email").
		Placeholder("you@example.com").
		Validate(required)
}

func passwordInput(k, title string) *huh.Input {
	return huh.NewInput().
		Key(k).
		Title(title).
		EchoMode(huh.EchoModePassword).
		Validate(required)
}

// confirmInput must repeat the value of the password field of form.
func confirmInput(form **huh.Form) *huh.Input {
	return huh.NewInput().
		Key("confirm").
		Title("Confirm password").
		EchoMode(huh.EchoModePassword).
		Validate(func(s string) error {
			if *form != nil && s != (*form).GetString("password") {
				return errPasswordMismatch
			}

			return required(s)
		})
}

// showForm builds the form of kind and focuses it.
func (a *App) showForm(kind formKind) tea.Cmd {
	var (
		form  *huh.Form
		group *huh.Group
	)

	switch kind {
	case formLogin:
		group = huh.NewGroup(emailInput(), passwordInput("password", "Password")).
			Title("Sign in").
			Description("esc: back")
	case formRegister:
		group = huh.NewGroup(
			huh.NewInput().Key("name").Title("Name").Validate(required),
			emailInput(),
			passwordInput("password", "Password"),
			confirmInput(&form),
		).Title("Create an account")
	case formForgot:
		group = huh.NewGroup(emailInput()).
			Title("Forgot password").
			Description("We will mail you a link to reset your password.")
	case formReset, formChangePassword:
		group = huh.NewGroup(
			passwordInput("password", "New password"),
			confirmInput(&form),
		).Title("Set a new password")
	case formNone:
		a.form = nil
		a.formKind = formNone

		return nil
	}

	form = huh.NewForm(group).WithWidth(formWidth)

	a.form = form
	a.formKind = kind

	return form.Init()
}

// submit sends the completed form to the session store.
func (a *App) submit() tea.Cmd {
	form := a.form
	kind := a.formKind

	var fn func(ctx context.Context) error

	switch kind {
	case formLogin:
		creds := domain.Credentials{Email: form.GetString("email"), Password: form.GetString("password")}
		fn = func(ctx context.Context) error { return a.store.Login(ctx, creds) }
	case formRegister:
		reg := domain.Registration{
			Credentials: domain.Credentials{Email: form.GetString("email"), Password: form.GetString("password")},
			Name:        form.GetString("name"),
		}
		fn = func(ctx context.Context) error { return a.store.Register(ctx, reg) }
	case formForgot:
		email := form.GetString("email")
		fn = func(ctx context.Context) error { return a.store.ResetPasswordRequest(ctx, email) }
	case formReset, formChangePassword:
		password := form.GetString("password")
		fn = func(ctx context.Context) error { return a.store.UpdatePassword(ctx, password) }
	case formNone:
		return nil
	}

	return a.request(kind, fn)
}

func (a *App) newTable(columns []table.Column, rows []table.Row) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(min(max(len(rows), 1), tableHeight)),
	)
	t.SetStyles(a.styles.Table)

	return t
}

func signed(entry domain.EntryType, amount decimal.Decimal) string {
	if entry == domain.EntryExpense {
		return domain.FormatCurrency(amount.Neg())
	}

	return domain.FormatCurrency(amount)
}

func (a *App) transactionsTable(txs []domain.Transaction) table.Model {
	rows := make([]table.Row, 0, len(txs))

	for _, tx := range txs {
		rows = append(rows, table.Row{
			tx.Date.String(),
			tx.Description,
			orDash(tx.CategoryName),
			orDash(tx.AccountName),
			signed(tx.Type, tx.Amount),
			string(tx.Status),
		})
	}

	return a.newTable([]table.Column{
		{Title: "Date", Width: 10},
		{Title: "Description", Width: 24},
		{Title: "Category", Width: 14},
		{Title: "Account", Width: 14},
		{Title: "Amount", Width: 14},
		{Title: "Status", Width: 9},
	}, rows)
}

func (a *App) categoriesTable(categories []domain.Category) table.Model {
	rows := make([]table.Row, 0, len(categories))

	for _, c := range categories {
		rows = append(rows, table.Row{c.Name, string(c.Type), c.Color})
	}

	return a.newTable([]table.Column{
		{Title: "Name", Width: 24},
		{Title: "Type", Width: 9},
		{Title: "Color", Width: 9},
	}, rows)
}

func (a *App) accountsTable(accounts []domain.Account) table.Model {
	rows := make([]table.Row, 0, len(accounts))

	for _, acc := range accounts {
		rows = append(rows, table.Row{acc.Name, acc.Type, domain.FormatCurrency(acc.Balance)})
	}

	return a.newTable([]table.Column{
		{Title: "Name", Width: 24},
		{Title: "Type", Width: 14},
		{Title: "Balance", Width: 16},
	}, rows)
}

func (a *App) billsTable(bills []domain.Bill) table.Model {
	rows := make([]table.Row, 0, len(bills))

	for _, b := range bills {
		frequency := "once"
		if b.Recurrent && b.Frequency != domain.FrequencyNone {
			frequency = string(b.Frequency)
		}

		rows = append(rows, table.Row{
			b.DueDate.String(),
			b.Description,
			domain.FormatCurrency(b.Amount),
			string(b.Status),
			frequency,
		})
	}

	return a.newTable([]table.Column{
		{Title: "Due", Width: 10},
		{Title: "Description", Width: 24},
		{Title: "Amount", Width: 14},
		{Title: "Status", Width: 8},
		{Title: "Repeats", Width: 8},
	}, rows)
}

func (a *App) monthsTable(months []domain.MonthlyStats) table.Model {
	rows := make([]table.Row, 0, len(months))

	for _, m := range months {
		rows = append(rows, table.Row{
			domain.NewDate(m.Year, time.Month(m.Month), 1).String()[:7],
			domain.FormatCurrency(m.Income),
			domain.FormatCurrency(m.Expenses),
			domain.FormatCurrency(m.Income.Sub(m.Expenses)),
		})
	}

	return a.newTable([]table.Column{
		{Title: "Month", Width: 8},
		{Title: "Income", Width: 14},
		{Title: "Expenses", Width: 14},
		{Title: "Balance", Width: 14},
	}, rows)
}

func (a *App) card(label, value string) string {
	return a.styles.Card.Render(a.styles.Label.Render(label) + "\n" + value)
}

func (a *App) change(pct *decimal.Decimal) string {
	if pct == nil {
		return a.styles.Muted.Render("no data last month")
	}

	return a.styles.Muted.Render(domain.FormatPercent(*pct) + " vs last month")
}

func (a *App) renderDashboard(d *domain.Dashboard) string {
	qs := d.QuickStats

	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		a.card("Total balance", a.styles.Value.Render(domain.FormatCurrency(d.TotalBalance))),
		a.card("Income", a.styles.Income.Render(domain.FormatCurrency(qs.CurrentMonthIncome))+"\n"+a.change(qs.IncomeChange)),
		a.card("Expenses", a.styles.Expense.Render(domain.FormatCurrency(qs.CurrentMonthExpenses))+"\n"+a.change(qs.ExpensesChange)),
	)

	health := d.Health
	healthLine := a.styles.Label.Render("Financial health: ") +
		a.styles.health(health.Status).Render(string(health.Status)) + "  " +
		a.styles.Muted.Render(health.StatusDescription) + "\n" +
		a.styles.Value.Render("savings "+domain.FormatPercent(health.SavingsPercentage)+
			"  expenses "+domain.FormatPercent(health.ExpensesPercentage)+
			"  debt "+domain.FormatPercent(health.DebtPercentage))

	var b strings.Builder

	b.WriteString(cards + "\n\n" + healthLine + "\n")

	if len(d.ExpensesByCategory) > 0 {
		b.WriteString("\n" + a.styles.Label.Render("Expenses by category") + "\n")
		b.WriteString(a.renderCategoryExpenses(d.ExpensesByCategory))
	}

	b.WriteString("\n" + a.styles.Label.Render("Upcoming bills") + "\n")

	if len(d.UpcomingBills) == 0 {
		b.WriteString(a.styles.Muted.Render("No pending bills.") + "\n")
	}

	for _, bill := range d.UpcomingBills {
		b.WriteString(a.renderUpcoming(bill) + "\n")
	}

	b.WriteString("\n" + a.styles.Label.Render("Recent transactions") + "\n")

	return b.String()
}

func (a *App) renderCategoryExpenses(expenses []domain.CategoryExpense) string {
	var b strings.Builder

	for _, e := range expenses {
		b.WriteString(a.styles.Value.Render(padRight(e.Name, 18)) + " " +
			a.styles.Expense.Render(padRight(domain.FormatCurrency(e.Amount), 14)) + " " +
			a.styles.Muted.Render(domain.FormatPercent(e.Percentage)) + "\n")
	}

	return b.String()
}

func (a *App) renderUpcoming(bill domain.UpcomingBill) string {
	var when string

	switch {
	case bill.Overdue:
		when = a.styles.Error.Render("overdue")
	case bill.DueToday:
		when = a.styles.Warning.Render("due today")
	case bill.DaysRemaining == 1:
		when = a.styles.Muted.Render("in 1 day")
	default:
		when = a.styles.Muted.Render("in " + strconv.Itoa(bill.DaysRemaining) + " days")
	}

	return a.styles.Value.Render(padRight(bill.Description, 24)) + " " +
		padRight(domain.FormatCurrency(bill.Amount), 14) + " " + when
}

func (a *App) renderReport(r *reportData) string {
	var b strings.Builder

	b.WriteString(a.styles.Label.Render("Expenses by category this month") + "\n")

	if len(r.dashboard.ExpensesByCategory) == 0 {
		b.WriteString(a.styles.Muted.Render("No expenses yet.") + "\n")
	} else {
		b.WriteString(a.renderCategoryExpenses(r.dashboard.ExpensesByCategory))
	}

	b.WriteString("\n" + a.styles.Label.Render("Last months") + "\n")

	return b.String()
}

func (a *App) renderProfile(p *domain.Profile) string {
	email := ""
	if a.state.User != nil {
		email = a.state.User.Email
	}

	avatar := p.AvatarURL
	if avatar == "" {
		avatar = "none"
	}

	return a.styles.Label.Render("Name: ") + a.styles.Value.Render(orDash(p.Name)) + "\n" +
		a.styles.Label.Render("Email: ") + a.styles.Value.Render(email) + "\n" +
		a.styles.Label.Render("Avatar: ") + a.styles.Muted.Render(avatar) + "\n\n" +
		a.styles.Muted.Render("c: change password   x: sign out")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}

func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}

	return s
}
