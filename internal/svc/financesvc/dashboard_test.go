package financesvc_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/fintrack/internal/domain"
	"github.com/mkrupp/fintrack/internal/svc/financesvc"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()

	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func tx(id, amount string, date domain.Date, typ domain.EntryType, categoryID string) domain.Transaction {
	return domain.Transaction{
		ID:          id,
		Amount:      dec(amount),
		Date:        date,
		Description: id,
		Type:        typ,
		CategoryID:  categoryID,
		Status:      domain.TransactionCompleted,
	}
}

func TestTotalBalance(t *testing.T) {
	t.Parallel()

	accounts := []domain.Account{
		{Balance: dec("5240.75")},
		{Balance: dec("12500")},
		{Balance: dec("345.50")},
		{Balance: dec("-1890.25")},
	}

	assertDecimal(t, "16196", financesvc.TotalBalance(accounts))
	assertDecimal(t, "0", financesvc.TotalBalance(nil))
}

func TestMonthlyStats(t *testing.T) {
	t.Parallel()

	txs := []domain.Transaction{
		tx("salary", "3500", domain.NewDate(2025, time.April, 1), domain.EntryIncome, ""),
		tx("rent", "1200", domain.NewDate(2025, time.April, 30), domain.EntryExpense, ""),
		tx("food", "150.50", domain.NewDate(2025, time.April, 7), domain.EntryExpense, ""),
		tx("march", "99", domain.NewDate(2025, time.March, 31), domain.EntryExpense, ""),
		tx("may", "99", domain.NewDate(2025, time.May, 1), domain.EntryIncome, ""),
	}

	stats := financesvc.MonthlyStats(txs, 2025, time.April)
	assert.Equal(t, 2025, stats.Year)
	assert.Equal(t, 4, stats.Month)
	assertDecimal(t, "3500", stats.Income)
	assertDecimal(t, "1350.50", stats.Expenses)
}

func TestPercentageChange(t *testing.T) {
	t.Parallel()

	ptr := func(s string) *decimal.Decimal {
		d := dec(s)

		return &d
	}

	tests := []struct {
		name     string
		current  string
		previous *decimal.Decimal
		want     string // empty for nil
	}{
		{"no previous", "100", nil, ""},
		{"previous zero", "100", ptr("0"), ""},
		{"previous zero, current zero", "0", ptr("0"), ""},
		{"increase", "150", ptr("100"), "50"},
		{"decrease", "75", ptr("100"), "-25"},
		{"unchanged", "100", ptr("100"), "0"},
		{"rounded", "100", ptr("300"), "-66.67"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := financesvc.PercentageChange(dec(tt.current), tt.previous)
			if tt.want == "" {
				assert.Nil(t, got)

				return
			}

			require.NotNil(t, got)
			assertDecimal(t, tt.want, *got)
		})
	}
}

func TestExpensesByCategory(t *testing.T) {
	t.Parallel()

	categories := []domain.Category{
		{ID: "home", Name: "Housing", Color: "#e63118", Type: domain.EntryExpense},
		{ID: "food", Name: "Food", Color: "#ff9f1c", Type: domain.EntryExpense},
	}

	april := domain.NewDate(2025, time.April, 10)
	txs := []domain.Transaction{
		tx("rent", "1500", april, domain.EntryExpense, "home"),
		tx("market", "300", april, domain.EntryExpense, "food"),
		tx("lunch", "200", april, domain.EntryExpense, "food"),
		tx("misc", "500", april, domain.EntryExpense, ""),
		tx("salary", "5000", april, domain.EntryIncome, ""),
		tx("old", "999", domain.NewDate(2025, time.March, 10), domain.EntryExpense, "food"),
	}

	got := financesvc.ExpensesByCategory(txs, categories, 2025, time.April)
	require.Len(t, got, 3)

	assert.Equal(t, "Housing", got[0].Name)
	assert.Equal(t, "#e63118", got[0].Color)
	assertDecimal(t, "1500", got[0].Amount)
	assertDecimal(t, "60", got[0].Percentage)

	assert.Equal(t, "Food", got[1].Name)
	assertDecimal(t, "500", got[1].Amount)
	assertDecimal(t, "20", got[1].Percentage)

	assert.Equal(t, financesvc.UncategorizedName, got[2].Name)
	assertDecimal(t, "20", got[2].Percentage)

	assert.Empty(t, financesvc.ExpensesByCategory(txs, categories, 2025, time.May))
}

func TestFinancialHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		income   string
		expenses string
		debt     string
		want     domain.HealthStatus
	}{
		{"excellent", "1000", "800", "30", domain.HealthExcellent},
		{"excellent savings but high debt", "1000", "700", "35", domain.HealthGood},
		{"good", "1000", "900", "40", domain.HealthGood},
		{"fair", "1000", "950", "50", domain.HealthFair},
		{"attention by savings", "1000", "960", "0", domain.HealthAttention},
		{"attention by debt", "1000", "500", "51", domain.HealthAttention},
		{"no income", "0", "100", "0", domain.HealthAttention},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			health := financesvc.FinancialHealth(dec(tt.income), dec(tt.expenses), dec(tt.debt))
			assert.Equal(t, tt.want, health.Status)
			assert.Equal(t, tt.want.Description(), health.StatusDescription)
			assertDecimal(t, dec(tt.income).Sub(dec(tt.expenses)).String(), health.Savings)
		})
	}

	health := financesvc.FinancialHealth(dec("4000"), dec("3000"), dec("0"))
	assertDecimal(t, "25", health.SavingsPercentage)
	assertDecimal(t, "75", health.ExpensesPercentage)

	health = financesvc.FinancialHealth(dec("0"), dec("3000"), dec("0"))
	assertDecimal(t, "0", health.SavingsPercentage)
	assertDecimal(t, "0", health.ExpensesPercentage)
}

func TestDebtPercentage(t *testing.T) {
	t.Parallel()

	bills := []domain.Bill{
		{Amount: dec("1200"), DueDate: domain.NewDate(2025, time.April, 10), Status: domain.BillPending},
		{Amount: dec("150"), DueDate: domain.NewDate(2025, time.April, 15), Status: domain.BillPending},
		{Amount: dec("350"), DueDate: domain.NewDate(2025, time.April, 5), Status: domain.BillPaid},
		{Amount: dec("120"), DueDate: domain.NewDate(2025, time.May, 20), Status: domain.BillPending},
	}

	assertDecimal(t, "27", financesvc.DebtPercentage(bills, dec("5000"), 2025, time.April))
	assertDecimal(t, "0", financesvc.DebtPercentage(bills, dec("0"), 2025, time.April))
}

func TestDaysRemaining(t *testing.T) {
	t.Parallel()

	today := domain.NewDate(2025, time.March, 30)

	tests := []struct {
		name string
		due  domain.Date
		want int
	}{
		{"today", today, 0},
		{"tomorrow", domain.NewDate(2025, time.March, 31), 1},
		{"next month", domain.NewDate(2025, time.April, 10), 11},
		{"overdue", domain.NewDate(2025, time.March, 27), -3},
		{"across year", domain.NewDate(2026, time.March, 30), 365},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, financesvc.DaysRemaining(tt.due, today))
		})
	}
}

func TestUpcomingBills(t *testing.T) {
	t.Parallel()

	today := domain.NewDate(2025, time.April, 10)
	bills := []domain.Bill{
		{ID: "later", DueDate: domain.NewDate(2025, time.April, 20), Status: domain.BillPending},
		{ID: "paid", DueDate: domain.NewDate(2025, time.April, 5), Status: domain.BillPaid},
		{ID: "today", DueDate: today, Status: domain.BillPending},
		{ID: "overdue", DueDate: domain.NewDate(2025, time.April, 8), Status: domain.BillPending},
	}

	got := financesvc.UpcomingBills(bills, today)
	require.Len(t, got, 3)

	assert.Equal(t, "overdue", got[0].ID)
	assert.True(t, got[0].Overdue)
	assert.Equal(t, -2, got[0].DaysRemaining)

	assert.Equal(t, "today", got[1].ID)
	assert.True(t, got[1].DueToday)
	assert.False(t, got[1].Overdue)

	assert.Equal(t, "later", got[2].ID)
	assert.Equal(t, 10, got[2].DaysRemaining)
}

func TestRecentTransactions(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, time.April, 1, 12, 0, 0, 0, time.UTC)
	day := domain.NewDate(2025, time.April, 5)

	txs := []domain.Transaction{
		{ID: "old", Date: domain.NewDate(2025, time.April, 1)},
		{ID: "same-day-early", Date: day, CreatedAt: created},
		{ID: "newest", Date: domain.NewDate(2025, time.April, 9)},
		{ID: "same-day-late", Date: day, CreatedAt: created.Add(time.Hour)},
	}

	got := financesvc.RecentTransactions(txs, 3)
	ids := make([]string, 0, len(got))

	for _, tx := range got {
		ids = append(ids, tx.ID)
	}

	assert.Equal(t, []string{"newest", "same-day-late", "same-day-early"}, ids)
	assert.Equal(t, "old", txs[0].ID, "input must not be reordered")
}

func TestBuildDashboard(t *testing.T) {
	t.Parallel()

	in := financesvc.DashboardInput{
		Accounts: []domain.Account{{ID: "a", Balance: dec("1000")}},
		Categories: []domain.Category{
			{ID: "home", Name: "Housing", Type: domain.EntryExpense},
		},
		Transactions: []domain.Transaction{
			tx("salary", "5000", domain.NewDate(2025, time.January, 5), domain.EntryIncome, ""),
			tx("rent", "1500", domain.NewDate(2025, time.January, 6), domain.EntryExpense, "home"),
			tx("dec-salary", "4000", domain.NewDate(2024, time.December, 5), domain.EntryIncome, ""),
		},
		Bills: []domain.Bill{
			{ID: "power", Amount: dec("250"), DueDate: domain.NewDate(2025, time.January, 20), Status: domain.BillPending},
		},
	}

	today := domain.NewDate(2025, time.January, 15)
	dash := financesvc.BuildDashboard(in, 2025, time.January, today)

	assertDecimal(t, "1000", dash.TotalBalance)
	assertDecimal(t, "5000", dash.QuickStats.CurrentMonthIncome)
	assertDecimal(t, "4000", dash.QuickStats.PreviousMonthIncome)
	require.NotNil(t, dash.QuickStats.IncomeChange)
	assertDecimal(t, "25", *dash.QuickStats.IncomeChange)
	assert.Nil(t, dash.QuickStats.ExpensesChange, "no expenses in December")

	require.Len(t, dash.ExpensesByCategory, 1)
	assert.Equal(t, "Housing", dash.ExpensesByCategory[0].Name)

	assertDecimal(t, "5", dash.Health.DebtPercentage)
	assertDecimal(t, "70", dash.Health.SavingsPercentage)
	assert.Equal(t, domain.HealthExcellent, dash.Health.Status)

	require.Len(t, dash.UpcomingBills, 1)
	assert.Equal(t, 5, dash.UpcomingBills[0].DaysRemaining)
	assert.Len(t, dash.RecentTransactions, 3)
	assert.Equal(t, "rent", dash.RecentTransactions[0].ID)
}
