package financesvc

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkrupp/fintrack/internal/domain"
)

// RecentTransactionsLimit is the number of transactions shown on the dashboard.
const RecentTransactionsLimit = 5

// UncategorizedName labels expenses without a category.
const UncategorizedName = "Uncategorized"

//nolint:gochecknoglobals
var (
	hundred = decimal.NewFromInt(100)

	healthThresholds = []struct {
		status     domain.HealthStatus
		minSavings decimal.Decimal
		maxDebt    decimal.Decimal
	}{
		{domain.HealthExcellent, decimal.NewFromInt(20), decimal.NewFromInt(30)},
		{domain.HealthGood, decimal.NewFromInt(10), decimal.NewFromInt(40)},
		{domain.HealthFair, decimal.NewFromInt(5), decimal.NewFromInt(50)},
	}
)

// TotalBalance sums the balances of all accounts. Debts count negative.
func TotalBalance(accounts []domain.Account) decimal.Decimal {
	total := decimal.Zero

	for _, account := range accounts {
		total = total.Add(account.Balance)
	}

	return total
}

// MonthlyStats sums income and expenses of the transactions dated within the month.
func MonthlyStats(txs []domain.Transaction, year int, month time.Month) domain.MonthlyStats {
	stats := domain.MonthlyStats{Year: year, Month: int(month), Income: decimal.Zero, Expenses: decimal.Zero}

	for _, tx := range txs {
		if !tx.Date.InMonth(year, month) {
			continue
		}

		switch tx.Type {
		case domain.EntryIncome:
			stats.Income = stats.Income.Add(tx.Amount)
		case domain.EntryExpense:
			stats.Expenses = stats.Expenses.Add(tx.Amount)
		}
	}

	return stats
}

// PercentageChange returns the change from previous to current in percent.
// It is nil when there is no previous value to compare with, including a zero one.
func PercentageChange(current decimal.Decimal, previous *decimal.Decimal) *decimal.Decimal {
	if previous == nil || previous.IsZero() {
		return nil
	}

	change := current.Sub(*previous).Div(*previous).Mul(hundred).Round(2)

	return &change
}

// ExpensesByCategory totals the month's expenses per category, largest first.
// Percentages are shares of the month's total expenses.
func ExpensesByCategory(
	txs []domain.Transaction,
	categories []domain.Category,
	year int,
	month time.Month,
) []domain.CategoryExpense {
	known := make(map[string]domain.Category, len(categories))
	for _, category := range categories {
		known[category.ID] = category
	}

	var (
		order  []string
		totals = map[string]*domain.CategoryExpense{}
		total  = decimal.Zero
	)

	for _, tx := range txs {
		if tx.Type != domain.EntryExpense || !tx.Date.InMonth(year, month) {
			continue
		}

		entry, ok := totals[tx.CategoryID]
		if !ok {
			entry = &domain.CategoryExpense{CategoryID: tx.CategoryID, Name: UncategorizedName, Amount: decimal.Zero}

			if category, ok := known[tx.CategoryID]; ok {
				entry.Name = category.Name
				entry.Color = category.Color
			} else if tx.CategoryName != "" {
				entry.Name = tx.CategoryName
			}

			totals[tx.CategoryID] = entry
			order = append(order, tx.CategoryID)
		}

		entry.Amount = entry.Amount.Add(tx.Amount)
		total = total.Add(tx.Amount)
	}

	result := make([]domain.CategoryExpense, 0, len(order))

	for _, id := range order {
		entry := *totals[id]
		entry.Percentage = domain.Percentage(entry.Amount, total).Round(2)
		result = append(result, entry)
	}

	slices.SortStableFunc(result, func(a, b domain.CategoryExpense) int {
		return b.Amount.Cmp(a.Amount)
	})

	return result
}

// DebtPercentage returns the pending bills due within the month as a percentage of income.
func DebtPercentage(bills []domain.Bill, income decimal.Decimal, year int, month time.Month) decimal.Decimal {
	pending := decimal.Zero

	for _, bill := range bills {
		if bill.Status == domain.BillPending && bill.DueDate.InMonth(year, month) {
			pending = pending.Add(bill.Amount)
		}
	}

	return domain.Percentage(pending, income).Round(2)
}

// FinancialHealth grades savings and debt relative to income.
func FinancialHealth(income, expenses, debtPercentage decimal.Decimal) domain.FinancialHealth {
	savings := income.Sub(expenses)
	savingsPct := domain.Percentage(savings, income).Round(2)

	status := domain.HealthAttention

	for _, threshold := range healthThresholds {
		if savingsPct.GreaterThanOrEqual(threshold.minSavings) && debtPercentage.LessThanOrEqual(threshold.maxDebt) {
			status = threshold.status

			break
		}
	}

	return domain.FinancialHealth{
		Income:             income,
		Expenses:           expenses,
		Savings:            savings,
		SavingsPercentage:  savingsPct,
		ExpensesPercentage: domain.Percentage(expenses, income).Round(2),
		DebtPercentage:     debtPercentage,
		Status:             status,
		StatusDescription:  status.Description(),
	}
}

// DaysRemaining returns the whole days from today until due, negative when overdue.
func DaysRemaining(due, today domain.Date) int {
	diff := due.Time(time.UTC).Sub(today.Time(time.UTC))

	return int(math.Ceil(diff.Hours() / 24)) //nolint:mnd
}

// UpcomingBills returns the pending bills, earliest due date first.
func UpcomingBills(bills []domain.Bill, today domain.Date) []domain.UpcomingBill {
	upcoming := make([]domain.UpcomingBill, 0, len(bills))

	for _, bill := range bills {
		if bill.Status != domain.BillPending {
			continue
		}

		days := DaysRemaining(bill.DueDate, today)
		upcoming = append(upcoming, domain.UpcomingBill{
			Bill:          bill,
			DaysRemaining: days,
			Overdue:       days < 0,
			DueToday:      days == 0,
		})
	}

	slices.SortStableFunc(upcoming, func(a, b domain.UpcomingBill) int {
		return cmp.Compare(a.DaysRemaining, b.DaysRemaining)
	})

	return upcoming
}

// RecentTransactions returns the n latest transactions.
func RecentTransactions(txs []domain.Transaction, n int) []domain.Transaction {
	recent := slices.Clone(txs)

	slices.SortStableFunc(recent, func(a, b domain.Transaction) int {
		switch {
		case a.Date.After(b.Date):
			return -1
		case a.Date.Before(b.Date):
			return 1
		default:
			return b.CreatedAt.Compare(a.CreatedAt)
		}
	})

	if len(recent) > n {
		recent = recent[:n]
	}

	return recent
}

// DashboardInput is the raw data a dashboard is derived from.
type DashboardInput struct {
	Accounts     []domain.Account
	Categories   []domain.Category
	Transactions []domain.Transaction
	Bills        []domain.Bill
}

// BuildDashboard derives the dashboard of the given month as seen on today.
// Month changes compare against the previous month; a direction without any
// transaction in the previous month has no change.
func BuildDashboard(in DashboardInput, year int, month time.Month, today domain.Date) domain.Dashboard {
	prevYear, prevMonth := previousMonth(year, month)

	current := MonthlyStats(in.Transactions, year, month)
	previous := MonthlyStats(in.Transactions, prevYear, prevMonth)
	total := TotalBalance(in.Accounts)

	var prevIncome, prevExpenses *decimal.Decimal

	for _, tx := range in.Transactions {
		if !tx.Date.InMonth(prevYear, prevMonth) {
			continue
		}

		switch tx.Type {
		case domain.EntryIncome:
			prevIncome = &previous.Income
		case domain.EntryExpense:
			prevExpenses = &previous.Expenses
		}
	}

	return domain.Dashboard{
		Year:         year,
		Month:        int(month),
		Today:        today,
		Accounts:     in.Accounts,
		TotalBalance: total,
		QuickStats: domain.QuickStats{
			CurrentMonthIncome:    current.Income,
			CurrentMonthExpenses:  current.Expenses,
			PreviousMonthIncome:   previous.Income,
			PreviousMonthExpenses: previous.Expenses,
			IncomeChange:          PercentageChange(current.Income, prevIncome),
			ExpensesChange:        PercentageChange(current.Expenses, prevExpenses),
			TotalBalance:          total,
		},
		ExpensesByCategory: ExpensesByCategory(in.Transactions, in.Categories, year, month),
		Health: FinancialHealth(
			current.Income,
			current.Expenses,
			DebtPercentage(in.Bills, current.Income, year, month),
		),
		UpcomingBills:      UpcomingBills(in.Bills, today),
		RecentTransactions: RecentTransactions(in.Transactions, RecentTransactionsLimit),
	}
}

func previousMonth(year int, month time.Month) (int, time.Month) {
	if month == time.January {
		return year - 1, time.December
	}

	return year, month - 1
}
