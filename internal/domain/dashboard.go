package domain

import "github.com/shopspring/decimal"

// MonthlyStats sums a month's transactions by direction.
type MonthlyStats struct {
	Year     int             `json:"year"`
	Month    int             `json:"month"` // 1-12
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

// CategoryExpense is the expense total of one category within a month.
type CategoryExpense struct {
	CategoryID string          `json:"category_id"`
	Name       string          `json:"name"`
	Color      string          `json:"color"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"` // share of the month's expenses
}

// HealthStatus grades the month's savings and debt load.
type HealthStatus string

const (
	HealthExcellent HealthStatus = "excellent"
	HealthGood      HealthStatus = "good"
	HealthFair      HealthStatus = "fair"
	HealthAttention HealthStatus = "attention"
)

// Description returns the one-line advice shown with the status.
func (s HealthStatus) Description() string {
	switch s {
	case HealthExcellent:
		return "Your finances are in great shape!"
	case HealthGood:
		return "You are on the right track."
	case HealthFair:
		return "There is room for improvement."
	default:
		return "Your finances need adjustments."
	}
}

// FinancialHealth relates savings, expenses and debt to income.
type FinancialHealth struct {
	Income             decimal.Decimal `json:"income"`
	Expenses           decimal.Decimal `json:"expenses"`
	Savings            decimal.Decimal `json:"savings"`
	SavingsPercentage  decimal.Decimal `json:"savings_percentage"`
	ExpensesPercentage decimal.Decimal `json:"expenses_percentage"`
	DebtPercentage     decimal.Decimal `json:"debt_percentage"`
	Status             HealthStatus    `json:"status"`
	StatusDescription  string          `json:"status_description"`
}

// QuickStats compares the month with the previous one.
// Changes are nil when there is nothing to compare against.
type QuickStats struct {
	CurrentMonthIncome    decimal.Decimal  `json:"current_month_income"`
	CurrentMonthExpenses  decimal.Decimal  `json:"current_month_expenses"`
	PreviousMonthIncome   decimal.Decimal  `json:"previous_month_income"`
	PreviousMonthExpenses decimal.Decimal  `json:"previous_month_expenses"`
	IncomeChange          *decimal.Decimal `json:"income_change,omitempty"`
	ExpensesChange        *decimal.Decimal `json:"expenses_change,omitempty"`
	TotalBalance          decimal.Decimal  `json:"total_balance"`
}

// UpcomingBill is a bill annotated with its distance from today.
type UpcomingBill struct {
	Bill

	DaysRemaining int  `json:"days_remaining"`
	Overdue       bool `json:"overdue"`
	DueToday      bool `json:"due_today"`
}

// Dashboard is everything the dashboard screen renders.
type Dashboard struct {
	Year               int               `json:"year"`
	Month              int               `json:"month"`
	Today              Date              `json:"today"`
	Accounts           []Account         `json:"accounts"`
	TotalBalance       decimal.Decimal   `json:"total_balance"`
	QuickStats         QuickStats        `json:"quick_stats"`
	ExpensesByCategory []CategoryExpense `json:"expenses_by_category"`
	Health             FinancialHealth   `json:"health"`
	UpcomingBills      []UpcomingBill    `json:"upcoming_bills"`
	RecentTransactions []Transaction     `json:"recent_transactions"`
}
