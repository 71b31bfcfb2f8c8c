package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mkrupp/fintrack/internal/domain"
)

func newDashboardCommand() *cobra.Command {
	var (
		year  int
		month int
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Print the monthly summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env := environment(cmd)

			now := time.Now()
			if year == 0 {
				year = now.Year()
			}

			if month == 0 {
				month = int(now.Month())
			}

			ctx, cancel := env.withTimeout(cmd.Context())
			defer cancel()

			d, err := env.Finance.Dashboard(ctx, year, time.Month(month))
			if err != nil {
				return fmt.Errorf("dashboard: %w", err)
			}

			printDashboard(cmd.OutOrStdout(), d)

			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "year (defaults to the current year)")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (defaults to the current month)")

	return cmd
}

func change(pct *decimal.Decimal) string {
	if pct == nil {
		return "n/a"
	}

	return domain.FormatPercent(*pct)
}

func printDashboard(out io.Writer, d *domain.Dashboard) {
	qs := d.QuickStats

	fmt.Fprintln(out, styles.Title.Render(fmt.Sprintf("fintrack %04d-%02d", d.Year, d.Month)))
	fmt.Fprintln(out)
	fmt.Fprintln(out, styles.Label.Render("Total balance:")+" "+domain.FormatCurrency(d.TotalBalance))
	fmt.Fprintln(out, styles.Label.Render("Income:       ")+" "+domain.FormatCurrency(qs.CurrentMonthIncome)+
		styles.Muted.Render(" ("+change(qs.IncomeChange)+" vs last month)"))
	fmt.Fprintln(out, styles.Label.Render("Expenses:     ")+" "+domain.FormatCurrency(qs.CurrentMonthExpenses)+
		styles.Muted.Render(" ("+change(qs.ExpensesChange)+" vs last month)"))
	fmt.Fprintln(out, styles.Label.Render("Health:       ")+" "+string(d.Health.Status)+
		styles.Muted.Render(" "+d.Health.StatusDescription))

	if len(d.ExpensesByCategory) > 0 {
		rows := make([][]string, 0, len(d.ExpensesByCategory))
		for _, e := range d.ExpensesByCategory {
			rows = append(rows, []string{e.Name, domain.FormatCurrency(e.Amount), domain.FormatPercent(e.Percentage)})
		}

		printTable(out, "Expenses by category", []string{"Category", "Amount", "Share"}, rows)
	}

	if len(d.UpcomingBills) > 0 {
		rows := make([][]string, 0, len(d.UpcomingBills))
		for _, b := range d.UpcomingBills {
			rows = append(rows, []string{b.DueDate.String(), b.Description, domain.FormatCurrency(b.Amount), dueIn(b)})
		}

		printTable(out, "Upcoming bills", []string{"Due", "Description", "Amount", "When"}, rows)
	}

	if len(d.RecentTransactions) > 0 {
		rows := make([][]string, 0, len(d.RecentTransactions))
		for _, tx := range d.RecentTransactions {
			amount := tx.Amount
			if tx.Type == domain.EntryExpense {
				amount = amount.Neg()
			}

			rows = append(rows, []string{tx.Date.String(), tx.Description, tx.CategoryName, domain.FormatCurrency(amount)})
		}

		printTable(out, "Recent transactions", []string{"Date", "Description", "Category", "Amount"}, rows)
	}
}

func dueIn(b domain.UpcomingBill) string {
	switch {
	case b.Overdue:
		return "overdue"
	case b.DueToday:
		return "today"
	default:
		return "in " + strconv.Itoa(b.DaysRemaining) + " days"
	}
}

func printTable(out io.Writer, title string, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styles.Muted).
		Headers(headers...).
		Rows(rows...)

	fmt.Fprintln(out)
	fmt.Fprintln(out, styles.Label.Render(title))
	fmt.Fprintln(out, t.String())
}
