package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkrupp/fintrack/internal/domain"
	"github.com/mkrupp/fintrack/internal/repo/ledger"
)

func newTransactionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List and record transactions",
	}

	cmd.AddCommand(
		newListTransactionsCommand(),
		newAddTransactionCommand(),
		newDeleteCommand("transaction", func(ctx context.Context, finance Finance, id string) error {
			return finance.DeleteTransaction(ctx, id)
		}),
	)

	return cmd
}

func newListTransactionsCommand() *cobra.Command {
	var (
		from, to string
		limit    int
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List transactions, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := ledger.TransactionFilter{Limit: limit}

			var err error

			if from != "" {
				if filter.From, err = parseDate(from, time.Time{}); err != nil {
					return err
				}
			}

			if to != "" {
				if filter.To, err = parseDate(to, time.Time{}); err != nil {
					return err
				}
			}

			return withFinance(cmd, func(ctx context.Context, finance Finance, out io.Writer) error {
				txs, err := finance.ListTransactions(ctx, filter)
				if err != nil {
					return fmt.Errorf("list transactions: %w", err)
				}

				if len(txs) == 0 {
					printEmpty(out, "transactions")

					return nil
				}

				rows := make([][]string, 0, len(txs))
				for _, tx := range txs {
					rows = append(rows, []string{
						tx.ID,
						tx.Date.String(),
						tx.Description,
						tx.CategoryName,
						tx.AccountName,
						domain.FormatCurrency(tx.Signed()),
						string(tx.Status),
					})
				}

				printTable(out, "Transactions",
					[]string{"ID", "Date", "Description", "Category", "Account", "Amount", "Status"}, rows)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	cmd.Flags().IntVar(&limit, "limit", 0, "at most this many transactions")

	return cmd
}

func newAddTransactionCommand() *cobra.Command {
	var (
		tx           domain.Transaction
		amount, date string
		kind, status string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Long: `Record a transaction. The amount is always positive; --type says whether
money came in (income) or went out (expense).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := promptMissing(
				field{value: &tx.Description, title: "Description"},
				field{value: &amount, title: "Amount"},
			); err != nil {
				return err
			}

			var err error

			if tx.Amount, err = parseAmount(amount); err != nil {
				return err
			}

			if tx.Date, err = parseDate(date, time.Now()); err != nil {
				return err
			}

			tx.Type = domain.EntryType(kind)
			tx.Status = domain.TransactionStatus(status)

			return withFinance(cmd, func(ctx context.Context, finance Finance, out io.Writer) error {
				created, err := finance.CreateTransaction(ctx, tx)
				if err != nil {
					return fmt.Errorf("create transaction: %w", err)
				}

				printDone(out, "Transaction recorded",
					created.Description+" "+domain.FormatCurrency(created.Signed())+" on "+created.Date.String())

				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&tx.Description, "description", "d", "", "what the money was for")
	flags.StringVarP(&amount, "amount", "a", "", "amount, e.g. 49.90")
	flags.StringVarP(&kind, "type", "t", string(domain.EntryExpense), "income or expense")
	flags.StringVar(&date, "date", "", "day of the transaction, YYYY-MM-DD (defaults to today)")
	flags.StringVarP(&tx.CategoryID, "category", "c", "", "category id")
	flags.StringVar(&tx.AccountID, "account", "", "account id")
	flags.StringVar(&status, "status", string(domain.TransactionCompleted), "completed or pending")

	return cmd
}
