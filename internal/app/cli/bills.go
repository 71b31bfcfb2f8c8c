package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkrupp/fintrack/internal/domain"
)

func newBillsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bills",
		Short: "List, add and pay bills",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List bills by due date",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withFinance(cmd, func(ctx context.Context, finance Finance, out io.Writer) error {
					bills, err := finance.ListBills(ctx)
					if err != nil {
						return fmt.Errorf("list bills: %w", err)
					}

					if len(bills) == 0 {
						printEmpty(out, "bills")

						return nil
					}

					rows := make([][]string, 0, len(bills))
					for _, b := range bills {
						repeats := "once"
						if b.Recurrent {
							repeats = string(b.Frequency)
						}

						rows = append(rows, []string{
							b.ID, b.DueDate.String(), b.Description, domain.FormatCurrency(b.Amount), string(b.Status), repeats,
						})
					}

					printTable(out, "Bills", []string{"ID", "Due", "Description", "Amount", "Status", "Repeats"}, rows)

					return nil
				})
			},
		},
		newAddBillCommand(),
		&cobra.Command{
			Use:   "pay <id>",
			Short: "Mark a bill as paid; recurrent bills get their next occurrence",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withFinance(cmd, func(ctx context.Context, finance Finance, out io.Writer) error {
					result, err := finance.PayBill(ctx, args[0])
					if err != nil {
						return fmt.Errorf("pay bill: %w", err)
					}

					printDone(out, "Bill paid", result.Paid.Description)

					if result.Next != nil {
						fmt.Fprintln(out, styles.Muted.Render("Next due "+result.Next.DueDate.String()))
					}

					return nil
				})
			},
		},
		newDeleteCommand("bill", func(ctx context.Context, finance Finance, id string) error {
			return finance.DeleteBill(ctx, id)
		}),
	)

	return cmd
}

func newAddBillCommand() *cobra.Command {
	var (
		bill                   domain.Bill
		amount, due, frequency string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a bill",
		Long: `Add a pending bill. With --frequency the bill repeats: paying it schedules
the next one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := promptMissing(
				field{value: &bill.Description, title: "Description"},
				field{value: &amount, title: "Amount"},
				field{value: &due, title: "Due date (YYYY-MM-DD)"},
			); err != nil {
				return err
			}

			var err error

			if bill.Amount, err = parseAmount(amount); err != nil {
				return err
			}

			if bill.DueDate, err = parseDate(due, time.Now()); err != nil {
				return err
			}

			bill.Status = domain.BillPending
			bill.Frequency = domain.BillFrequency(frequency)
			bill.Recurrent = bill.Frequency != domain.FrequencyNone

			return withFinance(cmd, func(ctx context.Context, finance Finance, out io.Writer) error {
				created, err := finance.CreateBill(ctx, bill)
				if err != nil {
					return fmt.Errorf("create bill: %w", err)
				}

				printDone(out, "Bill added", created.Description+" due "+created.DueDate.String()+" ("+created.ID+")")

				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&bill.Description, "description", "d", "", "what the bill is for")
	flags.StringVarP(&amount, "amount", "a", "", "amount due")
	flags.StringVar(&due, "due", "", "due date, YYYY-MM-DD")
	flags.StringVarP(&frequency, "frequency", "f", "", "weekly, monthly or yearly for recurrent bills")

	return cmd
}
