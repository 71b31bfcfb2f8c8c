package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mkrupp/fintrack/internal/domain"
)

// withFinance runs fn against the finance service within the request timeout.
func withFinance(cmd *cobra.Command, fn func(ctx context.Context, finance Finance, out io.Writer) error) error {
	env := environment(cmd)

	ctx, cancel := env.withTimeout(cmd.Context())
	defer cancel()

	return fn(ctx, env.Finance, cmd.OutOrStdout())
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q is not a number", domain.ErrInvalidRecord, s)
	}

	return amount, nil
}

// parseDate parses a YYYY-MM-DD flag. An empty value means today.
func parseDate(s string, now time.Time) (domain.Date, error) {
	if strings.TrimSpace(s) == "" {
		return domain.DateOf(now), nil
	}

	d, err := domain.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return domain.Date{}, fmt.Errorf("%w: date %q, want YYYY-MM-DD", domain.ErrInvalidRecord, s)
	}

	return d, nil
}

func printDone(out io.Writer, title, message string) {
	fmt.Fprintln(out, styles.Success.Render(title+":")+" "+message)
}

func printEmpty(out io.Writer, what string) {
	fmt.Fprintln(out, styles.Muted.Render("No "+what+" yet."))
}

func newDeleteCommand(what string, del func(ctx context.Context, finance Finance, id string) error) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a " + what,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFinance(cmd, func(ctx context.Context, finance Finance, out io.Writer) error {
				if err := del(ctx, finance, args[0]); err != nil {
					return fmt.Errorf("delete %s: %w", what, err)
				}

				printDone(out, "Deleted", what+" "+args[0])

				return nil
			})
		},
	}
}

func newAccountsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List and manage accounts",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List accounts, newest first",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withFinance(cmd, func(ctx context.Context, finance Finance, out io.Writer) error {
					accounts, err := finance.ListAccounts(ctx)
					if err != nil {
						return fmt.Errorf("list accounts: %w", err)
					}

					if len(accounts) == 0 {
						printEmpty(out, "accounts")

						return nil
					}

					rows := make([][]string, 0, len(accounts))
					for _, a := range accounts {
						rows = append(rows, []string{a.ID, a.Name, a.Type, domain.FormatCurrency(a.Balance)})
					}

					printTable(out, "Accounts", []string{"ID", "Name", "Type", "Balance"}, rows)

					return nil
				})
			},
		},
		newAddAccountCommand(),
		newUpdateAccountCommand(),
		newDeleteCommand("account", func(ctx context.Context, finance Finance, id string) error {
			return finance.DeleteAccount(ctx, id)
		}),
	)

	return cmd
}

func newAddAccountCommand() *cobra.Command {
	var (
		account domain.Account
		balance string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := promptMissing(field{value: &account.Name, title: "Name"}); err != nil {
				return err
			}

			amount, err := parseAmount(balance)
			if err != nil {
				return err
			}

			account.Balance = amount

			return withFinance(cmd, func(ctx context.Context, finance Finance, out io.Writer) error {
				created, err := finance.CreateAccount(ctx, account)
				if err != nil {
					return fmt.Errorf("create account: %w", err)
				}

				printDone(out, "Account created", created.Name+" ("+created.ID+")")

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&account.Name, "name", "n", "", "account name")
	cmd.Flags().StringVarP(&account.Type, "type", "t", "checking", "account type, e.g. checking, savings, credit")
	cmd.Flags().StringVarP(&balance, "balance", "b", "0", "opening balance")

	return cmd
}

func newUpdateAccountCommand() *cobra.Command {
	var name, kind, balance string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change an account; only the given flags are changed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch domain.AccountPatch

			flags := cmd.Flags()

			if flags.Changed("name") {
				patch.Name = &name
			}

			if flags.Changed("type") {
				patch.Type = &kind
			}

			if flags.Changed("balance") {
				amount, err := parseAmount(balance)
				if err != nil {
					return err
				}

				patch.Balance = &amount
			}

			return withFinance(cmd, func(ctx context.Context, finance Finance, out io.Writer) error {
				updated, err := finance.UpdateAccount(ctx, args[0], patch)
				if err != nil {
					return fmt.Errorf("update account: %w", err)
				}

				printDone(out, "Account updated", updated.Name+" "+domain.FormatCurrency(updated.Balance))

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "new name")
	cmd.Flags().StringVarP(&kind, "type", "t", "", "new type")
	cmd.Flags().StringVarP(&balance, "balance", "b", "", "new balance")

	return cmd
}

func newCategoriesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List and manage categories",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List categories by name",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withFinance(cmd, func(ctx context.Context, finance Finance, out io.Writer) error {
					categories, err := finance.ListCategories(ctx)
					if err != nil {
						return fmt.Errorf("list categories: %w", err)
					}

					if len(categories) == 0 {
						printEmpty(out, "categories")

						return nil
					}

					rows := make([][]string, 0, len(categories))
					for _, c := range categories {
						rows = append(rows, []string{c.ID, c.Name, string(c.Type), c.Color})
					}

					printTable(out, "Categories", []string{"ID", "Name", "Type", "Color"}, rows)

					return nil
				})
			},
		},
		newAddCategoryCommand(),
		newDeleteCommand("category", func(ctx context.Context, finance Finance, id string) error {
			return finance.DeleteCategory(ctx, id)
		}),
	)

	return cmd
}

func newAddCategoryCommand() *cobra.Command {
	var (
		category domain.Category
		kind     string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := promptMissing(field{value: &category.Name, title: "Name"}); err != nil {
				return err
			}

			category.Type = domain.EntryType(kind)

			return withFinance(cmd, func(ctx context.Context, finance Finance, out io.Writer) error {
				created, err := finance.CreateCategory(ctx, category)
				if err != nil {
					return fmt.Errorf("create category: %w", err)
				}

				printDone(out, "Category created", created.Name+" ("+created.ID+")")

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&category.Name, "name", "n", "", "category name")
	cmd.Flags().StringVarP(&kind, "type", "t", string(domain.EntryExpense), "income or expense")
	cmd.Flags().StringVarP(&category.Color, "color", "c", "#6366f1", "display color")

	return cmd
}
