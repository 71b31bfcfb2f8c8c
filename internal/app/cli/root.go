// Package cli implements the fintrack command line client.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mkrupp/fintrack/internal/app/session"
)

type envKey struct{}

// NewRootCommand creates the fintrack command tree. Every command run gets its
// Environment from factory.
func NewRootCommand(factory EnvironmentFactory) *cobra.Command {
	root := &cobra.Command{
		Use:   "fintrack",
		Short: "Personal finance tracking",
		Long: `fintrack keeps track of accounts, transactions, categories and bills.

Run "fintrack ui" for the interactive application, or use the commands below
for single actions. Configuration is read from FINTRACK_CLIENT_* variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			env, err := factory(cmd.Context())
			if err != nil {
				return err
			}

			cmd.SetContext(context.WithValue(cmd.Context(), envKey{}, env))

			return nil
		},
	}

	root.AddCommand(
		newUICommand(),
		newLoginCommand(),
		newRegisterCommand(),
		newLogoutCommand(),
		newWhoamiCommand(),
		newForgotPasswordCommand(),
		newResetPasswordCommand(),
		newDashboardCommand(),
		newAccountsCommand(),
		newCategoriesCommand(),
		newTransactionsCommand(),
		newBillsCommand(),
		newProfileCommand(),
	)

	return root
}

func environment(cmd *cobra.Command) *Environment {
	env, _ := cmd.Context().Value(envKey{}).(*Environment)

	return env
}

// withTimeout bounds ctx by the configured request timeout.
func (env *Environment) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if env.Timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, env.Timeout)
}

// withStore runs fn on an initialized session store, printing its notices to out.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, store *session.Store) error) error {
	env := environment(cmd)
	out := cmd.OutOrStdout()

	ctx, cancel := env.withTimeout(cmd.Context())
	defer cancel()

	store := session.NewStore(env.Provider, nil)
	defer store.Close()

	stop := store.OnNotice(func(n session.Notice) { printNotice(out, n) })
	defer stop()

	store.Initialize(ctx)

	return fn(ctx, store)
}

func printNotice(out io.Writer, n session.Notice) {
	style := styles.Success
	if n.Level == session.NoticeError {
		style = styles.Error
	}

	fmt.Fprintln(out, style.Render(n.Title+":")+" "+n.Message)
}
