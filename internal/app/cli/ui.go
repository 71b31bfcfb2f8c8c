package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mkrupp/fintrack/internal/app/guard"
	"github.com/mkrupp/fintrack/internal/app/router"
	"github.com/mkrupp/fintrack/internal/app/tui"
)

func newUICommand() *cobra.Command {
	var (
		link  string
		start string
	)

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Run the interactive application",
		Long: `Run the interactive application.

With --link the password reset screen is opened for the link of a password
reset email.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env := environment(cmd)

			if link != "" {
				start = router.ResetPasswordPath
			}

			app := tui.NewApp(tui.Options{
				Provider:     env.Provider,
				Recoverer:    env.Provider,
				Finance:      env.Finance,
				StartPath:    start,
				RecoveryLink: link,
				Timeout:      env.Timeout,
			})
			defer app.Close()

			program := tea.NewProgram(app,
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)

			if _, err := program.Run(); err != nil {
				return fmt.Errorf("run ui: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&link, "link", "l", "", "password reset link to open")
	cmd.Flags().StringVar(&start, "path", guard.DashboardPath, "route to start on")

	return cmd
}
