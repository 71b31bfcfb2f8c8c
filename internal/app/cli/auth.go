package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkrupp/fintrack/internal/app/session"
	"github.com/mkrupp/fintrack/internal/domain"
	"github.com/mkrupp/fintrack/internal/svc/authsvc/authclient"
)

var errPasswordMismatch = errors.New("passwords do not match")

func newLoginCommand() *cobra.Command {
	var creds domain.Credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := promptMissing(
				field{value: &creds.Email, title: "Email"},
				field{value: &creds.Password, title: "Password", password: true},
			); err != nil {
				return err
			}

			return withStore(cmd, func(ctx context.Context, store *session.Store) error {
				return store.Login(ctx, creds)
			})
		},
	}

	cmd.Flags().StringVarP(&creds.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "account password (prompted if empty)")

	return cmd
}

func newRegisterCommand() *cobra.Command {
	var reg domain.Registration

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := promptMissing(
				field{value: &reg.Name, title: "Name"},
				field{value: &reg.Email, title: "Email"},
				field{value: &reg.Password, title: "Password", password: true},
			); err != nil {
				return err
			}

			return withStore(cmd, func(ctx context.Context, store *session.Store) error {
				return store.Register(ctx, reg)
			})
		},
	}

	cmd.Flags().StringVarP(&reg.Name, "name", "n", "", "display name")
	cmd.Flags().StringVarP(&reg.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&reg.Password, "password", "p", "", "account password (prompted if empty)")

	return cmd
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, store *session.Store) error {
				return store.Logout(ctx)
			})
		},
	}
}

func newWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(_ context.Context, store *session.Store) error {
				out := cmd.OutOrStdout()

				u := store.State().User
				if u == nil {
					fmt.Fprintln(out, styles.Muted.Render("Not signed in."))

					return domain.ErrUnauthorized
				}

				fmt.Fprintln(out, styles.Label.Render("Email:")+" "+u.Email)

				if u.Name != "" {
					fmt.Fprintln(out, styles.Label.Render("Name:")+"  "+u.Name)
				}

				fmt.Fprintln(out, styles.Label.Render("ID:")+"    "+u.ID)

				return nil
			})
		},
	}
}

func newForgotPasswordCommand() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Mail a password reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := promptMissing(field{value: &email, title: "Email"}); err != nil {
				return err
			}

			return withStore(cmd, func(ctx context.Context, store *session.Store) error {
				return store.ResetPasswordRequest(ctx, email)
			})
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")

	return cmd
}

func newResetPasswordCommand() *cobra.Command {
	var (
		link     string
		password string
		confirm  string
	)

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password from a reset link",
		Long: `Set a new password from the link of a password reset email.

An invalid or expired link is rejected before asking for the new password;
request a new link with "fintrack forgot-password".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recovery, err := authclient.ParseRecoveryLink(link)
			if err != nil {
				return fmt.Errorf("%w: request a new link with fintrack forgot-password", err)
			}

			if err := promptMissing(
				field{value: &password, title: "New password", password: true},
				field{value: &confirm, title: "Confirm password", password: true},
			); err != nil {
				return err
			}

			if password != confirm {
				return errPasswordMismatch
			}

			env := environment(cmd)

			return withStore(cmd, func(ctx context.Context, store *session.Store) error {
				if err := env.Provider.ExchangeRecoveryToken(ctx, recovery); err != nil {
					return fmt.Errorf("exchange recovery link: %w", err)
				}

				return store.UpdatePassword(ctx, password)
			})
		},
	}

	cmd.Flags().StringVarP(&link, "link", "l", "", "the reset link from the email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "new password (prompted if empty)")
	cmd.Flags().StringVar(&confirm, "confirm", "", "repeat the new password (prompted if empty)")

	_ = cmd.MarkFlagRequired("link")

	return cmd
}
