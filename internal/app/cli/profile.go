package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mkrupp/fintrack/internal/domain"
)

var errNothingToUpdate = errors.New("nothing to update")

func newProfileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show and edit your profile",
	}

	avatar := &cobra.Command{
		Use:   "avatar",
		Short: "Upload or download your profile picture",
	}
	avatar.AddCommand(newUploadAvatarCommand(), newDownloadAvatarCommand())

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show your profile",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withFinance(cmd, func(ctx context.Context, finance Finance, out io.Writer) error {
					profile, err := finance.GetProfile(ctx)
					if err != nil {
						return fmt.Errorf("get profile: %w", err)
					}

					printProfile(out, profile)

					return nil
				})
			},
		},
		newUpdateProfileCommand(),
		avatar,
	)

	return cmd
}

func printProfile(out io.Writer, profile *domain.Profile) {
	picture := profile.AvatarURL
	if picture == "" {
		picture = "none"
	}

	fmt.Fprintln(out, styles.Label.Render("Name:")+"   "+profile.Name)
	fmt.Fprintln(out, styles.Label.Render("Avatar:")+" "+picture)
}

func newUpdateProfileCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change your display name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("name") {
				return errNothingToUpdate
			}

			return withFinance(cmd, func(ctx context.Context, finance Finance, out io.Writer) error {
				profile, err := finance.UpdateProfile(ctx, domain.ProfilePatch{Name: &name})
				if err != nil {
					return fmt.Errorf("update profile: %w", err)
				}

				printDone(out, "Profile updated", profile.Name)

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")

	return cmd
}

func newUploadAvatarCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a JPEG, PNG or TIFF picture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read picture: %w", err)
			}

			return withFinance(cmd, func(ctx context.Context, finance Finance, out io.Writer) error {
				profile, err := finance.UploadAvatar(ctx, filepath.Base(args[0]), data)
				if err != nil {
					return fmt.Errorf("upload avatar: %w", err)
				}

				printDone(out, "Avatar uploaded", profile.AvatarURL)

				return nil
			})
		},
	}
}

func newDownloadAvatarCommand() *cobra.Command {
	var (
		output string
		width  int
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Save your profile picture to a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withFinance(cmd, func(ctx context.Context, finance Finance, out io.Writer) error {
				avatar, err := finance.Avatar(ctx, width)
				if err != nil {
					return fmt.Errorf("download avatar: %w", err)
				}

				if err := os.WriteFile(output, avatar.Data, 0o600); err != nil {
					return fmt.Errorf("write picture: %w", err)
				}

				printDone(out, "Avatar saved", output+" ("+avatar.MIMEType+")")

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write")
	cmd.Flags().IntVarP(&width, "width", "w", 0, "scale to this width in pixels (0 keeps the original)")

	_ = cmd.MarkFlagRequired("output")

	return cmd
}
